package recall

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/lexical"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/worker"
)

// lexicalOnly indexes every pass with the lexical embedder, keeping the
// test hermetic.
func lexicalOnly(worker.Pass) (ai.Embedder, error) {
	return lexical.New(lexical.DefaultDimension)
}

func openTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(t.TempDir(), t.TempDir(),
		WithWorkerOptions(worker.WithEmbedderFactory(lexicalOnly)))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func waitForCompletedJob(t *testing.T, lib *Library) *core.JobRecord {
	t.Helper()
	var found *core.JobRecord

	require.Eventually(t, func() bool {
		jobs, err := lib.Jobs().ListJobs(context.Background(), "")
		if err != nil {
			return false
		}
		for _, job := range jobs {
			if job.Status == core.JobCompleted {
				found = job
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	return found
}

func TestLibraryIndexAndSearch(t *testing.T) {
	lib := openTestLibrary(t)
	ctx := context.Background()

	_, err := lib.Messages().AddMessages(ctx,
		&core.MessageRecord{Role: "user", Contents: "the deploy pipeline is stuck on staging"},
		&core.MessageRecord{Role: "assistant", Contents: "restart the runner and check the artifact cache"},
	)
	require.NoError(t, err)

	require.NoError(t, lib.Index(false))
	job := waitForCompletedJob(t, lib)
	assert.Equal(t, int64(2), job.TotalCount)

	embedder, err := lexical.New(lexical.DefaultDimension)
	require.NoError(t, err)
	defer embedder.Release()

	searcher, err := lib.NewSearcher(embedder)
	require.NoError(t, err)

	hits, err := searcher.Search(ctx, "the deploy pipeline is stuck on staging", 0.5, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	require.NotNil(t, hits[0].Record)
	assert.Equal(t, "the deploy pipeline is stuck on staging", hits[0].Record.Contents)
}

func TestLibraryCancelWithoutJob(t *testing.T) {
	lib := openTestLibrary(t)

	// Cancelling with nothing running is a no-op, not an error.
	assert.NoError(t, lib.CancelIndexing(""))
}

func TestLibraryCloseStopsWorker(t *testing.T) {
	lib, err := Open(t.TempDir(), t.TempDir(),
		WithWorkerOptions(worker.WithEmbedderFactory(lexicalOnly)))
	require.NoError(t, err)

	require.NoError(t, lib.Close())
	assert.ErrorIs(t, lib.Index(false), worker.ErrWorkerClosed)
}
