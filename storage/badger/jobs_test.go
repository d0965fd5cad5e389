package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertAndGetJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 10)
	require.NoError(t, err)
	require.NotZero(t, id)

	job, err := store.Jobs().GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/data/a.db", job.StorePath)
	assert.Equal(t, "hash", job.ModelName)
	assert.Equal(t, core.JobPending, job.Status)
	assert.Equal(t, int64(10), job.TotalCount)
	assert.Zero(t, job.CompletedCount)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestUpsertSupersedesPreviousJob(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 10)
	require.NoError(t, err)
	second, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 20)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// The superseded job is gone; only the new row remains.
	_, err = store.Jobs().GetJob(ctx, first)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	job, err := store.Jobs().GetJob(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(20), job.TotalCount)

	jobs, err := store.Jobs().ListJobs(ctx, "/data/a.db")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "minilm", 100)
	require.NoError(t, err)

	require.NoError(t, store.Jobs().StartJob(ctx, id))
	job, err := store.Jobs().GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobRunning, job.Status)

	require.NoError(t, store.Jobs().UpdateJobProgress(ctx, id, 50))
	job, err = store.Jobs().GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), job.CompletedCount)

	require.NoError(t, store.Jobs().CompleteJob(ctx, id))
	job, err = store.Jobs().GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
	assert.Equal(t, int64(100), job.CompletedCount)
	assert.True(t, job.Status.Terminal())
}

func TestInvalidTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 5)
	require.NoError(t, err)

	// Pending jobs cannot complete or report progress.
	assert.ErrorIs(t, store.Jobs().CompleteJob(ctx, id), core.ErrInvalidJobTransition)
	assert.ErrorIs(t, store.Jobs().UpdateJobProgress(ctx, id, 1), core.ErrInvalidJobTransition)

	require.NoError(t, store.Jobs().StartJob(ctx, id))
	assert.ErrorIs(t, store.Jobs().StartJob(ctx, id), core.ErrInvalidJobTransition)

	require.NoError(t, store.Jobs().CompleteJob(ctx, id))
	assert.ErrorIs(t, store.Jobs().FailJob(ctx, id, "too late"), core.ErrInvalidJobTransition)
}

func TestFailJobRecordsMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "minilm", 5)
	require.NoError(t, err)
	require.NoError(t, store.Jobs().StartJob(ctx, id))
	require.NoError(t, store.Jobs().FailJob(ctx, id, "model bundle missing"))

	job, err := store.Jobs().GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, job.Status)
	assert.Equal(t, "model bundle missing", job.ErrorMessage)
}

func TestCancelJobsMatching(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hashID, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 5)
	require.NoError(t, err)
	minilmID, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "minilm", 5)
	require.NoError(t, err)
	otherID, err := store.Jobs().UpsertJob(ctx, "/data/b.db", "hash", 5)
	require.NoError(t, err)
	doneID, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "other", 5)
	require.NoError(t, err)
	require.NoError(t, store.Jobs().StartJob(ctx, doneID))
	require.NoError(t, store.Jobs().CompleteJob(ctx, doneID))

	cancelled, err := store.Jobs().CancelJobsMatching(ctx, "/data/a.db", "")
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)

	for _, id := range []core.ID{hashID, minilmID} {
		job, err := store.Jobs().GetJob(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, core.JobFailed, job.Status)
		assert.Equal(t, "job cancelled", job.ErrorMessage)
	}

	// Other store untouched, completed job untouched.
	job, err := store.Jobs().GetJob(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, job.Status)

	job, err = store.Jobs().GetJob(ctx, doneID)
	require.NoError(t, err)
	assert.Equal(t, core.JobCompleted, job.Status)
}

func TestCancelJobsMatchingModelFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hashID, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 5)
	require.NoError(t, err)
	minilmID, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "minilm", 5)
	require.NoError(t, err)

	cancelled, err := store.Jobs().CancelJobsMatching(ctx, "/data/a.db", "minilm")
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	job, err := store.Jobs().GetJob(ctx, hashID)
	require.NoError(t, err)
	assert.Equal(t, core.JobPending, job.Status)

	job, err = store.Jobs().GetJob(ctx, minilmID)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, job.Status)
}

func TestListJobsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Jobs().UpsertJob(ctx, "/data/a.db", "hash", 1)
	require.NoError(t, err)
	_, err = store.Jobs().UpsertJob(ctx, "/data/a.db", "minilm", 2)
	require.NoError(t, err)
	_, err = store.Jobs().UpsertJob(ctx, "/data/b.db", "hash", 3)
	require.NoError(t, err)

	all, err := store.Jobs().ListJobs(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}

	scoped, err := store.Jobs().ListJobs(ctx, "/data/a.db")
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
}

func TestGetJobNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Jobs().GetJob(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsertJobRejectsReservedSeparator(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Jobs().UpsertJob(context.Background(), "/data/a.db", "bad|model", 1)
	assert.Error(t, err)
}
