package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// MessageRepository provides operations over the message store that feeds
// the indexing pipeline. Implementations must be thread-safe.
type MessageRepository interface {
	// AddMessages adds one or more message records to storage.
	// For records with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the records with generated IDs and timestamps populated.
	AddMessages(ctx context.Context, records ...*core.MessageRecord) ([]*core.MessageRecord, error)

	// FetchCandidateRecords returns every message eligible for embedding,
	// ordered by ID. Records with empty contents are excluded.
	FetchCandidateRecords(ctx context.Context) ([]*core.MessageRecord, error)

	// GetMessage retrieves a single message record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetMessage(ctx context.Context, id core.ID) (*core.MessageRecord, error)

	// CountMessages returns the number of stored message records.
	CountMessages(ctx context.Context) (int64, error)

	// Close releases repository resources.
	Close() error
}

// JobRepository provides the embedding job lifecycle. At most one
// non-terminal job exists per (store path, model) pair; submitting a new
// pass for the same pair supersedes the previous row.
type JobRepository interface {
	// UpsertJob creates or replaces the job row for (storePath, modelName)
	// in pending state with the given total, returning the job ID.
	UpsertJob(ctx context.Context, storePath, modelName string, totalCount int64) (core.ID, error)

	// StartJob transitions a pending job to running.
	// Returns core.ErrInvalidJobTransition for any other state.
	StartJob(ctx context.Context, id core.ID) error

	// UpdateJobProgress records the completed count of a running job.
	UpdateJobProgress(ctx context.Context, id core.ID, completed int64) error

	// CompleteJob transitions a running job to completed.
	CompleteJob(ctx context.Context, id core.ID) error

	// FailJob transitions a pending or running job to failed, recording
	// the error message.
	FailJob(ctx context.Context, id core.ID, message string) error

	// CancelJobsMatching marks every non-terminal job for storePath as
	// failed with a cancellation message. An empty modelName matches all
	// models. Returns the number of jobs cancelled.
	CancelJobsMatching(ctx context.Context, storePath, modelName string) (int, error)

	// GetJob retrieves a job record by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.JobRecord, error)

	// ListJobs returns every job row, newest first. An empty storePath
	// matches all stores.
	ListJobs(ctx context.Context, storePath string) ([]*core.JobRecord, error)

	// Close releases repository resources.
	Close() error
}

// Store bundles the repositories backed by one database.
type Store interface {
	Messages() MessageRepository
	Jobs() JobRepository
	Close() error
}

// Opener opens a Store for a given store path. The worker uses it to
// resolve job requests to live stores without owning their lifetimes.
type Opener interface {
	Open(storePath string) (Store, error)
}
