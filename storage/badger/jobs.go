// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// cancelledMessage is recorded on jobs cancelled before completion.
const cancelledMessage = "job cancelled"

// JobRepository implements storage.JobRepository for BadgerDB.
//
// Jobs are keyed by (store path, model) tuple, so a new pass for the same
// pair overwrites the previous row. A secondary key maps job IDs back to
// tuple keys for lookups by ID.
type JobRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	idSeq, err := backend.GetSequence(jobRecordIDSeq)
	if err != nil {
		return nil, err
	}

	return &JobRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *JobRepository) Close() error {
	return r.idSeq.Release()
}

// UpsertJob creates or replaces the job row for (storePath, modelName).
func (r *JobRepository) UpsertJob(ctx context.Context, storePath, modelName string, totalCount int64) (core.ID, error) {
	if strings.Contains(modelName, "|") {
		return 0, fmt.Errorf("model name %q contains reserved separator", modelName)
	}

	var id core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		id = core.ID(nextID)

		tupleKey := makeJobTupleKey(storePath, modelName)

		// A superseded row leaves a stale ID mapping behind; remove it.
		if old, err := readJobRecord(tx, tupleKey); err != nil {
			return err
		} else if old != nil {
			if err := tx.Delete(makeJobIDKey(uint64(old.Id))); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		record := &core.JobRecord{
			Id:         id,
			StorePath:  storePath,
			ModelName:  modelName,
			Status:     core.JobPending,
			TotalCount: totalCount,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := tx.Set(tupleKey, storage.MarshalJobRecord(record)); err != nil {
			return err
		}
		if err := tx.Set(makeJobIDKey(uint64(id)), tupleKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return id, nil
}

// StartJob transitions a pending job to running.
func (r *JobRepository) StartJob(ctx context.Context, id core.ID) error {
	return r.updateJob(id, func(record *core.JobRecord) error {
		if record.Status != core.JobPending {
			return fmt.Errorf("%w: cannot start %s job %d",
				core.ErrInvalidJobTransition, record.Status, id)
		}
		record.Status = core.JobRunning
		return nil
	})
}

// UpdateJobProgress records the completed count of a running job.
func (r *JobRepository) UpdateJobProgress(ctx context.Context, id core.ID, completed int64) error {
	return r.updateJob(id, func(record *core.JobRecord) error {
		if record.Status != core.JobRunning {
			return fmt.Errorf("%w: cannot update progress of %s job %d",
				core.ErrInvalidJobTransition, record.Status, id)
		}
		record.CompletedCount = completed
		return nil
	})
}

// CompleteJob transitions a running job to completed.
func (r *JobRepository) CompleteJob(ctx context.Context, id core.ID) error {
	return r.updateJob(id, func(record *core.JobRecord) error {
		if record.Status != core.JobRunning {
			return fmt.Errorf("%w: cannot complete %s job %d",
				core.ErrInvalidJobTransition, record.Status, id)
		}
		record.Status = core.JobCompleted
		record.CompletedCount = record.TotalCount
		return nil
	})
}

// FailJob transitions a pending or running job to failed.
func (r *JobRepository) FailJob(ctx context.Context, id core.ID, message string) error {
	return r.updateJob(id, func(record *core.JobRecord) error {
		if record.Status.Terminal() {
			return fmt.Errorf("%w: cannot fail %s job %d",
				core.ErrInvalidJobTransition, record.Status, id)
		}
		record.Status = core.JobFailed
		record.ErrorMessage = message
		return nil
	})
}

// CancelJobsMatching marks every non-terminal job for storePath as failed.
func (r *JobRepository) CancelJobsMatching(ctx context.Context, storePath, modelName string) (int, error) {
	var cancelled int

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var matched []*core.JobRecord
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.JobRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalJobRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record.StorePath != storePath || record.Status.Terminal() {
				continue
			}
			if modelName != "" && record.ModelName != modelName {
				continue
			}
			matched = append(matched, record)
		}
		// The iterator must be closed before the transaction commits.
		iter.Close()

		now := time.Now().UTC()
		for _, record := range matched {
			record.Status = core.JobFailed
			record.ErrorMessage = cancelledMessage
			record.UpdatedAt = now

			key := makeJobTupleKey(record.StorePath, record.ModelName)
			if err := tx.Set(key, storage.MarshalJobRecord(record)); err != nil {
				return err
			}
			cancelled++
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

// GetJob retrieves a job record by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.ID) (*core.JobRecord, error) {
	var record *core.JobRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		tupleKey, err := readJobTupleKey(tx, id)
		if err != nil {
			return err
		}
		record, err = readJobRecord(tx, tupleKey)
		if err != nil {
			return err
		}
		if record == nil || record.Id != id {
			// The tuple row was superseded by a newer job.
			return storage.ErrNotFound
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListJobs returns every job row, newest first.
func (r *JobRepository) ListJobs(ctx context.Context, storePath string) ([]*core.JobRecord, error) {
	var records []*core.JobRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(jobRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.JobRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalJobRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if storePath != "" && record.StorePath != storePath {
				continue
			}
			records = append(records, record)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Newest first by creation time, job ID as tiebreak.
	slices.SortFunc(records, func(a, b *core.JobRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if b.Id > a.Id {
			return 1
		}
		if b.Id < a.Id {
			return -1
		}
		return 0
	})
	return records, nil
}

// updateJob applies fn to the job row for id and persists the result with
// a fresh UpdatedAt.
func (r *JobRepository) updateJob(id core.ID, fn func(*core.JobRecord) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		tupleKey, err := readJobTupleKey(tx, id)
		if err != nil {
			return err
		}
		record, err := readJobRecord(tx, tupleKey)
		if err != nil {
			return err
		}
		if record == nil || record.Id != id {
			return storage.ErrNotFound
		}

		if err := fn(record); err != nil {
			return err
		}
		record.UpdatedAt = time.Now().UTC()

		if err := tx.Set(tupleKey, storage.MarshalJobRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readJobTupleKey resolves a job ID to its tuple key via the secondary index.
func readJobTupleKey(tx *badger.Txn, id core.ID) ([]byte, error) {
	item, err := tx.Get(makeJobIDKey(uint64(id)))
	if err == badger.ErrKeyNotFound {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// readJobRecord reads the job row at key, returning nil when absent.
func readJobRecord(tx *badger.Txn, key []byte) (*core.JobRecord, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record *core.JobRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalJobRecord(val)
		return err
	})
	return record, err
}
