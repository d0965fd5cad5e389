package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
type MessageRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) (*MessageRepository, error) {
	idSeq, err := backend.GetSequence(messageRecordIDSeq)
	if err != nil {
		return nil, err
	}

	return &MessageRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *MessageRepository) Close() error {
	return r.idSeq.Release()
}

// AddMessages adds one or more message records to storage.
func (r *MessageRepository) AddMessages(ctx context.Context, records ...*core.MessageRecord) ([]*core.MessageRecord, error) {
	for _, record := range records {
		if err := core.ValidateMessageRecord(record); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if record.Id == 0 {
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
				record.Id = core.ID(nextID)
			}

			if record.InsertedAt.IsZero() {
				record.InsertedAt = time.Now().UTC()
			}

			key := makeMessageRecordKey(uint64(record.Id))
			value := storage.MarshalMessageRecord(record)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// FetchCandidateRecords returns every message with non-empty contents,
// ordered by ID.
func (r *MessageRepository) FetchCandidateRecords(ctx context.Context) ([]*core.MessageRecord, error) {
	var records []*core.MessageRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messageRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.MessageRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalMessageRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if record == nil || record.Contents == "" {
				continue
			}
			records = append(records, record)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetMessage retrieves a single message record by ID.
func (r *MessageRepository) GetMessage(ctx context.Context, id core.ID) (*core.MessageRecord, error) {
	var record *core.MessageRecord

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeMessageRecordKey(uint64(id)))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalMessageRecord(val)
			return err
		})
	}, false)

	if err != nil {
		return nil, err
	}
	return record, nil
}

// CountMessages returns the number of stored message records.
func (r *MessageRepository) CountMessages(ctx context.Context) (int64, error) {
	var count int64

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(messageRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)

	return count, err
}
