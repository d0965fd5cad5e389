package badger

import (
	"github.com/poiesic/recall/storage"
)

// Store bundles the message and job repositories backed by one BadgerDB
// database.
type Store struct {
	backend  *Backend
	messages *MessageRepository
	jobs     *JobRepository
}

var _ storage.Store = (*Store)(nil)

// OpenStore opens (or creates) a store at the given path.
func OpenStore(storePath string) (*Store, error) {
	return openStore(storePath, false)
}

func openStore(storePath string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(storePath, inMemory)
	if err != nil {
		return nil, err
	}

	messages, err := NewMessageRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	jobs, err := NewJobRepository(backend)
	if err != nil {
		messages.Close()
		backend.Close()
		return nil, err
	}

	return &Store{
		backend:  backend,
		messages: messages,
		jobs:     jobs,
	}, nil
}

// Messages returns the message repository.
func (s *Store) Messages() storage.MessageRepository {
	return s.messages
}

// Jobs returns the job repository.
func (s *Store) Jobs() storage.JobRepository {
	return s.jobs
}

// Close releases the repositories and the underlying database.
func (s *Store) Close() error {
	s.messages.Close()
	s.jobs.Close()
	return s.backend.Close()
}

// Opener implements storage.Opener for on-disk BadgerDB stores.
type Opener struct{}

var _ storage.Opener = Opener{}

// Open opens the store at storePath.
func (Opener) Open(storePath string) (storage.Store, error) {
	return OpenStore(storePath)
}
