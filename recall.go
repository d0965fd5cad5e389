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


// Package recall turns conversational message stores into searchable
// vector indexes, incrementally: unchanged messages are never re-embedded.
package recall

import (
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/worker"
)

// Library is the embedded-use entry point: one open message store plus a
// background worker that maintains its vector indexes.
type Library struct {
	storePath string
	indexPath string
	store     *badger.Store
	handle    *worker.Handle
	logger    *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	aiConfig   *ai.Config
	workerOpts []worker.Option
}

// WithAIConfig sets the embedder configuration for indexing jobs.
func WithAIConfig(cfg *ai.Config) LibraryOption {
	return func(o *libraryOptions) {
		o.aiConfig = cfg
	}
}

// WithWorkerOptions passes extra options to the background worker.
func WithWorkerOptions(opts ...worker.Option) LibraryOption {
	return func(o *libraryOptions) {
		o.workerOpts = append(o.workerOpts, opts...)
	}
}

// Open opens (or creates) the message store at storePath and starts the
// indexing worker. Index files are written under indexPath.
func Open(storePath, indexPath string, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := badger.OpenStore(storePath)
	if err != nil {
		return nil, err
	}

	// The worker shares this store instead of reopening the directory;
	// BadgerDB allows only one live handle per path.
	workerOpts := append([]worker.Option{
		worker.WithAIConfig(options.aiConfig),
	}, options.workerOpts...)
	handle := worker.Start(fixedOpener{store: store}, workerOpts...)

	return &Library{
		storePath: storePath,
		indexPath: indexPath,
		store:     store,
		handle:    handle,
		logger:    slog.Default(),
	}, nil
}

// Close stops the worker, waiting for the job in flight, then closes the
// store.
func (l *Library) Close() error {
	l.handle.Shutdown()
	return l.store.Close()
}

// Messages returns the message repository.
func (l *Library) Messages() storage.MessageRepository {
	return l.store.Messages()
}

// Jobs returns the job repository.
func (l *Library) Jobs() storage.JobRepository {
	return l.store.Jobs()
}

// Index submits an indexing run over the store's current messages.
func (l *Library) Index(twoTier bool) error {
	return l.handle.Submit(worker.JobRequest{
		StorePath: l.storePath,
		IndexPath: l.indexPath,
		TwoTier:   twoTier,
	})
}

// CancelIndexing aborts the running job and marks matching job rows.
// An empty model cancels all models.
func (l *Library) CancelIndexing(model string) error {
	return l.handle.Cancel(l.storePath, model)
}

// NewSearcher opens a searcher over the index the given embedder built.
// Hits resolve to full message records.
func (l *Library) NewSearcher(embedder ai.Embedder) (*search.Searcher, error) {
	return search.NewSearcher(l.indexPath, embedder, l.store.Messages())
}

// fixedOpener hands the worker the already-open store, with a no-op
// Close so job runs don't tear it down.
type fixedOpener struct {
	store *badger.Store
}

var _ storage.Opener = fixedOpener{}

func (o fixedOpener) Open(string) (storage.Store, error) {
	return noCloseStore{o.store}, nil
}

type noCloseStore struct {
	*badger.Store
}

func (noCloseStore) Close() error { return nil }
