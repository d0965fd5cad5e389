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


// Package worker runs embedding jobs in the background. A single worker
// goroutine drains a command queue, so jobs for one worker never overlap;
// a Handle provides non-blocking submission, cancellation, and shutdown
// from other goroutines.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/lexical"
	"github.com/poiesic/recall/ai/onnx"
	"github.com/poiesic/recall/storage"
)

// ErrWorkerClosed is returned by Handle operations after shutdown.
var ErrWorkerClosed = errors.New("worker is closed")

// ErrQueueFull is returned by Handle operations when the command queue
// has no room left. Callers may retry once the backlog drains.
var ErrQueueFull = errors.New("worker queue is full")

// errJobCancelled aborts a running pass; its message is recorded on the
// job row.
var errJobCancelled = errors.New("job cancelled")

const (
	defaultBatchSize = 32
	commandQueueSize = 128
)

// EmbedderFactory builds the embedder for one pass. Factories are invoked
// on the worker goroutine, once per pass.
type EmbedderFactory func(pass Pass) (ai.Embedder, error)

type commandKind int

const (
	commandSubmit commandKind = iota
	commandCancel
)

type command struct {
	kind      commandKind
	req       JobRequest
	storePath string
	model     string
}

// Worker processes embedding jobs sequentially.
type Worker struct {
	opener    storage.Opener
	factory   EmbedderFactory
	batchSize int
	logger    *slog.Logger

	commands  chan command
	quit      chan struct{}
	quitOnce  sync.Once
	done      chan struct{}
	cancelled atomic.Bool
}

// Option configures a Worker.
type Option func(*Worker)

// WithEmbedderFactory replaces the default embedder construction.
func WithEmbedderFactory(factory EmbedderFactory) Option {
	return func(w *Worker) {
		w.factory = factory
	}
}

// WithBatchSize sets how many texts are sent to the embedder at once.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithAIConfig configures the default embedder factory. Ignored when
// WithEmbedderFactory is also given.
func WithAIConfig(cfg *ai.Config) Option {
	return func(w *Worker) {
		w.factory = defaultFactory(cfg)
	}
}

// New creates a worker. Call Start to launch its goroutine.
func New(opener storage.Opener, opts ...Option) *Worker {
	w := &Worker{
		opener:    opener,
		factory:   defaultFactory(ai.DefaultConfig()),
		batchSize: defaultBatchSize,
		logger:    slog.Default().With("component", "embedding-worker"),
		commands:  make(chan command, commandQueueSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutine and returns its handle.
func Start(opener storage.Opener, opts ...Option) *Handle {
	w := New(opener, opts...)
	go w.run()
	return &Handle{worker: w}
}

// defaultFactory builds the shipped embedders: lexical feature hashing
// for the fast tier, the on-disk model bundle for the semantic tier.
func defaultFactory(cfg *ai.Config) EmbedderFactory {
	return func(pass Pass) (ai.Embedder, error) {
		if pass.Semantic {
			return onnx.Load(cfg)
		}
		return lexical.New(lexical.DefaultDimension)
	}
}

// run is the worker loop. Quit only takes effect once the queue is
// drained, so a submit-then-shutdown sequence still runs the job.
func (w *Worker) run() {
	defer close(w.done)

	for {
		select {
		case cmd := <-w.commands:
			w.dispatch(cmd)
		default:
			select {
			case cmd := <-w.commands:
				w.dispatch(cmd)
			case <-w.quit:
				return
			}
		}
	}
}

func (w *Worker) dispatch(cmd command) {
	ctx := context.Background()

	switch cmd.kind {
	case commandSubmit:
		// A fresh job clears any cancellation left over from the
		// previous one.
		w.cancelled.Store(false)
		if err := w.processJob(ctx, cmd.req); err != nil {
			w.logger.Error("job processing failed",
				"store", cmd.req.StorePath, "err", err)
		}
	case commandCancel:
		if err := w.markCancelled(ctx, cmd.storePath, cmd.model); err != nil {
			w.logger.Error("marking cancelled jobs failed",
				"store", cmd.storePath, "err", err)
		}
	}
}

// markCancelled records the cancellation on any non-terminal job rows.
func (w *Worker) markCancelled(ctx context.Context, storePath, model string) error {
	store, err := w.opener.Open(storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Jobs().CancelJobsMatching(ctx, storePath, model)
	if err != nil {
		return err
	}
	w.logger.Info("cancelled jobs", "store", storePath, "count", n)
	return nil
}

// Handle is the concurrency-safe front of a Worker.
type Handle struct {
	worker *Worker
}

// Submit enqueues a job request without blocking. Returns ErrWorkerClosed
// after shutdown and ErrQueueFull when the command queue is saturated.
func (h *Handle) Submit(req JobRequest) error {
	return h.send(command{kind: commandSubmit, req: req})
}

// Cancel aborts the job in flight and marks matching job rows failed.
// An empty model cancels every model's job for the store.
func (h *Handle) Cancel(storePath, model string) error {
	select {
	case <-h.worker.done:
		return ErrWorkerClosed
	default:
	}

	// Flip the flag first so a running pass stops at its next record.
	h.worker.cancelled.Store(true)

	return h.send(command{kind: commandCancel, storePath: storePath, model: model})
}

func (h *Handle) send(cmd command) error {
	select {
	case <-h.worker.done:
		return ErrWorkerClosed
	default:
	}

	select {
	case h.worker.commands <- cmd:
		return nil
	case <-h.worker.done:
		return ErrWorkerClosed
	default:
		return ErrQueueFull
	}
}

// Shutdown stops the worker after the job in flight finishes and waits
// for the goroutine to exit. Safe to call more than once.
func (h *Handle) Shutdown() {
	h.worker.quitOnce.Do(func() {
		close(h.worker.quit)
	})
	<-h.worker.done
}

// Done is closed once the worker goroutine has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.worker.done
}
