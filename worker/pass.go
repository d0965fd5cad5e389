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


package worker

import (
	"context"
	"fmt"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/canon"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/vecindex"
)

// progressInterval is how many records go by between job progress writes.
const progressInterval = 100

// processJob runs every planned pass for one job request. A failed pass
// records its error on the job row and does not stop later passes.
func (w *Worker) processJob(ctx context.Context, req JobRequest) error {
	store, err := w.opener.Open(req.StorePath)
	if err != nil {
		return fmt.Errorf("opening store %s: %w", req.StorePath, err)
	}
	defer store.Close()

	records, err := store.Messages().FetchCandidateRecords(ctx)
	if err != nil {
		return fmt.Errorf("fetching candidates: %w", err)
	}
	if len(records) == 0 {
		w.logger.Info("no candidate records, nothing to index", "store", req.StorePath)
		return nil
	}

	for _, pass := range PlanPasses(req) {
		if w.cancelled.Load() {
			// A cancelled job skips its remaining passes without
			// creating job rows for them.
			w.logger.Info("job cancelled, skipping remaining passes",
				"store", req.StorePath, "model", pass.Model)
			return nil
		}
		if err := w.runPassJob(ctx, store, req, pass, records); err != nil {
			w.logger.Error("pass failed",
				"store", req.StorePath, "model", pass.Model, "err", err)
		}
	}
	return nil
}

// runPassJob wraps one pass in its job lifecycle: upsert, start, run,
// then complete or fail.
func (w *Worker) runPassJob(ctx context.Context, store storage.Store, req JobRequest, pass Pass, records []*core.MessageRecord) error {
	jobs := store.Jobs()

	jobID, err := jobs.UpsertJob(ctx, req.StorePath, pass.Model, int64(len(records)))
	if err != nil {
		return fmt.Errorf("creating job: %w", err)
	}

	embedder, err := w.factory(pass)
	if err != nil {
		failErr := fmt.Errorf("creating %s embedder: %w", pass.Model, err)
		if ferr := jobs.FailJob(ctx, jobID, failErr.Error()); ferr != nil {
			w.logger.Error("recording job failure failed", "job", jobID, "err", ferr)
		}
		return failErr
	}
	defer releaseEmbedder(embedder)

	if err := jobs.StartJob(ctx, jobID); err != nil {
		return fmt.Errorf("starting job: %w", err)
	}

	w.logger.Info("pass started",
		"job", jobID, "model", pass.Model, "embedder", embedder.ID(),
		"records", len(records))

	if err := w.runPass(ctx, jobs, jobID, req, embedder, records); err != nil {
		if ferr := jobs.FailJob(ctx, jobID, err.Error()); ferr != nil {
			w.logger.Error("recording job failure failed", "job", jobID, "err", ferr)
		}
		return err
	}

	if err := jobs.CompleteJob(ctx, jobID); err != nil {
		return fmt.Errorf("completing job: %w", err)
	}
	w.logger.Info("pass completed", "job", jobID, "model", pass.Model)
	return nil
}

// runPass embeds every candidate whose canonical content changed since
// the last run, carries unchanged rows forward, and atomically replaces
// the embedder's index file.
func (w *Worker) runPass(ctx context.Context, jobs storage.JobRepository, jobID core.ID, req JobRequest, embedder ai.Embedder, records []*core.MessageRecord) error {
	indexFile := vecindex.Path(req.IndexPath, embedder.ID())
	existing := vecindex.LoadRows(indexFile)

	type pending struct {
		record *core.MessageRecord
		text   string
		hash   canon.Hash
	}

	var (
		carried   []vecindex.Row
		toEmbed   []pending
		processed int64
		reported  int64
	)

	for _, record := range records {
		if w.cancelled.Load() {
			return errJobCancelled
		}

		text := canon.Canonicalize(record.Contents)
		if text == "" {
			// Low-signal or empty after canonicalization; counts as
			// processed but produces no row.
			processed++
			continue
		}

		hash := canon.ContentHash(text)
		if rows, ok := existing[record.Id]; ok && len(rows) > 0 && rows[0].ContentHash == hash {
			carried = append(carried, rows...)
			processed++
		} else {
			toEmbed = append(toEmbed, pending{record: record, text: text, hash: hash})
		}

		if processed-reported >= progressInterval {
			// Best effort; a failed progress write never kills the pass.
			if err := jobs.UpdateJobProgress(ctx, jobID, processed); err != nil {
				w.logger.Warn("progress update failed", "job", jobID, "err", err)
			}
			reported = processed
		}
	}

	if len(toEmbed) == 0 {
		// Everything is already indexed with current content; leave the
		// index file as is.
		if err := jobs.UpdateJobProgress(ctx, jobID, int64(len(records))); err != nil {
			w.logger.Warn("progress update failed", "job", jobID, "err", err)
		}
		w.logger.Info("index up to date", "job", jobID, "embedder", embedder.ID())
		return nil
	}

	fresh := make([]vecindex.Row, 0, len(toEmbed))
	for start := 0; start < len(toEmbed); start += w.batchSize {
		if w.cancelled.Load() {
			return errJobCancelled
		}

		end := min(start+w.batchSize, len(toEmbed))
		batch := toEmbed[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}

		vectors, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch: %w", err)
		}

		for i, p := range batch {
			roleCode, ok := core.RoleCodeFromString(p.record.Role)
			if !ok {
				roleCode = core.RoleUser
			}
			fresh = append(fresh, vecindex.Row{
				RecordID:    p.record.Id,
				ContentHash: p.hash,
				RoleCode:    roleCode,
				ChunkIdx:    0,
				Embedding:   vectors[i],
			})
		}

		processed += int64(len(batch))
		if err := jobs.UpdateJobProgress(ctx, jobID, processed); err != nil {
			w.logger.Warn("progress update failed", "job", jobID, "err", err)
		}
	}

	idx := vecindex.New(embedder.ID(), embedder.Dimension())
	idx.Rows = append(carried, fresh...)
	if err := vecindex.Save(idx, indexFile); err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	w.logger.Info("index written",
		"job", jobID, "embedder", embedder.ID(),
		"rows", len(idx.Rows), "embedded", len(fresh), "carried", len(carried))
	return nil
}

// releaseEmbedder frees embedders that hold resources, like the lexical
// embedder's goroutine pool.
func releaseEmbedder(e ai.Embedder) {
	if r, ok := e.(interface{ Release() }); ok {
		r.Release()
	}
}
