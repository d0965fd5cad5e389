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


// Package search answers similarity queries against a saved vector index.
// Vectors are unit-normalized at indexing time, so cosine similarity
// reduces to a dot product and a brute-force scan stays simple and exact.
package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/canon"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/vecindex"
)

// Match is one search hit. Record is populated when the searcher has a
// message repository to resolve IDs against, nil otherwise.
type Match struct {
	RecordID core.ID
	RoleCode byte
	Score    float32
	Record   *core.MessageRecord
}

// Searcher runs queries against one embedder's index file.
type Searcher struct {
	embedder ai.Embedder
	index    *vecindex.Index
	messages storage.MessageRepository
}

// NewSearcher loads the index for the embedder under indexPath. The
// messages repository is optional; pass nil to get ID-only matches.
func NewSearcher(indexPath string, embedder ai.Embedder, messages storage.MessageRepository) (*Searcher, error) {
	path := vecindex.Path(indexPath, embedder.ID())
	index, err := vecindex.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading index for %s: %w", embedder.ID(), err)
	}

	if index.EmbedderID != embedder.ID() {
		return nil, fmt.Errorf("index %s was built by embedder %s, not %s",
			path, index.EmbedderID, embedder.ID())
	}
	if index.Dimension != embedder.Dimension() {
		return nil, fmt.Errorf("index dimension %d does not match embedder dimension %d",
			index.Dimension, embedder.Dimension())
	}

	return &Searcher{
		embedder: embedder,
		index:    index,
		messages: messages,
	}, nil
}

// Search embeds the query and returns matches with score >= minScore,
// best first, up to limit results. The query goes through the same
// canonicalization as indexed content.
func (s *Searcher) Search(ctx context.Context, query string, minScore float32, limit int) ([]Match, error) {
	text := canon.Canonicalize(query)
	if text == "" {
		return nil, nil
	}

	vector, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var matches []Match
	for _, row := range s.index.Rows {
		score := dotProduct(vector, row.Embedding)
		if score >= minScore {
			matches = append(matches, Match{
				RecordID: row.RecordID,
				RoleCode: row.RoleCode,
				Score:    score,
			})
		}
	}

	slices.SortFunc(matches, func(a, b Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	if s.messages != nil {
		for i := range matches {
			record, err := s.messages.GetMessage(ctx, matches[i].RecordID)
			if err != nil {
				// Index rows can outlive their records; leave the match
				// unresolved.
				continue
			}
			matches[i].Record = record
		}
	}
	return matches, nil
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
