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


// Package lexical provides a deterministic FNV-1a feature-hash embedder.
// It needs no model assets, making it the always-available fast tier.
package lexical

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
)

// DefaultDimension matches the semantic tier so the two indexes are
// interchangeable for consumers that only care about vector width.
const DefaultDimension = 384

// Embedder hashes token features into a fixed-dimension vector.
// Identical text always produces an identical vector.
type Embedder struct {
	dim  int
	pool *ants.Pool
}

var _ ai.Embedder = (*Embedder)(nil)

// New creates a lexical embedder with the given dimension.
// Batch embedding fans out across an internal worker pool.
func New(dim int) (*Embedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ai.ErrInvalidInput, dim)
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrSubsystem, err)
	}

	return &Embedder{dim: dim, pool: pool}, nil
}

// Release frees the internal worker pool.
// The embedder should not be used after calling Release.
func (e *Embedder) Release() {
	e.pool.Release()
}

// ID returns the stable embedder identifier, e.g. "fnv1a-384".
func (e *Embedder) ID() string {
	return fmt.Sprintf("fnv1a-%d", e.dim)
}

// Dimension returns the fixed output dimension.
func (e *Embedder) Dimension() int {
	return e.dim
}

// IsSemantic reports false: feature hashing carries no semantics.
func (e *Embedder) IsSemantic() bool {
	return false
}

// EmbedText generates a deterministic unit vector for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ai.ErrInvalidInput)
	}
	return e.embedOne(text), nil
}

// EmbedTexts embeds a batch, hashing texts concurrently on the internal
// pool. Output order matches input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", ai.ErrInvalidInput, i)
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	results := make([][]float32, len(texts))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var submitErr error

	for i, text := range texts {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			results[i] = e.embedOne(text)
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			submitErr = err
			mu.Unlock()
			break
		}
	}
	wg.Wait()

	if submitErr != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrSubsystem, submitErr)
	}
	return results, nil
}

// embedOne accumulates signed token features into hash buckets, then
// normalizes. Tokens are lowercased alphanumeric runs.
func (e *Embedder) embedOne(text string) []float32 {
	v := make([]float32, e.dim)

	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dim))
		if sum&(1<<63) != 0 {
			v[bucket] -= 1
		} else {
			v[bucket] += 1
		}
	}

	ai.NormalizeInPlace(v)
	return v
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
