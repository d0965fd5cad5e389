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


// Package onnx provides the semantic embedding tier backed by an on-disk
// ONNX model bundle served through a local OpenAI-compatible inference
// runtime. The bundle is validated at construction time so that a missing
// or partial model fails fast rather than mid-job.
package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/recall/ai"
)

const (
	// ModelDirName is the bundle directory for the default semantic model.
	ModelDirName = "all-MiniLM-L6-v2"

	// EmbedderID is the stable identifier baked into index file names.
	EmbedderID = "minilm-384"

	// Dimension is the output width of the default semantic model.
	Dimension = 384
)

// Bundle layout. Newer exports place the model under onnx/, older ones at
// the bundle root; both are accepted, preferring the modern location.
const (
	modelFileModern = "onnx/model.onnx"
	modelFileLegacy = "model.onnx"
)

var requiredBundleFiles = []string{
	"tokenizer.json",
	"config.json",
	"special_tokens_map.json",
	"tokenizer_config.json",
}

// Embedder implements ai.Embedder using a local model bundle and an
// OpenAI-compatible inference runtime.
type Embedder struct {
	embedder  embeddings.Embedder
	modelDir  string
	modelFile string
	logger    *slog.Logger

	// The local runtime loads the model lazily and does not handle
	// concurrent requests for the same model well; serialize inference.
	mu sync.Mutex
}

var _ ai.Embedder = (*Embedder)(nil)

// DefaultModelDir returns the bundle directory for the default semantic
// model under the given data directory.
func DefaultModelDir(dataDir string) string {
	return ModelDirFor(dataDir, ModelDirName)
}

// ModelDirFor returns the bundle directory for a named model under the
// given data directory.
func ModelDirFor(dataDir, modelName string) string {
	return filepath.Join(dataDir, "models", modelName)
}

// Load validates the default model bundle under config.DataDir and
// constructs the embedder. It never downloads anything: a missing bundle
// is reported as ai.ErrEmbedderUnavailable.
func Load(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrInvalidInput, err)
	}
	return LoadFromDir(config, DefaultModelDir(config.DataDir))
}

// LoadFromDir validates the model bundle at modelDir and constructs the
// embedder.
func LoadFromDir(config *ai.Config, modelDir string) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrInvalidInput, err)
	}

	modelFile, err := selectModelFile(modelDir)
	if err != nil {
		return nil, err
	}
	for _, name := range requiredBundleFiles {
		if _, err := os.Stat(filepath.Join(modelDir, name)); err != nil {
			return nil, fmt.Errorf("%w: bundle file %s missing in %s",
				ai.ErrEmbedderUnavailable, name, modelDir)
		}
	}

	// Use "none" as token for local OpenAI-compatible services that don't
	// require authentication.
	client, err := openai.New(
		openai.WithBaseURL(config.InferenceHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(ModelDirName),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbedderUnavailable, err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbedderUnavailable, err)
	}

	return &Embedder{
		embedder:  embedder,
		modelDir:  modelDir,
		modelFile: modelFile,
		logger:    slog.Default().With("component", "onnx-embedder"),
	}, nil
}

// selectModelFile resolves the model weights path within the bundle,
// preferring the modern onnx/ subdirectory layout.
func selectModelFile(modelDir string) (string, error) {
	info, err := os.Stat(modelDir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: model directory %s not found",
			ai.ErrEmbedderUnavailable, modelDir)
	}

	modern := filepath.Join(modelDir, filepath.FromSlash(modelFileModern))
	if _, err := os.Stat(modern); err == nil {
		return modern, nil
	}
	legacy := filepath.Join(modelDir, modelFileLegacy)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}
	return "", fmt.Errorf("%w: no model weights in %s (tried %s, %s)",
		ai.ErrEmbedderUnavailable, modelDir, modelFileModern, modelFileLegacy)
}

// ModelFile returns the resolved path of the model weights.
func (e *Embedder) ModelFile() string {
	return e.modelFile
}

// ID returns the stable embedder identifier.
func (e *Embedder) ID() string {
	return EmbedderID
}

// Dimension returns the fixed output dimension.
func (e *Embedder) Dimension() int {
	return Dimension
}

// IsSemantic reports true.
func (e *Embedder) IsSemantic() bool {
	return true
}

// EmbedText generates a unit-normalized embedding for a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ai.ErrInvalidInput)
	}

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates unit-normalized embeddings for a batch of texts.
// Output order matches input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: empty text at index %d", ai.ErrInvalidInput, i)
		}
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Debug("generating embeddings", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("inference request failed", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %w", ai.ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: runtime returned %d vectors for %d texts",
			ai.ErrEmbeddingFailed, len(vectors), len(texts))
	}

	for i, v := range vectors {
		if len(v) != Dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d",
				ai.ErrEmbeddingFailed, i, len(v), Dimension)
		}
		ai.NormalizeInPlace(v)
	}
	return vectors, nil
}
