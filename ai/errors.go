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


package ai

import "errors"

// Embedder error taxonomy. Implementations wrap these sentinels with
// fmt.Errorf("...: %w", ...) so callers can classify failures with errors.Is.
var (
	// ErrEmbedderUnavailable indicates model assets are missing or unreadable.
	// Fatal to constructing that embedder, not fatal to the worker.
	ErrEmbedderUnavailable = errors.New("embedder unavailable")

	// ErrEmbeddingFailed indicates a backend call error or a dimension mismatch.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrInvalidInput indicates unusable input, such as empty text.
	ErrInvalidInput = errors.New("invalid embedder input")

	// ErrSubsystem indicates an internal fault in the embedding subsystem.
	ErrSubsystem = errors.New("embedder subsystem error")
)
