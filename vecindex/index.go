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


// Package vecindex implements the on-disk vector index: one file per
// embedder, holding unit-normalized embeddings keyed by record ID and
// content hash. Files are replaced atomically so readers never observe a
// partially written index.
package vecindex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/recall/canon"
	"github.com/poiesic/recall/core"
)

// ErrCorrupt indicates an index file that could not be decoded.
var ErrCorrupt = errors.New("vecindex: corrupt index file")

// formatVersion is bumped on any change to the row layout.
const formatVersion byte = 1

const indexSubdir = "vector_index"

// Row is one embedded chunk of one message.
type Row struct {
	RecordID    core.ID
	ContentHash canon.Hash
	RoleCode    byte
	ChunkIdx    byte
	Embedding   []float32
}

// Index is the in-memory form of one embedder's index file.
type Index struct {
	EmbedderID string
	Dimension  int
	Rows       []Row
}

// New creates an empty index for the given embedder.
func New(embedderID string, dimension int) *Index {
	return &Index{
		EmbedderID: embedderID,
		Dimension:  dimension,
		Rows:       []Row{},
	}
}

// Path returns the index file path for an embedder under indexPath.
// Each embedder gets its own file so tiers never clobber each other.
func Path(indexPath, embedderID string) string {
	return filepath.Join(indexPath, indexSubdir, "index-"+embedderID+".vri")
}

// Save writes the index atomically: marshal to a temp file in the target
// directory, then rename over the destination.
func Save(idx *Index, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	data, err := marshalIndex(idx)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing index temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index file: %w", err)
	}
	return nil
}

// Load reads and decodes an index file.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index file: %w", err)
	}
	return unmarshalIndex(data)
}

// Exists reports whether an index file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// LoadHashes returns the content hash of each record in the index file.
// A missing or unreadable file degrades to an empty map: the caller then
// re-embeds everything, which is always safe.
func LoadHashes(path string) map[core.ID]canon.Hash {
	hashes := make(map[core.ID]canon.Hash)

	// Corrupt files are treated the same as absent ones.
	idx, err := Load(path)
	if err != nil {
		return hashes
	}

	for _, row := range idx.Rows {
		hashes[row.RecordID] = row.ContentHash
	}
	return hashes
}

// LoadRows returns the rows of an index file grouped by record ID.
// Missing or unreadable files degrade to an empty map.
func LoadRows(path string) map[core.ID][]Row {
	rows := make(map[core.ID][]Row)

	idx, err := Load(path)
	if err != nil {
		return rows
	}

	for _, row := range idx.Rows {
		rows[row.RecordID] = append(rows[row.RecordID], row)
	}
	return rows
}
