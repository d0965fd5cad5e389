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


package vecindex

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/recall/canon"
	"github.com/poiesic/recall/core"
)

// File layout: version byte, embedder ID, dimension, row count, then rows.
// Each row: record ID, 32-byte content hash, role code, chunk index, and
// the embedding as dimension raw float32 values.

func marshalIndex(idx *Index) ([]byte, error) {
	for i, row := range idx.Rows {
		if len(row.Embedding) != idx.Dimension {
			return nil, fmt.Errorf("row %d: embedding has %d values, index dimension is %d",
				i, len(row.Embedding), idx.Dimension)
		}
	}

	size := raw.Byte.Size(formatVersion)
	size += ord.String.Size(idx.EmbedderID)
	size += varint.Int.Size(idx.Dimension)
	size += varint.Int.Size(len(idx.Rows))
	for _, row := range idx.Rows {
		size += rowSize(&row, idx.Dimension)
	}

	bs := make([]byte, size)
	n := raw.Byte.Marshal(formatVersion, bs)
	n += ord.String.Marshal(idx.EmbedderID, bs[n:])
	n += varint.Int.Marshal(idx.Dimension, bs[n:])
	n += varint.Int.Marshal(len(idx.Rows), bs[n:])
	for _, row := range idx.Rows {
		n += marshalRow(&row, bs[n:])
	}
	return bs, nil
}

func unmarshalIndex(bs []byte) (*Index, error) {
	version, n, err := raw.Byte.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, version)
	}

	idx := &Index{}
	var n1 int

	idx.EmbedderID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	idx.Dimension, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if idx.Dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrCorrupt, idx.Dimension)
	}

	count, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: row count %d", ErrCorrupt, count)
	}

	// Never trust decoded sizes: a corrupt header must not drive a huge
	// allocation. Every row occupies at least minRow bytes.
	if count > 0 {
		remaining := len(bs[n:])
		if idx.Dimension > remaining/raw.Float32.Size(0) {
			return nil, fmt.Errorf("%w: dimension %d exceeds file size", ErrCorrupt, idx.Dimension)
		}
		minRow := 1 + canon.HashSize + 2 + idx.Dimension*raw.Float32.Size(0)
		if count > remaining/minRow {
			return nil, fmt.Errorf("%w: row count %d exceeds file size", ErrCorrupt, count)
		}
	}

	idx.Rows = make([]Row, 0, count)
	for i := 0; i < count; i++ {
		row, n1, err := unmarshalRow(bs[n:], idx.Dimension)
		n += n1
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", ErrCorrupt, i, err)
		}
		idx.Rows = append(idx.Rows, row)
	}
	return idx, nil
}

func rowSize(row *Row, dim int) int {
	size := varint.Uint64.Size(uint64(row.RecordID))
	size += canon.HashSize
	size += raw.Byte.Size(row.RoleCode)
	size += raw.Byte.Size(row.ChunkIdx)
	size += dim * raw.Float32.Size(0)
	return size
}

func marshalRow(row *Row, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(row.RecordID), bs)
	n += copy(bs[n:], row.ContentHash[:])
	n += raw.Byte.Marshal(row.RoleCode, bs[n:])
	n += raw.Byte.Marshal(row.ChunkIdx, bs[n:])
	for _, x := range row.Embedding {
		n += raw.Float32.Marshal(x, bs[n:])
	}
	return n
}

func unmarshalRow(bs []byte, dim int) (row Row, n int, err error) {
	var (
		n1 int
		id uint64
	)
	id, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	row.RecordID = core.ID(id)

	if len(bs[n:]) < canon.HashSize {
		err = fmt.Errorf("truncated content hash")
		return
	}
	n += copy(row.ContentHash[:], bs[n:n+canon.HashSize])

	row.RoleCode, n1, err = raw.Byte.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	row.ChunkIdx, n1, err = raw.Byte.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	row.Embedding = make([]float32, dim)
	for i := 0; i < dim; i++ {
		row.Embedding[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}
