package ai

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings from canonical text for semantic
// similarity search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrInvalidInput for empty text. The returned vector is
	// L2-normalized (or all-zero when normalization is degenerate).
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts. Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed output dimension of every vector.
	Dimension() int

	// ID returns the stable embedder identifier used to name index files.
	ID() string

	// IsSemantic reports whether the embedder is a semantic (model-backed)
	// embedder, as opposed to a lexical feature-hash embedder.
	IsSemantic() bool
}

// Info holds embedder metadata for display and logging.
type Info struct {
	ID        string
	Dimension int
	Semantic  bool
}

// InfoFrom collects metadata from an embedder instance.
func InfoFrom(e Embedder) Info {
	return Info{
		ID:        e.ID(),
		Dimension: e.Dimension(),
		Semantic:  e.IsSemantic(),
	}
}

// String renders the info as "id (kind, N dims)".
func (i Info) String() string {
	kind := "lexical"
	if i.Semantic {
		kind = "semantic"
	}
	return fmt.Sprintf("%s (%s, %d dims)", i.ID, kind, i.Dimension)
}
