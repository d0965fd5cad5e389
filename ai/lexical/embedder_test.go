package lexical

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai"
)

func newTestEmbedder(t *testing.T) *Embedder {
	t.Helper()
	e, err := New(DefaultDimension)
	require.NoError(t, err)
	t.Cleanup(e.Release)
	return e
}

func magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestIdentity(t *testing.T) {
	e := newTestEmbedder(t)

	assert.Equal(t, "fnv1a-384", e.ID())
	assert.Equal(t, 384, e.Dimension())
	assert.False(t, e.IsSemantic())
}

func TestDeterministic(t *testing.T) {
	e := newTestEmbedder(t)
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "the quick brown fox")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "the quick brown fox")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 384)
}

func TestUnitNorm(t *testing.T) {
	e := newTestEmbedder(t)

	v, err := e.EmbedText(context.Background(), "normalize me please")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, magnitude(v), 1e-4)
}

func TestDifferentTextsDiffer(t *testing.T) {
	e := newTestEmbedder(t)
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "databases are fun")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "compilers are fun")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCaseAndPunctuationInsensitive(t *testing.T) {
	e := newTestEmbedder(t)
	ctx := context.Background()

	a, err := e.EmbedText(ctx, "Hello, World!")
	require.NoError(t, err)
	b, err := e.EmbedText(ctx, "hello world")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEmptyText(t *testing.T) {
	e := newTestEmbedder(t)

	_, err := e.EmbedText(context.Background(), "")
	assert.ErrorIs(t, err, ai.ErrInvalidInput)
}

func TestEmbedTextsOrder(t *testing.T) {
	e := newTestEmbedder(t)
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma", "delta"}
	batch, err := e.EmbedTexts(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, len(texts))

	for i, text := range texts {
		single, err := e.EmbedText(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "batch result %d should match single embedding", i)
	}
}

func TestEmbedTextsEmptyElement(t *testing.T) {
	e := newTestEmbedder(t)

	_, err := e.EmbedTexts(context.Background(), []string{"fine", "", "also fine"})
	assert.ErrorIs(t, err, ai.ErrInvalidInput)
}

func TestEmbedTextsCancelledContext(t *testing.T) {
	e := newTestEmbedder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.EmbedTexts(ctx, []string{"never embedded"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNonDefaultDimension(t *testing.T) {
	e, err := New(64)
	require.NoError(t, err)
	defer e.Release()

	assert.Equal(t, "fnv1a-64", e.ID())
	v, err := e.EmbedText(context.Background(), "small vector")
	require.NoError(t, err)
	assert.Len(t, v, 64)
}

func TestInvalidDimension(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ai.ErrInvalidInput)
}
