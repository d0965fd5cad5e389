package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPassesSingleTier(t *testing.T) {
	passes := PlanPasses(JobRequest{QualityModel: "minilm"})

	require.Len(t, passes, 1)
	assert.Equal(t, "minilm", passes[0].Model)
	assert.True(t, passes[0].Semantic)
}

func TestPlanPassesSingleTierFallsBack(t *testing.T) {
	passes := PlanPasses(JobRequest{FastModel: "hash"})
	require.Len(t, passes, 1)
	assert.Equal(t, "hash", passes[0].Model)
	assert.False(t, passes[0].Semantic)

	passes = PlanPasses(JobRequest{})
	require.Len(t, passes, 1)
	assert.Equal(t, "hash", passes[0].Model)
	assert.False(t, passes[0].Semantic)
}

func TestPlanPassesTwoTier(t *testing.T) {
	passes := PlanPasses(JobRequest{TwoTier: true})

	require.Len(t, passes, 2)
	assert.Equal(t, "hash", passes[0].Model)
	assert.False(t, passes[0].Semantic)
	assert.Equal(t, "minilm", passes[1].Model)
	assert.True(t, passes[1].Semantic)
}

func TestPlanPassesModelOverrides(t *testing.T) {
	passes := PlanPasses(JobRequest{
		TwoTier:      true,
		FastModel:    "hash",
		QualityModel: "nomic-embed",
	})

	require.Len(t, passes, 2)
	assert.Equal(t, "nomic-embed", passes[1].Model)
	assert.True(t, passes[1].Semantic)

	single := PlanPasses(JobRequest{QualityModel: "hash"})
	require.Len(t, single, 1)
	assert.False(t, single[0].Semantic)
}

func TestPlanPassesTierFixesEmbeddingKind(t *testing.T) {
	// The fast tier is lexical and the quality tier semantic even when
	// the model names are swapped around.
	passes := PlanPasses(JobRequest{
		TwoTier:      true,
		FastModel:    "minilm",
		QualityModel: "hash",
	})

	require.Len(t, passes, 2)
	assert.Equal(t, "minilm", passes[0].Model)
	assert.False(t, passes[0].Semantic)
	assert.Equal(t, "hash", passes[1].Model)
	assert.True(t, passes[1].Semantic)
}
