package ai

// Model names are the human-facing tier names accepted in job requests.
// Embedder IDs are the stable identifiers baked into index file names.
const (
	ModelHash   = "hash"
	ModelMiniLM = "minilm"
)

// EmbedderIDForModel maps a human-facing model name to the stable embedder
// identifier used for index file naming. Unknown names pass through
// unchanged so additional tiers can be added without touching the worker.
func EmbedderIDForModel(model string) string {
	switch model {
	case ModelHash:
		return "fnv1a-384"
	case ModelMiniLM:
		return "minilm-384"
	default:
		return model
	}
}
