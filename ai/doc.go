// Package ai defines the pluggable embedding capability used by the
// indexing pipeline: turning canonical text into fixed-dimension,
// unit-normalized vectors.
//
// Two implementations ship with recall: a lexical FNV-1a feature-hash
// embedder (ai/lexical) that is always available, and a semantic
// model-backed embedder (ai/onnx) that requires an on-disk model bundle.
// A deterministic test double lives in ai/mock.
package ai
