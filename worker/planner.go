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


package worker

import (
	"github.com/poiesic/recall/ai"
)

// JobRequest describes one indexing run over a message store.
type JobRequest struct {
	// StorePath locates the message store to index.
	StorePath string

	// IndexPath is the directory that receives the vector_index output.
	IndexPath string

	// TwoTier requests a fast lexical pass before the semantic pass, so
	// a usable index appears quickly while the model pass catches up.
	TwoTier bool

	// FastModel overrides the lexical tier model. Empty means "hash".
	FastModel string

	// QualityModel overrides the semantic tier model. Empty means "minilm".
	QualityModel string
}

// Pass is one embedding sweep over the candidate records with a single
// model.
type Pass struct {
	Model    string
	Semantic bool
}

// PlanPasses expands a job request into its ordered passes. Two-tier runs
// the fast pass first so a usable index appears quickly, then the quality
// pass. A single-tier run uses the quality model if set, falling back to
// the fast model, then to the lexical hash. Each pass writes its own
// index file, so the fast index stays available while the quality pass
// runs.
func PlanPasses(req JobRequest) []Pass {
	if req.TwoTier {
		fast := req.FastModel
		if fast == "" {
			fast = ai.ModelHash
		}
		quality := req.QualityModel
		if quality == "" {
			quality = ai.ModelMiniLM
		}
		// The tiers fix the embedding kind: the fast pass is always
		// lexical and the quality pass always semantic, whatever models
		// are plugged into them.
		return []Pass{
			{Model: fast, Semantic: false},
			{Model: quality, Semantic: true},
		}
	}

	model := req.QualityModel
	if model == "" {
		model = req.FastModel
	}
	if model == "" {
		model = ai.ModelHash
	}
	return []Pass{{Model: model, Semantic: model != ai.ModelHash}}
}
