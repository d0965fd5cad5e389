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


// Package config loads process-level defaults from the environment.
// CLI flags override these values per invocation.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the environment-driven defaults for recall commands.
// All variables take the RECALL_ prefix, e.g. RECALL_EMBEDDING_HOST.
type Config struct {
	// DataDir holds model bundles under DataDir/models.
	DataDir string `envconfig:"DATA_DIR" default:""`

	// EmbeddingHost is the OpenAI-compatible inference runtime URL.
	EmbeddingHost string `envconfig:"EMBEDDING_HOST" default:"http://localhost:11434/v1"`

	// FastModel is the lexical tier model name.
	FastModel string `envconfig:"FAST_MODEL" default:"hash"`

	// QualityModel is the semantic tier model name.
	QualityModel string `envconfig:"QUALITY_MODEL" default:"minilm"`

	// BatchSize is how many texts go to the embedder per request.
	BatchSize int `envconfig:"BATCH_SIZE" default:"32"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("recall", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0, got %d", c.BatchSize)
	}
	if c.EmbeddingHost == "" {
		return fmt.Errorf("embedding host must not be empty")
	}
	return nil
}
