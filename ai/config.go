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

import (
	"errors"
	"strings"
)

// Config holds configuration for model-backed embedders.
type Config struct {
	// InferenceHost is the base URL of the local OpenAI-compatible inference
	// runtime that serves the on-disk model bundle.
	// Example: "http://localhost:11434/v1"
	InferenceHost string

	// DataDir is the directory holding model bundles, one subdirectory per
	// model under DataDir/models.
	DataDir string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithInferenceHost sets the inference runtime host URL.
func WithInferenceHost(host string) ConfigOption {
	return func(c *Config) {
		c.InferenceHost = host
	}
}

// WithDataDir sets the model bundle root directory.
func WithDataDir(dir string) ConfigOption {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// DefaultConfig returns a Config with defaults for a local inference runtime.
func DefaultConfig() *Config {
	return &Config{
		InferenceHost: "http://localhost:11434/v1",
	}
}

// NewConfig creates a Config with defaults and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to the host if missing, which is required by most
// OpenAI-compatible runtimes (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.InferenceHost != "" && !strings.HasSuffix(c.InferenceHost, "/v1") {
		c.InferenceHost = strings.TrimSuffix(c.InferenceHost, "/")
		c.InferenceHost = c.InferenceHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.InferenceHost == "" {
		return errors.New("ai config: InferenceHost is required")
	}
	return nil
}
