/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package observation

import (
	"context"
	"errors"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the tunables for the observation core.
type Config struct {
	// Enabled gates span creation. When false, callers should build the
	// Registry with a nil tracer.
	Enabled bool `env:"CODEACT_TRACING_ENABLED, default=true"`

	// PromptAttributeLimit caps prompt/response span attributes (bytes).
	PromptAttributeLimit int `env:"CODEACT_PROMPT_ATTRIBUTE_LIMIT, default=2000"`

	// DetailAttributeLimit caps value/reason/error span attributes (bytes).
	DetailAttributeLimit int `env:"CODEACT_DETAIL_ATTRIBUTE_LIMIT, default=500"`

	// AsyncWorkers bounds concurrent criterion evaluation in the graph
	// executor. Zero means unbounded.
	AsyncWorkers int `env:"CODEACT_ASYNC_WORKERS, default=4"`
}

// DefaultConfig returns the configuration used when nothing is set in the
// environment.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		PromptAttributeLimit: 2000,
		DetailAttributeLimit: 500,
		AsyncWorkers:         4,
	}
}

// LoadConfig reads the configuration from the environment.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for nonsensical values.
func (c Config) Validate() error {
	if c.PromptAttributeLimit < 0 {
		return errors.New("prompt attribute limit cannot be negative")
	}
	if c.DetailAttributeLimit < 0 {
		return errors.New("detail attribute limit cannot be negative")
	}
	if c.AsyncWorkers < 0 {
		return errors.New("async workers cannot be negative")
	}
	return nil
}

// Truncate caps s at limit bytes, marking the cut. A limit of zero or
// below disables truncation.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "...[truncated]"
}
