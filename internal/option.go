package internal

import "github.com/holteng/minne/internal/llm"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	provider llm.Provider
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithProvider overrides the model provider. Used by tests.
func WithProvider(p llm.Provider) Option {
	return func(a *application) {
		a.provider = p
	}
}
