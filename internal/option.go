package internal

import (
	"io"

	"github.com/starford/ansuz/internal/proposal"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	notifier  proposal.Notifier
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON logs; stdout is used by default.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithNotifier delivers proposals through n instead of the SSE broker.
func WithNotifier(n proposal.Notifier) Option {
	return func(a *application) {
		a.notifier = n
	}
}
