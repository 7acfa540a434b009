package extension

import (
	"log/slog"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/hook"
	"github.com/xraph/aegis/store"
)

// ExtOption configures the aegis Forge extension.
type ExtOption func(*Extension)

// WithStore sets the persistence backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.aegisOpts = append(e.aegisOpts, aegis.WithStore(s))
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...aegis.Option) ExtOption {
	return func(e *Extension) {
		e.aegisOpts = append(e.aegisOpts, opts...)
	}
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) ExtOption {
	return func(e *Extension) {
		e.hooks = append(e.hooks, h)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}

// WithDisableSeed disables seeding of the default permission catalog.
func WithDisableSeed() ExtOption {
	return func(e *Extension) {
		e.config.DisableSeed = true
	}
}
