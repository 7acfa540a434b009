// Package extension provides a Forge extension entry point for aegis.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/aegis"
	"github.com/xraph/aegis/api"
	"github.com/xraph/aegis/cache"
	"github.com/xraph/aegis/hook"
	"github.com/xraph/aegis/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "aegis"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Role-based permission evaluation and audit trail engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts aegis as a Forge extension.
type Extension struct {
	config     Config
	eng        *aegis.Engine
	apiHandler *api.API
	logger     *slog.Logger
	aegisOpts  []aegis.Option
	hooks      []hook.Hook
}

// New creates an aegis Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the semantic version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying aegis engine.
func (e *Extension) Engine() *aegis.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	// Register the engine in the DI container.
	if err := vessel.Provide(fapp.Container(), func() (*aegis.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("aegis: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Build engine options.
	opts := make([]aegis.Option, 0, len(e.aegisOpts)+len(e.hooks)+2)
	opts = append(opts, aegis.WithLogger(logger))
	if e.config.SuperuserRole != "" {
		opts = append(opts, aegis.WithConfig(aegis.Config{SuperuserRole: e.config.SuperuserRole}))
	}
	if e.config.CacheTTL != "" {
		ttl, err := time.ParseDuration(e.config.CacheTTL)
		if err != nil {
			return fmt.Errorf("aegis: parse cache_ttl %q: %w", e.config.CacheTTL, err)
		}
		if ttl > 0 {
			opts = append(opts, aegis.WithCache(cache.NewMemory(cache.WithTTL(ttl))))
		}
	}

	// Try to resolve store from DI container, fall back to option-provided store.
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		opts = append(opts, aegis.WithStore(s))
	}

	// Append user-provided options (may override store).
	opts = append(opts, e.aegisOpts...)

	// Register lifecycle hooks.
	for _, h := range e.hooks {
		opts = append(opts, aegis.WithHook(h))
	}

	eng, err := aegis.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("aegis: create engine: %w", err)
	}
	e.eng = eng

	// Create API handler.
	e.apiHandler = api.New(eng, fapp.Router())

	// Register HTTP routes unless disabled.
	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("aegis: register routes: %w", err)
		}
	}

	return nil
}

// Start runs migrations and seeds the default permission catalog unless
// disabled, then starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("aegis: extension not initialized")
	}

	if !e.config.DisableMigrate {
		s := e.eng.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("aegis: migration failed: %w", err)
			}
		}
	}

	if !e.config.DisableSeed {
		if err := e.eng.Initialize(ctx); err != nil {
			return fmt.Errorf("aegis: seed defaults: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the aegis engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("aegis: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("aegis: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all aegis API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
