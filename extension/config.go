package extension

// Config holds the aegis extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.aegis" or "aegis" keys).
type Config struct {
	// CacheTTL enables the in-memory decision cache with the given
	// time-to-live (e.g. "30s", "5m"). Empty disables caching.
	CacheTTL string `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableSeed prevents seeding of the default permission catalog and
	// system roles on start.
	DisableSeed bool `json:"disable_seed" mapstructure:"disable_seed" yaml:"disable_seed"`

	// SuperuserRole is the base role name that bypasses permission checks
	// (default: "admin").
	SuperuserRole string `json:"superuser_role" mapstructure:"superuser_role" yaml:"superuser_role"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{}
}
