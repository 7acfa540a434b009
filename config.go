package aegis

// Config holds configuration for the Aegis engine.
type Config struct {
	// SuperuserRole is the base role name that bypasses permission
	// lookups entirely. Defaults to "admin".
	SuperuserRole string `json:"superuser_role,omitempty"`

	// DisableAudit turns off audit writes for permission checks and
	// mutations. Intended for benchmarks only.
	DisableAudit bool `json:"disable_audit,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SuperuserRole: "admin",
	}
}

func (c Config) superuserRole() string {
	if c.SuperuserRole == "" {
		return "admin"
	}
	return c.SuperuserRole
}

func (c Config) auditEnabled() bool { return !c.DisableAudit }
