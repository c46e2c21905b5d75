package config

import (
	"github.com/yndnr/sessmesh/internal/infra/confloader"
)

// Load layers the file at path (optional), SESSMESH_* environment
// variables and overrides on top of Default, then verifies the result.
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg := Default()
	l := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
