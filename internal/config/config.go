// Package config resolves the environment-driven configuration
// SPEC_FULL.md's ambient stack calls for: $HOME, the DigitalOcean API
// token, and the INNISFREE_* environment variables that back every CLI
// flag's default, following the teacher's internal/config/paths.go
// style of small free functions over os.Getenv rather than a config
// file or a viper layer.
package config

import (
	"os"
	"path/filepath"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
)

// DigitalOceanTokenEnvVar names the environment variable holding the
// DigitalOcean API token required by `innisfree up`.
const DigitalOceanTokenEnvVar = "DIGITALOCEAN_API_TOKEN"

// Home returns $HOME, or a Config-kind error if it is unset.
func Home() (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", innisfreeerrors.New(innisfreeerrors.Config, "HOME is not set")
	}
	return home, nil
}

// StateRoot returns $HOME/.config/innisfree, the parent of every
// tunnel's per-name state directory managed by internal/localstate.
func StateRoot() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "innisfree"), nil
}

// DigitalOceanToken reads DIGITALOCEAN_API_TOKEN, returning a
// Config-kind error if it is missing.
func DigitalOceanToken() (string, error) {
	token := os.Getenv(DigitalOceanTokenEnvVar)
	if token == "" {
		return "", innisfreeerrors.New(innisfreeerrors.Config,
			DigitalOceanTokenEnvVar+" is not set")
	}
	return token, nil
}

// EnvOrDefault reads the INNISFREE_<suffix> environment variable and
// returns it if set, otherwise def. CLI flag registration uses this to
// layer environment defaults under cobra flags, the way the teacher's
// commands read os.Getenv directly instead of pulling in viper.
func EnvOrDefault(suffix, def string) string {
	if v := os.Getenv("INNISFREE_" + suffix); v != "" {
		return v
	}
	return def
}
