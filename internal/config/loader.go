// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoaderOptions configures Load.
type LoaderOptions struct {
	// ConfigDir holds the environment-named YAML files (default "config").
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} expansion.
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns the loader's default options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load resolves the deployment environment, loads a `.env` file if
// present (local/dev convenience, ignored if absent), reads the
// matching environment-specific YAML (or falls back to default.yaml),
// then applies substitution and environment overrides in that order.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	_ = godotenv.Load()

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, env+".yaml"))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			base := defaults()
			cfg = &base
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	if !options.SkipEnvSubstitution {
		substituteInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// MustLoad loads configuration or panics; used by cmd/relayd's
// startup path, which has no sensible recovery from a bad config.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// validate rejects configurations that would fail obviously at
// runtime rather than starting the server and dying on first request.
func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("store.driver must be \"memory\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	if cfg.Store.Driver == "postgres" && cfg.Store.Database == "" {
		return fmt.Errorf("store.database is required when store.driver is postgres")
	}

	if cfg.Throttle.Requests <= 0 {
		return fmt.Errorf("throttle.requests must be positive")
	}

	return nil
}
