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
	"os"
	"regexp"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// substituteInConfig resolves ${VAR} references embedded in string
// fields that typically carry secrets or deployment-specific values.
func substituteInConfig(cfg *Config) {
	cfg.Store.Host = SubstituteEnvVars(cfg.Store.Host)
	cfg.Store.User = SubstituteEnvVars(cfg.Store.User)
	cfg.Store.Password = SubstituteEnvVars(cfg.Store.Password)
	cfg.Store.Database = SubstituteEnvVars(cfg.Store.Database)
	cfg.HTTP.Addr = SubstituteEnvVars(cfg.HTTP.Addr)
	cfg.Metrics.Addr = SubstituteEnvVars(cfg.Metrics.Addr)
}

// applyEnvironmentOverrides lets deployment environment variables take
// priority over whatever the config file and substitution produced.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("RELAYD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RELAYD_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("RELAYD_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("RELAYD_STORE_PASSWORD"); v != "" {
		cfg.Store.Password = v
	}
	if os.Getenv("RELAYD_METRICS_ENABLED") == "false" {
		cfg.Metrics.Enabled = false
	}
}

// GetEnvironment returns the deployment environment from RELAYD_ENV,
// falling back to ENVIRONMENT, then "development".
func GetEnvironment() string {
	env := os.Getenv("RELAYD_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether GetEnvironment() is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}
