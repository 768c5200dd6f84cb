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

// Package config loads relayd's YAML configuration, applying
// environment-variable substitution and overrides the same way the
// rest of the ecosystem's services do.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the relay's top-level configuration tree.
type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Store       StoreConfig    `yaml:"store"`
	Pairing     PairingConfig  `yaml:"pairing"`
	Entry       EntryConfig    `yaml:"entry"`
	Throttle    ThrottleConfig `yaml:"throttle"`
	Logging     LoggingConfig  `yaml:"logging"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Health      HealthConfig   `yaml:"health"`
}

// HTTPConfig controls the front door's listener.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is "postgres" or "memory". "memory" is for dev/test only.
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// PairingConfig tunes the pairing state machine.
type PairingConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// EntryConfig tunes the entry store-and-forward service.
type EntryConfig struct {
	DailyUploadLimit int `yaml:"daily_upload_limit"`
}

// ThrottleConfig tunes the front door's per-key rate limiter.
type ThrottleConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LoggingConfig controls internal/logger's output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Output string `yaml:"output"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// HealthConfig controls the liveness/readiness endpoints.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// defaults applies fixed fallbacks for anything the config file and
// environment overrides left unset.
func defaults() Config {
	return Config{
		Environment: "development",
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver:  "memory",
			SSLMode: "disable",
		},
		Pairing: PairingConfig{
			TokenTTL: 10 * time.Minute,
		},
		Entry: EntryConfig{
			DailyUploadLimit: 2,
		},
		Throttle: ThrottleConfig{
			Requests: 60,
			Window:   60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled: true,
			Addr:    ":8081",
		},
	}
}

// LoadFromFile parses a YAML config file on top of the built-in
// defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}
