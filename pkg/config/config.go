/*
 * Copyright 2025 SpiffyFoxOne.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads and validates the process configuration. The
// resulting Config is an immutable snapshot shared read-only by every
// task; nothing mutates it after Load returns.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/logger"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/models"
)

const (
	defaultConnectionTimeout = 30 * time.Second
	defaultLogDir            = "logs"
)

var (
	// ErrNoListenPorts indicates that the required listening-port list is missing.
	ErrNoListenPorts = errors.New("no listening ports configured")
	// ErrInvalidTimeout indicates a non-positive connection timeout.
	ErrInvalidTimeout = errors.New("connection timeout must be positive")
)

// Config is the application configuration.
type Config struct {
	// ListenPorts are the port specs ("8080" or "8000-8010") the echo
	// listeners bind on all interfaces. Required.
	ListenPorts []string `json:"listen_ports"`

	// Active gates whether inbound connections trigger a scan of the peer.
	Active bool `json:"active"`

	// ScanPorts are the port specs probed on the connecting peer.
	ScanPorts []string `json:"scan_ports"`

	// ConnectionTimeout bounds echo-session inactivity. Defaults to 30s.
	ConnectionTimeout models.Duration `json:"connection_timeout"`

	// LogDir is where per-peer traffic and scan logs are written.
	LogDir string `json:"log_dir"`

	Logging *logger.Config `json:"logging,omitempty"`
}

// Loader loads configuration from some source into dst.
type Loader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// Load builds the configuration: JSON file first (when path is non-empty),
// environment variables overriding, then defaults and validation.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := (&FileLoader{}).Load(ctx, path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := (&EnvLoader{}).Load(ctx, "", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = models.Duration(defaultConnectionTimeout)
	}

	if c.LogDir == "" {
		c.LogDir = defaultLogDir
	}
}

// Validate enforces the fatal startup conditions: a missing listen-port
// list and a non-positive timeout abort before any listener binds.
func (c *Config) Validate() error {
	if len(c.ListenPorts) == 0 {
		return ErrNoListenPorts
	}

	if c.ConnectionTimeout <= 0 {
		return ErrInvalidTimeout
	}

	return nil
}
