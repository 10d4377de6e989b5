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

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/models"
)

// Environment variables recognized by EnvLoader.
const (
	envListenPorts       = "PORTS"
	envActive            = "ACTIVE"
	envScanPorts         = "SCAN_PORTS"
	envConnectionTimeout = "CONNECTION_TIMEOUT_SECS"
	envLogDir            = "LOG_DIR"
)

// EnvLoader loads configuration from environment variables. Set values
// override whatever an earlier loader put into dst.
type EnvLoader struct{}

// Load implements Loader. The path argument is unused.
func (*EnvLoader) Load(_ context.Context, _ string, dst interface{}) error {
	cfg, ok := dst.(*Config)
	if !ok {
		return fmt.Errorf("env loader: unsupported destination type %T", dst)
	}

	if ports := os.Getenv(envListenPorts); ports != "" {
		cfg.ListenPorts = splitSpecs(ports)
	}

	if active := os.Getenv(envActive); active != "" {
		cfg.Active = active == "true"
	}

	if scanPorts := os.Getenv(envScanPorts); scanPorts != "" {
		cfg.ScanPorts = splitSpecs(scanPorts)
	}

	if timeoutSecs := os.Getenv(envConnectionTimeout); timeoutSecs != "" {
		secs, err := strconv.Atoi(timeoutSecs)
		if err != nil {
			return fmt.Errorf("%s must be a positive integer: %w", envConnectionTimeout, err)
		}

		if secs <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %d: %w",
				envConnectionTimeout, secs, ErrInvalidTimeout)
		}

		cfg.ConnectionTimeout = models.Duration(time.Duration(secs) * time.Second)
	}

	if dir := os.Getenv(envLogDir); dir != "" {
		cfg.LogDir = dir
	}

	return nil
}

func splitSpecs(s string) []string {
	parts := strings.Split(s, ",")
	specs := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			specs = append(specs, p)
		}
	}

	return specs
}
