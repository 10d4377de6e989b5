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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/config"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/lifecycle"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/listener"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/scan"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to otews config file (JSON); environment variables override")
	drainGrace := flag.Duration("drain-grace", lifecycle.DefaultDrainGrace,
		"How long to wait for in-flight sessions and scans at shutdown")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Logging

	appLogger, err := lifecycle.CreateComponentLogger("otews", logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info().
		Strs("listen_ports", cfg.ListenPorts).
		Bool("active", cfg.Active).
		Dur("connection_timeout", time.Duration(cfg.ConnectionTimeout)).
		Msg("Starting otews")

	scanner := scan.NewScanner(cfg, appLogger)
	mgr := listener.NewManager(cfg, scanner, appLogger)

	return lifecycle.Run(ctx, mgr, appLogger, *drainGrace)
}
