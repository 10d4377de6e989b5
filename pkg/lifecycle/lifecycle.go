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

// Package lifecycle wires process signals to the one-way shutdown
// broadcast and bounds the post-shutdown drain.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/listener"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/logger"
)

// DefaultDrainGrace bounds how long shutdown waits for in-flight echo
// sessions and scans before giving up on them.
const DefaultDrainGrace = 5 * time.Second

// Run serves the manager until SIGINT or SIGTERM, then drains in-flight
// sessions and scans for up to drainGrace. Signal closure is the only
// shutdown trigger; it stops accept loops but not running sessions.
func Run(ctx context.Context, mgr *listener.Manager, log logger.Logger, drainGrace time.Duration) error {
	if drainGrace <= 0 {
		drainGrace = DefaultDrainGrace
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Serve(ctx); err != nil {
		return err
	}

	if mgr.Drain(drainGrace) {
		log.Info().Msg("All sessions drained")
	} else {
		log.Warn().
			Dur("grace", drainGrace).
			Msg("Sessions or scans still in flight after drain grace period")
	}

	log.Info().Msg("Application shutdown complete")

	return nil
}
