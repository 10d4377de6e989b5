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

// Package listener binds the configured echo ports, runs one accept loop
// per bound listener, and hands every accepted connection to an echo
// session. Closing the serve context is the sole teardown trigger: it
// stops the accept loops but never an in-flight session or scan.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/config"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/logger"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/scan"
)

// Scanner launches a reconnaissance scan of a connecting peer.
type Scanner interface {
	Scan(ctx context.Context, targetIP string)
}

// Manager owns the listeners and the accept loops.
type Manager struct {
	cfg     *config.Config
	scanner Scanner
	logger  logger.Logger

	// tasks tracks in-flight sessions and scans so shutdown can drain
	// them with a bound. Accept loops are tracked separately by Serve.
	tasks sync.WaitGroup
}

// NewManager creates a manager over the shared configuration snapshot.
// scanner may be nil when peer scanning is not wired in.
func NewManager(cfg *config.Config, scanner Scanner, log logger.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		scanner: scanner,
		logger:  log,
	}
}

// Serve resolves the configured listen specs, binds each resolved port on
// all interfaces, and blocks until ctx is done and every accept loop has
// exited. A port that fails to bind is logged and skipped; it never
// aborts the siblings or startup. In-flight sessions keep running after
// Serve returns; use Drain to wait for them.
func (m *Manager) Serve(ctx context.Context) error {
	ports := scan.ResolvePortSpecs(m.cfg.ListenPorts, m.logger)

	var loops sync.WaitGroup

	bound := 0

	for _, port := range ports {
		ln, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
		if err != nil {
			m.logger.Error().Err(err).Uint16("port", port).Msg("Failed to listen on port")
			continue
		}

		m.logger.Info().Str("addr", ln.Addr().String()).Msg("Listening")

		bound++

		loops.Add(1)

		go func() {
			defer loops.Done()

			m.acceptLoop(ctx, ln)
		}()
	}

	if bound == 0 {
		m.logger.Warn().Msg("No listeners bound; waiting for shutdown")
	}

	<-ctx.Done()
	m.logger.Info().Msg("Shutdown signal received, stopping all listeners")

	loops.Wait()

	return nil
}

// acceptLoop accepts connections until ctx is done. A companion goroutine
// closes the listener on cancellation, which unblocks Accept with
// net.ErrClosed.
func (m *Manager) acceptLoop(ctx context.Context, ln net.Listener) {
	go func() {
		<-ctx.Done()

		if err := ln.Close(); err != nil {
			m.logger.Warn().Err(err).Str("addr", ln.Addr().String()).Msg("Failed to close listener")
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				m.logger.Info().Str("addr", ln.Addr().String()).Msg("Listener stopped")
				return
			}

			m.logger.Warn().Err(err).Msg("Failed to accept connection")

			continue
		}

		m.logger.Info().Str("peer", conn.RemoteAddr().String()).Msg("Accepted connection")

		m.tasks.Add(1)

		go func() {
			defer m.tasks.Done()

			if err := m.handleConn(ctx, conn); err != nil {
				m.logger.Warn().Err(err).Msg("Failed to process connection")
			}
		}()
	}
}

// Drain waits up to timeout for in-flight sessions and scans to finish.
// It reports whether everything drained within the bound.
func (m *Manager) Drain(timeout time.Duration) bool {
	done := make(chan struct{})

	go func() {
		m.tasks.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
