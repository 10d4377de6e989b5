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

package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/trafficlog"
)

const echoBufferSize = 1024

// handleConn runs one echo session: record the connection in the peer's
// traffic log, optionally fire a scan of the peer, then echo until the
// peer closes, the inactivity timeout elapses, or I/O fails. Only I/O
// failures surface as errors; clean close and timeout are normal ends.
func (m *Manager) handleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	peer := conn.RemoteAddr()
	if peer == nil {
		return nil
	}

	peerIP, _, err := net.SplitHostPort(peer.String())
	if err != nil {
		// No usable peer address; nothing to log against.
		return nil
	}

	sessionID := uuid.New().String()
	log := m.logger.With().Str("session_id", sessionID).Str("peer", peer.String()).Logger()

	rec, err := trafficlog.OpenAppend(m.cfg.LogDir, peerIP+".log")
	if err != nil {
		return fmt.Errorf("failed to open peer log: %w", err)
	}
	defer rec.Close()

	if err := rec.Eventf("connection from %s", peer); err != nil {
		log.Warn().Err(err).Msg("Failed to write to peer log file")
	}

	if m.cfg.Active && m.scanner != nil {
		// Fire-and-forget: the session never awaits the scan, and the scan
		// must survive both this connection closing and process shutdown.
		m.tasks.Add(1)

		go func() {
			defer m.tasks.Done()

			m.scanner.Scan(context.WithoutCancel(ctx), peerIP)
		}()
	}

	return m.echoLoop(conn, rec, log)
}

func (m *Manager) echoLoop(conn net.Conn, rec *trafficlog.Recorder, log zerolog.Logger) error {
	timeout := m.cfg.ConnectionTimeout.Duration()
	buf := make([]byte, echoBufferSize)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}

		n, err := conn.Read(buf)

		if n > 0 {
			if werr := rec.Eventf("received %d bytes: %q", n, buf[:n]); werr != nil {
				log.Warn().Err(werr).Msg("Failed to write to peer log file")
			}

			// Write is all-or-error on a net.Conn; a short write comes
			// back as a definite error and drops the connection.
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to echo data: %w", werr)
			}
		}

		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info().Msg("Connection closed by peer")

				if werr := rec.Eventf("connection closed by peer"); werr != nil {
					log.Warn().Err(werr).Msg("Failed to write to peer log file")
				}

				return nil
			case isTimeout(err):
				log.Info().Dur("timeout", timeout).Msg("Connection timed out due to inactivity")

				if werr := rec.Eventf("connection timed out after %s of inactivity", timeout); werr != nil {
					log.Warn().Err(werr).Msg("Failed to write to peer log file")
				}

				return nil
			default:
				return fmt.Errorf("failed to read from connection: %w", err)
			}
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}
