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

// Package scan probes the ports of a connecting peer and records the
// outcomes in a per-target scan log.
package scan

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/config"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/logger"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/models"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/trafficlog"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultBannerWait  = 5 * time.Second

	// Ports at or below this bound require elevated privilege to probe.
	wellKnownPortMax = 1024

	bannerBufferSize = 1024
)

// Scanner probes each configured port of a target sequentially with a
// single connect-and-read pass. Ordering in the scan log follows the
// configured spec order; there is no parallelism, retry, or backoff.
type Scanner struct {
	cfg         *config.Config
	dialTimeout time.Duration
	bannerWait  time.Duration
	logger      logger.Logger

	// privileged is swapped out in tests.
	privileged func() bool
}

// NewScanner creates a scanner bound to the shared configuration snapshot.
func NewScanner(cfg *config.Config, log logger.Logger) *Scanner {
	return &Scanner{
		cfg:         cfg,
		dialTimeout: defaultDialTimeout,
		bannerWait:  defaultBannerWait,
		logger:      log,
		privileged:  hasScanPrivilege,
	}
}

// Scan probes every configured scan port of targetIP and logs outcomes
// to logs/<targetIP>-scan.log. It has no return value; failures are
// observable only through logs. A scan in flight is never cancelled by
// process shutdown and runs to the end of the port list.
func (s *Scanner) Scan(ctx context.Context, targetIP string) {
	if !s.cfg.Active {
		s.logger.Debug().Msg("Port scanning is disabled")
		return
	}

	ports := s.resolveScanPorts()

	if needsPrivilege(ports) && !s.privileged() {
		s.logger.Error().
			Err(ErrPrivilegeRequired).
			Str("target", targetIP).
			Msg("Aborting scan")

		return
	}

	scanID := uuid.New().String()
	log := s.logger.With().Str("scan_id", scanID).Str("target", targetIP).Logger()

	rec, err := trafficlog.OpenTruncate(s.cfg.LogDir, targetIP+"-scan.log")
	if err != nil {
		log.Error().Err(err).Msg("Failed to open scan log file")
		return
	}
	defer rec.Close()

	log.Info().Int("ports", len(ports)).Msg("Initiating port scan")

	for _, port := range ports {
		s.probePort(ctx, targetIP, port, rec)
	}

	log.Info().Msg("Port scan complete")
}

// resolveScanPorts resolves the configured specs, skipping malformed and
// zero-valued entries. Neither is fatal to the rest of the scan.
func (s *Scanner) resolveScanPorts() []uint16 {
	resolved := ResolvePortSpecs(s.cfg.ScanPorts, s.logger)

	ports := make([]uint16, 0, len(resolved))

	for _, p := range resolved {
		if p == 0 {
			s.logger.Warn().Msg("Skipping zero-valued scan port")
			continue
		}

		ports = append(ports, p)
	}

	return ports
}

func needsPrivilege(ports []uint16) bool {
	for _, p := range ports {
		if p <= wellKnownPortMax {
			return true
		}
	}

	return false
}

// probePort attempts one TCP connect. An open port yields a "port open"
// line followed by exactly one of "received data" or "no immediate data".
// A refused or timed-out connect yields one failure line.
func (s *Scanner) probePort(ctx context.Context, targetIP string, port uint16, rec *trafficlog.Recorder) {
	result := s.checkPort(ctx, targetIP, port)

	if !result.Open {
		s.logEvent(rec, "failed to connect to port %d: %v", port, result.Error)
		return
	}

	s.logger.Info().
		Str("target", targetIP).
		Uint16("port", port).
		Dur("resp_time", result.RespTime).
		Msg("Port is open")
	s.logEvent(rec, "port %d is open", port)

	if result.Banner != "" {
		s.logEvent(rec, "received data from port %d: %s", port, result.Banner)
	} else {
		s.logEvent(rec, "no immediate data from port %d", port)
	}
}

// checkPort connects to target:port and performs a single bounded read to
// capture any unsolicited banner data.
func (s *Scanner) checkPort(ctx context.Context, host string, port uint16) models.ProbeResult {
	result := models.ProbeResult{Host: host, Port: port}

	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	// Scans hold no connection open, so keep-alives are pointless.
	dialer := net.Dialer{Timeout: s.dialTimeout, KeepAlive: -1}

	start := time.Now()

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	result.RespTime = time.Since(start)

	if err != nil {
		result.Error = err
		return result
	}
	defer conn.Close()

	result.Open = true

	if err := conn.SetReadDeadline(time.Now().Add(s.bannerWait)); err != nil {
		return result
	}

	buf := make([]byte, bannerBufferSize)

	n, _ := conn.Read(buf)
	if n > 0 {
		result.Banner = strings.ToValidUTF8(string(buf[:n]), "�")
	}

	return result
}

func (s *Scanner) logEvent(rec *trafficlog.Recorder, format string, args ...interface{}) {
	if err := rec.Eventf(format, args...); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write to scan log file")
	}
}
