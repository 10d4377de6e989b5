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

package scan

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/config"
	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/logger"
)

func newTestScanner(t *testing.T, scanPorts []string) (*Scanner, string) {
	t.Helper()

	logDir := t.TempDir()
	cfg := &config.Config{
		ListenPorts: []string{"0"},
		Active:      true,
		ScanPorts:   scanPorts,
		LogDir:      logDir,
	}

	s := NewScanner(cfg, logger.NewTestLogger())
	s.bannerWait = 250 * time.Millisecond

	return s, logDir
}

// startBannerServer listens on an ephemeral port and writes banner to
// every accepted connection. An empty banner means accept-and-hold.
func startBannerServer(t *testing.T, banner string) uint16 {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			if banner != "" {
				_, _ = conn.Write([]byte(banner))
				_ = conn.Close()
			} else {
				// Hold the connection open silently until the scanner's
				// banner read times out.
				go func(c net.Conn) {
					time.Sleep(time.Second)
					_ = c.Close()
				}(conn)
			}
		}
	}()

	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

// reserveClosedPort returns a port that had a listener and no longer does.
func reserveClosedPort(t *testing.T) uint16 {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	return port
}

func readScanLog(t *testing.T, logDir string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(logDir, "127.0.0.1-scan.log"))
	require.NoError(t, err)

	return string(data)
}

func TestScanOpenPortWithBanner(t *testing.T) {
	port := startBannerServer(t, "hello from a fake service")

	s, logDir := newTestScanner(t, []string{strconv.Itoa(int(port))})
	s.Scan(context.Background(), "127.0.0.1")

	contents := readScanLog(t, logDir)
	assert.Contains(t, contents, "port "+strconv.Itoa(int(port))+" is open")
	assert.Contains(t, contents, "received data from port")
	assert.Contains(t, contents, "hello from a fake service")
	assert.NotContains(t, contents, "no immediate data")
}

func TestScanOpenPortWithoutBanner(t *testing.T) {
	port := startBannerServer(t, "")

	s, logDir := newTestScanner(t, []string{strconv.Itoa(int(port))})
	s.Scan(context.Background(), "127.0.0.1")

	contents := readScanLog(t, logDir)
	assert.Contains(t, contents, "port "+strconv.Itoa(int(port))+" is open")
	assert.Contains(t, contents, "no immediate data from port")
	assert.NotContains(t, contents, "received data")
}

func TestScanClosedPortContinuesToNext(t *testing.T) {
	closed := reserveClosedPort(t)
	open := startBannerServer(t, "still here")

	s, logDir := newTestScanner(t, []string{
		strconv.Itoa(int(closed)),
		strconv.Itoa(int(open)),
	})
	s.Scan(context.Background(), "127.0.0.1")

	contents := readScanLog(t, logDir)
	assert.Contains(t, contents, "failed to connect to port "+strconv.Itoa(int(closed)))
	assert.Contains(t, contents, "port "+strconv.Itoa(int(open))+" is open")
}

func TestScanSkipsMalformedAndZeroSpecs(t *testing.T) {
	open := startBannerServer(t, "banner")

	s, logDir := newTestScanner(t, []string{"abc", "0", strconv.Itoa(int(open))})
	s.Scan(context.Background(), "127.0.0.1")

	contents := readScanLog(t, logDir)
	assert.Contains(t, contents, "port "+strconv.Itoa(int(open))+" is open")
	assert.NotContains(t, contents, "port 0")
}

func TestScanWithoutPrivilegeAbortsEntirely(t *testing.T) {
	open := startBannerServer(t, "unreached")

	// A range overlapping the well-known ports forces the gate even
	// though an unprivileged open port is also configured.
	s, logDir := newTestScanner(t, []string{"1000-1100", strconv.Itoa(int(open))})
	s.privileged = func() bool { return false }

	s.Scan(context.Background(), "127.0.0.1")

	_, err := os.Stat(filepath.Join(logDir, "127.0.0.1-scan.log"))
	assert.True(t, os.IsNotExist(err), "no port may be probed and no scan log created")
}

func TestScanDormantCreatesNoLog(t *testing.T) {
	s, logDir := newTestScanner(t, []string{"9999"})
	s.cfg.Active = false

	s.Scan(context.Background(), "127.0.0.1")

	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestScanLogTruncatesPreviousSession(t *testing.T) {
	open := startBannerServer(t, "fresh")

	s, logDir := newTestScanner(t, []string{strconv.Itoa(int(open))})

	path := filepath.Join(logDir, "127.0.0.1-scan.log")
	require.NoError(t, os.WriteFile(path, []byte("stale previous scan\n"), 0o600))

	s.Scan(context.Background(), "127.0.0.1")

	contents := readScanLog(t, logDir)
	assert.NotContains(t, contents, "stale previous scan")
	assert.Contains(t, contents, "port "+strconv.Itoa(int(open))+" is open")
}

func TestNeedsPrivilege(t *testing.T) {
	tests := []struct {
		name  string
		ports []uint16
		want  bool
	}{
		{name: "empty", ports: nil, want: false},
		{name: "all ephemeral", ports: []uint16{8080, 9000}, want: false},
		{name: "well-known single", ports: []uint16{22}, want: true},
		{name: "boundary", ports: []uint16{1024}, want: true},
		{name: "above boundary", ports: []uint16{1025}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, needsPrivilege(tt.ports))
		})
	}
}
