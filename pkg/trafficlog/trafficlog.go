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

// Package trafficlog writes the durable flat-file event logs kept per
// peer and per scan target. Each session owns its own file handle;
// writes are whole lines, so concurrent sessions against the same path
// interleave at line granularity only.
package trafficlog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// Recorder appends timestamped event lines to a single log file.
type Recorder struct {
	f *os.File
}

// OpenAppend opens dir/name for appending, creating the directory and
// file as needed. Used for per-peer echo-session logs.
func OpenAppend(dir, name string) (*Recorder, error) {
	return open(dir, name, os.O_CREATE|os.O_APPEND|os.O_WRONLY)
}

// OpenTruncate opens dir/name truncated, creating the directory and file
// as needed. Used for per-target scan logs, which hold one scan session.
func OpenTruncate(dir, name string) (*Recorder, error) {
	return open(dir, name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
}

func open(dir, name string, flag int) (*Recorder, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory '%s': %w", dir, err)
	}

	f, err := os.OpenFile(filepath.Join(dir, name), flag, filePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file '%s': %w", name, err)
	}

	return &Recorder{f: f}, nil
}

// Eventf writes one timestamped line.
func (r *Recorder) Eventf(format string, args ...interface{}) error {
	line := fmt.Sprintf(format, args...)

	_, err := fmt.Fprintf(r.f, "%s %s\n", time.Now().Format(time.RFC3339), line)
	if err != nil {
		return fmt.Errorf("failed to write log event: %w", err)
	}

	return nil
}

// Path returns the underlying file path.
func (r *Recorder) Path() string {
	return r.f.Name()
}

func (r *Recorder) Close() error {
	return r.f.Close()
}
