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

package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	config := &Config{
		Level:  "debug",
		Output: "stdout",
	}

	log, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if log == nil {
		t.Fatal("New returned a nil logger")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	config := &Config{Level: "chatty"}

	if _, err := New(config); err == nil {
		t.Error("Expected an error for an unknown log level")
	}
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	log, err := New(nil)
	if err != nil {
		t.Fatalf("Failed to create logger with defaults: %v", err)
	}

	if log == nil {
		t.Fatal("New returned a nil logger")
	}
}

func TestSetDebug(t *testing.T) {
	log, err := New(&Config{Level: "info"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	log.SetDebug(true)

	impl := log.(*loggerImpl)
	if impl.logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("Expected debug level after SetDebug(true), got %v", impl.logger.GetLevel())
	}

	log.SetDebug(false)

	if impl.logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level after SetDebug(false), got %v", impl.logger.GetLevel())
	}
}

func TestNewComponent(t *testing.T) {
	log, err := NewComponent("test-component", &Config{Level: "info"})
	if err != nil {
		t.Fatalf("Failed to create component logger: %v", err)
	}

	componentLogger := log.WithComponent("nested")
	if componentLogger.GetLevel() == zerolog.Disabled {
		t.Error("Component logger should not be disabled")
	}
}

func TestNewTestLoggerDiscards(t *testing.T) {
	log := NewTestLogger()

	// Must not panic or emit anywhere.
	log.Info().Str("key", "value").Msg("dropped")
	log.Error().Msg("also dropped")
}
