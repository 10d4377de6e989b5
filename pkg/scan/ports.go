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
	"fmt"
	"strconv"
	"strings"

	"github.com/SpiffyFoxOne/OT-early-warning-system/pkg/logger"
)

// ParsePortSpec resolves a textual port spec into concrete port numbers.
// A spec is either a single port ("8080") or an inclusive range
// ("8000-8010"). An inverted range resolves to an empty, non-error
// result. Anything else wraps ErrMalformedPortSpec.
func ParsePortSpec(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)

	if port, err := strconv.ParseUint(spec, 10, 16); err == nil {
		return []uint16{uint16(port)}, nil
	}

	if strings.Count(spec, "-") != 1 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedPortSpec, spec)
	}

	bounds := strings.SplitN(spec, "-", 2)

	start, err := strconv.ParseUint(strings.TrimSpace(bounds[0]), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedPortSpec, spec)
	}

	end, err := strconv.ParseUint(strings.TrimSpace(bounds[1]), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedPortSpec, spec)
	}

	if start > end {
		return []uint16{}, nil
	}

	ports := make([]uint16, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, uint16(p))
	}

	return ports, nil
}

// ResolvePortSpecs resolves each spec independently, logging and skipping
// malformed entries so one bad spec never aborts its siblings.
func ResolvePortSpecs(specs []string, log logger.Logger) []uint16 {
	var ports []uint16

	for _, spec := range specs {
		resolved, err := ParsePortSpec(spec)
		if err != nil {
			log.Error().Err(err).Str("spec", spec).Msg("Invalid port specification")
			continue
		}

		ports = append(ports, resolved...)
	}

	return ports
}
