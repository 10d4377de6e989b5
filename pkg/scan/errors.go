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

import "errors"

var (
	// ErrMalformedPortSpec indicates text that is neither a port nor a range.
	ErrMalformedPortSpec = errors.New("malformed port spec")

	// ErrPrivilegeRequired indicates that the scan-port configuration
	// reaches into well-known ports and the process lacks the privilege
	// to probe them.
	ErrPrivilegeRequired = errors.New("elevated privileges required to scan well-known ports")
)
