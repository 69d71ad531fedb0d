// Copyright 2024 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package programming

import "fmt"

// Addressing of a programming request.
type Addressing int

const (
	// Direct (service track) programming; always accepted.
	Direct Addressing = iota
	// PomService is a program-on-main request sent to a service address.
	PomService
)

// String returns a human readable name of the addressing.
func (a Addressing) String() string {
	switch a {
	case Direct:
		return "direct"
	case PomService:
		return "pom"
	default:
		return "unknown"
	}
}

// Request is a validated CV read or write request.
type Request struct {
	Addressing Addressing
	// Service address of a program-on-main request
	ServiceAddress int
	// CV number (1..256)
	CV    int
	Value byte
	Write bool
}

// String returns a description of the request for logging.
func (r Request) String() string {
	op := "read"
	if r.Write {
		op = fmt.Sprintf("write %d", r.Value)
	}
	if r.Addressing == PomService {
		return fmt.Sprintf("pom(%d) cv %d %s", r.ServiceAddress, r.CV, op)
	}
	return fmt.Sprintf("direct cv %d %s", r.CV, op)
}
