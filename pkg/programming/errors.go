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

import (
	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned for a program-on-main request that is
	// not accepted in the current mode.
	ErrUnauthorized = errors.New("programming not authorized")
	// ErrReadOnly is returned for a write to a cell owned by a function.
	ErrReadOnly = errors.New("cv is read-only")
	maskAny     = errors.WithStack
)

// IsUnauthorized returns true if the cause of the given error is ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Cause(err) == ErrUnauthorized
}

// IsReadOnly returns true if the cause of the given error is ErrReadOnly.
func IsReadOnly(err error) bool {
	return errors.Cause(err) == ErrReadOnly
}
