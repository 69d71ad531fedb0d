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

package logging

import (
	"io"
	"sync"
)

// MultiWriter fans out log output to a set of writers.
type MultiWriter struct {
	mutex   sync.RWMutex
	writers []io.Writer
}

// NewMultiWriter creates a new output for logs.
func NewMultiWriter(writers ...io.Writer) *MultiWriter {
	return &MultiWriter{
		writers: writers,
	}
}

// Write p to all outputs. Errors of individual outputs are ignored
// unless all outputs fail.
func (l *MultiWriter) Write(p []byte) (int, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	var lastErr error
	failed := 0
	for _, w := range l.writers {
		if _, err := w.Write(p); err != nil {
			lastErr = err
			failed++
		}
	}
	if failed > 0 && failed == len(l.writers) {
		return 0, lastErr
	}
	return len(p), nil
}
