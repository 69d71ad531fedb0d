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
	"strings"
	"sync"
)

// Recent keeps the most recent log lines in memory. Every line gets a
// sequence number so readers can ask for the lines they have not seen.
type Recent struct {
	mutex sync.Mutex
	lines []string
	total uint64
}

// NewRecent creates a buffer holding up to size lines.
func NewRecent(size int) *Recent {
	if size < 1 {
		size = 1
	}
	return &Recent{
		lines: make([]string, size),
	}
}

// Write adds every line of p to the buffer.
func (r *Recent) Write(p []byte) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.lines[r.total%uint64(len(r.lines))] = line
		r.total++
	}
	return len(p), nil
}

// Lines returns the buffered lines, oldest first.
func (r *Recent) Lines() []string {
	lines, _, _ := r.Since(0)
	return lines
}

// Since returns the buffered lines with a sequence number of at least seq,
// oldest first. It also returns the sequence number of the next line and
// the number of requested lines that were already overwritten.
func (r *Recent) Since(seq uint64) (lines []string, next uint64, lost uint64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	size := uint64(len(r.lines))
	if seq > r.total {
		seq = r.total
	}
	if r.total > size && seq < r.total-size {
		lost = r.total - size - seq
		seq = r.total - size
	}
	lines = make([]string, 0, r.total-seq)
	for i := seq; i < r.total; i++ {
		lines = append(lines, r.lines[i%size])
	}
	return lines, r.total, lost
}
