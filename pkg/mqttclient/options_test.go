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

package mqttclient

import "testing"

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "true", "ON", " yes "} {
		if v, err := ParseBool(s); err != nil || !v {
			t.Errorf("Expected '%s' to parse as true, got %v, %v", s, v, err)
		}
	}
	for _, s := range []string{"0", "false", "Off", "no"} {
		if v, err := ParseBool(s); err != nil || v {
			t.Errorf("Expected '%s' to parse as false, got %v, %v", s, v, err)
		}
	}
	if _, err := ParseBool("maybe"); err == nil {
		t.Error("Expected error for 'maybe'")
	}
}

func TestNormalizePrefix(t *testing.T) {
	if p := NormalizePrefix("/binky/decoder"); p != "/binky/decoder/" {
		t.Errorf("Unexpected prefix '%s'", p)
	}
	if p := NormalizePrefix("/binky/decoder/"); p != "/binky/decoder/" {
		t.Errorf("Unexpected prefix '%s'", p)
	}
}
