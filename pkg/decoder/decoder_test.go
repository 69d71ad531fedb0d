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

package decoder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/binkynet/AccessoryDecoder/pkg/bridge"
	"github.com/binkynet/AccessoryDecoder/pkg/cv"
	"github.com/binkynet/AccessoryDecoder/pkg/decoder/identity"
	"github.com/binkynet/AccessoryDecoder/pkg/deployment"
	"github.com/binkynet/AccessoryDecoder/pkg/protocol"
)

const (
	tick         = 10 * time.Millisecond
	pinModeLED   = bridge.Pin(13)
	pinServo2    = bridge.Pin(16)
	pinRelay2    = bridge.Pin(17)
	pinEncoderA  = bridge.Pin(19)
	pinEncoderB  = bridge.Pin(18)
	pinReset     = bridge.Pin(20)
	pinModeInput = bridge.Pin(21)
)

func initializedStorage(t *testing.T) *cv.MemoryStorage {
	storage := cv.NewMemoryStorage()
	img := deployment.Default().Image()
	for i, v := range img {
		if err := storage.WriteCell(i, v); err != nil {
			t.Fatalf("WriteCell failed: %v", err)
		}
	}
	return storage
}

func newTestDecoder(t *testing.T, hw *bridge.VirtualBridge, storage *cv.MemoryStorage) *Decoder {
	d, err := New(Config{Deployment: deployment.Default()}, Dependencies{
		Log:     zerolog.Nop(),
		Bridge:  hw,
		Storage: storage,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func steps(d *Decoder, n int) {
	for i := 0; i < n; i++ {
		d.Step(tick)
	}
}

// submitCV runs the scheduler until the request is answered.
func submitCV(t *testing.T, d *Decoder, req protocol.CvProgram) (byte, error) {
	type result struct {
		value byte
		err   error
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan result, 1)
	go func() {
		v, err := d.SubmitCV(ctx, req)
		done <- result{v, err}
	}()
	for {
		select {
		case r := <-done:
			return r.value, r.err
		case <-ctx.Done():
			t.Fatal("Timeout waiting for cv result")
		default:
			d.Step(tick)
			time.Sleep(time.Millisecond)
		}
	}
}

func TestServoScenario(t *testing.T) {
	hw := bridge.NewVirtualBridge()
	d := newTestDecoder(t, hw, initializedStorage(t))
	if id := d.Identity(); id.Mode != identity.ModeNormal || id.BaseAddress != 4 {
		t.Fatalf("Unexpected identity %+v", id)
	}
	if err := d.SubmitAccessory(protocol.AccessoryCommand{Address: 6, Output: 1, Activate: true}); err != nil {
		t.Fatalf("SubmitAccessory failed: %v", err)
	}
	steps(d, 1)
	if o := hw.Output(pinServo2); o.Mode != bridge.PinModeServo || o.Value <= 1233 {
		t.Errorf("Expected the servo to start moving in the first tick, got %+v", o)
	}
	steps(d, 80)
	if o := hw.Output(pinServo2); o.Value != 1766 {
		t.Errorf("Expected pulse of 120 degree, got %+v", o)
	}
	steps(d, 20)
	if o := hw.Output(pinServo2); o.Value != 0 {
		t.Errorf("Expected pulses to be off, got %+v", o)
	}
	if o := hw.Output(pinRelay2); o.Mode != bridge.PinModeDigital || o.Value != 1 {
		t.Errorf("Expected relay of position 1 on, got %+v", o)
	}
	st := d.Status()
	if s := st.Functions[2].State; !strings.Contains(s, "120") {
		t.Errorf("Expected state at 120 degree, got '%s'", s)
	}
	writes := hw.Output(pinServo2).Writes
	steps(d, 100)
	if w := hw.Output(pinServo2).Writes; w != writes {
		t.Errorf("Expected no pin writes while idle, got %d", w-writes)
	}
}

func TestUninitializedStorageIsReset(t *testing.T) {
	storage := cv.NewMemoryStorage()
	d := newTestDecoder(t, bridge.NewVirtualBridge(), storage)
	if !d.Identity().WasReset {
		t.Error("Expected a reset at boot")
	}
	v, err := submitCV(t, d, protocol.CvProgram{CV: cv.BlockCV(0, cv.Param2)})
	if err != nil || v != 120 {
		t.Errorf("Expected default 120, got %d, %v", v, err)
	}
}

func TestFullProgrammingLearnsAddress(t *testing.T) {
	hw := bridge.NewVirtualBridge()
	hw.SetAnalog(pinModeInput, 0)
	storage := initializedStorage(t)
	d := newTestDecoder(t, hw, storage)
	if id := d.Identity(); id.Mode != identity.ModeFullProgramming || id.AddressKnown {
		t.Fatalf("Unexpected identity %+v", id)
	}
	// Mode LED blinks while waiting
	levels := map[int]bool{}
	for i := 0; i < 60; i++ {
		d.Step(tick)
		levels[hw.Output(pinModeLED).Value] = true
	}
	if !levels[0] || !levels[1] {
		t.Errorf("Expected mode LED to blink, got %v", levels)
	}
	if err := d.SubmitAccessory(protocol.AccessoryCommand{Address: 17, Output: 1, Activate: true}); err != nil {
		t.Fatalf("SubmitAccessory failed: %v", err)
	}
	steps(d, 1)
	id := d.Identity()
	if !id.AddressKnown || id.BaseAddress != 17 {
		t.Errorf("Expected learned address 17, got %+v", id)
	}
	steps(d, 60)
	if o := hw.Output(pinModeLED); o.Value != 1 {
		t.Errorf("Expected mode LED on after learning, got %+v", o)
	}
	// Second address is a normal command
	if err := d.SubmitAccessory(protocol.AccessoryCommand{Address: 30, Output: 1, Activate: true}); err != nil {
		t.Fatalf("SubmitAccessory failed: %v", err)
	}
	steps(d, 1)
	if a := d.Identity().BaseAddress; a != 17 {
		t.Errorf("Expected address to stay 17, got %d", a)
	}
	low, _ := submitCV(t, d, protocol.CvProgram{CV: cv.CVAddressLow})
	high, _ := submitCV(t, d, protocol.CvProgram{CV: cv.CVAddressHigh})
	if low != 17 || high != 0 {
		t.Errorf("Expected persisted address 17, got %d/%d", low, high)
	}
}

func TestProgrammingRoundTrip(t *testing.T) {
	d := newTestDecoder(t, bridge.NewVirtualBridge(), initializedStorage(t))
	n := cv.BlockCV(1, cv.Param2)
	if _, err := submitCV(t, d, protocol.CvProgram{CV: n, Value: 100, Write: true}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if v, err := d.store.Get(n); err != nil || v != 100 {
		t.Errorf("Expected 100, got %d, %v", v, err)
	}
	// Runtime state is owned by the function
	state := cv.BlockCV(1, cv.ParamState)
	if _, err := submitCV(t, d, protocol.CvProgram{CV: state, Value: 1, Write: true}); err == nil {
		t.Error("Expected write to runtime state to fail")
	}
	// New endpoint is used by the next command
	if err := d.SubmitAccessory(protocol.AccessoryCommand{Address: 5, Output: 1, Activate: true}); err != nil {
		t.Fatalf("SubmitAccessory failed: %v", err)
	}
	steps(d, 100)
	if s := d.Status().Functions[1].State; !strings.Contains(s, "100") {
		t.Errorf("Expected servo at 100 degree, got '%s'", s)
	}
}

func TestUnauthorizedPomIgnored(t *testing.T) {
	d := newTestDecoder(t, bridge.NewVirtualBridge(), initializedStorage(t))
	n := cv.BlockCV(0, cv.Param1)
	if _, err := submitCV(t, d, protocol.CvProgram{CV: n, Value: 10, Write: true, Pom: true, ServiceAddress: 4}); err == nil {
		t.Error("Expected program-on-main write to be refused in normal mode")
	}
	if v, _ := d.store.Get(n); v != 60 {
		t.Errorf("Expected unchanged 60, got %d", v)
	}
}

func TestResetInputCentersServos(t *testing.T) {
	hw := bridge.NewVirtualBridge()
	hw.SetDigital(pinReset, false)
	storage := initializedStorage(t)
	if err := storage.WriteCell(cv.BlockCV(2, cv.Param1)-1, 10); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	d := newTestDecoder(t, hw, storage)
	if !d.Identity().WasReset {
		t.Fatal("Expected reset")
	}
	if v, _ := d.store.Get(cv.BlockCV(2, cv.Param1)); v != 60 {
		t.Errorf("Expected default 60 after reset, got %d", v)
	}
	hw.SetDigital(pinReset, true)
	steps(d, 40)
	if o := hw.Output(pinServo2); o.Value != 1500 {
		t.Errorf("Expected centered servo pulse, got %+v", o)
	}
	if st := d.Status(); st.Calibration.ForcedCenter != 3 {
		t.Errorf("Expected 3 forced servos, got %d", st.Calibration.ForcedCenter)
	}
}

func TestEncoderAdjustsSelectedServo(t *testing.T) {
	hw := bridge.NewVirtualBridge()
	hw.SetDigital(pinEncoderA, false)
	hw.SetDigital(pinEncoderB, false)
	d := newTestDecoder(t, hw, initializedStorage(t))
	if err := d.SubmitAccessory(protocol.AccessoryCommand{Address: 6, Output: 1, Activate: true}); err != nil {
		t.Fatalf("SubmitAccessory failed: %v", err)
	}
	steps(d, 100)
	// 2 detents clockwise
	for _, s := range [][2]bool{{true, false}, {true, true}, {false, true}, {false, false}} {
		hw.SetDigital(pinEncoderA, s[0])
		hw.SetDigital(pinEncoderB, s[1])
		steps(d, 1)
	}
	if st := d.Status().Calibration; st.Selected != 2 || st.Angle != 122 || !st.Pending {
		t.Errorf("Unexpected calibration status %+v", st)
	}
	steps(d, 150)
	if v, _ := d.store.Get(cv.BlockCV(2, cv.Param2)); v != 122 {
		t.Errorf("Expected committed 122, got %d", v)
	}
}

func TestSettledDecoderDoesNotWrite(t *testing.T) {
	storage := initializedStorage(t)
	d := newTestDecoder(t, bridge.NewVirtualBridge(), storage)
	for _, addr := range []int{4, 5, 7, 9, 10, 11} {
		if err := d.SubmitAccessory(protocol.AccessoryCommand{Address: addr, Output: 1, Activate: true}); err != nil {
			t.Fatalf("SubmitAccessory failed: %v", err)
		}
	}
	steps(d, 300)
	writes := storage.Writes()
	steps(d, 300)
	if w := storage.Writes(); w != writes {
		t.Errorf("Expected no storage writes, got %d", w-writes)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	d := newTestDecoder(t, bridge.NewVirtualBridge(), initializedStorage(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	v, err := d.ReadCV(context.Background(), cv.CVOptions)
	if err != nil || v&0xF0 != cv.Marker {
		t.Errorf("Expected marker, got 0x%02x, %v", v, err)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Run did not stop")
	}
}
