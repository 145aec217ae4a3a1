// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
)

func setupPortAudio(t *testing.T) {
	t.Helper()
	if err := Initialize(); err != nil {
		t.Skipf("PortAudio unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := Terminate(); err != nil {
			t.Errorf("Failed to terminate PortAudio: %v", err)
		}
	})
}

func mockDevices(t *testing.T, infos []*portaudio.DeviceInfo, err error) {
	t.Helper()
	orig := paDevicesFunc
	t.Cleanup(func() { paDevicesFunc = orig })
	paDevicesFunc = func() ([]*portaudio.DeviceInfo, error) {
		return infos, err
	}
}

var fakeDevices = []*portaudio.DeviceInfo{
	{Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 44100,
		DefaultLowInputLatency: 3 * time.Millisecond, DefaultHighInputLatency: 12 * time.Millisecond},
	{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{Name: "USB Interface", MaxInputChannels: 4, MaxOutputChannels: 4, DefaultSampleRate: 96000},
}

func TestHostDevices(t *testing.T) {
	mockDevices(t, fakeDevices, nil)

	devices, err := HostDevices()
	if err != nil {
		t.Fatalf("HostDevices error: %v", err)
	}
	if len(devices) != len(fakeDevices) {
		t.Fatalf("got %d devices, want %d", len(devices), len(fakeDevices))
	}

	tests := []struct {
		kind    string
		isInput bool
	}{
		{"Input", true},
		{"Output", false},
		{"Input/Output", true},
	}
	for i, tt := range tests {
		d := devices[i]
		if d.ID != i {
			t.Errorf("Device ID mismatch: got %d, want %d", d.ID, i)
		}
		if d.Kind() != tt.kind || d.IsInput() != tt.isInput {
			t.Errorf("device %d: Kind()=%s IsInput()=%v, want %s %v", i, d.Kind(), d.IsInput(), tt.kind, tt.isInput)
		}
	}
	if devices[0].LowInputLatency != 3*time.Millisecond {
		t.Errorf("LowInputLatency = %s", devices[0].LowInputLatency)
	}
	if (Device{}).Kind() != "Unavailable" {
		t.Errorf("zero Device Kind() = %s", Device{}.Kind())
	}
}

func TestHostDevices_paDevicesError(t *testing.T) {
	mockDevices(t, nil, fmt.Errorf("mock error"))

	_, err := HostDevices()
	if err == nil || !strings.Contains(err.Error(), "mock error") {
		t.Errorf("expected mock error, got %v", err)
	}
	if err := ListDevices(&bytes.Buffer{}); err == nil {
		t.Error("ListDevices should surface the device error")
	}
}

func TestListDevices(t *testing.T) {
	mockDevices(t, fakeDevices, nil)

	var buf bytes.Buffer
	if err := ListDevices(&buf); err != nil {
		t.Fatalf("ListDevices error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"[0] Built-in Microphone (Input)",
		"[1] Built-in Output (Output)",
		"[2] USB Interface (Input/Output)",
		"Latency: Low=3.00ms, High=12.00ms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInputDeviceByID(t *testing.T) {
	mockDevices(t, fakeDevices, nil)

	d, err := InputDevice(2)
	if err != nil {
		t.Fatalf("InputDevice(2) error: %v", err)
	}
	if d.Name != "USB Interface" {
		t.Errorf("InputDevice(2) = %q", d.Name)
	}

	for _, id := range []int{-5, 1, 3} {
		if _, err := InputDevice(id); err == nil {
			t.Errorf("InputDevice(%d) expected error", id)
		}
	}
}

func TestInputDeviceDefault(t *testing.T) {
	setupPortAudio(t)

	dev, err := InputDevice(-1)
	if err != nil {
		t.Skipf("no default input device: %v", err)
	}
	if dev.Name == "" {
		t.Error("Default input device has empty name")
	}
}
