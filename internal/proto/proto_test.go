package proto

import (
	"bytes"
	"testing"
)

func TestBuildCommandNoParams(t *testing.T) {
	got := BuildCommand(CmdStatusRequest)
	want := []byte{0x00, 0x63}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildCommand(0x63) = %v, want %v", got, want)
	}
}

func TestBuildCommandAppendsChecksumWithParams(t *testing.T) {
	got := BuildCommand(CmdSpeed, 0x1F)
	want := []byte{0x00, 0x45, 0x1F, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildCommand(0x45, 0x1F) = %v, want %v", got, want)
	}
}

func TestBuildCommandMultipleParams(t *testing.T) {
	got := BuildCommand(CmdAnnouncement, byte(AnnouncementSqueaky), 0x00)
	want := []byte{0x00, 0x4D, 0x03, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildCommand(0x4D, 0x03, 0x00) = %v, want %v", got, want)
	}
}

func TestBuildVolumeCommand(t *testing.T) {
	got := BuildVolumeCommand(SourceHorn, 5, nil)
	want := []byte{0x00, 0x44, 0x01, 0x05, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildVolumeCommand(horn, 5, nil) = %v, want %v", got, want)
	}
}

func TestBuildVolumeCommandWithPitch(t *testing.T) {
	pitch := -2
	got := BuildVolumeCommand(SourceBell, 7, &pitch)
	want := []byte{0x00, 0x44, 0x02, 0x07, 0xFE, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildVolumeCommand(bell, 7, -2) = %v, want %v", got, want)
	}
}

func TestSpeedScaleRoundTrip(t *testing.T) {
	cases := []struct {
		percent int
		raw     byte
	}{
		{0, 0},
		{50, 15},
		{100, 31},
	}
	for _, tc := range cases {
		if got := SpeedToRaw(tc.percent); got != tc.raw {
			t.Errorf("SpeedToRaw(%d) = %d, want %d", tc.percent, got, tc.raw)
		}
	}
	if got := RawToSpeed(31); got != 100 {
		t.Errorf("RawToSpeed(31) = %d, want 100", got)
	}
	if got := RawToSpeed(0); got != 0 {
		t.Errorf("RawToSpeed(0) = %d, want 0", got)
	}
}

func TestDecodeMotionFullSpeedForward(t *testing.T) {
	ev, ok := DecodeNotification([]byte{0x00, 0x81, 0x02, 31, 0x01, 0x03, 0x0C, 0x06})
	if !ok {
		t.Fatal("DecodeNotification() ok = false, want motion event")
	}
	m, ok := ev.(MotionEvent)
	if !ok {
		t.Fatalf("DecodeNotification() = %T, want MotionEvent", ev)
	}
	if m.Speed != 100 {
		t.Errorf("Speed = %d, want 100", m.Speed)
	}
	if !m.Forward {
		t.Error("Forward = false, want true")
	}
	if !m.Lights {
		t.Error("Lights = false, want true (flag 0x04 set)")
	}
	if m.Bell {
		t.Error("Bell = true, want false (flag 0x02 clear)")
	}
}

func TestDecodeMotionStoppedReverse(t *testing.T) {
	ev, ok := DecodeNotification([]byte{0x00, 0x81, 0x02, 0, 0x02, 0x03, 0x0C, 0x00})
	if !ok {
		t.Fatal("DecodeNotification() ok = false, want motion event")
	}
	m := ev.(MotionEvent)
	if m.Speed != 0 {
		t.Errorf("Speed = %d, want 0", m.Speed)
	}
	if m.Forward {
		t.Error("Forward = true, want false (0x02 is reverse)")
	}
	if m.Lights {
		t.Error("Lights = true, want false")
	}
	if m.Bell {
		t.Error("Bell = true, want false")
	}
}

func TestDecodeBattery(t *testing.T) {
	ev, ok := DecodeNotification([]byte{0x00, 0x64, 77})
	if !ok {
		t.Fatal("DecodeNotification() ok = false, want battery event")
	}
	b := ev.(BatteryEvent)
	if b.Level != 77 {
		t.Errorf("Level = %d, want 77", b.Level)
	}
}

func TestDecodeTemperature(t *testing.T) {
	ev, ok := DecodeNotification([]byte{0x00, 0x65, 60})
	if !ok {
		t.Fatal("DecodeNotification() ok = false, want temperature event")
	}
	temp := ev.(TemperatureEvent)
	if temp.Celsius != 20 {
		t.Errorf("Celsius = %d, want 20 (60 - 40 offset)", temp.Celsius)
	}
}

func TestDecodeVoltage(t *testing.T) {
	ev, ok := DecodeNotification([]byte{0x00, 0x66, 0x01, 0x2C})
	if !ok {
		t.Fatal("DecodeNotification() ok = false, want voltage event")
	}
	v := ev.(VoltageEvent)
	if v.Volts != 3.00 {
		t.Errorf("Volts = %v, want 3.00", v.Volts)
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	frames := [][]byte{
		nil,
		{},
		{0x00},
		{0x01, 0x81, 0x02, 31, 0x01, 0x03, 0x0C, 0x06}, // wrong leading byte
		{0x00, 0x81, 0x02, 31, 0x01, 0x03, 0x0C},       // motion frame too short
		{0x00, 0x66, 0x01},                             // voltage frame too short
		{0x00, 0xFF, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	}
	for _, frame := range frames {
		if ev, ok := DecodeNotification(frame); ok {
			t.Errorf("DecodeNotification(%v) = %v, want unrecognized", frame, ev)
		}
	}
}
