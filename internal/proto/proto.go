// Package proto implements the LionChief control frame format: building
// outbound command frames and decoding the notification frames the
// locomotive pushes back. The protocol is only partially reverse-engineered;
// the decoder classifies what it knows and reports everything else as
// unrecognized rather than guessing.
package proto

// Command codes written to the control characteristic.
const (
	CmdSoundVolume   = 0x44
	CmdSpeed         = 0x45
	CmdDirection     = 0x46
	CmdBell          = 0x47
	CmdHorn          = 0x48
	// CmdDisconnect and CmdMasterVolume share a code; the device tells the
	// frames apart by parameter count.
	CmdDisconnect    = 0x4B
	CmdMasterVolume  = 0x4B
	CmdChuffVolume   = 0x4C
	CmdAnnouncement  = 0x4D
	CmdSmoke         = 0x4E
	CmdCoupler       = 0x4F
	CmdCabLights     = 0x50
	CmdLights        = 0x51
	CmdNumberBoards  = 0x52
	CmdStatusRequest = 0x63
	CmdBattery       = 0x64
	CmdTemperature   = 0x65
	CmdVoltage       = 0x66
)

// Direction parameter values.
const (
	DirectionForward = 0x01
	DirectionReverse = 0x02
)

// SoundSource selects which sound the 0x44 volume command targets.
type SoundSource byte

const (
	SourceHorn   SoundSource = 0x01
	SourceBell   SoundSource = 0x02
	SourceSpeech SoundSource = 0x03
	SourceEngine SoundSource = 0x04
)

// Announcement identifies one of the locomotive's canned voice clips.
type Announcement byte

const (
	AnnouncementRandom         Announcement = 0x00
	AnnouncementReadyToRoll    Announcement = 0x01
	AnnouncementHeyThere       Announcement = 0x02
	AnnouncementSqueaky        Announcement = 0x03
	AnnouncementWaterAndFire   Announcement = 0x04
	AnnouncementFastestFreight Announcement = 0x05
	AnnouncementPennaFlyer     Announcement = 0x06
)

// Announcements maps display names to announcement codes.
var Announcements = map[string]Announcement{
	"Random":          AnnouncementRandom,
	"Ready to Roll":   AnnouncementReadyToRoll,
	"Hey There":       AnnouncementHeyThere,
	"Squeaky":         AnnouncementSqueaky,
	"Water and Fire":  AnnouncementWaterAndFire,
	"Fastest Freight": AnnouncementFastestFreight,
	"Penna Flyer":     AnnouncementPennaFlyer,
}

// BuildCommand assembles an outbound frame: [0x00, code, params..., 0x00].
// The trailing byte is a checksum placeholder the firmware accepts as-is
// and is only appended when parameters are present. The code byte is not
// validated; callers are responsible for parameter ranges.
func BuildCommand(code byte, params ...byte) []byte {
	frame := make([]byte, 0, len(params)+3)
	frame = append(frame, 0x00, code)
	if len(params) > 0 {
		frame = append(frame, params...)
		frame = append(frame, 0x00)
	}
	return frame
}

// BuildVolumeCommand assembles a per-source volume frame. A nil pitch leaves
// pitch out entirely; some sound sources do not support it. Pitch is encoded
// as a two's-complement byte.
func BuildVolumeCommand(source SoundSource, volume byte, pitch *int) []byte {
	if pitch == nil {
		return BuildCommand(CmdSoundVolume, byte(source), volume)
	}
	return BuildCommand(CmdSoundVolume, byte(source), volume, byte(int8(*pitch)))
}

// SpeedToRaw converts a 0-100 percentage to the 0-31 wire scale.
func SpeedToRaw(percent int) byte {
	return byte(percent * 31 / 100)
}

// RawToSpeed converts the 0-31 wire scale to a rounded 0-100 percentage.
func RawToSpeed(raw byte) int {
	return (int(raw)*200 + 31) / 62
}

// Event is a decoded inbound notification.
type Event interface {
	isEvent()
}

// MotionEvent is the locomotive status frame: speed, direction and the
// lights/bell flag bits. Horn state is not carried in this frame.
type MotionEvent struct {
	Speed   int // percent, 0-100
	Forward bool
	Lights  bool
	Bell    bool
}

// BatteryEvent reports the battery charge percentage.
type BatteryEvent struct {
	Level int
}

// TemperatureEvent reports the internal temperature in degrees Celsius.
type TemperatureEvent struct {
	Celsius int
}

// VoltageEvent reports the supply voltage in volts.
type VoltageEvent struct {
	Volts float64
}

func (MotionEvent) isEvent()      {}
func (BatteryEvent) isEvent()     {}
func (TemperatureEvent) isEvent() {}
func (VoltageEvent) isEvent()     {}

const (
	flagBell   = 0x02
	flagLights = 0x04
)

// DecodeNotification classifies an inbound frame by its leading bytes and
// decodes it into a typed event. Frames that match no known pattern, or are
// too short for the pattern they match, return ok=false. It never panics on
// malformed input.
func DecodeNotification(data []byte) (Event, bool) {
	switch {
	case len(data) >= 8 && data[0] == 0x00 && data[1] == 0x81 && data[2] == 0x02:
		// [0x00, 0x81, 0x02, speed, direction, 0x03, 0x0C, flags, ...]
		flags := data[7]
		return MotionEvent{
			Speed:   RawToSpeed(data[3]),
			Forward: data[4] == DirectionForward,
			Lights:  flags&flagLights != 0,
			Bell:    flags&flagBell != 0,
		}, true
	case len(data) >= 3 && data[0] == 0x00 && data[1] == CmdBattery:
		return BatteryEvent{Level: int(data[2])}, true
	case len(data) >= 3 && data[0] == 0x00 && data[1] == CmdTemperature:
		// Offset encoding: wire byte is Celsius + 40.
		return TemperatureEvent{Celsius: int(data[2]) - 40}, true
	case len(data) >= 4 && data[0] == 0x00 && data[1] == CmdVoltage:
		raw := int(data[2])<<8 | int(data[3])
		return VoltageEvent{Volts: float64(raw) / 100.0}, true
	default:
		return nil, false
	}
}
