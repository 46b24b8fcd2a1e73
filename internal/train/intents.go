package train

import "lionchief-bridge/internal/proto"

// Intent methods. Each validates its input, builds the frame, transmits it
// through sendCommand, and applies the optimistic state update only on a
// successful send. The boolean is the transmission outcome; the error is
// returned solely for caller misuse (out-of-range input) and is raised
// before the link is touched.

// SetSpeed sets the throttle as a 0-100 percentage.
func (c *Coordinator) SetSpeed(speed int) (bool, error) {
	if speed < 0 || speed > 100 {
		return false, ErrInvalidSpeed
	}
	frame := proto.BuildCommand(proto.CmdSpeed, proto.SpeedToRaw(speed))
	if !c.sendCommand(frame) {
		return false, nil
	}
	c.state.setSpeed(speed)
	c.state.notify()
	return true, nil
}

// SetDirection sets forward (true) or reverse (false).
func (c *Coordinator) SetDirection(forward bool) bool {
	value := byte(proto.DirectionReverse)
	if forward {
		value = proto.DirectionForward
	}
	if !c.sendCommand(proto.BuildCommand(proto.CmdDirection, value)) {
		return false
	}
	c.state.setDirection(forward)
	c.state.notify()
	return true
}

// SetLights switches the headlight.
func (c *Coordinator) SetLights(on bool) bool {
	if !c.sendCommand(proto.BuildCommand(proto.CmdLights, onByte(on))) {
		return false
	}
	c.state.setLights(on)
	c.state.notify()
	return true
}

// SetHorn switches the horn. The status frame carries no horn bit, so this
// optimistic update is the only record of horn state and may diverge from
// the device if the command is later overridden locally.
func (c *Coordinator) SetHorn(on bool) bool {
	if !c.sendCommand(proto.BuildCommand(proto.CmdHorn, onByte(on))) {
		return false
	}
	c.state.setHorn(on)
	c.state.notify()
	return true
}

// SetBell switches the bell.
func (c *Coordinator) SetBell(on bool) bool {
	if !c.sendCommand(proto.BuildCommand(proto.CmdBell, onByte(on))) {
		return false
	}
	c.state.setBell(on)
	c.state.notify()
	return true
}

// SetSmoke switches the smoke unit.
func (c *Coordinator) SetSmoke(on bool) bool {
	if !c.sendCommand(proto.BuildCommand(proto.CmdSmoke, onByte(on))) {
		return false
	}
	c.state.setSmoke(on)
	c.state.notify()
	return true
}

// SetCabLights switches the cab lights.
func (c *Coordinator) SetCabLights(on bool) bool {
	if !c.sendCommand(proto.BuildCommand(proto.CmdCabLights, onByte(on))) {
		return false
	}
	c.state.setCabLights(on)
	c.state.notify()
	return true
}

// SetNumberBoards switches the number board lights.
func (c *Coordinator) SetNumberBoards(on bool) bool {
	if !c.sendCommand(proto.BuildCommand(proto.CmdNumberBoards, onByte(on))) {
		return false
	}
	c.state.setNumberBoards(on)
	c.state.notify()
	return true
}

// SetMasterVolume sets the overall volume, 0-7.
func (c *Coordinator) SetMasterVolume(volume int) (bool, error) {
	if volume < 0 || volume > 7 {
		return false, ErrInvalidVolume
	}
	if !c.sendCommand(proto.BuildCommand(proto.CmdMasterVolume, byte(volume))) {
		return false, nil
	}
	c.state.setMasterVolume(volume)
	c.state.notify()
	return true, nil
}

// SetSoundVolume sets the volume (0-7) and optionally the pitch (-2..2) of
// one sound source. A nil pitch leaves the source's pitch untouched.
func (c *Coordinator) SetSoundVolume(source proto.SoundSource, volume int, pitch *int) (bool, error) {
	if volume < 0 || volume > 7 {
		return false, ErrInvalidVolume
	}
	if pitch != nil && (*pitch < -2 || *pitch > 2) {
		return false, ErrInvalidPitch
	}
	if !c.sendCommand(proto.BuildVolumeCommand(source, byte(volume), pitch)) {
		return false, nil
	}
	c.state.setSoundLevel(source, volume, pitch)
	c.state.notify()
	return true, nil
}

// FireCoupler triggers the coupler release. One-shot; no state to track.
func (c *Coordinator) FireCoupler() bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdCoupler, 0x01))
}

// PlayAnnouncement plays one of the locomotive's canned voice clips.
// One-shot; no state to track.
func (c *Coordinator) PlayAnnouncement(a proto.Announcement) bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdAnnouncement, byte(a), 0x00))
}

// SendDisconnect asks the locomotive itself to drop the link.
func (c *Coordinator) SendDisconnect() bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdDisconnect, 0x00, 0x00))
}

// RequestStatus asks for a motion/accessory status notification.
func (c *Coordinator) RequestStatus() bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdStatusRequest))
}

// RequestBattery asks for a battery level notification.
func (c *Coordinator) RequestBattery() bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdBattery))
}

// RequestTemperature asks for a temperature notification.
func (c *Coordinator) RequestTemperature() bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdTemperature))
}

// RequestVoltage asks for a voltage notification.
func (c *Coordinator) RequestVoltage() bool {
	return c.sendCommand(proto.BuildCommand(proto.CmdVoltage))
}

func onByte(on bool) byte {
	if on {
		return 0x01
	}
	return 0x00
}
