package train

import (
	"log/slog"
	"sync"

	"lionchief-bridge/internal/proto"
)

// Identity holds the strings read from the device-information service.
// Fields stay empty until a successful read after connect.
type Identity struct {
	ModelNumber      string
	SerialNumber     string
	FirmwareRevision string
	HardwareRevision string
	SoftwareRevision string
	ManufacturerName string
}

// DeviceInfo is the identity projection exposed to the host platform,
// with fallbacks for fields the locomotive never reported.
type DeviceInfo struct {
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	SWVersion    string `json:"sw_version"`
	HWVersion    string `json:"hw_version"`
	SerialNumber string `json:"serial_number,omitempty"`
}

// SoundLevel is the volume and pitch of one sound source.
type SoundLevel struct {
	Volume int `json:"volume"`
	Pitch  int `json:"pitch"`
}

// Snapshot is a point-in-time copy of the full session state, shaped for
// JSON serialization. Telemetry fields are nil until first reported.
type Snapshot struct {
	Connected    bool                  `json:"connected"`
	Speed        int                   `json:"speed"`
	Forward      bool                  `json:"direction_forward"`
	Lights       bool                  `json:"lights"`
	Horn         bool                  `json:"horn"`
	Bell         bool                  `json:"bell"`
	Smoke        bool                  `json:"smoke"`
	CabLights    bool                  `json:"cab_lights"`
	NumberBoards bool                  `json:"number_boards"`
	MasterVolume int                   `json:"master_volume"`
	Sounds       map[string]SoundLevel `json:"sounds"`
	Battery      *int                  `json:"battery,omitempty"`
	Temperature  *int                  `json:"temperature,omitempty"`
	Voltage      *float64              `json:"voltage,omitempty"`
	Device       DeviceInfo            `json:"device"`
}

// state is the mutable model of one locomotive. It has its own lock so the
// notification path can update it while a command (holding the coordinator
// lock) is in flight.
type state struct {
	mu sync.Mutex

	connected bool

	speed        int
	forward      bool
	lights       bool
	horn         bool
	bell         bool
	smoke        bool
	cabLights    bool
	numberBoards bool

	masterVolume int
	sounds       map[proto.SoundSource]SoundLevel

	battery        int
	hasBattery     bool
	temperature    int
	hasTemperature bool
	voltage        float64
	hasVoltage     bool

	identity Identity

	listeners    map[int]func()
	nextListener int
}

// newState returns the state with the locomotive's power-on defaults:
// stopped, facing forward, headlight on, every volume mid-range.
func newState() *state {
	return &state{
		forward:      true,
		lights:       true,
		masterVolume: 5,
		sounds: map[proto.SoundSource]SoundLevel{
			proto.SourceHorn:   {Volume: 5},
			proto.SourceBell:   {Volume: 5},
			proto.SourceSpeech: {Volume: 5},
			proto.SourceEngine: {Volume: 5},
		},
		listeners: make(map[int]func()),
	}
}

func (s *state) addListener(fn func()) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return id
}

func (s *state) removeListener(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

// notify invokes every registered listener. The registry is snapshotted
// first so listeners may add or remove themselves during the fan-out, and a
// panicking listener is isolated from the rest.
func (s *state) notify() {
	s.mu.Lock()
	snapshot := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		snapshot = append(snapshot, fn)
	}
	s.mu.Unlock()

	for _, fn := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("[train] state listener panicked", "panic", r)
				}
			}()
			fn()
		}()
	}
}

func (s *state) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

func (s *state) setSpeed(v int) {
	s.mu.Lock()
	s.speed = v
	s.mu.Unlock()
}

func (s *state) setDirection(forward bool) {
	s.mu.Lock()
	s.forward = forward
	s.mu.Unlock()
}

func (s *state) setLights(on bool) {
	s.mu.Lock()
	s.lights = on
	s.mu.Unlock()
}

func (s *state) setHorn(on bool) {
	s.mu.Lock()
	s.horn = on
	s.mu.Unlock()
}

func (s *state) setBell(on bool) {
	s.mu.Lock()
	s.bell = on
	s.mu.Unlock()
}

func (s *state) setSmoke(on bool) {
	s.mu.Lock()
	s.smoke = on
	s.mu.Unlock()
}

func (s *state) setCabLights(on bool) {
	s.mu.Lock()
	s.cabLights = on
	s.mu.Unlock()
}

func (s *state) setNumberBoards(on bool) {
	s.mu.Lock()
	s.numberBoards = on
	s.mu.Unlock()
}

func (s *state) setMasterVolume(v int) {
	s.mu.Lock()
	s.masterVolume = v
	s.mu.Unlock()
}

func (s *state) setSoundLevel(source proto.SoundSource, volume int, pitch *int) {
	s.mu.Lock()
	lvl := s.sounds[source]
	lvl.Volume = volume
	if pitch != nil {
		lvl.Pitch = *pitch
	}
	s.sounds[source] = lvl
	s.mu.Unlock()
}

func (s *state) applyMotion(ev proto.MotionEvent) {
	s.mu.Lock()
	s.speed = ev.Speed
	s.forward = ev.Forward
	s.lights = ev.Lights
	s.bell = ev.Bell
	s.mu.Unlock()
}

func (s *state) setBattery(level int) {
	s.mu.Lock()
	s.battery = level
	s.hasBattery = true
	s.mu.Unlock()
}

func (s *state) setTemperature(celsius int) {
	s.mu.Lock()
	s.temperature = celsius
	s.hasTemperature = true
	s.mu.Unlock()
}

func (s *state) setVoltage(volts float64) {
	s.mu.Lock()
	s.voltage = volts
	s.hasVoltage = true
	s.mu.Unlock()
}

func (s *state) setIdentity(id Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id.ModelNumber != "" {
		s.identity.ModelNumber = id.ModelNumber
	}
	if id.SerialNumber != "" {
		s.identity.SerialNumber = id.SerialNumber
	}
	if id.FirmwareRevision != "" {
		s.identity.FirmwareRevision = id.FirmwareRevision
	}
	if id.HardwareRevision != "" {
		s.identity.HardwareRevision = id.HardwareRevision
	}
	if id.SoftwareRevision != "" {
		s.identity.SoftwareRevision = id.SoftwareRevision
	}
	if id.ManufacturerName != "" {
		s.identity.ManufacturerName = id.ManufacturerName
	}
}

func (s *state) deviceInfoLocked() DeviceInfo {
	info := DeviceInfo{
		Model:        s.identity.ModelNumber,
		Manufacturer: s.identity.ManufacturerName,
		SWVersion:    s.identity.SoftwareRevision,
		HWVersion:    s.identity.HardwareRevision,
		SerialNumber: s.identity.SerialNumber,
	}
	if info.Model == "" {
		info.Model = "LionChief Locomotive"
	}
	if info.Manufacturer == "" {
		info.Manufacturer = "Lionel"
	}
	if info.SWVersion == "" {
		info.SWVersion = "Unknown"
	}
	if info.HWVersion == "" {
		info.HWVersion = "Unknown"
	}
	return info
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Connected:    s.connected,
		Speed:        s.speed,
		Forward:      s.forward,
		Lights:       s.lights,
		Horn:         s.horn,
		Bell:         s.bell,
		Smoke:        s.smoke,
		CabLights:    s.cabLights,
		NumberBoards: s.numberBoards,
		MasterVolume: s.masterVolume,
		Sounds: map[string]SoundLevel{
			"horn":   s.sounds[proto.SourceHorn],
			"bell":   s.sounds[proto.SourceBell],
			"speech": s.sounds[proto.SourceSpeech],
			"engine": s.sounds[proto.SourceEngine],
		},
		Device: s.deviceInfoLocked(),
	}
	if s.hasBattery {
		v := s.battery
		snap.Battery = &v
	}
	if s.hasTemperature {
		v := s.temperature
		snap.Temperature = &v
	}
	if s.hasVoltage {
		v := s.voltage
		snap.Voltage = &v
	}
	return snap
}
