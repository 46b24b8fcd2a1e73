package train

import (
	"testing"

	"lionchief-bridge/internal/proto"
)

func TestStateDefaults(t *testing.T) {
	c := newTestCoordinator(newMockAdapter())
	snap := c.Status()

	if snap.Connected {
		t.Error("Connected = true before any connect")
	}
	if snap.Speed != 0 {
		t.Errorf("Speed = %d, want 0", snap.Speed)
	}
	if !snap.Forward {
		t.Error("Forward = false, want true (default direction)")
	}
	if !snap.Lights {
		t.Error("Lights = false, want true (headlight on at power-up)")
	}
	if snap.MasterVolume != 5 {
		t.Errorf("MasterVolume = %d, want 5", snap.MasterVolume)
	}
	for name, lvl := range snap.Sounds {
		if lvl.Volume != 5 || lvl.Pitch != 0 {
			t.Errorf("Sounds[%q] = %+v, want volume 5 pitch 0", name, lvl)
		}
	}
	if snap.Battery != nil || snap.Temperature != nil || snap.Voltage != nil {
		t.Error("telemetry should be unknown before any notification")
	}
}

func TestListenerPanicIsolation(t *testing.T) {
	c := newTestCoordinator(newMockAdapter())

	secondRan := false
	c.AddListener(func() { panic("listener exploded") })
	c.AddListener(func() { secondRan = true })

	c.state.notify()

	if !secondRan {
		t.Error("second listener not invoked after first panicked")
	}
}

func TestRemoveListener(t *testing.T) {
	c := newTestCoordinator(newMockAdapter())

	calls := 0
	id := c.AddListener(func() { calls++ })
	c.state.notify()
	c.RemoveListener(id)
	c.state.notify()

	if calls != 1 {
		t.Errorf("listener invoked %d times, want 1 (removed after first notify)", calls)
	}
}

func TestListenerMayRemoveItselfDuringNotify(t *testing.T) {
	c := newTestCoordinator(newMockAdapter())

	var id int
	calls := 0
	id = c.AddListener(func() {
		calls++
		c.RemoveListener(id)
	})

	c.state.notify()
	c.state.notify()

	if calls != 1 {
		t.Errorf("self-removing listener invoked %d times, want 1", calls)
	}
}

func TestOptimisticUpdateOnSuccessfulSend(t *testing.T) {
	adapter := newMockAdapter()
	c := newTestCoordinator(adapter)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	notifies := 0
	c.AddListener(func() { notifies++ })

	if ok, err := c.SetSpeed(60); err != nil || !ok {
		t.Fatalf("SetSpeed(60) = %v, %v", ok, err)
	}
	if !c.SetDirection(false) {
		t.Fatal("SetDirection(false) = false")
	}
	if !c.SetBell(true) {
		t.Fatal("SetBell(true) = false")
	}
	pitch := 1
	if ok, err := c.SetSoundVolume(proto.SourceHorn, 3, &pitch); err != nil || !ok {
		t.Fatalf("SetSoundVolume() = %v, %v", ok, err)
	}

	snap := c.Status()
	if snap.Speed != 60 {
		t.Errorf("Speed = %d, want 60", snap.Speed)
	}
	if snap.Forward {
		t.Error("Forward = true, want false")
	}
	if !snap.Bell {
		t.Error("Bell = false, want true")
	}
	if got := snap.Sounds["horn"]; got.Volume != 3 || got.Pitch != 1 {
		t.Errorf("Sounds[horn] = %+v, want volume 3 pitch 1", got)
	}
	if notifies != 4 {
		t.Errorf("listeners notified %d times, want 4", notifies)
	}
}

func TestFireAndForgetIntentsMutateNothing(t *testing.T) {
	adapter := newMockAdapter()
	c := newTestCoordinator(adapter)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	before := c.Status()

	if !c.FireCoupler() {
		t.Error("FireCoupler() = false")
	}
	if !c.PlayAnnouncement(proto.AnnouncementHeyThere) {
		t.Error("PlayAnnouncement() = false")
	}
	if !c.RequestStatus() || !c.RequestBattery() || !c.RequestTemperature() || !c.RequestVoltage() {
		t.Error("status request intents failed")
	}

	after := c.Status()
	before.Connected, after.Connected = false, false
	if before.Speed != after.Speed || before.Bell != after.Bell || before.Horn != after.Horn {
		t.Error("fire-and-forget intent mutated session state")
	}

	// Status request frames carry no parameters, so no checksum byte.
	writes := adapter.latestConnection().write.writes
	statusFrame := writes[len(writes)-4]
	if len(statusFrame) != 2 || statusFrame[1] != proto.CmdStatusRequest {
		t.Errorf("status request frame = %v, want [0x00 0x63]", statusFrame)
	}
}

func TestValidationRejectsBeforeTransmission(t *testing.T) {
	adapter := newMockAdapter()
	c := newTestCoordinator(adapter)

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{"speed low", func() error { _, err := c.SetSpeed(-1); return err }, ErrInvalidSpeed},
		{"speed high", func() error { _, err := c.SetSpeed(101); return err }, ErrInvalidSpeed},
		{"master volume", func() error { _, err := c.SetMasterVolume(8); return err }, ErrInvalidVolume},
		{"sound volume", func() error { _, err := c.SetSoundVolume(proto.SourceBell, -1, nil); return err }, ErrInvalidVolume},
		{"pitch low", func() error {
			p := -3
			_, err := c.SetSoundVolume(proto.SourceBell, 4, &p)
			return err
		}, ErrInvalidPitch},
		{"pitch high", func() error {
			p := 3
			_, err := c.SetSoundVolume(proto.SourceEngine, 4, &p)
			return err
		}, ErrInvalidPitch},
	}
	for _, tc := range cases {
		if err := tc.call(); err != tc.want {
			t.Errorf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}

	// No connect attempt, no transmission: validation fails fast.
	finds, conns := adapter.counts()
	if finds != 0 || conns != 0 {
		t.Errorf("finds=%d conns=%d after validation failures, want 0/0", finds, conns)
	}
}

func TestNotificationUpdatesState(t *testing.T) {
	adapter := newMockAdapter()
	c := newTestCoordinator(adapter)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	notifies := 0
	c.AddListener(func() { notifies++ })
	notify := adapter.latestConnection().notify

	notify.SimulateNotification([]byte{0x00, 0x81, 0x02, 31, 0x01, 0x03, 0x0C, 0x06})
	notify.SimulateNotification([]byte{0x00, 0x64, 77})
	notify.SimulateNotification([]byte{0x00, 0x65, 60})
	notify.SimulateNotification([]byte{0x00, 0x66, 0x01, 0x2C})

	snap := c.Status()
	if snap.Speed != 100 || !snap.Forward || !snap.Lights || snap.Bell {
		t.Errorf("motion state = speed %d forward %v lights %v bell %v, want 100/true/true/false",
			snap.Speed, snap.Forward, snap.Lights, snap.Bell)
	}
	if snap.Battery == nil || *snap.Battery != 77 {
		t.Errorf("Battery = %v, want 77", snap.Battery)
	}
	if snap.Temperature == nil || *snap.Temperature != 20 {
		t.Errorf("Temperature = %v, want 20", snap.Temperature)
	}
	if snap.Voltage == nil || *snap.Voltage != 3.00 {
		t.Errorf("Voltage = %v, want 3.00", snap.Voltage)
	}
	if notifies != 4 {
		t.Errorf("listeners notified %d times, want 4", notifies)
	}
}

func TestUnrecognizedNotificationLeavesStateUntouched(t *testing.T) {
	adapter := newMockAdapter()
	c := newTestCoordinator(adapter)
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	notified := false
	c.AddListener(func() { notified = true })

	adapter.latestConnection().notify.SimulateNotification([]byte{0x13, 0x37})

	snap := c.Status()
	if snap.Speed != 0 || snap.Battery != nil {
		t.Error("unrecognized frame mutated session state")
	}
	if notified {
		t.Error("unrecognized frame triggered listener fan-out")
	}
	if !c.Connected() {
		t.Error("decode miss affected connection state")
	}
}
