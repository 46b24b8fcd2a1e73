// Package train implements the connection coordinator for a single LionChief
// locomotive: it owns the BLE link lifecycle, serializes command
// transmission, decodes inbound notifications into session state, and fans
// state changes out to registered listeners.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lionchief-bridge/internal/ble"
	"lionchief-bridge/internal/proto"
)

// Validation errors returned by intent methods before any transmission.
var (
	ErrInvalidSpeed  = errors.New("train: speed must be between 0 and 100")
	ErrInvalidVolume = errors.New("train: volume must be between 0 and 7")
	ErrInvalidPitch  = errors.New("train: pitch must be between -2 and 2")
)

// Options tunes the coordinator's timing and retry behavior. Tests override
// the delays to zero.
type Options struct {
	ConnectTimeout    time.Duration // bound on device resolution and each link attempt
	EstablishAttempts int           // link attempts inside a single connect
	FindRetryWait     time.Duration // pause before the second device resolution
	SendAttempts      int           // transmissions per sendCommand call
	SendBackoff       time.Duration // inline retry backoff base (scaled by attempt)
	ReconnectAttempts int           // full connect attempts in ForceReconnect
	ReconnectCooldown time.Duration // settle time after dropping the old link
	ReconnectBackoff  time.Duration // reconnect backoff base (scaled by attempt)
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:    10 * time.Second,
		EstablishAttempts: 3,
		FindRetryWait:     500 * time.Millisecond,
		SendAttempts:      3,
		SendBackoff:       500 * time.Millisecond,
		ReconnectAttempts: 5,
		ReconnectCooldown: time.Second,
		ReconnectBackoff:  time.Second,
	}
}

// link bundles the live connection with its discovered write characteristic.
// It is replaced wholesale on every reconnect, never mutated in place.
type link struct {
	conn  ble.Connection
	write ble.Characteristic
}

// Coordinator manages one locomotive for the lifetime of its configuration.
// All link manipulation and transmission serializes on mu; the notification
// path bypasses mu and touches only the session state.
type Coordinator struct {
	adapter     ble.Adapter
	address     string
	name        string
	serviceUUID string
	opts        Options

	mu   sync.Mutex
	link *link

	state *state
}

// NewCoordinator creates a coordinator for the locomotive at the given
// address. An empty serviceUUID selects the default LionChief service.
func NewCoordinator(adapter ble.Adapter, address, name, serviceUUID string, opts Options) *Coordinator {
	if serviceUUID == "" {
		serviceUUID = ble.ServiceUUID
	}
	if opts.EstablishAttempts <= 0 {
		opts.EstablishAttempts = 3
	}
	if opts.SendAttempts <= 0 {
		opts.SendAttempts = 3
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = 5
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	return &Coordinator{
		adapter:     adapter,
		address:     address,
		name:        name,
		serviceUUID: serviceUUID,
		opts:        opts,
		state:       newState(),
	}
}

// Name returns the configured display name.
func (c *Coordinator) Name() string { return c.name }

// Address returns the configured device address.
func (c *Coordinator) Address() string { return c.address }

// Connected reports whether the link is live.
func (c *Coordinator) Connected() bool {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.connected
}

// Status returns a copy of the full session state.
func (c *Coordinator) Status() Snapshot {
	return c.state.snapshot()
}

// DeviceInfo returns the identity projection for the host platform.
func (c *Coordinator) DeviceInfo() DeviceInfo {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.deviceInfoLocked()
}

// AddListener registers a callback invoked on every state change and
// returns a handle for RemoveListener.
func (c *Coordinator) AddListener(fn func()) int {
	return c.state.addListener(fn)
}

// RemoveListener unregisters a previously added callback.
func (c *Coordinator) RemoveListener(id int) {
	c.state.removeListener(id)
}

// Connect establishes the link if it is not already up.
func (c *Coordinator) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

// Disconnect tears the link down. Errors from an already-dead link are
// tolerated; the coordinator always ends up disconnected.
func (c *Coordinator) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLinkLocked()
	return nil
}

// ForceReconnect is the explicit recovery path: it unconditionally discards
// any existing link, waits out a cooldown, then retries a full connect with
// escalating backoff. Distinct from the short inline retry in sendCommand.
func (c *Coordinator) ForceReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	slog.Info("[train] force reconnecting", "address", c.address)
	c.dropLinkLocked()
	time.Sleep(c.opts.ReconnectCooldown)

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		err := c.connectLocked()
		if err == nil {
			slog.Info("[train] reconnected", "address", c.address, "attempt", attempt)
			c.state.notify()
			return true
		}
		slog.Debug("[train] reconnect attempt failed", "attempt", attempt, "error", err)
		if attempt < c.opts.ReconnectAttempts {
			time.Sleep(time.Duration(attempt) * c.opts.ReconnectBackoff)
		}
	}
	slog.Warn("[train] force reconnect gave up", "address", c.address, "attempts", c.opts.ReconnectAttempts)
	return false
}

// connectLocked resolves the device and brings the link up. Caller holds mu.
// Notification subscription and identity reads are best-effort; only link
// establishment and write-characteristic discovery are required.
func (c *Coordinator) connectLocked() error {
	if c.link != nil {
		return nil
	}

	dev, err := c.findDevice()
	if err != nil {
		return err
	}

	var conn ble.Connection
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
		conn, err = c.adapter.Connect(ctx, dev.Address)
		cancel()
		if err == nil {
			break
		}
		if attempt >= c.opts.EstablishAttempts {
			return fmt.Errorf("train: connect to %s: %w", c.address, err)
		}
		slog.Debug("[train] link attempt failed", "attempt", attempt, "error", err)
	}

	write, err := conn.DiscoverCharacteristic(c.serviceUUID, ble.WriteCharUUID)
	if err != nil {
		conn.Disconnect()
		return fmt.Errorf("train: discover control characteristic: %w", err)
	}

	// Some firmware variants lack the notify characteristic; telemetry is
	// simply unavailable on those.
	if notify, nerr := conn.DiscoverCharacteristic(c.serviceUUID, ble.NotifyCharUUID); nerr != nil {
		slog.Debug("[train] notifications unavailable", "error", nerr)
	} else if nerr := notify.Subscribe(c.handleNotification); nerr != nil {
		slog.Debug("[train] notification subscribe failed", "error", nerr)
	}

	c.readDeviceInfo(conn)

	l := &link{conn: conn, write: write}
	conn.OnDisconnect(func() { c.handleLinkDrop(l) })
	c.link = l
	c.state.setConnected(true)
	slog.Info("[train] connected", "address", c.address, "name", c.name)
	return nil
}

// findDevice resolves a reachable device reference, retrying resolution once
// after a short wait if the first lookup comes up empty.
func (c *Coordinator) findDevice() (ble.Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
	dev, err := c.adapter.Find(ctx, c.address)
	cancel()
	if err == nil {
		return dev, nil
	}

	slog.Debug("[train] device not found, retrying resolution", "address", c.address)
	time.Sleep(c.opts.FindRetryWait)

	ctx, cancel = context.WithTimeout(context.Background(), c.opts.ConnectTimeout)
	dev, err = c.adapter.Find(ctx, c.address)
	cancel()
	if err != nil {
		return ble.Device{}, fmt.Errorf("train: resolve %s: %w", c.address, err)
	}
	return dev, nil
}

// dropLinkLocked invalidates the current link, tolerating errors from a link
// that is already dead. Caller holds mu.
func (c *Coordinator) dropLinkLocked() {
	if c.link != nil {
		if err := c.link.conn.Disconnect(); err != nil {
			slog.Debug("[train] disconnect error (link already dead?)", "error", err)
		}
		c.link = nil
	}
	c.state.setConnected(false)
}

// handleLinkDrop is invoked by the transport when the peripheral drops the
// connection on its own.
func (c *Coordinator) handleLinkDrop(l *link) {
	c.mu.Lock()
	if c.link != l {
		// A newer link already replaced this one.
		c.mu.Unlock()
		return
	}
	c.link = nil
	c.mu.Unlock()

	slog.Warn("[train] link dropped", "address", c.address)
	c.state.setConnected(false)
	c.state.notify()
}

// identityReads maps device-information characteristics to identity fields.
// Applied as a static table; each read is independently best-effort.
var identityReads = []struct {
	uuid string
	dst  func(*Identity) *string
}{
	{ble.ModelNumberCharUUID, func(id *Identity) *string { return &id.ModelNumber }},
	{ble.SerialNumberCharUUID, func(id *Identity) *string { return &id.SerialNumber }},
	{ble.FirmwareRevisionCharUUID, func(id *Identity) *string { return &id.FirmwareRevision }},
	{ble.HardwareRevisionCharUUID, func(id *Identity) *string { return &id.HardwareRevision }},
	{ble.SoftwareRevisionCharUUID, func(id *Identity) *string { return &id.SoftwareRevision }},
	{ble.ManufacturerCharUUID, func(id *Identity) *string { return &id.ManufacturerName }},
}

// readDeviceInfo reads the device-information characteristics. A failed read
// of any single characteristic never aborts the connect.
func (c *Coordinator) readDeviceInfo(conn ble.Connection) {
	var id Identity
	for _, r := range identityReads {
		char, err := conn.DiscoverCharacteristic(ble.DeviceInfoServiceUUID, r.uuid)
		if err != nil {
			slog.Debug("[train] identity characteristic unavailable", "uuid", r.uuid)
			continue
		}
		data, err := char.Read()
		if err != nil {
			slog.Debug("[train] identity read failed", "uuid", r.uuid, "error", err)
			continue
		}
		if v := strings.TrimSpace(strings.TrimRight(string(data), "\x00")); v != "" {
			*r.dst(&id) = v
		}
	}
	c.state.setIdentity(id)
}

// sendCommand transmits one frame over the exclusive channel. Failure is a
// value, not an error: callers degrade gracefully when the locomotive is
// unreachable. Transmissions never interleave; the whole retry sequence runs
// under the coordinator lock.
func (c *Coordinator) sendCommand(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.link == nil {
		if err := c.connectLocked(); err != nil {
			slog.Warn("[train] connect before send failed", "error", err)
			return false
		}
	}

	for attempt := 1; attempt <= c.opts.SendAttempts; attempt++ {
		if c.link != nil {
			err := c.link.write.Write(frame)
			if err == nil {
				slog.Debug("[train] sent command", "frame", fmt.Sprintf("%x", frame))
				return true
			}
			slog.Warn("[train] write failed", "attempt", attempt, "error", err)
			c.dropLinkLocked()
		}
		if attempt < c.opts.SendAttempts {
			time.Sleep(time.Duration(attempt) * c.opts.SendBackoff)
			if err := c.connectLocked(); err != nil {
				slog.Debug("[train] reconnect during send failed", "attempt", attempt, "error", err)
			}
		}
	}
	slog.Error("[train] command failed after retries", "attempts", c.opts.SendAttempts)
	return false
}

// handleNotification routes an inbound frame to the codec and applies the
// decoded fields. It runs on the transport's delivery goroutine and performs
// no I/O.
func (c *Coordinator) handleNotification(data []byte) {
	ev, ok := proto.DecodeNotification(data)
	if !ok {
		slog.Debug("[train] unrecognized notification", "frame", fmt.Sprintf("%x", data))
		return
	}

	switch ev := ev.(type) {
	case proto.MotionEvent:
		c.state.applyMotion(ev)
	case proto.BatteryEvent:
		c.state.setBattery(ev.Level)
	case proto.TemperatureEvent:
		c.state.setTemperature(ev.Celsius)
	case proto.VoltageEvent:
		c.state.setVoltage(ev.Volts)
	}
	c.state.notify()
}
