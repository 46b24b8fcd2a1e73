// Package ble provides the Bluetooth Low Energy transport for talking to a
// LionChief locomotive. It abstracts the hardware adapter behind small
// interfaces so the coordinator can be tested against mocks.
package ble

import "context"

// LionChief control service and characteristic UUIDs.
const (
	ServiceUUID    = "e20a39f4-73f5-4bc4-a12f-17d1ad07a961"
	WriteCharUUID  = "08590f7e-db05-467e-8757-72f6faeb13d4"
	NotifyCharUUID = "08590f7e-db05-467e-8757-72f6faeb14d3"
)

// Standard Device Information Service UUIDs.
const (
	DeviceInfoServiceUUID    = "0000180a-0000-1000-8000-00805f9b34fb"
	ModelNumberCharUUID      = "00002a24-0000-1000-8000-00805f9b34fb"
	SerialNumberCharUUID     = "00002a25-0000-1000-8000-00805f9b34fb"
	FirmwareRevisionCharUUID = "00002a26-0000-1000-8000-00805f9b34fb"
	HardwareRevisionCharUUID = "00002a27-0000-1000-8000-00805f9b34fb"
	SoftwareRevisionCharUUID = "00002a28-0000-1000-8000-00805f9b34fb"
	ManufacturerCharUUID     = "00002a29-0000-1000-8000-00805f9b34fb"
)

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// Write sends data to the characteristic.
	Write(data []byte) error
	// Read reads the characteristic's current value.
	Read() ([]byte, error)
	// Subscribe registers a callback for notifications on this characteristic.
	Subscribe(callback func(data []byte)) error
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name    string
	Address string
	RSSI    int
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverCharacteristic finds a characteristic by UUID within a service.
	DiscoverCharacteristic(serviceUUID, charUUID string) (Characteristic, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Find scans for a reachable peripheral with the given address until it
	// is seen or ctx expires.
	Find(ctx context.Context, address string) (Device, error)
	// Connect establishes a connection to the device with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
