package cync

import "sync"

// LightState is the last-known illumination state of a mesh-capable
// device, per spec §3. ColorMode and ColorTemp are both preserved
// independently — spec §9 leaves it ambiguous whether a given status byte
// is best read as one or the other, so neither is derived from the other.
type LightState struct {
	IsOn      bool
	Brightness uint8 // 0..100
	ColorMode uint8
	ColorTemp uint8 // 0..100; only ever set out-of-band, never inferred
	RGB       [3]uint8
}

// Device is a single cloud-addressable endpoint: a bulb, strip, or switch.
// Fields mutated by inbound parsed messages (IsOnline, WifiConnected,
// State) are guarded by mu so a command goroutine and the session's reader
// goroutine can touch them concurrently.
type Device struct {
	DeviceID        uint32 // cloud-global id
	MeshDeviceID    uint32
	HomeID          uint32
	Name            string
	DeviceType      uint16
	Mac             string
	ProductID       string
	AuthorizeCode   string
	caps            capabilitySet

	mu            sync.RWMutex
	isOnline      bool
	wifiConnected bool
	state         *LightState

	parentHome *Home
}

// NewDevice constructs a Device, computing MeshReferenceID from
// MeshDeviceID and HomeID per invariant 1 (mesh_reference_id =
// mesh_device_id mod home_id).
func NewDevice(deviceID, meshDeviceID, homeID uint32, name string, deviceType uint16, mac, productID, authorizeCode string, isOnline bool) *Device {
	return &Device{
		DeviceID:      deviceID,
		MeshDeviceID:  meshDeviceID,
		HomeID:        homeID,
		Name:          name,
		DeviceType:    deviceType,
		Mac:           mac,
		ProductID:     productID,
		AuthorizeCode: authorizeCode,
		caps:          capabilitiesForDeviceType(deviceType),
		isOnline:      isOnline,
	}
}

// MeshReferenceID returns the on-wire mesh address for this device:
// mesh_device_id mod home_id, per invariant 1. HomeID == 0 is not a valid
// topology state (a home always has a non-zero id); callers constructing a
// Device are expected to supply a valid HomeID.
func (d *Device) MeshReferenceID() uint8 {
	if d.HomeID == 0 {
		return 0
	}
	return uint8(d.MeshDeviceID % d.HomeID)
}

// IsOnline reports whether the device is considered reachable on the
// cloud/mesh at all (set at discovery time and updated by status-page
// responses; probes do not change it).
func (d *Device) IsOnline() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isOnline
}

// WifiConnected reports whether this device has answered a Probe with a
// non-zero version, marking it Wi-Fi reachable and hub-eligible (invariant 4).
func (d *Device) WifiConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wifiConnected
}

// SetWifiConnected is invoked by the Client's probe-ack handling.
func (d *Device) SetWifiConnected(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wifiConnected = v
}

// State returns a copy of the device's last-known light state, or nil if
// no state has been observed yet.
func (d *Device) State() *LightState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.state == nil {
		return nil
	}
	cp := *d.state
	return &cp
}

// applyStateUpdate merges a partial state update (as decoded from a Sync
// or Pipe-status frame) into the device's current state.
func (d *Device) applyStateUpdate(update lightStateUpdate) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == nil {
		d.state = &LightState{}
	}
	if update.hasOnline {
		d.isOnline = update.isOnline
	}
	if update.hasOn {
		d.state.IsOn = update.isOn
	}
	if update.hasBrightness {
		d.state.Brightness = update.brightness
	}
	if update.hasColorMode {
		d.state.ColorMode = update.colorMode
	}
	if update.hasRGB {
		d.state.RGB = update.rgb
	}
}

// ParentHome returns the Home this device belongs to, or nil if it has not
// been attached to one yet.
func (d *Device) ParentHome() *Home {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.parentHome
}

func (d *Device) setParentHome(h *Home) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parentHome = h
}

// lightStateUpdate is an internal, partial view of LightState produced by
// the parser; only fields the source frame actually carried are applied.
type lightStateUpdate struct {
	hasOnline     bool
	isOnline      bool
	hasOn         bool
	isOn          bool
	hasBrightness bool
	brightness    uint8
	hasColorMode  bool
	colorMode     uint8
	hasRGB        bool
	rgb           [3]uint8
}
