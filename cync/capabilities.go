package cync

// Capability identifies a functional ability of a device (or the
// intersection of abilities shared by a group of devices).
type Capability int

const (
	// CapDimming indicates the device supports a brightness level 0..100.
	CapDimming Capability = iota
	// CapCCTColor indicates the device supports tunable white (color temp).
	CapCCTColor
	// CapRGBColor indicates the device supports full RGB color.
	CapRGBColor
	// CapSigMesh indicates the device can bridge cloud traffic onto the
	// local Bluetooth mesh, i.e. it is eligible to act as a hub.
	CapSigMesh
)

func (c Capability) String() string {
	switch c {
	case CapDimming:
		return "DIMMING"
	case CapCCTColor:
		return "CCT_COLOR"
	case CapRGBColor:
		return "RGB_COLOR"
	case CapSigMesh:
		return "SIG_MESH"
	default:
		return "UNKNOWN"
	}
}

// capabilitySet is a small set type over Capability, used both for a
// single device's capabilities and for the intersection computed across a
// Group/Room/Home.
type capabilitySet map[Capability]struct{}

func newCapabilitySet(caps ...Capability) capabilitySet {
	s := make(capabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s capabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Intersect returns a new set containing only capabilities present in both
// s and other. An empty receiver or empty other yields an empty result,
// matching spec invariant 5 ("an empty set is legal").
func (s capabilitySet) Intersect(other capabilitySet) capabilitySet {
	out := make(capabilitySet)
	for c := range s {
		if other.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// intersectAll folds Intersect across zero or more sets. Zero sets yields
// an empty set (there is nothing to be common to).
func intersectAll(sets ...capabilitySet) capabilitySet {
	if len(sets) == 0 {
		return newCapabilitySet()
	}
	out := sets[0]
	for _, s := range sets[1:] {
		out = out.Intersect(s)
	}
	return out
}

// DeviceType tags the broad category a numeric device-type code maps to.
// The spec treats the full mapping as an opaque lookup table consumed by
// the core; only the handful of entries the protocol engine itself needs
// to reason about (mesh eligibility, light-specific decoding) are modeled.
type DeviceType int

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeLight
	DeviceTypeSwitch
	DeviceTypeThermostat
)

// DeviceTypes maps a protocol device_type code to its DeviceType tag. This
// table is intentionally small and consumed, not exhaustively defined —
// callers integrating a fuller vendor device-type table can extend it.
var DeviceTypes = map[uint16]DeviceType{
	131: DeviceTypeLight, // DirectConnectFullColorBulbA19
	137: DeviceTypeLight, // SingleChipFullColorBulbA19
	224: DeviceTypeThermostat,
}

// DeviceCapabilities maps a protocol device_type code to the set of
// capabilities it supports. Like DeviceTypes, this is an opaque lookup
// table the core consumes rather than defines exhaustively.
var DeviceCapabilities = map[uint16]capabilitySet{
	131: newCapabilitySet(CapDimming, CapCCTColor, CapRGBColor, CapSigMesh),
	137: newCapabilitySet(CapDimming, CapCCTColor, CapRGBColor, CapSigMesh),
	224: newCapabilitySet(), // thermostats: no mesh, no lighting capabilities
}

func capabilitiesForDeviceType(deviceType uint16) capabilitySet {
	if caps, ok := DeviceCapabilities[deviceType]; ok {
		return caps
	}
	return newCapabilitySet()
}
