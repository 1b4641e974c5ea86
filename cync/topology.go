package cync

import (
	"fmt"
	"sync"
)

// Controllable is any addressable target of a user command: a Device,
// Group, Room, or whole Home (spec §3). Implemented by all four instead of
// a class hierarchy, matching pycync's CyncControllable protocol.
type Controllable interface {
	// ParentHome returns the Home this Controllable belongs to.
	ParentHome() *Home
	// MeshReferenceID is the on-wire mesh address to target: the device's
	// own id for a Device, or the collection's mesh address for a Group/
	// Room/Home.
	MeshReferenceID() uint8
	// Capabilities returns the intersection of all member devices'
	// capability sets (invariant 5). May be empty.
	Capabilities() capabilitySet
	// SupportsCapability reports whether c is present in Capabilities().
	SupportsCapability(c Capability) bool
}

func supportsCapability(caps capabilitySet, c Capability) bool {
	return caps.Has(c)
}

// compile-time assertions that every grouping type implements Controllable.
var (
	_ Controllable = (*Device)(nil)
	_ Controllable = (*Group)(nil)
	_ Controllable = (*Room)(nil)
	_ Controllable = (*Home)(nil)
)

// Capabilities implements Controllable for Device.
func (d *Device) Capabilities() capabilitySet { return d.caps }

// SupportsCapability implements Controllable for Device.
func (d *Device) SupportsCapability(c Capability) bool { return supportsCapability(d.caps, c) }

// Group is a subgroup of devices inside a Room, carrying its own mesh
// address (spec §3).
type Group struct {
	GroupID         uint32
	Name            string
	Devices         []*Device
	meshReferenceID uint8
	capabilities    capabilitySet
	parentHome      *Home
}

// NewGroup constructs a Group and computes its capability intersection
// (invariant 5): the intersection of its member devices' capabilities. An
// empty Devices slice yields an empty capability set.
func NewGroup(groupID uint32, name string, meshReferenceID uint8, devices []*Device) *Group {
	sets := make([]capabilitySet, 0, len(devices))
	for _, d := range devices {
		sets = append(sets, d.caps)
	}
	return &Group{
		GroupID:         groupID,
		Name:            name,
		Devices:         devices,
		meshReferenceID: meshReferenceID,
		capabilities:    intersectAll(sets...),
	}
}

func (g *Group) ParentHome() *Home               { return g.parentHome }
func (g *Group) MeshReferenceID() uint8          { return g.meshReferenceID }
func (g *Group) Capabilities() capabilitySet     { return g.capabilities }
func (g *Group) SupportsCapability(c Capability) bool {
	return supportsCapability(g.capabilities, c)
}

// Room is a room inside a Home, containing devices directly and/or
// grouped into Groups (spec §3).
type Room struct {
	RoomID          uint32
	Name            string
	Groups          []*Group
	Devices         []*Device
	meshReferenceID uint8
	capabilities    capabilitySet
	parentHome      *Home

	mu       sync.RWMutex
	onUpdate func(LightState)
}

// NewRoom constructs a Room and computes its capability intersection: the
// intersection across its direct devices and its groups (invariant 5).
func NewRoom(roomID uint32, name string, meshReferenceID uint8, groups []*Group, devices []*Device) *Room {
	sets := make([]capabilitySet, 0, len(devices)+len(groups))
	for _, d := range devices {
		sets = append(sets, d.caps)
	}
	for _, g := range groups {
		sets = append(sets, g.capabilities)
	}
	return &Room{
		RoomID:          roomID,
		Name:            name,
		Groups:          groups,
		Devices:         devices,
		meshReferenceID: meshReferenceID,
		capabilities:    intersectAll(sets...),
	}
}

func (r *Room) ParentHome() *Home              { return r.parentHome }
func (r *Room) MeshReferenceID() uint8         { return r.meshReferenceID }
func (r *Room) Capabilities() capabilitySet    { return r.capabilities }
func (r *Room) SupportsCapability(c Capability) bool {
	return supportsCapability(r.capabilities, c)
}

// SetUpdateCallback stores a per-room light-state callback. Nothing in this
// package invokes it: inbound state updates reach callers only through the
// callback registered with Client.SetUserCallback.
func (r *Room) SetUpdateCallback(cb func(LightState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = cb
}

// Home is a user-defined location owning one Bluetooth mesh (spec §3).
type Home struct {
	HomeID        uint32
	Name          string
	Rooms         []*Room
	GlobalDevices []*Device
}

// NewHome constructs a Home, wires parentHome back-references on every
// contained Room/Group/Device, and leaves capability computation to
// Capabilities() (computed on demand, since a Home's membership can change
// across a refresh).
func NewHome(homeID uint32, name string, rooms []*Room, globalDevices []*Device) *Home {
	h := &Home{HomeID: homeID, Name: name, Rooms: rooms, GlobalDevices: globalDevices}
	for _, d := range globalDevices {
		d.setParentHome(h)
	}
	for _, r := range rooms {
		r.parentHome = h
		for _, d := range r.Devices {
			d.setParentHome(h)
		}
		for _, g := range r.Groups {
			g.parentHome = h
			for _, d := range g.Devices {
				d.setParentHome(h)
			}
		}
	}
	return h
}

func (h *Home) ParentHome() *Home { return h }

// MeshReferenceID for a whole Home is always 0 on the wire. Client commands
// given a Home send one frame addressed to mesh reference 0; they do not
// send separate per-room, per-group or per-device commands.
func (h *Home) MeshReferenceID() uint8 { return 0 }

// Capabilities returns the intersection across all of this Home's rooms
// and global devices (invariant 5).
func (h *Home) Capabilities() capabilitySet {
	sets := make([]capabilitySet, 0, len(h.Rooms)+len(h.GlobalDevices))
	for _, d := range h.GlobalDevices {
		sets = append(sets, d.caps)
	}
	for _, r := range h.Rooms {
		sets = append(sets, r.capabilities)
	}
	return intersectAll(sets...)
}

func (h *Home) SupportsCapability(c Capability) bool {
	return supportsCapability(h.Capabilities(), c)
}

// ContainsDeviceID reports whether the given device id belongs to this
// Home (directly, via a room, or via a group).
func (h *Home) ContainsDeviceID(deviceID uint32) bool {
	for _, d := range h.FlattenedDevices() {
		if d.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// FlattenedDevices returns every device in the home exactly once:
// global_devices ∪ ⋃ rooms(devices ∪ ⋃ groups(devices)), per spec §4.4.
// The returned slice is a fresh copy; callers may not mutate it to affect
// the Home.
func (h *Home) FlattenedDevices() []*Device {
	out := make([]*Device, 0, len(h.GlobalDevices))
	out = append(out, h.GlobalDevices...)
	for _, r := range h.Rooms {
		out = append(out, r.Devices...)
		for _, g := range r.Groups {
			out = append(out, g.Devices...)
		}
	}
	return out
}

// FindHubDevice returns any Device in this Home that is Wi-Fi connected and
// mesh-capable (invariant 4), or nil if none exists.
func (h *Home) FindHubDevice() *Device {
	for _, d := range h.FlattenedDevices() {
		if d.WifiConnected() && d.SupportsCapability(CapSigMesh) {
			return d
		}
	}
	return nil
}

// userHomes is the per-user record the TopologyStore maintains: a user's
// homes plus the optional callback invoked on inbound state updates.
type userHomes struct {
	homes    []*Home
	callback func(map[uint32]LightState)
}

// TopologyStore is the process-wide, per-user directory of homes ->
// rooms/groups -> devices (spec §4.4). It is safe for concurrent use: a
// single RWMutex guards the map, and SetUserHomes swaps the whole homes
// slice atomically under the write lock so readers never observe a torn
// intermediate state (spec §5).
type TopologyStore struct {
	mu    sync.RWMutex
	users map[uint32]*userHomes
}

// NewTopologyStore returns an empty TopologyStore.
func NewTopologyStore() *TopologyStore {
	return &TopologyStore{users: make(map[uint32]*userHomes)}
}

func (s *TopologyStore) entry(userID uint32) *userHomes {
	if u, ok := s.users[userID]; ok {
		return u
	}
	u := &userHomes{}
	s.users[userID] = u
	return u
}

// SetUserHomes replaces the full set of homes for userID, e.g. after a
// discovery refresh.
func (s *TopologyStore) SetUserHomes(userID uint32, homes []*Home) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(userID).homes = homes
}

// GetUserHomes returns the homes currently known for userID (empty if
// none).
func (s *TopologyStore) GetUserHomes(userID uint32) []*Home {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		out := make([]*Home, len(u.homes))
		copy(out, u.homes)
		return out
	}
	return nil
}

// SetUserDeviceCallback registers the callback invoked whenever inbound
// state updates are applied for userID's devices.
func (s *TopologyStore) SetUserDeviceCallback(userID uint32, cb func(map[uint32]LightState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(userID).callback = cb
}

// GetUserDeviceCallback returns the registered callback, or nil.
func (s *TopologyStore) GetUserDeviceCallback(userID uint32) func(map[uint32]LightState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u.callback
	}
	return nil
}

// GetAssociatedHome returns the Home containing deviceID, or a
// KindDeviceNotFound error.
func (s *TopologyStore) GetAssociatedHome(userID, deviceID uint32) (*Home, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if ok {
		for _, h := range u.homes {
			if h.ContainsDeviceID(deviceID) {
				return h, nil
			}
		}
	}
	return nil, newErr(KindDeviceNotFound, fmt.Sprintf("device %d not found on user account %d", deviceID, userID))
}

// GetAssociatedHomeDevices returns the flattened device list of the home
// containing deviceID.
func (s *TopologyStore) GetAssociatedHomeDevices(userID, deviceID uint32) ([]*Device, error) {
	h, err := s.GetAssociatedHome(userID, deviceID)
	if err != nil {
		return nil, err
	}
	return h.FlattenedDevices(), nil
}

// GetFlattenedDevices returns every device across every home known for
// userID.
func (s *TopologyStore) GetFlattenedDevices(userID uint32) []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*Device
	if u, ok := s.users[userID]; ok {
		for _, h := range u.homes {
			all = append(all, h.FlattenedDevices()...)
		}
	}
	return all
}

// FindDeviceByMeshRef resolves a mesh_reference_id back to a Device within
// a specific home, as required when decoding inbound Sync/Pipe-status
// frames (spec §4.3). Returns nil if no device in the home has that mesh
// reference id.
func (h *Home) FindDeviceByMeshRef(meshRef uint8) *Device {
	for _, d := range h.FlattenedDevices() {
		if d.MeshReferenceID() == meshRef {
			return d
		}
	}
	return nil
}

// FindDeviceByID resolves a cloud device id within a specific home.
func (h *Home) FindDeviceByID(deviceID uint32) *Device {
	for _, d := range h.FlattenedDevices() {
		if d.DeviceID == deviceID {
			return d
		}
	}
	return nil
}
