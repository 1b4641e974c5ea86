package cync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// subscribeDeviceEntry is one element of the flat list returned by
// GET /v2/user/{user_id}/subscribe/devices (spec §6). Home entries carry
// source == 5; every entry (home or device) shares this shape.
type subscribeDeviceEntry struct {
	ID            uint32 `json:"id"`
	Name          string `json:"name"`
	ProductID     string `json:"product_id"`
	Mac           string `json:"mac"`
	AuthorizeCode string `json:"authorize_code"`
	IsOnline      bool   `json:"is_online"`
	Source        int    `json:"source"`
}

const homeSource = 5

// bulbEntry is one element of propertyResponse.BulbsArray.
type bulbEntry struct {
	DeviceID    uint32 `json:"deviceID"`
	SwitchID    uint32 `json:"switchID"`
	DisplayName string `json:"displayName"`
	DeviceType  uint16 `json:"deviceType"`
}

// groupEntry is one element of propertyResponse.GroupsArray.
type groupEntry struct {
	GroupID       uint32   `json:"groupID"`
	DisplayName   string   `json:"displayName"`
	IsSubgroup    bool     `json:"isSubgroup"`
	DeviceIDArray []uint32 `json:"deviceIDArray"`
}

// propertyResponse is the body of
// GET /v2/product/{product_id}/device/{home_id}/property (spec §6).
type propertyResponse struct {
	BulbsArray  []bulbEntry  `json:"bulbsArray"`
	GroupsArray []groupEntry `json:"groupsArray"`
}

// FetchTopology implements spec §4.4/§4.7's discovery ingest algorithm: it
// walks the two REST endpoints and returns the user's homes, ready to hand
// to TopologyStore.SetUserHomes. accessToken is sent as the Access-Token
// header on every request.
func FetchTopology(ctx context.Context, httpClient *http.Client, base string, userID uint32, accessToken string) ([]*Home, error) {
	entries, err := fetchSubscribeDevices(ctx, httpClient, base, userID, accessToken)
	if err != nil {
		return nil, err
	}

	var homes []*Home
	for _, entry := range entries {
		if entry.Source != homeSource {
			continue
		}
		home, err := fetchHome(ctx, httpClient, base, entry, entries, accessToken)
		if err != nil {
			return nil, err
		}
		homes = append(homes, home)
	}
	return homes, nil
}

func fetchSubscribeDevices(ctx context.Context, httpClient *http.Client, base string, userID uint32, accessToken string) ([]subscribeDeviceEntry, error) {
	url := fmt.Sprintf("%s/v2/user/%d/subscribe/devices", base, userID)
	var entries []subscribeDeviceEntry
	if err := doJSONGet(ctx, httpClient, url, accessToken, &entries); err != nil {
		return nil, wrapErr(KindBadRequest, "failed to fetch subscribed devices", err)
	}
	return entries, nil
}

func fetchHome(ctx context.Context, httpClient *http.Client, base string, homeEntry subscribeDeviceEntry, entries []subscribeDeviceEntry, accessToken string) (*Home, error) {
	url := fmt.Sprintf("%s/v2/product/%s/device/%d/property", base, homeEntry.ProductID, homeEntry.ID)
	var prop propertyResponse
	if err := doJSONGet(ctx, httpClient, url, accessToken, &prop); err != nil {
		return nil, wrapErr(KindBadRequest, fmt.Sprintf("failed to fetch home %d property", homeEntry.ID), err)
	}

	entryByID := make(map[uint32]subscribeDeviceEntry, len(entries))
	for _, e := range entries {
		entryByID[e.ID] = e
	}

	homeID := homeEntry.ID
	devicesByMeshID := make(map[uint32]*Device, len(prop.BulbsArray))
	for _, bulb := range prop.BulbsArray {
		// Each bulb is joined back to its own subscribe/devices entry by
		// switchID == id (spec §4.7 step 4); the home's entry is only a
		// fallback for bulbs with no matching entry of their own.
		mac, isOnline, productID, authorizeCode := "", true, homeEntry.ProductID, homeEntry.AuthorizeCode
		if e, ok := entryByID[bulb.SwitchID]; ok {
			mac, isOnline, productID, authorizeCode = e.Mac, e.IsOnline, e.ProductID, e.AuthorizeCode
		}
		devicesByMeshID[bulb.DeviceID] = NewDevice(
			bulb.SwitchID,
			bulb.DeviceID,
			homeID,
			bulb.DisplayName,
			bulb.DeviceType,
			mac, productID, authorizeCode,
			isOnline,
		)
	}

	rooms, groupedMeshIDs := partitionRoomsAndGroups(prop.GroupsArray, devicesByMeshID)

	claimed := make(map[uint32]bool, len(groupedMeshIDs))
	for id := range groupedMeshIDs {
		claimed[id] = true
	}
	for _, r := range rooms {
		for _, d := range r.Devices {
			claimed[d.MeshDeviceID] = true
		}
	}

	var globalDevices []*Device
	for meshID, d := range devicesByMeshID {
		if !claimed[meshID] {
			globalDevices = append(globalDevices, d)
		}
	}

	return NewHome(homeID, homeEntry.Name, rooms, globalDevices), nil
}

// partitionRoomsAndGroups splits groupsArray into Rooms (non-subgroups) and
// assigns each subgroup as a Group to the room its device membership
// overlaps most, per spec §4.7/invariant 3 (group-first, room-second,
// exhaustive and non-overlapping). A subgroup's devices are left out of its
// room's direct device list. It returns the constructed rooms and the set of
// mesh device ids claimed by a subgroup placed in a room (so the caller can
// exclude them from the home's global devices).
func partitionRoomsAndGroups(entries []groupEntry, devicesByMeshID map[uint32]*Device) ([]*Room, map[uint32]*Device) {
	var roomEntries, subgroupEntries []groupEntry
	for _, e := range entries {
		if e.IsSubgroup {
			subgroupEntries = append(subgroupEntries, e)
		} else {
			roomEntries = append(roomEntries, e)
		}
	}

	type roomBuild struct {
		entry  groupEntry
		groups []*Group
		claim  map[uint32]bool
	}
	builds := make([]*roomBuild, len(roomEntries))
	for i, e := range roomEntries {
		builds[i] = &roomBuild{entry: e, claim: make(map[uint32]bool)}
	}

	groupedMeshIDs := make(map[uint32]*Device)
	for _, sg := range subgroupEntries {
		var best *roomBuild
		bestOverlap := 0
		for _, b := range builds {
			if overlap := overlapCount(b.entry.DeviceIDArray, sg.DeviceIDArray); overlap > bestOverlap {
				best, bestOverlap = b, overlap
			}
		}

		var groupDevices []*Device
		for _, meshID := range sg.DeviceIDArray {
			if d, ok := devicesByMeshID[meshID]; ok {
				groupDevices = append(groupDevices, d)
			}
		}
		group := NewGroup(sg.GroupID, sg.DisplayName, meshReferenceIDForHome(groupDevices), groupDevices)

		if best != nil {
			best.groups = append(best.groups, group)
			for _, meshID := range sg.DeviceIDArray {
				best.claim[meshID] = true
			}
			for _, d := range groupDevices {
				groupedMeshIDs[d.MeshDeviceID] = d
			}
		}
	}

	rooms := make([]*Room, 0, len(builds))
	for _, b := range builds {
		var roomDevices []*Device
		for _, meshID := range b.entry.DeviceIDArray {
			if b.claim[meshID] {
				continue
			}
			if d, ok := devicesByMeshID[meshID]; ok {
				roomDevices = append(roomDevices, d)
			}
		}
		rooms = append(rooms, NewRoom(b.entry.GroupID, b.entry.DisplayName, meshReferenceIDForHome(roomDevices), b.groups, roomDevices))
	}

	return rooms, groupedMeshIDs
}

// overlapCount returns how many elements a and b have in common.
func overlapCount(a, b []uint32) int {
	set := make(map[uint32]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	count := 0
	for _, v := range b {
		if set[v] {
			count++
		}
	}
	return count
}

func meshReferenceIDForHome(devices []*Device) uint8 {
	if len(devices) == 0 {
		return 0
	}
	return devices[0].MeshReferenceID()
}

func doJSONGet(ctx context.Context, httpClient *http.Client, url, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Access-Token", accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
