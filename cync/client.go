package cync

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cyncgo/cync-go/rest"
)

// Client is the public command surface (spec §4.6): it accepts any
// Controllable, resolves a hub device, builds the appropriate frame, and
// posts it to the underlying Session. Commands are fire-and-forget —
// success only means the frame was queued, never that the mesh applied it.
type Client struct {
	userID uint32
	store  *TopologyStore
	http   *http.Client
	base   string
	creds  rest.CredentialsSource

	b       *builders
	session *Session
	log     *slog.Logger
}

// NewClient constructs a Client for a single logged-in user. base is the
// discovery REST API's base URL (e.g. "https://api.gelighting.com", the
// default cyncctl uses); httpClient defaults to http.DefaultClient when nil.
func NewClient(userID uint32, addr, base string, creds rest.CredentialsSource, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	if addr == "" {
		addr = DefaultAddr
	}

	c := &Client{
		userID: userID,
		store:  NewTopologyStore(),
		http:   httpClient,
		base:   base,
		creds:  creds,
		b:      newBuilders(),
		log:    log,
	}

	parser := NewParser(c.resolveHome, c)
	c.session = NewSession(addr, creds, c.b, parser, c.handleParsed, c.knownDeviceIDs, log)
	return c
}

// Run drives the underlying session's reconnect loop until ctx is
// cancelled or Shutdown is called.
func (c *Client) Run(ctx context.Context) error {
	return c.session.Run(ctx)
}

// Shutdown closes the session gracefully (spec §4.6).
func (c *Client) Shutdown() {
	c.session.Shutdown()
}

// Stats returns the underlying session's diagnostics (spec §4.8).
func (c *Client) Stats() *Stats {
	return c.session.Stats()
}

// SetUserCallback registers a callback invoked whenever inbound Sync or
// Pipe-status frames update one or more devices' state.
func (c *Client) SetUserCallback(cb func(map[uint32]LightState)) {
	c.store.SetUserDeviceCallback(c.userID, cb)
}

// Homes returns the homes currently known for this client's user, as last
// populated by RefreshHomeInfo.
func (c *Client) Homes() []*Home {
	return c.store.GetUserHomes(c.userID)
}

// RefreshHomeInfo re-ingests discovery, replacing the known topology.
func (c *Client) RefreshHomeInfo(ctx context.Context) error {
	creds, err := c.creds.Credentials()
	if err != nil {
		return wrapErr(KindAuthFailed, "failed to obtain credentials", err)
	}
	homes, err := FetchTopology(ctx, c.http, c.base, c.userID, creds.AccessToken)
	if err != nil {
		return err
	}
	c.store.SetUserHomes(c.userID, homes)
	return nil
}

// UpdateMeshDevices queries current status from every known home's hub
// device (spec §4.6).
func (c *Client) UpdateMeshDevices(ctx context.Context) error {
	for _, h := range c.store.GetUserHomes(c.userID) {
		hub, err := c.resolveHubForHome(ctx, h)
		if err != nil {
			c.log.Warn("skipping home with no hub", "home_id", h.HomeID, "err", err)
			continue
		}
		c.session.Enqueue(MessageTypePipe, c.b.BuildStateQuery(hub.DeviceID))
	}
	return nil
}

// SetPower turns a Controllable on or off.
func (c *Client) SetPower(ctx context.Context, target Controllable, on bool) error {
	hub, err := c.resolveHub(ctx, target)
	if err != nil {
		return err
	}
	c.session.Enqueue(MessageTypePipe, c.b.BuildSetPower(hub.DeviceID, target.MeshReferenceID(), on))
	return nil
}

// SetBrightness sets brightness as a percentage, 0..=100.
func (c *Client) SetBrightness(ctx context.Context, target Controllable, percent uint8) error {
	if percent > 100 {
		return newErr(KindInvalidArgument, "brightness must be 0..=100")
	}
	if !target.SupportsCapability(CapDimming) {
		return newErr(KindUnsupportedCapability, "target does not support dimming")
	}
	hub, err := c.resolveHub(ctx, target)
	if err != nil {
		return err
	}
	c.session.Enqueue(MessageTypePipe, c.b.BuildSetBrightness(hub.DeviceID, target.MeshReferenceID(), percent))
	return nil
}

// SetColorTemp sets tunable-white color temperature as a percentage, 1..=100.
func (c *Client) SetColorTemp(ctx context.Context, target Controllable, percent uint8) error {
	if percent < 1 || percent > 100 {
		return newErr(KindInvalidArgument, "color temp must be 1..=100")
	}
	if !target.SupportsCapability(CapCCTColor) {
		return newErr(KindUnsupportedCapability, "target does not support CCT color")
	}
	hub, err := c.resolveHub(ctx, target)
	if err != nil {
		return err
	}
	c.session.Enqueue(MessageTypePipe, c.b.BuildSetColorTemp(hub.DeviceID, target.MeshReferenceID(), percent))
	return nil
}

// SetRgb sets full RGB color, each channel 0..=255.
func (c *Client) SetRgb(ctx context.Context, target Controllable, r, g, b uint8) error {
	if !target.SupportsCapability(CapRGBColor) {
		return newErr(KindUnsupportedCapability, "target does not support RGB color")
	}
	hub, err := c.resolveHub(ctx, target)
	if err != nil {
		return err
	}
	c.session.Enqueue(MessageTypePipe, c.b.BuildSetRgb(hub.DeviceID, target.MeshReferenceID(), r, g, b))
	return nil
}

// resolveHub finds a Wi-Fi-connected, mesh-capable device in target's
// parent home (invariant 4), blocking on the probe gate first.
func (c *Client) resolveHub(ctx context.Context, target Controllable) (*Device, error) {
	home := target.ParentHome()
	if home == nil {
		return nil, newErr(KindNoHub, "controllable has no parent home")
	}
	return c.resolveHubForHome(ctx, home)
}

func (c *Client) resolveHubForHome(ctx context.Context, home *Home) (*Device, error) {
	if err := c.session.WaitForDeviceStatuses(ctx); err != nil {
		return nil, err
	}
	hub := home.FindHubDevice()
	if hub == nil {
		return nil, newErr(KindNoHub, "no wifi-connected, mesh-capable device in home")
	}
	return hub, nil
}

// knownDeviceIDs supplies the post-login probe burst's device list.
func (c *Client) knownDeviceIDs() []uint32 {
	devices := c.store.GetFlattenedDevices(c.userID)
	ids := make([]uint32, len(devices))
	for i, d := range devices {
		ids[i] = d.DeviceID
	}
	return ids
}

// resolveHome implements the meshResolver lookup the Parser needs: given a
// device id, the Home it belongs to (so mesh_reference_id lookups are
// scoped correctly).
func (c *Client) resolveHome(deviceID uint32) meshResolver {
	home, err := c.store.GetAssociatedHome(c.userID, deviceID)
	if err != nil {
		return nil
	}
	return home
}

// DeviceType implements deviceTypeLookup for the Parser's Sync mesh gate.
func (c *Client) DeviceType(deviceID uint32) (uint16, bool) {
	home, err := c.store.GetAssociatedHome(c.userID, deviceID)
	if err != nil {
		return 0, false
	}
	d := home.FindDeviceByID(deviceID)
	if d == nil {
		return 0, false
	}
	return d.DeviceType, true
}

// handleParsed marks a device Wi-Fi connected when its probe ack carries a
// non-zero version, and applies inbound Sync/Pipe-status updates to C4's
// Device records, forwarding the resulting state map to the registered user
// callback, if any (spec §4.6).
func (c *Client) handleParsed(msg ParsedMessage) {
	var updates map[uint32]lightStateUpdate
	switch msg.Type {
	case ParsedProbeAck:
		if msg.Version != 0 {
			if home, err := c.store.GetAssociatedHome(c.userID, msg.DeviceID); err == nil {
				if d := home.FindDeviceByID(msg.DeviceID); d != nil {
					d.SetWifiConnected(true)
				}
			}
		}
		return
	case ParsedSync:
		updates = msg.SyncUpdates
	case ParsedPipe:
		updates = msg.PipeUpdates
	default:
		return
	}
	if len(updates) == 0 {
		return
	}

	home, err := c.store.GetAssociatedHome(c.userID, msg.DeviceID)
	if err != nil {
		c.log.Debug("state update for unknown device", "device_id", msg.DeviceID)
		return
	}

	result := make(map[uint32]LightState, len(updates))
	for deviceID, update := range updates {
		d := home.FindDeviceByID(deviceID)
		if d == nil {
			continue
		}
		d.applyStateUpdate(update)
		if st := d.State(); st != nil {
			result[deviceID] = *st
		}
	}

	if cb := c.store.GetUserDeviceCallback(c.userID); cb != nil && len(result) > 0 {
		cb(result)
	}
}
