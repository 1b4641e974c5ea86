package main

import (
	"fmt"
	"strings"

	"github.com/cyncgo/cync-go/cync"
	"github.com/cyncgo/cync-go/rest"
)

func newClient(c *config) *cync.Client {
	creds := rest.Static{
		UserID:       c.data.UserID,
		Authorize:    c.data.Authorize,
		AccessToken:  c.data.AccessToken,
		RefreshToken: c.data.RefreshToken,
		ExpiresAt:    c.data.ExpiresAt,
	}
	return cync.NewClient(c.data.UserID, "", c.data.Base, creds, nil, nil)
}

// findControllable looks up a Home, Room, Group, or Device by name
// (case-insensitive), searching every level of every known home.
func findControllable(client *cync.Client, name string) (cync.Controllable, error) {
	want := strings.ToLower(name)
	for _, h := range client.Homes() {
		if strings.ToLower(h.Name) == want {
			return h, nil
		}
		for _, r := range h.Rooms {
			if strings.ToLower(r.Name) == want {
				return r, nil
			}
			for _, g := range r.Groups {
				if strings.ToLower(g.Name) == want {
					return g, nil
				}
				for _, d := range g.Devices {
					if strings.ToLower(d.Name) == want {
						return d, nil
					}
				}
			}
			for _, d := range r.Devices {
				if strings.ToLower(d.Name) == want {
					return d, nil
				}
			}
		}
		for _, d := range h.GlobalDevices {
			if strings.ToLower(d.Name) == want {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("no home, room, group, or device named %q; run `cyncctl list` or `cyncctl refresh`", name)
}
