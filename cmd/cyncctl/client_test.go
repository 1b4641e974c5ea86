package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyncgo/cync-go/cync"
	"github.com/cyncgo/cync-go/rest"
)

// newTestClient stands up a fake discovery REST server and refreshes a real
// Client against it, exercising the same path findControllable runs over in
// production instead of reaching into cync's unexported topology store.
func newTestClient(t *testing.T) *cync.Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/user/1/subscribe/devices", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 10, "name": "Home", "product_id": "p", "source": 5},
		})
	})
	mux.HandleFunc("/v2/product/p/device/10/property", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"bulbsArray": []map[string]any{
				{"deviceID": 1, "switchID": 1, "displayName": "Lamp", "deviceType": 131},
				{"deviceID": 2, "switchID": 2, "displayName": "Strip", "deviceType": 131},
				{"deviceID": 3, "switchID": 3, "displayName": "Porch", "deviceType": 131},
			},
			"groupsArray": []map[string]any{
				{"groupID": 1, "displayName": "Kitchen", "isSubgroup": false, "deviceIDArray": []int{1, 2}},
				{"groupID": 2, "displayName": "Accent", "isSubgroup": true, "deviceIDArray": []int{2}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := cync.NewClient(1, "", srv.URL, rest.Static{UserID: 1}, srv.Client(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.RefreshHomeInfo(ctx); err != nil {
		t.Fatalf("RefreshHomeInfo: %v", err)
	}
	return client
}

func TestFindControllable_ResolvesEveryLevel(t *testing.T) {
	client := newTestClient(t)

	cases := map[string]uint32{
		"lamp":  1,
		"strip": 2,
		"porch": 3,
	}
	for name, wantID := range cases {
		got, err := findControllable(client, name)
		if err != nil {
			t.Fatalf("findControllable(%q): %v", name, err)
		}
		d, ok := got.(*cync.Device)
		if !ok {
			t.Fatalf("findControllable(%q) = %T, want *cync.Device", name, got)
		}
		if d.DeviceID != wantID {
			t.Errorf("findControllable(%q).DeviceID = %d, want %d", name, d.DeviceID, wantID)
		}
	}

	if _, err := findControllable(client, "kitchen"); err != nil {
		t.Errorf("findControllable(kitchen) room lookup failed: %v", err)
	}
	if _, err := findControllable(client, "accent"); err != nil {
		t.Errorf("findControllable(accent) group lookup failed: %v", err)
	}
	if _, err := findControllable(client, "home"); err != nil {
		t.Errorf("findControllable(home) failed: %v", err)
	}
}

func TestFindControllable_NotFound(t *testing.T) {
	client := newTestClient(t)
	if _, err := findControllable(client, "nonexistent"); err == nil {
		t.Error("findControllable(nonexistent) = nil error, want not-found error")
	}
}

func TestFindControllable_CaseInsensitive(t *testing.T) {
	client := newTestClient(t)
	if _, err := findControllable(client, "LAMP"); err != nil {
		t.Errorf("findControllable(LAMP) = %v, want case-insensitive match", err)
	}
}
