package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfig_WriteThenLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(prev)

	c := &config{}
	c.data.UserID = 42
	c.data.Authorize = "auth-token"
	c.data.AccessToken = "access-token"
	c.data.RefreshToken = "refresh-token"
	c.setDeviceName("Kitchen", 101)

	const fn = "cyncctl.yaml"
	if err := c.write(fn); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded := &config{}
	if err := loaded.load(fn); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.data.UserID != 42 || loaded.data.Authorize != "auth-token" {
		t.Errorf("loaded.data = %+v, want UserID=42 Authorize=auth-token", loaded.data)
	}
	if loaded.data.RefreshToken != "refresh-token" {
		t.Errorf("loaded.data.RefreshToken = %q, want refresh-token", loaded.data.RefreshToken)
	}
	id, ok := loaded.deviceID("Kitchen")
	if !ok || id != 101 {
		t.Errorf("deviceID(Kitchen) = (%d, %v), want (101, true)", id, ok)
	}
}

func TestConfig_Write_PreservesCommentsOnUntouchedKeys(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(prev)

	const fn = "cyncctl.yaml"
	const initial = "user_id: 42\nauthorize: auth-token\naccess_token: access-token\n# shared household account, don't rotate without telling everyone\nbase: https://example.invalid\n"
	if err := os.WriteFile(fn, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	c := &config{}
	if err := c.load(fn); err != nil {
		t.Fatalf("load: %v", err)
	}

	// Update a field the hand-added comment isn't attached to; the comment
	// on "base" must survive this write.
	c.data.AccessToken = "rotated-token"
	if err := c.write(fn); err != nil {
		t.Fatalf("write: %v", err)
	}

	raw, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "shared household account") {
		t.Errorf("written file lost the hand-added comment on base:\n%s", raw)
	}
	if !strings.Contains(string(raw), "rotated-token") {
		t.Errorf("written file didn't pick up the updated access_token:\n%s", raw)
	}
}

func TestConfig_Load_MissingFile(t *testing.T) {
	dir := t.TempDir()
	c := &config{}
	err := c.load(filepath.Join(dir, "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file, got nil")
	}
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want an os.IsNotExist error", err)
	}
}

func TestConfig_SetDeviceName_InitializesMap(t *testing.T) {
	c := &config{}
	c.setDeviceName("Hallway", 7)
	id, ok := c.deviceID("Hallway")
	if !ok || id != 7 {
		t.Errorf("deviceID(Hallway) = (%d, %v), want (7, true)", id, ok)
	}
	if _, ok := c.deviceID("Unknown"); ok {
		t.Error("deviceID(Unknown) reported ok=true")
	}
}
