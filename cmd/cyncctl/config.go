package main

import (
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// configData is the persisted shape of the CLI's config file: the
// credentials a CredentialsSource needs plus a small device name -> id
// cache that `cyncctl refresh` fills. The on/off/dim/color/rgb commands
// resolve names against a fresh discovery, not against this cache.
type configData struct {
	UserID       uint32            `yaml:"user_id"`
	Authorize    string            `yaml:"authorize"`
	AccessToken  string            `yaml:"access_token"`
	RefreshToken string            `yaml:"refresh_token,omitempty"`
	ExpiresAt    time.Time         `yaml:"expires_at,omitempty"`
	Base         string            `yaml:"base,omitempty"`
	Devices      map[string]uint32 `yaml:"devices,omitempty"`
}

// config wraps configData with the teacher's yaml.Node round-trip pattern
// (main.go's config.load/write), so hand-added comments in the file survive
// a save.
type config struct {
	mu   sync.RWMutex
	data configData
	yaml yaml.Node
}

func (c *config) load(fn string) error {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := yaml.Unmarshal(raw, &c.yaml); err != nil {
		return err
	}
	return yaml.Unmarshal(raw, &c.data)
}

func (c *config) write(fn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := yaml.Marshal(&c.data)
	if err != nil {
		return err
	}

	var fresh yaml.Node
	if err := yaml.Unmarshal(raw, &fresh); err != nil {
		return err
	}

	if len(c.yaml.Content) == 0 {
		c.yaml = fresh
	} else if len(fresh.Content) > 0 {
		// Merge key by key rather than swapping in the whole freshly
		// marshaled mapping, so comments on keys this write doesn't touch
		// survive (teacher's main.go write: append only what's missing).
		mapping := c.yaml.Content[0]
		freshMapping := fresh.Content[0]
		for i := 0; i+1 < len(freshMapping.Content); i += 2 {
			fk, fv := freshMapping.Content[i], freshMapping.Content[i+1]

			found := false
			for j := 0; j+1 < len(mapping.Content); j += 2 {
				if mapping.Content[j].Value == fk.Value {
					mapping.Content[j+1] = fv
					found = true
					break
				}
			}
			if !found {
				mapping.Content = append(mapping.Content, fk, fv)
			}
		}
	}

	f, err := os.CreateTemp(".", strings.Join([]string{".", fn, "*"}, ""))
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(&c.yaml); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), fn)
}

func (c *config) deviceID(name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.data.Devices[name]
	return id, ok
}

func (c *config) setDeviceName(name string, id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data.Devices == nil {
		c.data.Devices = make(map[string]uint32)
	}
	c.data.Devices[name] = id
}
