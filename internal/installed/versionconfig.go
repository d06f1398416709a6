package installed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Entry records the active version of one package.
type Entry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// VersionConfig is the persisted list of active versions, one entry per
// package name. The file is a JSON array of {name, version} objects.
type VersionConfig struct {
	path string
}

// NewVersionConfig returns a VersionConfig backed by the file at path. The
// file is not touched until the first write.
func NewVersionConfig(path string) *VersionConfig {
	return &VersionConfig{path: path}
}

// Read returns every entry in file order. exists is false when the backing
// file has not been created yet; that is not an error.
func (c *VersionConfig) Read() (entries []Entry, exists bool, err error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading version config: %w", err)
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, true, fmt.Errorf("parsing version config %s: %w", c.path, err)
	}
	return entries, true, nil
}

// Get returns the entry for name.
func (c *VersionConfig) Get(name string) (Entry, bool, error) {
	entries, _, err := c.Read()
	if err != nil {
		return Entry{}, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

// Upsert replaces the entry with the same name, or appends e.
func (c *VersionConfig) Upsert(e Entry) error {
	entries, _, err := c.Read()
	if err != nil {
		return err
	}
	i := slices.IndexFunc(entries, func(x Entry) bool { return x.Name == e.Name })
	if i >= 0 {
		entries[i] = e
	} else {
		entries = append(entries, e)
	}
	return c.write(entries)
}

// Remove drops the entry for name. Removing an unknown name is a no-op.
func (c *VersionConfig) Remove(name string) error {
	entries, exists, err := c.Read()
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	before := len(entries)
	kept := slices.DeleteFunc(entries, func(x Entry) bool { return x.Name == name })
	if len(kept) == before {
		return nil
	}
	return c.write(kept)
}

// write replaces the backing file atomically.
func (c *VersionConfig) write(entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling version config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating version config directory: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp version config: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath) // Best effort cleanup
		return fmt.Errorf("renaming temp version config: %w", err)
	}
	return nil
}
