package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"iot-monitor/internal/models"
)

// fileContents is the on-disk layout of the settings file
type fileContents struct {
	Network models.NetworkSettings `yaml:"network"`
}

// FileStore persists the network settings entered on the dashboard
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by a YAML file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the settings. found is false when no file exists yet.
func (f *FileStore) Load() (settings models.NetworkSettings, found bool, err error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.NetworkSettings{}, false, nil
		}
		return models.NetworkSettings{}, false, fmt.Errorf("failed to read settings file: %w", err)
	}

	var contents fileContents
	if err := yaml.Unmarshal(data, &contents); err != nil {
		return models.NetworkSettings{}, false, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return contents.Network, true, nil
}

// Save writes the settings atomically
func (f *FileStore) Save(settings models.NetworkSettings) error {
	data, err := yaml.Marshal(fileContents{Network: settings})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

// Delete removes the settings file; a missing file is not an error
func (f *FileStore) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete settings file: %w", err)
	}
	return nil
}
