package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const appName = "go-rehearse"

// InputConfig selects the practice keyboard
type InputConfig struct {
	PortName    string `json:"portName,omitempty"` // substring match, empty = first port
	AutoConnect bool   `json:"autoConnect"`
}

// SynthOutputConfig defines the playback MIDI output
type SynthOutputConfig struct {
	PortName string `json:"portName,omitempty"`
}

// EngineConfig tunes the clock and gate
type EngineConfig struct {
	TickRate         int `json:"tickRate,omitempty"`
	WarmUpMs         int `json:"warmUpMs,omitempty"`
	StepMs           int `json:"stepMs,omitempty"`
	MatchToleranceMs int `json:"matchToleranceMs,omitempty"`
	AutosaveMs       int `json:"autosaveMs,omitempty"`
}

// UIConfig stores UI preferences
type UIConfig struct {
	Palette  string `json:"palette,omitempty"` // GPL palette path
	LastFile string `json:"lastFile,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Input  InputConfig       `json:"input"`
	Output SynthOutputConfig `json:"output,omitempty"`
	Engine EngineConfig      `json:"engine"`
	UI     UIConfig          `json:"ui,omitempty"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{AutoConnect: true},
		Engine: EngineConfig{
			TickRate:         60,
			WarmUpMs:         3000,
			StepMs:           10000,
			MatchToleranceMs: 5,
			AutosaveMs:       2000,
		},
	}
}

// WarmUp returns the warm-up delay
func (e EngineConfig) WarmUp() time.Duration {
	return time.Duration(e.WarmUpMs) * time.Millisecond
}

// Step returns the step distance
func (e EngineConfig) Step() time.Duration {
	return time.Duration(e.StepMs) * time.Millisecond
}

// MatchTolerance returns how far stored hand labels may drift
func (e EngineConfig) MatchTolerance() time.Duration {
	return time.Duration(e.MatchToleranceMs) * time.Millisecond
}

// Autosave returns the quiet period before hand edits are saved
func (e EngineConfig) Autosave() time.Duration {
	return time.Duration(e.AutosaveMs) * time.Millisecond
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir is the app-data root holding per-sequence files
func DataDir() (string, error) {
	return ConfigDir()
}

// AssignmentsDir is where hand assignment records live
func AssignmentsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "assignments"), nil
}

// Load reads the config from the default path, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Missing fields keep their defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path
func (c *Config) SaveTo(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
