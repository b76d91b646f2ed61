// Package config handles application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName        = "superwhisper"
	configFileName = "config.json"
)

// Config represents the application configuration. Only Microphone and Model
// are read on the hot path (capture start, transcription submit); the rest
// belongs to the surrounding concerns and is passed through untouched.
type Config struct {
	Hotkey      string `json:"hotkey"`       // e.g. "CTRL+TAB", used by keybind output and the optional in-process listener
	Model       string `json:"model"`        // whisper model size: tiny, base, small, medium, large-v3
	Language    string `json:"language"`     // "en", "auto", ...
	Device      string `json:"device"`       // compute preference: auto, cuda, cpu
	ComputeType string `json:"compute_type"` // auto, float16, int8, float32
	Microphone  string `json:"microphone,omitempty"` // device name, not index - indices change across restarts
	STTProvider string `json:"stt_provider,omitempty"`

	Notifications      bool `json:"notifications_enabled"`
	AudioFeedback      bool `json:"audio_feedback_enabled"`
	ShowRecordingTimer bool `json:"show_recording_timer"`

	// TerminalClasses overrides the built-in terminal identifier list used
	// to pick the paste shortcut. Empty means use the defaults.
	TerminalClasses []string `json:"terminal_classes,omitempty"`
}

// Load loads configuration from the config file.
// Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, fmt.Errorf("get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save persists the configuration to disk.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("get config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Path returns the configuration file path.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get user config dir: %w", err)
	}
	return filepath.Join(dir, appName, configFileName), nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	c.Notifications = true
	c.AudioFeedback = true
	c.ShowRecordingTimer = true
	return c
}

func (c *Config) applyDefaults() {
	if c.Hotkey == "" {
		c.Hotkey = "CTRL+TAB"
	}
	if c.Model == "" {
		c.Model = "tiny"
	}
	if c.Language == "" {
		c.Language = "en"
	}
	if c.Device == "" {
		c.Device = "auto"
	}
	if c.ComputeType == "" {
		c.ComputeType = "auto"
	}
	if c.STTProvider == "" {
		c.STTProvider = "whisper-local"
	}
}
