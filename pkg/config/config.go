// Package config loads render settings from a YAML file and the environment.
//
// Sources are layered: built-in defaults, then the config file, then
// SONIVOXRENDER_* environment variables. Command-line flags are applied on
// top by the caller before the result is validated.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/james-see/sonivoxrender/pkg/renderer"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SONIVOXRENDER_"

// Config holds all runtime configuration.
type Config struct {
	DLS       string `yaml:"dls"`
	Gain      int    `yaml:"gain"`
	Reverb    int    `yaml:"reverb"`
	Wet       int    `yaml:"wet"`
	Dry       int    `yaml:"dry"`
	Chorus    int    `yaml:"chorus"`
	Level     int    `yaml:"level"`
	Verbosity int    `yaml:"verbosity"`

	// Engine names the synthesizer library to use.
	Engine string `yaml:"engine"`

	// Port is the listen port of the API server.
	Port int `yaml:"port"`
}

// Default returns the built-in configuration.
func Default() Config {
	s := renderer.DefaultSettings()
	return Config{
		Gain:      s.PlaybackGain,
		Reverb:    s.ReverbPreset,
		Wet:       s.ReverbWet,
		Dry:       s.ReverbDry,
		Chorus:    s.ChorusPreset,
		Level:     s.ChorusLevel,
		Verbosity: s.Verbosity,
		Engine:    "melty",
		Port:      8080,
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sonivoxrender", "config.yaml"), nil
}

// Load builds the configuration from defaults, the file at path and the
// environment. An empty path means DefaultPath, which may be absent; an
// explicit path must exist.
//
// The result is not validated, so callers can layer flags on top first and
// then call Validate.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DLS = envStr("DLS", c.DLS)
	c.Gain = envInt("GAIN", c.Gain)
	c.Reverb = envInt("REVERB", c.Reverb)
	c.Wet = envInt("WET", c.Wet)
	c.Dry = envInt("DRY", c.Dry)
	c.Chorus = envInt("CHORUS", c.Chorus)
	c.Level = envInt("LEVEL", c.Level)
	c.Verbosity = envInt("VERBOSITY", c.Verbosity)
	c.Engine = envStr("ENGINE", c.Engine)
	c.Port = envInt("PORT", c.Port)
}

// Settings converts the configuration to render settings.
func (c Config) Settings() renderer.EffectSettings {
	return renderer.EffectSettings{
		PlaybackGain: c.Gain,
		ReverbPreset: c.Reverb,
		ReverbWet:    c.Wet,
		ReverbDry:    c.Dry,
		ChorusPreset: c.Chorus,
		ChorusLevel:  c.Level,
		DLSPath:      c.DLS,
		Verbosity:    c.Verbosity,
	}
}

// Validate checks the render settings, engine name and port.
func (c Config) Validate() error {
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	if c.Engine == "" {
		return errors.New("no engine configured")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
