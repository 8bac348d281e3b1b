// Package config loads the daemon's YAML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration file layout.
type Config struct {
	Listen struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"listen"`

	Decode struct {
		// Lenient makes the IWP decoder skip unknown command bytes instead
		// of stopping at them.
		Lenient bool `yaml:"lenient"`
	} `yaml:"decode"`

	Playback struct {
		// File is an ILDA file to load and play on startup.
		File  string  `yaml:"file"`
		FPS   float64 `yaml:"fps"`
		Speed float64 `yaml:"speed"`
		Loop  bool    `yaml:"loop"`
	} `yaml:"playback"`

	Forward struct {
		// Enabled re-transmits playback output to Address:Port.
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Port     int    `yaml:"port"`
		ScanRate int    `yaml:"scan_rate"`
	} `yaml:"forward"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var c Config
	c.Listen.Address = "0.0.0.0"
	c.Listen.Port = 7200
	c.Playback.FPS = 25
	c.Playback.Speed = 1.0
	c.Forward.Port = 7200
	c.Forward.ScanRate = 1000
	c.Metrics.Address = "127.0.0.1:9220"
	c.Log.Level = "info"
	return c
}

// Load reads a YAML configuration file over the defaults. A missing file is
// not an error: the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.WithFields(logrus.Fields{
				"function": "Load",
				"path":     path,
			}).Debug("No config file, using defaults")
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Listen.Port <= 0 || cfg.Listen.Port > 65535 {
		return Default(), fmt.Errorf("invalid listen port %d", cfg.Listen.Port)
	}

	return cfg, nil
}
