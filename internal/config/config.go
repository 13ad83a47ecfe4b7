package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Plugins    PluginsConfig `yaml:"plugins" toml:"plugins"`
	Workers    int           `yaml:"workers" toml:"workers" env:"ENGINE_WORKERS"`
	World      WorldConfig   `yaml:"world" toml:"world"`
	Processors []string      `yaml:"processors" toml:"processors" env:"ENGINE_PROCESSORS"` // empty = every registered processor
	Logging    LoggingConfig `yaml:"logging" toml:"logging"`
}

type PluginsConfig struct {
	Paths     []string `yaml:"paths" toml:"paths" env:"ENGINE_PLUGIN_PATHS"`
	Recursive bool     `yaml:"recursive" toml:"recursive" env:"ENGINE_PLUGIN_RECURSIVE"`
	Builtin   bool     `yaml:"builtin" toml:"builtin" env:"ENGINE_PLUGIN_BUILTIN"` // register the compiled-in module
}

type WorldConfig struct {
	Dir           string        `yaml:"dir" toml:"dir" env:"ENGINE_WORLD_DIR"`
	Initial       string        `yaml:"initial" toml:"initial" env:"ENGINE_WORLD"`
	SaveAs        string        `yaml:"save_as" toml:"save_as" env:"ENGINE_WORLD_SAVE_AS"` // written on shutdown when set
	FrameInterval time.Duration `yaml:"frame_interval" toml:"frame_interval" env:"ENGINE_FRAME_INTERVAL"`
	MaxFrames     uint64        `yaml:"max_frames" toml:"max_frames" env:"ENGINE_MAX_FRAMES"` // 0 = run until cancelled
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level" env:"ENGINE_LOG_LEVEL"`
	Format string `yaml:"format" toml:"format" env:"ENGINE_LOG_FORMAT"` // "json" or "console"
}

// Load reads the file at path on top of Defaults and then applies ENGINE_*
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys %v", undecoded)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported extension %q", ErrInvalid, filepath.Ext(path))
	}
}

func Defaults() *Config {
	return &Config{
		Plugins: PluginsConfig{
			Paths:   []string{"plugins"},
			Builtin: true,
		},
		Workers: 1,
		World: WorldConfig{
			Dir:           "worlds",
			FrameInterval: 16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers))
	}
	if c.World.FrameInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: frame_interval must be positive", ErrInvalid))
	}
	if len(c.Plugins.Paths) == 0 && !c.Plugins.Builtin {
		errs = append(errs, fmt.Errorf("%w: no plugin paths and builtin module disabled", ErrInvalid))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("%w: logging format %q", ErrInvalid, c.Logging.Format))
	}
	return errors.Join(errs...)
}
