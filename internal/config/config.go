// Package config loads the deadline daemon configuration from YAML, applies
// environment overrides and watches the file for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/deadline/common"
	"go.yaml.in/yaml/v3"
)

// DefaultIdleWait is used when idle_wait is empty or zero.
const DefaultIdleWait = 24 * time.Hour

// ErrInvalid is wrapped by every validation error returned from Parse.
var ErrInvalid = errors.New("invalid config")

// Config is the daemon configuration file.
type Config struct {
	Listen    string `yaml:"listen" json:"listen"`
	RPCSecret string `yaml:"rpc_secret" json:"rpc_secret"`
	IdleWait  string `yaml:"idle_wait" json:"idle_wait"`
	Journal   string `yaml:"journal" json:"journal"`
	// JournalRetention prunes firings older than this; empty keeps them all.
	JournalRetention string        `yaml:"journal_retention" json:"journal_retention"`
	Log              LogConfig     `yaml:"log" json:"log"`
	Timers           []TimerConfig `yaml:"timers" json:"timers"`

	idleWait  time.Duration
	retention time.Duration
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	// File, when set, receives a JSON copy of every log line.
	File string `yaml:"file" json:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Listen:   common.DefaultListen,
		IdleWait: DefaultIdleWait.String(),
		Log:      LogConfig{Level: "info", Format: "console"},
		idleWait: DefaultIdleWait,
	}
}

// IdleWaitDuration returns the parsed idle_wait value.
func (c *Config) IdleWaitDuration() time.Duration {
	if c.idleWait <= 0 {
		return DefaultIdleWait
	}
	return c.idleWait
}

// RetentionDuration returns the parsed journal_retention, zero when unset.
func (c *Config) RetentionDuration() time.Duration {
	return c.retention
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: trailing documents", ErrInvalid)
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path from fs and parses it. An empty path yields Default().
func Load(fs afero.Fs, path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the DEADLINE_* environment variables.
// getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(common.ListenEnv)); v != "" {
		c.Listen = v
	}
	if v := getenv(common.SecretEnv); v != "" {
		c.RPCSecret = v
	}
	if getenv(common.DebugEnv) != "" {
		c.Log.Level = "debug"
	}
}

func (c *Config) normalize() error {
	c.Listen = strings.TrimSpace(c.Listen)
	if c.Listen == "" {
		c.Listen = common.DefaultListen
	}

	d, err := ParseDurationOrDefault("idle_wait", c.IdleWait, DefaultIdleWait)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	c.idleWait = d

	if c.retention, err = ParseDurationField("journal_retention", c.JournalRetention); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "console":
		c.Log.Format = "console"
	case "json":
		c.Log.Format = "json"
	default:
		return fmt.Errorf("%w: log.format: unknown format %q", ErrInvalid, c.Log.Format)
	}
	c.Log.File = strings.TrimSpace(c.Log.File)

	seen := make(map[string]int, len(c.Timers))
	for i := range c.Timers {
		t := &c.Timers[i]
		path := fmt.Sprintf("timers[%d]", i)
		if err := t.normalize(path); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		if j, dup := seen[t.Label]; dup {
			return fmt.Errorf("%w: %s: label %q already used by timers[%d]", ErrInvalid, path, t.Label, j)
		}
		seen[t.Label] = i
	}
	return nil
}
