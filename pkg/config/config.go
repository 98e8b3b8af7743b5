package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// Config represents the persisted state for cachectl.
type Config struct {
	Options       Options  `yaml:"options"`
	Targets       []Target `yaml:"targets"`
	CurrentTarget string   `yaml:"current_target"`
}

// Options holds global settings.
type Options struct {
	SocketPath string `yaml:"socket_path"`
	// MinDelay is the shortest time a console load appears to take.
	// Zero means the default, a negative value disables it.
	MinDelay time.Duration `yaml:"min_delay,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	LogFile  string        `yaml:"log_file,omitempty"`
	LogLevel string        `yaml:"log_level,omitempty"`
	// Logger selects the logging backend: zap (default) or logrus.
	Logger string `yaml:"logger,omitempty"`
}

// Target describes one cache admin endpoint.
type Target struct {
	Name       string `yaml:"name" json:"name"`
	Server     string `yaml:"server" json:"server"`
	PathSuffix string `yaml:"path_suffix,omitempty" json:"path_suffix,omitempty"`
	Username   string `yaml:"username,omitempty" json:"username,omitempty"`
	Password   string `yaml:"password,omitempty" json:"-"`
	Cookie     string `yaml:"cookie,omitempty" json:"-"`
	Notes      string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

const (
	DefaultMinDelay = 600 * time.Millisecond
	DefaultTimeout  = 15 * time.Second
)

var (
	ErrTargetNotFound = errors.New("target not found")
	ErrDuplicateName  = errors.New("target name already exists")
)

// DefaultConfig returns the initial config.
func DefaultConfig(home string) Config {
	dir := filepath.Join(home, ".cachectl")
	return Config{
		Options: Options{
			SocketPath: filepath.Join(dir, "daemon.sock"),
			LogFile:    filepath.Join(dir, "cachectl.log"),
			LogLevel:   "info",
			Logger:     "zap",
		},
		Targets:       []Target{},
		CurrentTarget: "",
	}
}

// EnsureDefaultConfig creates a default config file if it does not exist.
func EnsureDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	return Save(path, DefaultConfig(home))
}

// Load reads config with a file lock for safety.
func Load(path string) (Config, error) {
	lock := flock.New(path + ".lock")
	if err := lock.RLock(); err != nil {
		return Config{}, err
	}
	defer lock.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config with a file lock.
func Save(path string, cfg Config) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// EffectiveMinDelay resolves the zero and negative cases of MinDelay.
func (o Options) EffectiveMinDelay() time.Duration {
	switch {
	case o.MinDelay < 0:
		return 0
	case o.MinDelay == 0:
		return DefaultMinDelay
	}
	return o.MinDelay
}

func (o Options) EffectiveTimeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

// GetTarget finds a target by name.
func (c Config) GetTarget(name string) (Target, error) {
	for _, t := range c.Targets {
		if t.Name == name {
			return t, nil
		}
	}
	return Target{}, fmt.Errorf("%w: %s", ErrTargetNotFound, name)
}

// AddTarget appends t, refusing duplicates.
func (c *Config) AddTarget(t Target) error {
	if _, err := c.GetTarget(t.Name); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateName, t.Name)
	}
	return c.UpsertTarget(t)
}

// UpsertTarget adds or updates a target. The first target becomes current.
func (c *Config) UpsertTarget(t Target) error {
	for i, existing := range c.Targets {
		if existing.Name == t.Name {
			c.Targets[i] = t
			return nil
		}
	}
	c.Targets = append(c.Targets, t)
	if c.CurrentTarget == "" {
		c.CurrentTarget = t.Name
	}
	return nil
}

// DeleteTarget removes a target by name.
func (c *Config) DeleteTarget(name string) error {
	idx := -1
	for i, t := range c.Targets {
		if t.Name == name {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s", ErrTargetNotFound, name)
	}
	c.Targets = append(c.Targets[:idx], c.Targets[idx+1:]...)
	if c.CurrentTarget == name {
		c.CurrentTarget = ""
	}
	return nil
}

// Validate minimal required fields.
func (t Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target name is required")
	}
	if t.Server == "" {
		return fmt.Errorf("target server is required")
	}
	u, err := url.Parse(t.Server)
	if err != nil {
		return fmt.Errorf("target server: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target server must be an http or https url")
	}
	if t.Password != "" && t.Username == "" {
		return fmt.Errorf("target password requires a username")
	}
	return nil
}
