package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort           = 6970
	DefaultHost           = "127.0.0.1"
	DefaultConfigFilename = "config.json"
	DefaultYAMLFilename   = "config.yaml"
	DefaultProvider       = "openrouter"
	DefaultMaxRetries     = 3
	DefaultTimeoutSeconds = 60
)

// ProviderSettings holds the persisted per-provider choices.
type ProviderSettings struct {
	APIKey    string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Model     string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL   string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Fallbacks []string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
}

type Config struct {
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
	Port   int    `json:"port,omitempty" yaml:"port,omitempty"`
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	ActiveProvider  string `json:"active_provider,omitempty" yaml:"active_provider,omitempty"`
	FallbackEnabled *bool  `json:"fallback_enabled,omitempty" yaml:"fallback_enabled,omitempty"`
	DarkMode        bool   `json:"dark_mode,omitempty" yaml:"dark_mode,omitempty"`
	MaxRetries      int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	TimeoutSeconds  int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	TargetLanguage  string `json:"target_language,omitempty" yaml:"target_language,omitempty"`

	Providers map[string]ProviderSettings `json:"providers,omitempty" yaml:"providers,omitempty"`
}

// Fallback reports whether model fallback is enabled. Unset means enabled.
func (c *Config) Fallback() bool {
	return c.FallbackEnabled == nil || *c.FallbackEnabled
}

// SetFallback stores the fallback flag.
func (c *Config) SetFallback(enabled bool) {
	c.FallbackEnabled = &enabled
}

// Provider returns the settings for name, or the zero value.
func (c *Config) Provider(name string) ProviderSettings {
	if c.Providers == nil {
		return ProviderSettings{}
	}

	return c.Providers[name]
}

// UpdateProvider applies fn to the settings stored for name.
func (c *Config) UpdateProvider(name string, fn func(*ProviderSettings)) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderSettings)
	}

	ps := c.Providers[name]
	fn(&ps)
	c.Providers[name] = ps
}

// Clone returns a copy that can be mutated without touching c.
func (c *Config) Clone() *Config {
	out := *c
	if c.FallbackEnabled != nil {
		v := *c.FallbackEnabled
		out.FallbackEnabled = &v
	}

	if c.Providers != nil {
		out.Providers = make(map[string]ProviderSettings, len(c.Providers))
		for name, ps := range c.Providers {
			ps.Fallbacks = append([]string(nil), ps.Fallbacks...)
			out.Providers[name] = ps
		}
	}

	return &out
}

// Defaults returns the settings applied underneath whatever is on disk.
func Defaults() *Config {
	fallback := true

	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		ActiveProvider:  DefaultProvider,
		FallbackEnabled: &fallback,
		MaxRetries:      DefaultMaxRetries,
		TimeoutSeconds:  DefaultTimeoutSeconds,
		TargetLanguage:  "English",
	}
}

type Manager struct {
	baseDir     string
	mu          sync.Mutex
	configValue atomic.Value
	format      string
}

func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir}
}

func (m *Manager) jsonPath() string { return filepath.Join(m.baseDir, DefaultConfigFilename) }
func (m *Manager) yamlPath() string { return filepath.Join(m.baseDir, DefaultYAMLFilename) }

// Load reads the settings file. YAML takes precedence over JSON when both exist.
func (m *Manager) Load() (*Config, error) {
	var (
		cfg Config
		err error
	)

	switch {
	case fileExists(m.yamlPath()):
		err = m.loadYAML(&cfg)
		m.format = "yaml"
	case fileExists(m.jsonPath()):
		err = m.loadJSON(&cfg)
		m.format = "json"
	default:
		return nil, fmt.Errorf("read config file: %w", os.ErrNotExist)
	}

	if err != nil {
		return nil, err
	}

	// Without dereferencing, a FallbackEnabled pointing at false counts as set.
	if err := mergo.Merge(&cfg, Defaults(), mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	m.configValue.Store(&cfg)

	return &cfg, nil
}

func (m *Manager) loadYAML(cfg *Config) error {
	data, err := os.ReadFile(m.yamlPath())
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal yaml config: %w", err)
	}

	return nil
}

func (m *Manager) loadJSON(cfg *Config) error {
	data, err := os.ReadFile(m.jsonPath())
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	return nil
}

// Get returns the cached settings, loading them on first use. A missing or
// broken file yields the defaults.
func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		return Defaults()
	}

	return cfg
}

// Save writes cfg in the format it was loaded from, YAML for new files.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.baseDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
		path string
	)

	if m.format == "json" || (m.format == "" && fileExists(m.jsonPath()) && !fileExists(m.yamlPath())) {
		data, err = json.MarshalIndent(cfg, "", "  ")
		path = m.jsonPath()
	} else {
		data, err = yaml.Marshal(cfg)
		path = m.yamlPath()
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)

	return nil
}

// Update applies fn to a copy of the current settings and saves the result.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.Get().Clone()
	fn(cfg)

	return m.Save(cfg)
}

// GetPath returns the settings file in use, or the one Save would create.
func (m *Manager) GetPath() string {
	if m.format == "json" || (fileExists(m.jsonPath()) && !fileExists(m.yamlPath())) {
		return m.jsonPath()
	}

	return m.yamlPath()
}

func (m *Manager) Exists() bool {
	return fileExists(m.yamlPath()) || fileExists(m.jsonPath())
}

// BaseDir is where settings, state and the PID file live.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
