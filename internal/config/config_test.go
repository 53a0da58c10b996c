package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_LoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	manager := NewManager(tmpDir)

	cfg := &Config{
		Host:           "127.0.0.1",
		Port:           8080,
		APIKey:         "test-key",
		ActiveProvider: "anthropic",
		MaxRetries:     5,
		Providers: map[string]ProviderSettings{
			"anthropic": {
				APIKey: "sk-ant-test",
				Model:  "claude-3-5-haiku-20241022",
			},
		},
	}
	cfg.SetFallback(false)

	require.NoError(t, manager.Save(cfg))
	assert.True(t, manager.Exists(), "config file should exist after saving")
	assert.Equal(t, filepath.Join(tmpDir, DefaultYAMLFilename), manager.GetPath(), "new files are written as YAML")

	loaded, err := NewManager(tmpDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", loaded.Host)
	assert.Equal(t, 8080, loaded.Port)
	assert.Equal(t, "test-key", loaded.APIKey)
	assert.Equal(t, "anthropic", loaded.ActiveProvider)
	assert.Equal(t, 5, loaded.MaxRetries)
	assert.False(t, loaded.Fallback(), "explicit false must survive the defaults merge")
	assert.Equal(t, "sk-ant-test", loaded.Provider("anthropic").APIKey)
	assert.Equal(t, "claude-3-5-haiku-20241022", loaded.Provider("anthropic").Model)
}

func TestConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultYAMLFilename), []byte("dark_mode: true\n"), 0o644))

	cfg, err := NewManager(tmpDir).Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultProvider, cfg.ActiveProvider)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultTimeoutSeconds, cfg.TimeoutSeconds)
	assert.True(t, cfg.Fallback())
	assert.True(t, cfg.DarkMode)
}

func TestManager_YAML_Support(t *testing.T) {
	tmpDir := t.TempDir()

	yamlConfig := `
host: "0.0.0.0"
port: 8080
api_key: "test-proxy-key"
active_provider: groq
providers:
  groq:
    api_key: "gsk-test"
    model: "llama-3.1-8b-instant"
  ollama:
    base_url: "http://gpu-box:11434"
  openai:
    fallbacks: ["gpt-4o", "gpt-4o-mini"]
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultYAMLFilename), []byte(yamlConfig), 0o644))

	cfg, err := NewManager(tmpDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "groq", cfg.ActiveProvider)
	assert.Equal(t, "gsk-test", cfg.Provider("groq").APIKey)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.Provider("groq").Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.Provider("ollama").BaseURL)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, cfg.Provider("openai").Fallbacks)
}

func TestManager_YAML_Takes_Precedence(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultConfigFilename), []byte(`{"active_provider": "openai"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultYAMLFilename), []byte("active_provider: google\n"), 0o644))

	cfg, err := NewManager(tmpDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.ActiveProvider)
}

func TestManager_JSONStaysJSON(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultConfigFilename), []byte(`{"active_provider": "openai"}`), 0o644))

	manager := NewManager(tmpDir)
	_, err := manager.Load()
	require.NoError(t, err)

	require.NoError(t, manager.Update(func(c *Config) { c.DarkMode = true }))

	assert.Equal(t, filepath.Join(tmpDir, DefaultConfigFilename), manager.GetPath())
	_, err = os.Stat(filepath.Join(tmpDir, DefaultYAMLFilename))
	assert.True(t, os.IsNotExist(err), "saving a JSON config must not create a YAML file")
}

func TestConfig_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, DefaultConfigFilename), []byte("invalid json"), 0o644))

	_, err := NewManager(tmpDir).Load()
	assert.Error(t, err)
}

func TestConfig_MissingFile(t *testing.T) {
	manager := NewManager(t.TempDir())

	_, err := manager.Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, manager.Exists())
}

func TestConfig_GetWithoutLoad(t *testing.T) {
	cfg := NewManager(t.TempDir()).Get()

	require.NotNil(t, cfg)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultProvider, cfg.ActiveProvider)
}

func TestManager_Update(t *testing.T) {
	manager := NewManager(t.TempDir())

	require.NoError(t, manager.Update(func(c *Config) {
		c.ActiveProvider = "deepseek"
		c.UpdateProvider("deepseek", func(ps *ProviderSettings) { ps.APIKey = "ds-key" })
	}))
	require.NoError(t, manager.Update(func(c *Config) {
		c.UpdateProvider("deepseek", func(ps *ProviderSettings) { ps.Model = "deepseek-reasoner" })
	}))

	cfg, err := NewManager(manager.BaseDir()).Load()
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.ActiveProvider)
	assert.Equal(t, ProviderSettings{APIKey: "ds-key", Model: "deepseek-reasoner"}, cfg.Provider("deepseek"))
}

func TestManager_FallbackOffSurvivesReload(t *testing.T) {
	tests := []struct {
		name string
		seed string
		file string
	}{
		{"yaml", "dark_mode: true\n", DefaultYAMLFilename},
		{"json", `{"dark_mode": true}`, DefaultConfigFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte(tt.seed), 0o644))

			manager := NewManager(dir)
			_, err := manager.Load()
			require.NoError(t, err)
			require.NoError(t, manager.Update(func(c *Config) { c.SetFallback(false) }))

			cfg, err := NewManager(dir).Load()
			require.NoError(t, err)
			require.NotNil(t, cfg.FallbackEnabled)
			assert.False(t, *cfg.FallbackEnabled)
			assert.False(t, cfg.Fallback())

			require.NoError(t, manager.Update(func(c *Config) { c.SetFallback(true) }))

			cfg, err = NewManager(dir).Load()
			require.NoError(t, err)
			assert.True(t, cfg.Fallback())
		})
	}
}

func TestConfig_CloneIsIndependent(t *testing.T) {
	cfg := Defaults()
	cfg.UpdateProvider("openai", func(ps *ProviderSettings) { ps.Fallbacks = []string{"gpt-4o"} })

	clone := cfg.Clone()
	clone.SetFallback(false)
	clone.UpdateProvider("openai", func(ps *ProviderSettings) { ps.Fallbacks[0] = "changed" })

	assert.True(t, cfg.Fallback())
	assert.Equal(t, "gpt-4o", cfg.Provider("openai").Fallbacks[0])
}
