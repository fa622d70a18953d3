package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv(EnvSpecHome, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvNoColor, "")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lifter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("specDir: /opt/specs\nlogLevel: debug\nnoColor: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/specs", cfg.SpecDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.NoColor)
}

func TestLoadBadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "lifter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: [\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvSpecHome, "/env/specs")
	t.Setenv(EnvLogLevel, "WARN")
	t.Setenv(EnvNoColor, "1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/specs", cfg.SpecDir)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.NoColor)
}

func TestLanguageFS(t *testing.T) {
	fixture := fstest.MapFS{"x.ldefs.yaml": {Data: []byte("languages: []\n")}}

	cfg := &Config{SpecFS: fixture, SpecDir: "/ignored"}
	assert.Equal(t, fixture, cfg.LanguageFS())

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ldefs.yaml"), []byte("languages: []\n"), 0o644))
	cfg = &Config{SpecDir: dir}
	_, err := cfg.LanguageFS().Open("a.ldefs.yaml")
	assert.NoError(t, err)

	var nilCfg *Config
	assert.NotNil(t, nilCfg.LanguageFS())
	assert.NotNil(t, Default().LanguageFS())
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	require.NoError(t, err)
	assert.Contains(t, string(data), "specDir")
	assert.NotContains(t, string(data), "SpecFS")
}
