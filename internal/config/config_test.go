package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "backups", cfg.BackupDir)
	assert.Equal(t, "blueprints", cfg.BlueprintDir)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tools_index: tools-index.json")
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("install_path: /games/tower\nlog_level: debug\nfrom_source: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/games/tower", cfg.InstallPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.FromSource)
	assert.Equal(t, "output.log", cfg.LogFile, "unset keys keep defaults")

	t.Setenv("TOWER_INSTALL_PATH", "/override")
	t.Setenv("TOWER_CONVERTER", "/bin/tower-unite-suitebro")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.InstallPath)
	assert.Equal(t, "/bin/tower-unite-suitebro", cfg.ConverterPath)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetSet(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Set("backup_dir", "/tmp/b"))
	v, err := cfg.Get("backup_dir")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/b", v)

	require.NoError(t, cfg.Set("from_source", "TRUE"))
	v, err = cfg.Get("from_source")
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	assert.Error(t, cfg.Set("from_source", "sometimes"))
	assert.ErrorIs(t, cfg.Set("imgur_client_id", "x"), ErrUnknownKey)
	_, err = cfg.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)

	assert.Equal(t, []string{"backup_dir", "blueprint_dir", "converter_path", "from_source", "install_path", "log_file", "log_level", "tools_index"}, cfg.Keys())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ConverterPath = "/opt/converter"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BackupDir = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BlueprintDir = ""
	assert.Error(t, cfg.Validate())
}
