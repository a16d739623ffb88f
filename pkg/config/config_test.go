package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvCropTool, EnvRegTool, EnvConvTool, EnvViewer, EnvResourceDir, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

// TestLoadConfigMissingFile verifies defaults are returned for a missing file
func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "medpipe.yaml")

	cfg := DefaultConfig()
	cfg.Tools.Crop = "/opt/tools/crop"
	cfg.Registration.Levels = 3
	cfg.Dicom.Order = OrderNative
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tools/crop", loaded.Tools.Crop)
	assert.Equal(t, 3, loaded.Registration.Levels)
	assert.Equal(t, OrderNative, loaded.Dicom.Order)
	assert.True(t, loaded.Registration.RigidOnly)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools: [unclosed"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "levels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registration:\n  levels: 0\n"), 0644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "registration.levels")
}

// TestLoadConfigOverrides verifies .env values apply and the process environment wins
func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "medpipe.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))
	dotenv := "MEDPIPE_VIEWER=itksnap\nMEDPIPE_CROP_TOOL=crop-from-dotenv\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0644))
	t.Setenv(EnvCropTool, "crop-from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "itksnap", cfg.Tools.Viewer)
	assert.Equal(t, "crop-from-env", cfg.Tools.Crop)
	assert.Equal(t, "reg_aladin", cfg.Tools.Registration)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Tools.Viewer = ""
	assert.ErrorContains(t, cfg.Validate(), "tools.viewer")

	cfg = DefaultConfig()
	cfg.Dicom.Order = "random"
	assert.ErrorContains(t, cfg.Validate(), "dicom.order")

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "logging.format")
}

func TestResolveTool(t *testing.T) {
	dir := t.TempDir()
	bundled := filepath.Join(dir, "crop")
	require.NoError(t, os.WriteFile(bundled, []byte("#!/bin/sh\n"), 0755))

	cfg := DefaultConfig()
	cfg.Tools.ResourceDir = dir

	path, found := cfg.ResolveTool("crop")
	assert.True(t, found)
	assert.Equal(t, bundled, path)

	path, found = cfg.ResolveTool("reg_aladin")
	assert.False(t, found)
	assert.Equal(t, "reg_aladin", path)

	path, found = cfg.ResolveTool(bundled)
	assert.True(t, found)
	assert.Equal(t, bundled, path)
}
