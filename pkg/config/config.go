// Package config provides configuration loading and management for medpipe.
// It handles loading configuration from YAML files, applies overrides from an
// optional .env file and the process environment, and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML configuration
const (
	EnvCropTool    = "MEDPIPE_CROP_TOOL"
	EnvRegTool     = "MEDPIPE_REG_TOOL"
	EnvConvTool    = "MEDPIPE_CONV_TOOL"
	EnvViewer      = "MEDPIPE_VIEWER"
	EnvResourceDir = "MEDPIPE_RESOURCE_DIR"
	EnvLogLevel    = "MEDPIPE_LOG_LEVEL"
)

// Discovery orders accepted by Dicom.Order
const (
	OrderName   = "name"
	OrderNative = "native"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// External executables
	Tools struct {
		// Crop is the volumetric crop tool
		Crop string `yaml:"crop"`

		// Registration is the rigid registration tool
		Registration string `yaml:"registration"`

		// Converter turns a DICOM series directory into a NIfTI volume
		Converter string `yaml:"converter"`

		// Viewer opens volumes, segmentations and overlays
		Viewer string `yaml:"viewer"`

		// ResourceDir is where bundled binaries are looked up first.
		// Empty means the current working directory.
		ResourceDir string `yaml:"resourceDir"`
	} `yaml:"tools"`

	// Registration parameters
	Registration struct {
		// RigidOnly restricts the registration to rotation and translation
		RigidOnly bool `yaml:"rigidOnly"`

		// Levels is the number of pyramid levels the tool should use
		Levels int `yaml:"levels"`
	} `yaml:"registration"`

	// Converter parameters
	Converter struct {
		// Modality is the fixed flag passed as the converter's last argument
		Modality string `yaml:"modality"`
	} `yaml:"converter"`

	// DICOM discovery parameters
	Dicom struct {
		// Order is "name" (sorted, reproducible) or "native" (directory order)
		Order string `yaml:"order"`
	} `yaml:"dicom"`

	// Logging parameters
	Logging struct {
		// Level is a zap level name (debug, info, warn, error)
		Level string `yaml:"level"`

		// Format is "console" or "json"
		Format string `yaml:"format"`

		// OutputPath is a file path or "stderr"/"stdout"; empty means stderr
		OutputPath string `yaml:"outputPath"`

		// Development enables zap's development mode
		Development bool `yaml:"development"`
	} `yaml:"logging"`

	// Metrics parameters
	Metrics struct {
		// Textfile is where invocation metrics are written on exit; empty disables it
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Tools.Crop = "crop"
	cfg.Tools.Registration = "reg_aladin"
	cfg.Tools.Converter = "dicom2file"
	cfg.Tools.Viewer = "ITK-SNAP"

	cfg.Registration.RigidOnly = true
	cfg.Registration.Levels = 4

	cfg.Converter.Modality = "1"

	cfg.Dicom.Order = OrderName

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration.
// Overrides from a .env file next to the config file and from the process
// environment are applied afterwards, process environment last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	dotenv, err := readDotenv(configPath)
	if err != nil {
		return nil, err
	}
	cfg.applyOverrides(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDotenv(configPath string) (map[string]string, error) {
	dir := "."
	if configPath != "" {
		dir = filepath.Dir(configPath)
	}
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return values, nil
}

func (c *Config) applyOverrides(lookup func(string) string) {
	set := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	set(&c.Tools.Crop, EnvCropTool)
	set(&c.Tools.Registration, EnvRegTool)
	set(&c.Tools.Converter, EnvConvTool)
	set(&c.Tools.Viewer, EnvViewer)
	set(&c.Tools.ResourceDir, EnvResourceDir)
	set(&c.Logging.Level, EnvLogLevel)
}

// Validate rejects configurations the adapters cannot run with
func (c *Config) Validate() error {
	tools := map[string]string{
		"crop":         c.Tools.Crop,
		"registration": c.Tools.Registration,
		"converter":    c.Tools.Converter,
		"viewer":       c.Tools.Viewer,
	}
	for name, path := range tools {
		if path == "" {
			return fmt.Errorf("tools.%s must not be empty", name)
		}
	}
	if c.Registration.Levels < 1 {
		return fmt.Errorf("registration.levels must be at least 1, got %d", c.Registration.Levels)
	}
	if c.Converter.Modality == "" {
		return fmt.Errorf("converter.modality must not be empty")
	}
	switch c.Dicom.Order {
	case OrderName, OrderNative:
	default:
		return fmt.Errorf("dicom.order must be %q or %q, got %q", OrderName, OrderNative, c.Dicom.Order)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

// ResolveTool joins a bundled tool name onto the resource directory.
// When the joined file does not exist the name is returned unchanged so the
// executable is looked up on PATH instead; found reports which case applied.
func (c *Config) ResolveTool(name string) (path string, found bool) {
	if filepath.IsAbs(name) {
		_, err := os.Stat(name)
		return name, err == nil
	}
	base := c.Tools.ResourceDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return name, false
		}
		base = wd
	}
	joined := filepath.Join(base, name)
	if info, err := os.Stat(joined); err == nil && !info.IsDir() {
		return joined, true
	}
	return name, false
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
