package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/mchmarny/coxrisk/pkg/form"
	"github.com/mchmarny/coxrisk/pkg/score"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the default config file name.
	FileName = "config.yaml"

	dirMode  = 0700
	fileMode = 0600

	addressDefault   = "127.0.0.1"
	portDefault      = 8080
	logLevelDefault  = "info"
	logFormatDefault = "text"
)

// Config represents app config object.
type Config struct {
	Log    Log         `yaml:"log"`
	Server Server      `yaml:"server"`
	Bounds form.Bounds `yaml:"bounds"`
	Model  score.Model `yaml:"model"`
}

// Log configures the default logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Server configures the HTTP form server.
type Server struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Metrics bool   `yaml:"metrics"`
}

// Default returns the config used when no file is given.
func Default() *Config {
	return &Config{
		Log: Log{
			Level:  logLevelDefault,
			Format: logFormatDefault,
		},
		Server: Server{
			Address: addressDefault,
			Port:    portDefault,
			Metrics: true,
		},
		Bounds: form.DefaultBounds(),
		Model:  score.DefaultModel(),
	}
}

// Validate checks the values that cannot be fixed up at use time.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if err := validateRange("bounds.age", c.Bounds.Age); err != nil {
		errs = append(errs, err)
	}
	if err := validateRange("bounds.albumin", c.Bounds.Albumin); err != nil {
		errs = append(errs, err)
	}
	if err := c.Model.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("model: %w", err))
	}
	return errors.Join(errs...)
}

func validateRange(key string, r form.Range) error {
	for _, v := range []float64{r.Min, r.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s: min and max must be finite, got %v and %v", key, r.Min, r.Max)
		}
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s: min %v above max %v", key, r.Min, r.Max)
	}
	return nil
}

// Load reads config from path over the defaults. An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening config file: %s: %w", path, err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error unmarshalling config file: %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %s: %w", path, err)
	}
	return c, nil
}

// Save writes config to path, creating the parent directory when needed.
func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return fmt.Errorf("failed to create dir: %s: %w", dir, err)
		}
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file: %s: %w", path, err)
	}
	return nil
}
