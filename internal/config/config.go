// Package config loads glyphskel run settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"glyph-skeleton/internal/pipeline"
	"glyph-skeleton/internal/processing/threshold"

	"gopkg.in/yaml.v3"
)

type Threshold struct {
	Method string  `yaml:"method" json:"method"`
	Value  float64 `yaml:"value,omitempty" json:"value,omitempty"`
}

type Config struct {
	Skeletonize bool      `yaml:"skeletonize" json:"skeletonize"`
	Erode       bool      `yaml:"erode" json:"erode"`
	Dilate      bool      `yaml:"dilate" json:"dilate"`
	Iterations  int       `yaml:"iterations" json:"iterations"`
	ClassLabel  string    `yaml:"class_label,omitempty" json:"class_label,omitempty"`
	Threshold   Threshold `yaml:"threshold" json:"threshold"`
	Output      string    `yaml:"output" json:"output"`
	ImageDir    string    `yaml:"image_dir,omitempty" json:"image_dir,omitempty"`
	MetricsFile string    `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	LogLevel    string    `yaml:"log_level" json:"log_level"`
}

func Default() *Config {
	return &Config{
		Skeletonize: true,
		Iterations:  1,
		Threshold:   Threshold{Method: string(threshold.MethodOtsu)},
		Output:      "skeletons.csv",
		LogLevel:    "info",
	}
}

// LoadFromPath reads a config file. Fields the file omits keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses data as JSON when ext is .json or the content starts with '{',
// and as YAML otherwise.
func Load(data []byte, ext string) (*Config, error) {
	cfg := Default()

	ext = strings.ToLower(ext)
	if ext == ".json" || (ext != ".yaml" && ext != ".yml" && strings.HasPrefix(strings.TrimSpace(string(data)), "{")) {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be at least 1, got %d", pipeline.ErrInvalidIterationCount, c.Iterations)
	}
	method, err := threshold.ParseMethod(c.Threshold.Method)
	if err != nil {
		return err
	}
	if method == threshold.MethodFixed && (c.Threshold.Value < 0 || c.Threshold.Value > 255) {
		return fmt.Errorf("fixed threshold %.1f outside [0, 255]", c.Threshold.Value)
	}
	return nil
}

// Calculator builds the threshold calculator the config names.
func (c *Config) Calculator() (*threshold.Calculator, error) {
	method, err := threshold.ParseMethod(c.Threshold.Method)
	if err != nil {
		return nil, err
	}
	return threshold.NewCalculator(method, c.Threshold.Value), nil
}

func (c *Config) Options() pipeline.Options {
	return pipeline.Options{
		Skeletonize: c.Skeletonize,
		Erode:       c.Erode,
		Dilate:      c.Dilate,
		Iterations:  c.Iterations,
		ClassLabel:  c.ClassLabel,
		Destination: c.Output,
	}
}
