// Package config provides configuration loading and management for pics3d.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"pelvicpics/pkg/pelvis"
	"pelvicpics/pkg/pics"
	"pelvicpics/pkg/statistics"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many subjects are normalized in parallel
		NumCores int `yaml:"numCores"`

		// SkipInvalidSubjects logs and drops subjects that fail to load or
		// normalize instead of failing the whole run
		SkipInvalidSubjects bool `yaml:"skipInvalidSubjects"`
	} `yaml:"processing"`

	// Landmark naming conventions
	Naming struct {
		PubicSymphysis    string `yaml:"pubicSymphysis"`
		SCJoint           string `yaml:"scJoint"`
		LeftIschialSpine  string `yaml:"leftIschialSpine"`
		RightIschialSpine string `yaml:"rightIschialSpine"`
		InterIschialSpine string `yaml:"interIschialSpine"`

		// IndexPattern extracts row then column from a landmark name
		IndexPattern string `yaml:"indexPattern"`

		// MaxIndex is the largest row or column number accepted from a name
		MaxIndex int `yaml:"maxIndex"`

		LeftEdgePrefix  string `yaml:"leftEdgePrefix"`
		RightEdgePrefix string `yaml:"rightEdgePrefix"`
		CenterPrefix    string `yaml:"centerPrefix"`
	} `yaml:"naming"`

	// Frame construction parameters
	Frame struct {
		// AxisCoding is "lisse" (X=LR, Y=AP, Z=IS) or "pics3d" (X=AP, Y=IS, Z=LR)
		AxisCoding string `yaml:"axisCoding"`

		// DesiredSCIPPAngle is the target SCIPP line angle in radians
		DesiredSCIPPAngle float64 `yaml:"desiredSCIPPAngle"`

		// VerifyTolerance is the largest SCIPP angle residual, in radians,
		// accepted without a warning
		VerifyTolerance float64 `yaml:"verifyTolerance"`
	} `yaml:"frame"`

	// Scale normalization. Either option makes measurements relative.
	Scaling struct {
		BySCIPPLine bool    `yaml:"bySCIPPLine"`
		ByIISLine   bool    `yaml:"byIISLine"`
		SCIPPLength float64 `yaml:"scippLength"`
		IISLength   float64 `yaml:"iisLength"`
	} `yaml:"scaling"`

	// Statistics collation toggles
	Statistics struct {
		LeftEdges           bool `yaml:"leftEdges"`
		RightEdges          bool `yaml:"rightEdges"`
		Center              bool `yaml:"center"`
		AllIndividualPoints bool `yaml:"allIndividualPoints"`
		CreateIIS           bool `yaml:"createIIS"`
	} `yaml:"statistics"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// LogFormat is "console" or "json"
		LogFormat string `yaml:"logFormat"`

		// Workbook is the path of an Excel export, empty for none
		Workbook string `yaml:"workbook"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.SkipInvalidSubjects = false

	naming := pelvis.DefaultNaming()
	cfg.Naming.PubicSymphysis = naming.PubicSymphysis
	cfg.Naming.SCJoint = naming.SCJoint
	cfg.Naming.LeftIschialSpine = naming.LeftIschialSpine
	cfg.Naming.RightIschialSpine = naming.RightIschialSpine
	cfg.Naming.InterIschialSpine = naming.InterIschialSpine
	cfg.Naming.IndexPattern = pelvis.DefaultIndexPattern
	cfg.Naming.MaxIndex = naming.MaxIndex
	cfg.Naming.LeftEdgePrefix = naming.LeftEdgePrefix
	cfg.Naming.RightEdgePrefix = naming.RightEdgePrefix
	cfg.Naming.CenterPrefix = naming.CenterPrefix

	opts := pics.DefaultOptions()
	cfg.Frame.AxisCoding = opts.Coding.String()
	cfg.Frame.DesiredSCIPPAngle = opts.DesiredSCIPPAngle
	cfg.Frame.VerifyTolerance = opts.VerifyTolerance

	cfg.Scaling.SCIPPLength = opts.SCIPPLength
	cfg.Scaling.IISLength = opts.IISLength

	cfg.Statistics.LeftEdges = true
	cfg.Statistics.RightEdges = true

	cfg.Output.Verbose = true
	cfg.Output.LogFormat = "console"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
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

// Validate checks the configuration for values no run can proceed with
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("%w: numCores must be at least 1, got %d", ErrInvalidConfig, c.Processing.NumCores)
	}

	refs := map[string]string{
		"pubicSymphysis":    c.Naming.PubicSymphysis,
		"scJoint":           c.Naming.SCJoint,
		"leftIschialSpine":  c.Naming.LeftIschialSpine,
		"rightIschialSpine": c.Naming.RightIschialSpine,
	}
	for _, key := range []string{"pubicSymphysis", "scJoint", "leftIschialSpine", "rightIschialSpine"} {
		if refs[key] == "" {
			return fmt.Errorf("%w: naming.%s must not be empty", ErrInvalidConfig, key)
		}
	}
	if c.Statistics.CreateIIS && c.Naming.InterIschialSpine == "" {
		return fmt.Errorf("%w: createIIS needs naming.interIschialSpine", ErrInvalidConfig)
	}

	if _, err := pelvis.CompileIndexPattern(c.Naming.IndexPattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Naming.MaxIndex <= 0 {
		return fmt.Errorf("%w: naming.maxIndex must be positive", ErrInvalidConfig)
	}
	if _, err := pics.ParseAxisCoding(c.Frame.AxisCoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Frame.VerifyTolerance < 0 {
		return fmt.Errorf("%w: verifyTolerance must not be negative", ErrInvalidConfig)
	}

	if c.Scaling.BySCIPPLine && c.Scaling.ByIISLine {
		return fmt.Errorf("%w: scaling by SCIPP line and by IIS line are mutually exclusive", ErrInvalidConfig)
	}
	if c.Scaling.BySCIPPLine && c.Scaling.SCIPPLength <= 0 {
		return fmt.Errorf("%w: scippLength must be positive", ErrInvalidConfig)
	}
	if c.Scaling.ByIISLine && c.Scaling.IISLength <= 0 {
		return fmt.Errorf("%w: iisLength must be positive", ErrInvalidConfig)
	}

	switch c.Output.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("%w: unknown logFormat %q", ErrInvalidConfig, c.Output.LogFormat)
	}
	return nil
}

// PelvisNaming compiles the naming section
func (c *Config) PelvisNaming() (pelvis.Naming, error) {
	re, err := pelvis.CompileIndexPattern(c.Naming.IndexPattern)
	if err != nil {
		return pelvis.Naming{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return pelvis.Naming{
		PubicSymphysis:    c.Naming.PubicSymphysis,
		SCJoint:           c.Naming.SCJoint,
		LeftIschialSpine:  c.Naming.LeftIschialSpine,
		RightIschialSpine: c.Naming.RightIschialSpine,
		InterIschialSpine: c.Naming.InterIschialSpine,
		IndexPattern:      re,
		MaxIndex:          c.Naming.MaxIndex,
		LeftEdgePrefix:    c.Naming.LeftEdgePrefix,
		RightEdgePrefix:   c.Naming.RightEdgePrefix,
		CenterPrefix:      c.Naming.CenterPrefix,
	}, nil
}

// NormalizerOptions converts the frame and scaling sections
func (c *Config) NormalizerOptions() (pics.Options, error) {
	coding, err := pics.ParseAxisCoding(c.Frame.AxisCoding)
	if err != nil {
		return pics.Options{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return pics.Options{
		Coding:            coding,
		DesiredSCIPPAngle: c.Frame.DesiredSCIPPAngle,
		ScaleBySCIPPLine:  c.Scaling.BySCIPPLine,
		SCIPPLength:       c.Scaling.SCIPPLength,
		ScaleByIISLine:    c.Scaling.ByIISLine,
		IISLength:         c.Scaling.IISLength,
		VerifyTolerance:   c.Frame.VerifyTolerance,
		CreateIIS:         c.Statistics.CreateIIS,
	}, nil
}

// StatisticsOptions converts the statistics section
func (c *Config) StatisticsOptions() statistics.Options {
	return statistics.Options{
		LeftEdges:           c.Statistics.LeftEdges,
		RightEdges:          c.Statistics.RightEdges,
		Center:              c.Statistics.Center,
		AllIndividualPoints: c.Statistics.AllIndividualPoints,
	}
}
