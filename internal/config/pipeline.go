package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/mathlens/internal/imaging"
	"github.com/JaimeStill/mathlens/internal/pipeline"
)

const (
	EnvPipelineConfidenceReject = "MATHLENS_PIPELINE_CONFIDENCE_REJECT"
	EnvPipelineConfidenceWarn   = "MATHLENS_PIPELINE_CONFIDENCE_WARN"
	EnvPipelineSurfaceWarnings  = "MATHLENS_PIPELINE_SURFACE_WARNINGS"
	EnvPipelineInferenceTimeout = "MATHLENS_PIPELINE_INFERENCE_TIMEOUT"
	EnvPipelineMaxImageSize     = "MATHLENS_PIPELINE_MAX_IMAGE_SIZE"
)

// PipelineConfig holds the confidence policy, inference deadline, and image
// bounds for the capture pipeline.
type PipelineConfig struct {
	ConfidenceReject float64 `toml:"confidence_reject"`
	ConfidenceWarn   float64 `toml:"confidence_warn"`
	SurfaceWarnings  *bool   `toml:"surface_warnings"`
	InferenceTimeout string  `toml:"inference_timeout"`
	MaxImageBytes    int64   `toml:"max_image_bytes"`
	MinDimension     int     `toml:"min_dimension"`
	MaxDimension     int     `toml:"max_dimension"`
}

// InferenceTimeoutDuration returns InferenceTimeout as a time.Duration.
func (c *PipelineConfig) InferenceTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.InferenceTimeout)
	return d
}

// Options converts the config into pipeline options.
func (c *PipelineConfig) Options() pipeline.Options {
	return pipeline.Options{
		ConfidenceReject: c.ConfidenceReject,
		ConfidenceWarn:   c.ConfidenceWarn,
		SurfaceWarnings:  c.SurfaceWarnings == nil || *c.SurfaceWarnings,
		InferenceTimeout: c.InferenceTimeoutDuration(),
	}
}

// Imaging converts the config into image validation bounds.
func (c *PipelineConfig) Imaging() imaging.Config {
	return imaging.Config{
		MaxBytes:  c.MaxImageBytes,
		MinWidth:  c.MinDimension,
		MinHeight: c.MinDimension,
		MaxWidth:  c.MaxDimension,
		MaxHeight: c.MaxDimension,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.ConfidenceReject != 0 {
		c.ConfidenceReject = overlay.ConfidenceReject
	}
	if overlay.ConfidenceWarn != 0 {
		c.ConfidenceWarn = overlay.ConfidenceWarn
	}
	if overlay.SurfaceWarnings != nil {
		c.SurfaceWarnings = overlay.SurfaceWarnings
	}
	if overlay.InferenceTimeout != "" {
		c.InferenceTimeout = overlay.InferenceTimeout
	}
	if overlay.MaxImageBytes != 0 {
		c.MaxImageBytes = overlay.MaxImageBytes
	}
	if overlay.MinDimension != 0 {
		c.MinDimension = overlay.MinDimension
	}
	if overlay.MaxDimension != 0 {
		c.MaxDimension = overlay.MaxDimension
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.ConfidenceReject == 0 {
		c.ConfidenceReject = 0.3
	}
	if c.ConfidenceWarn == 0 {
		c.ConfidenceWarn = 0.6
	}
	if c.InferenceTimeout == "" {
		c.InferenceTimeout = "30s"
	}
	if c.MaxImageBytes == 0 {
		c.MaxImageBytes = 10 << 20
	}
	if c.MinDimension == 0 {
		c.MinDimension = 32
	}
	if c.MaxDimension == 0 {
		c.MaxDimension = 8192
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineConfidenceReject); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceReject = f
		}
	}
	if v := os.Getenv(EnvPipelineConfidenceWarn); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceWarn = f
		}
	}
	if v := os.Getenv(EnvPipelineSurfaceWarnings); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.SurfaceWarnings = &b
		}
	}
	if v := os.Getenv(EnvPipelineInferenceTimeout); v != "" {
		c.InferenceTimeout = v
	}
	if v := os.Getenv(EnvPipelineMaxImageSize); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxImageBytes = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.ConfidenceReject < 0 || c.ConfidenceReject > 1 {
		return fmt.Errorf("invalid confidence_reject: %v", c.ConfidenceReject)
	}
	if c.ConfidenceWarn < c.ConfidenceReject || c.ConfidenceWarn > 1 {
		return fmt.Errorf("invalid confidence_warn: %v", c.ConfidenceWarn)
	}
	if _, err := time.ParseDuration(c.InferenceTimeout); err != nil {
		return fmt.Errorf("invalid inference_timeout: %w", err)
	}
	return nil
}
