package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/mathlens/internal/resilience"
)

const (
	EnvResilienceMaxAttempts      = "MATHLENS_RESILIENCE_MAX_ATTEMPTS"
	EnvResilienceBaseDelay        = "MATHLENS_RESILIENCE_BASE_DELAY"
	EnvResilienceMaxDelay         = "MATHLENS_RESILIENCE_MAX_DELAY"
	EnvResilienceFailureThreshold = "MATHLENS_RESILIENCE_FAILURE_THRESHOLD"
	EnvResilienceRecoveryTimeout  = "MATHLENS_RESILIENCE_RECOVERY_TIMEOUT"
)

// ResilienceConfig holds retry and circuit breaker tuning for the inference
// dependency.
type ResilienceConfig struct {
	MaxAttempts      int    `toml:"max_attempts"`
	BaseDelay        string `toml:"base_delay"`
	MaxDelay         string `toml:"max_delay"`
	FailureThreshold int    `toml:"failure_threshold"`
	RecoveryTimeout  string `toml:"recovery_timeout"`
}

// RetryConfigs converts the config into per-class retry budgets, overriding
// only the inference class.
func (c *ResilienceConfig) RetryConfigs() map[resilience.Class]resilience.RetryConfig {
	configs := resilience.DefaultRetryConfigs()

	inference := configs[resilience.ClassInference]
	inference.MaxAttempts = c.MaxAttempts
	inference.BaseDelay, _ = time.ParseDuration(c.BaseDelay)
	inference.MaxDelay, _ = time.ParseDuration(c.MaxDelay)
	configs[resilience.ClassInference] = inference

	return configs
}

// BreakerConfig converts the config into circuit breaker tuning.
func (c *ResilienceConfig) BreakerConfig() resilience.BreakerConfig {
	recovery, _ := time.ParseDuration(c.RecoveryTimeout)
	return resilience.BreakerConfig{
		FailureThreshold: c.FailureThreshold,
		RecoveryTimeout:  recovery,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ResilienceConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ResilienceConfig) Merge(overlay *ResilienceConfig) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseDelay != "" {
		c.BaseDelay = overlay.BaseDelay
	}
	if overlay.MaxDelay != "" {
		c.MaxDelay = overlay.MaxDelay
	}
	if overlay.FailureThreshold != 0 {
		c.FailureThreshold = overlay.FailureThreshold
	}
	if overlay.RecoveryTimeout != "" {
		c.RecoveryTimeout = overlay.RecoveryTimeout
	}
}

func (c *ResilienceConfig) loadDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay == "" {
		c.BaseDelay = "1s"
	}
	if c.MaxDelay == "" {
		c.MaxDelay = "30s"
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == "" {
		c.RecoveryTimeout = "60s"
	}
}

func (c *ResilienceConfig) loadEnv() {
	if v := os.Getenv(EnvResilienceMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvResilienceBaseDelay); v != "" {
		c.BaseDelay = v
	}
	if v := os.Getenv(EnvResilienceMaxDelay); v != "" {
		c.MaxDelay = v
	}
	if v := os.Getenv(EnvResilienceFailureThreshold); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FailureThreshold = n
		}
	}
	if v := os.Getenv(EnvResilienceRecoveryTimeout); v != "" {
		c.RecoveryTimeout = v
	}
}

func (c *ResilienceConfig) validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("invalid max_attempts: %d", c.MaxAttempts)
	}
	if _, err := time.ParseDuration(c.BaseDelay); err != nil {
		return fmt.Errorf("invalid base_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxDelay); err != nil {
		return fmt.Errorf("invalid max_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.RecoveryTimeout); err != nil {
		return fmt.Errorf("invalid recovery_timeout: %w", err)
	}
	return nil
}
