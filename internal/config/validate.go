package config

import (
	"fmt"

	"trustframe/internal/analysis"
	"trustframe/internal/integrity"
	"trustframe/internal/media/phash"
	"trustframe/internal/services"
)

const maxFrameDimension = 4096

// Validate ensures the configuration is usable. Failures wrap
// services.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return invalid(err)
	}
	if err := analysis.ValidateBuckets(c.Similarity.Buckets); err != nil {
		return invalid(fmt.Errorf("similarity.buckets: %w", err))
	}
	if err := c.validateLogging(); err != nil {
		return invalid(err)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if _, err := integrity.ParseAlgorithm(c.Analysis.CryptoAlgorithm); err != nil {
		return fmt.Errorf("analysis.crypto_algorithm: %w", err)
	}
	if _, err := phash.ParseAlgorithm(c.Analysis.PerceptualAlgorithm); err != nil {
		return fmt.Errorf("analysis.perceptual_algorithm: %w", err)
	}
	if c.Analysis.MaxFrames < 0 {
		return fmt.Errorf("analysis.max_frames must be >= 0 (0 samples every frame), got %d", c.Analysis.MaxFrames)
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.DisplayLimit < 0 {
		return fmt.Errorf("analysis.display_limit must be >= 0, got %d", c.Analysis.DisplayLimit)
	}
	if err := ensureRange(map[string]int{
		"analysis.frame_width":  c.Analysis.FrameWidth,
		"analysis.frame_height": c.Analysis.FrameHeight,
	}, 8, maxFrameDimension); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensureRange(values map[string]int, lo, hi int) error {
	for key, value := range values {
		if value < lo || value > hi {
			return fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, value)
		}
	}
	return nil
}

func invalid(err error) error {
	return services.Wrap(services.ErrInvalidConfiguration, "config", "validate", "", err)
}
