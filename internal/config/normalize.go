package config

import (
	"fmt"
	"os"
	"strings"

	"trustframe/internal/analysis"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeSimilarity()
	c.normalizeLogging()
	c.normalizeTools()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv(envCacheDir); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.CryptoAlgorithm = strings.ToLower(strings.TrimSpace(c.Analysis.CryptoAlgorithm))
	if c.Analysis.CryptoAlgorithm == "" {
		c.Analysis.CryptoAlgorithm = defaultCryptoAlgorithm
	}
	c.Analysis.PerceptualAlgorithm = strings.ToLower(strings.TrimSpace(c.Analysis.PerceptualAlgorithm))
	if c.Analysis.PerceptualAlgorithm == "" {
		c.Analysis.PerceptualAlgorithm = defaultPerceptualAlgorithm
	}
	if c.Analysis.Workers == 0 {
		c.Analysis.Workers = defaultWorkers
	}
	if c.Analysis.DisplayLimit == 0 {
		c.Analysis.DisplayLimit = defaultDisplayLimit
	}
	if c.Analysis.FrameWidth == 0 {
		c.Analysis.FrameWidth = defaultFrameWidth
	}
	if c.Analysis.FrameHeight == 0 {
		c.Analysis.FrameHeight = defaultFrameHeight
	}
}

func (c *Config) normalizeSimilarity() {
	if len(c.Similarity.Buckets) == 0 {
		c.Similarity.Buckets = analysis.DefaultBuckets()
		return
	}
	for i := range c.Similarity.Buckets {
		c.Similarity.Buckets[i].Label = strings.TrimSpace(c.Similarity.Buckets[i].Label)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if value, ok := os.LookupEnv(envLogLevel); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}
