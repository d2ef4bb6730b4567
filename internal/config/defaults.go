package config

import (
	"os"
	"path/filepath"
	"strings"

	"trustframe/internal/analysis"
)

const (
	defaultConfigPath          = "~/.config/trustframe/config.toml"
	projectConfigName          = "trustframe.toml"
	databaseFileName           = "trustframe.db"
	defaultLogDir              = "~/.local/share/trustframe/logs"
	defaultCryptoAlgorithm     = "sha256"
	defaultPerceptualAlgorithm = "phash"
	defaultWorkers             = 1
	defaultDisplayLimit        = 10
	defaultFrameWidth          = 128
	defaultFrameHeight         = 128
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultFFmpeg              = "ffmpeg"
	defaultFFprobe             = "ffprobe"

	envLogLevel = "TRUSTFRAME_LOG_LEVEL"
	envCacheDir = "TRUSTFRAME_CACHE_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir(),
			LogDir:   defaultLogDir,
		},
		Analysis: Analysis{
			CryptoAlgorithm:     defaultCryptoAlgorithm,
			PerceptualAlgorithm: defaultPerceptualAlgorithm,
			Workers:             defaultWorkers,
			DisplayLimit:        defaultDisplayLimit,
			FrameWidth:          defaultFrameWidth,
			FrameHeight:         defaultFrameHeight,
		},
		Similarity: Similarity{
			Buckets: analysis.DefaultBuckets(),
		},
		Cache: Cache{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
	}
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "trustframe")
	}
	return "~/.cache/trustframe"
}
