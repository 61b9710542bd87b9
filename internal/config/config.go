// Package config loads configuration from environment variables.
//
// The loaded Config is passed explicitly to every component that needs it.
// There is no package-level current configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all storage-core configuration.
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// Media root: either an absolute local directory or a remote
	// host/bucket/prefix triple (e.g. "s3.eu-west-1.amazonaws.com/media/lib").
	MediaRoot string

	// StagingDir is where remote objects are materialized as temporary
	// local files. Defaults to the OS temp directory.
	StagingDir string

	// Verification
	ChecksumVerify bool   // require content-hash equality before deleting a move source
	HashAlgorithm  string // blake2b or sha256

	// Object store
	S3ForcePathStyle  bool  // required for MinIO-style endpoints
	MultipartPartSize int64 // bytes per multipart upload part

	// Move intent store. Postgres when DatabaseURL is set, otherwise a
	// SQLite file at IntentDBPath.
	DatabaseURL  string
	IntentDBPath string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          envOr("LOG_LEVEL", "info"),
		LogFormat:         envOr("LOG_FORMAT", "json"),
		MediaRoot:         envOr("MEDIA_ROOT", ""),
		StagingDir:        envOr("STAGING_DIR", os.TempDir()),
		ChecksumVerify:    envBool("CHECKSUM_VERIFY", false),
		HashAlgorithm:     envOr("HASH_ALGORITHM", "blake2b"),
		S3ForcePathStyle:  envBool("S3_FORCE_PATH_STYLE", false),
		MultipartPartSize: envInt64("MULTIPART_PART_SIZE", 16*1024*1024),
		DatabaseURL:       envOr("DATABASE_URL", ""),
		IntentDBPath:      envOr("INTENT_DB_PATH", filepath.Join(os.TempDir(), "papaya-intents.db")),
	}

	if cfg.MediaRoot == "" {
		return nil, fmt.Errorf("MEDIA_ROOT is required")
	}
	if cfg.MultipartPartSize < 5*1024*1024 {
		return nil, fmt.Errorf("MULTIPART_PART_SIZE must be at least 5 MiB")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
