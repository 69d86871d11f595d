package config

import (
	"fmt"
	"slices"
)

// validPrivacyStatuses mirrors the values the API accepts.
var validPrivacyStatuses = []string{"public", "private", "unlisted"}

// Validate checks a Config for values that would fail at runtime.
// Called by Load after parsing; zero values have already been replaced by
// defaults, so every field can be checked strictly.
func Validate(cfg *Config) error {
	if cfg.Upload.ChunkSize <= 0 {
		return fmt.Errorf("upload.chunk_size must be positive, got %d", cfg.Upload.ChunkSize)
	}

	if cfg.Upload.RetryCount < 0 {
		return fmt.Errorf("upload.retry_count must not be negative, got %d", cfg.Upload.RetryCount)
	}

	if cfg.Upload.DailyQuotaLimit <= 0 {
		return fmt.Errorf("upload.daily_quota_limit must be positive, got %d", cfg.Upload.DailyQuotaLimit)
	}

	if cfg.Upload.Workers < 1 {
		return fmt.Errorf("upload.workers must be at least 1, got %d", cfg.Upload.Workers)
	}

	if !slices.Contains(validPrivacyStatuses, cfg.Upload.PrivacyStatus) {
		return fmt.Errorf("upload.privacy_status must be public, private, or unlisted, got %q",
			cfg.Upload.PrivacyStatus)
	}

	if cfg.Metadata.TitleTemplate == "" {
		return fmt.Errorf("metadata.title_template must not be empty")
	}

	switch cfg.Logging.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.log_level must be debug, info, warn, or error, got %q",
			cfg.Logging.LogLevel)
	}

	return nil
}
