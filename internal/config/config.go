// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for bulktube. The override chain is
// defaults -> config file -> CLI flags; CLI flags always win because they
// express one-off intent without editing the config file.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	// StateDir holds the history database, the tokens directory, and the
	// active-profile marker. Empty selects the platform default.
	StateDir string `toml:"state_dir"`

	// HistoryDB overrides the upload history database path. Empty places
	// upload_history.db inside StateDir.
	HistoryDB string `toml:"history_db"`

	Auth     AuthConfig     `toml:"auth"`
	Upload   UploadConfig   `toml:"upload"`
	Metadata MetadataConfig `toml:"metadata"`
	Logging  LoggingConfig  `toml:"logging"`
}

// AuthConfig locates the OAuth client secrets and token storage.
type AuthConfig struct {
	ClientSecretsFile string   `toml:"client_secrets_file"`
	Scopes            []string `toml:"scopes"`

	// TokenFile is the pre-profile single token path. When set and present
	// on disk it is migrated into tokens/default.json on first use.
	TokenFile string `toml:"token_file"`
}

// UploadConfig controls the transfer pipeline.
type UploadConfig struct {
	ChunkSize       int64  `toml:"chunk_size"`
	RetryCount      int    `toml:"retry_count"`
	PrivacyStatus   string `toml:"privacy_status"`
	DailyQuotaLimit int    `toml:"daily_quota_limit"`
	Workers         int    `toml:"workers"`
}

// MetadataConfig supplies the video metadata templates. Placeholders:
// {folder}, {stem}, {filename}, {date}, {year}, {index}, {total}.
type MetadataConfig struct {
	TitleTemplate       string   `toml:"title_template"`
	DescriptionTemplate string   `toml:"description_template"`
	Tags                []string `toml:"tags"`
}

// LoggingConfig sets the baseline log level; --verbose and --quiet override it.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}
