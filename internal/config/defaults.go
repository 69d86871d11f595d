package config

// Default pipeline values.
const (
	DefaultChunkSize       = 4 * 1024 * 1024
	DefaultRetryCount      = 5
	DefaultPrivacyStatus   = "private"
	DefaultDailyQuotaLimit = 10000
	DefaultWorkers         = 1
)

// Default metadata templates.
const (
	DefaultTitleTemplate       = "【{folder}】{stem}"
	DefaultDescriptionTemplate = "{folder}\nNo. {index}/{total}\n\nFile: {filename}\nCaptured: {date}\n"
)

// DefaultConfig returns a Config populated with all default values.
// Loading merges the config file over this baseline, so absent keys keep
// their defaults.
func DefaultConfig() *Config {
	return &Config{
		Upload: UploadConfig{
			ChunkSize:       DefaultChunkSize,
			RetryCount:      DefaultRetryCount,
			PrivacyStatus:   DefaultPrivacyStatus,
			DailyQuotaLimit: DefaultDailyQuotaLimit,
			Workers:         DefaultWorkers,
		},
		Metadata: MetadataConfig{
			TitleTemplate:       DefaultTitleTemplate,
			DescriptionTemplate: DefaultDescriptionTemplate,
			Tags:                []string{"auto-upload"},
		},
		Logging: LoggingConfig{
			LogLevel: "info",
		},
	}
}
