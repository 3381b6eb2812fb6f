package config

const (
	defaultStateDir             = "~/.local/share/clipnotes"
	defaultLogDir               = "~/.local/share/clipnotes/logs"
	defaultBaseURL              = "http://127.0.0.1:8000/api"
	defaultTimeoutSeconds       = 30
	defaultUploadTimeoutSeconds = 300
	defaultHistoryLimit         = 20
	defaultCacheMaxPerSelection = 50
	defaultCacheMaxTotal        = 500
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Backend: Backend{
			BaseURL:              defaultBaseURL,
			TimeoutSeconds:       defaultTimeoutSeconds,
			UploadTimeoutSeconds: defaultUploadTimeoutSeconds,
		},
		Chat: Chat{
			HistoryLimit:         defaultHistoryLimit,
			CacheMaxPerSelection: defaultCacheMaxPerSelection,
			CacheMaxTotal:        defaultCacheMaxTotal,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
