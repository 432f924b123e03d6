package config

const (
	defaultBaseURL             = "http://localhost:8000"
	defaultRequestTimeout      = 60
	defaultUserAgent           = "lingo-cli/dev"
	defaultPollInterval        = 3
	defaultPollMaxAttempts     = 200
	defaultStateDir            = "~/.local/share/lingo"
	defaultSessionFileName     = "session.json"
	defaultDatabaseFileName    = "lingo.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultConfigRelativePath  = "~/.config/lingo/config.toml"
	defaultProjectConfigName   = "lingo.toml"
	defaultDotEnvFileName      = ".env"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:               defaultBaseURL,
			RequestTimeoutSeconds: defaultRequestTimeout,
			UserAgent:             defaultUserAgent,
		},
		Poll: Poll{
			IntervalSeconds: defaultPollInterval,
			MaxAttempts:     defaultPollMaxAttempts,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
