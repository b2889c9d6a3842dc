package config

const (
	defaultConfigPath        = "~/.config/dymgr/config.toml"
	defaultBaseURL           = "http://localhost:8001/api/v1"
	defaultTimeoutSeconds    = 10
	defaultUserAgent         = "dymgr/0.1.0"
	defaultStateDir          = "~/.local/share/dymgr"
	defaultLogDir            = "~/.local/share/dymgr/logs"
	defaultCredentialBackend = BackendFile
	defaultCredentialKey     = "token"
	defaultValidateOnStart   = ValidateNone
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	credentialFileName = "credentials.json"
	credentialDBName   = "credentials.db"
)

// Credential backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Restore policies for a credential found at startup.
const (
	ValidateNone    = "none"
	ValidateExpiry  = "expiry"
	ValidateProfile = "profile"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:        defaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Session: Session{
			CredentialBackend: defaultCredentialBackend,
			CredentialKey:     defaultCredentialKey,
			ValidateOnStart:   defaultValidateOnStart,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
