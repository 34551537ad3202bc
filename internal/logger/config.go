package logger

import (
	"os"
	"strings"

	"github.com/caarlos0/env"
)

// LogConfig holds logging settings.
type LogConfig struct {
	// trace, debug, info, warn, error, fatal
	Level string `env:"LOG_LEVEL"`

	// json or text
	Format string `env:"LOG_FORMAT"`

	// file, stdout or both
	Output string `env:"LOG_OUTPUT" envDefault:"both"`

	// rotation
	MaxSize    int  `env:"LOG_MAX_SIZE" envDefault:"100"` // MB
	MaxBackups int  `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAge     int  `env:"LOG_MAX_AGE" envDefault:"7"` // days
	Compress   bool `env:"LOG_COMPRESS" envDefault:"true"`

	LogPath   string `env:"LOG_PATH" envDefault:"./logs"`
	AppFile   string `env:"LOG_APP_FILE" envDefault:"app.log"`
	AuditFile string `env:"LOG_AUDIT_FILE" envDefault:"audit.log"`
	ErrorFile string `env:"LOG_ERROR_FILE" envDefault:"error.log"`

	// entries buffered by the async hook before new ones are dropped
	BufferSize int `env:"LOG_BUFFER_SIZE" envDefault:"1000"`
}

// DefaultConfig builds a LogConfig from the environment. Level and format
// default by GO_ENV: debug/text in development, info/json elsewhere.
func DefaultConfig() *LogConfig {
	cfg := &LogConfig{}
	if err := env.Parse(cfg); err != nil {
		cfg = &LogConfig{
			Output: "both", MaxSize: 100, MaxBackups: 7, MaxAge: 7, Compress: true,
			LogPath: "./logs", AppFile: "app.log", AuditFile: "audit.log", ErrorFile: "error.log",
			BufferSize: 1000,
		}
	}

	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if cfg.Level == "" {
			cfg.Level = "debug"
		}
		if cfg.Format == "" {
			cfg.Format = "text"
		}
	} else {
		if cfg.Level == "" {
			cfg.Level = "info"
		}
		if cfg.Format == "" {
			cfg.Format = "json"
		}
	}

	cfg.Level = strings.ToLower(cfg.Level)
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.Output = strings.ToLower(cfg.Output)
	return cfg
}
