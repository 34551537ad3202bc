package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration holds the static settings needed to run the service.
type Configuration struct {
	Address string `env:"ADDRESS" envDefault:"8080"` // listen port

	// Store selection: mongo, postgres or sqlite
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`

	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI"`
	MongoDB_DBName        string `env:"MONGODB_DBNAME" envDefault:"CallDetailRecords"`
	MongoDB_Collection    string `env:"MONGODB_COLLECTION" envDefault:"CallRecords"`

	SQL_DSN   string `env:"SQL_DSN"`
	SQL_Table string `env:"SQL_TABLE" envDefault:"call_records"`

	// Optional read-through cache for lookups by reference
	Redis_Addr     string `env:"REDIS_ADDR"`
	Redis_Password string `env:"REDIS_PASSWORD"`
	Redis_DB       int    `env:"REDIS_DB" envDefault:"0"`
	Redis_TTL      int    `env:"REDIS_TTL" envDefault:"300"` // seconds

	// Optional archive of raw uploads
	S3_Bucket string `env:"S3_BUCKET"`
	S3_Prefix string `env:"S3_PREFIX" envDefault:"cdr-uploads"`

	Inbox_Enabled bool   `env:"INBOX_ENABLED" envDefault:"false"`
	Inbox_Dir     string `env:"INBOX_DIR" envDefault:"./inbox"`

	Upload_MaxBytes int `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`

	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`    // 0 disables the limiter
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`  // seconds
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
}

// getEnvPath returns config/env/<GO_ENV>.env from the first ancestor directory that has one.
func getEnvPath() string {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" {
		goEnv = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		fmt.Printf("Unable to resolve working directory: %v\n", err)
		return ""
	}

	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", goEnv))
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// Load reads the env file (when present), applies YAML defaults from CONFIG_FILE
// and parses the environment into a Configuration.
func Load() (*Configuration, error) {
	if envPath := getEnvPath(); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", envPath, err)
			}
		}
	}

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		if err := ApplyYAMLDefaults(file); err != nil {
			return nil, err
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewConfig is Load for callers that only care whether a config came back.
func NewConfig() *Configuration {
	cfg, err := Load()
	if err != nil {
		// logger is not initialised yet at this point
		fmt.Printf("Failed to load config: %+v\n", err)
		return nil
	}
	return cfg
}

// Validate checks that the selected store driver has its connection settings.
func (c *Configuration) Validate() error {
	switch c.StoreDriver {
	case "mongo":
		if c.MongoDB_ConnectionURI == "" {
			return fmt.Errorf("MONGODB_CONNECTION_URI is required for the mongo store")
		}
	case "postgres", "sqlite":
		if c.SQL_DSN == "" {
			return fmt.Errorf("SQL_DSN is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
