// Package config assembles the application configuration from
// defaults, command-line flags, a .env file and environment variables,
// in that order of precedence, and validates the result.
package config

import (
	"flag"
	"log"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the service.
type Config struct {
	RunAddr             string        `env:"SERVER_ADDRESS" validate:"hostname_port"`
	LogLevel            string        `env:"LOG_LEVEL" validate:"loglevel"`
	DatabaseDSN         string        `env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`
	DBFileName          string        `env:"FILE_STORAGE_PATH"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR"`

	// TokenSigningSecretKey is the base64-encoded HMAC secret used to
	// sign bearer tokens.
	TokenSigningSecretKey string        `env:"TOKEN_SIGNING_SECRET_KEY" validate:"required,base64url"`
	TokenTTL              time.Duration `env:"TOKEN_TTL"`
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[fieldLevel.Field().String()]
}

func (c *Config) validate() error {
	validate := validator.New()

	if err := validate.RegisterValidation("loglevel", validateLogLevel); err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption customizes New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips command-line flag parsing, which tests
// need because the test binary owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	cfg := &Config{
		RunAddr:             ":8080",
		LogLevel:            "info",
		DatabaseDSN:         "",
		DBConnectionTimeout: 10 * time.Second,
		DBFileName:          "",
		MigrationsDir:       "migrations",
		// Default secret for local development only.
		TokenSigningSecretKey: "c2VjcmV0LWRldi1vbmx5LXNpZ25pbmcta2V5",
		TokenTTL:              72 * time.Hour,
	}

	if !options.disableFlagsParsing {
		flag.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run server")
		flag.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "logger level")
		flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "a string with the database connection details")
		flag.StringVar(&cfg.DBFileName, "f", cfg.DBFileName, "JSON file name with database")
		flag.StringVar(&cfg.MigrationsDir, "m", cfg.MigrationsDir, "directory with goose migrations")
		flag.Parse()
	}

	valuesFromEnv := Config{}
	if err := env.Parse(&valuesFromEnv); err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		cfg.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		cfg.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DatabaseDSN != "" {
		cfg.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		cfg.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.DBFileName != "" {
		cfg.DBFileName = valuesFromEnv.DBFileName
	}

	if valuesFromEnv.MigrationsDir != "" {
		cfg.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.TokenSigningSecretKey != "" {
		cfg.TokenSigningSecretKey = valuesFromEnv.TokenSigningSecretKey
	}

	if valuesFromEnv.TokenTTL != 0 {
		cfg.TokenTTL = valuesFromEnv.TokenTTL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
