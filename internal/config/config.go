package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"gridseal/internal/signing"
)

// Config is the complete GridSeal configuration shared by the CLIs.
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Keys    KeysConfig    `yaml:"keys" envconfig:"KEYS"`
	Schema  SchemaConfig  `yaml:"schema" envconfig:"SCHEMA"`
	Hashing HashingConfig `yaml:"hashing" envconfig:"HASHING"`
	Cache   CacheConfig   `yaml:"cache" envconfig:"CACHE"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
}

// LoggingConfig controls the slog setup.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// KeysConfig locates the signing key material. PassphraseEnvVar names the
// environment variable holding the private key passphrase; the passphrase
// itself never appears in config files.
type KeysConfig struct {
	PrivateKeyPath   string `yaml:"private_key" envconfig:"PRIVATE_KEY"`
	PublicKeyPath    string `yaml:"public_key" envconfig:"PUBLIC_KEY"`
	PassphraseEnvVar string `yaml:"passphrase_env" envconfig:"PASSPHRASE_ENV"`
	Scheme           string `yaml:"scheme" envconfig:"SCHEME"`
}

// SchemaConfig locates the license field schema.
type SchemaConfig struct {
	File string `yaml:"file" envconfig:"FILE"`
}

// HashingConfig tunes the model digest pipeline. Workers zero means one
// worker per CPU.
type HashingConfig struct {
	Workers int `yaml:"workers" envconfig:"WORKERS"`
}

// CacheConfig tunes the verification cache. A negative MaxEntries disables
// caching.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl" envconfig:"TTL"`
	MaxEntries int           `yaml:"max_entries" envconfig:"MAX_ENTRIES"`
}

// PathsConfig holds the working directories.
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Load builds the configuration in three layers: Default values, then the
// YAML file at path when one is given, then GRIDSEAL_* environment
// variables. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/gridseal.log",
		},
		Keys: KeysConfig{
			PrivateKeyPath:   DefaultPrivateKeyFile,
			PublicKeyPath:    DefaultPublicKeyFile,
			PassphraseEnvVar: DefaultPassphraseEnvVar,
			Scheme:           string(signing.SchemePSS),
		},
		Schema: SchemaConfig{
			File: DefaultSchemaFile,
		},
		Hashing: HashingConfig{
			Workers: 0,
		},
		Cache: CacheConfig{
			TTL:        15 * time.Minute,
			MaxEntries: 256,
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
		},
	}
}

// SignatureScheme parses the configured scheme name.
func (c *Config) SignatureScheme() (signing.Scheme, error) {
	return signing.ParseScheme(c.Keys.Scheme)
}

// Passphrase reads the private key passphrase from the configured
// environment variable.
func (c *Config) Passphrase() (string, bool) {
	if c.Keys.PassphraseEnvVar == "" {
		return "", false
	}
	value, ok := os.LookupEnv(c.Keys.PassphraseEnvVar)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (c *Config) validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}
	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		return fmt.Errorf("log output %q needs a file path", c.Logging.Output)
	}

	if _, err := c.SignatureScheme(); err != nil {
		return fmt.Errorf("invalid signature scheme: %w", err)
	}

	if c.Hashing.Workers < 0 {
		return fmt.Errorf("hashing workers must not be negative: %d", c.Hashing.Workers)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive: %s", c.Cache.TTL)
	}
	return nil
}
