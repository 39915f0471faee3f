package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	maxWalkDepth = 25
)

// Config represents the migledger configuration from migledger.yaml.
type Config struct {
	// Ledger is the path of the JSON ledger. Migration files are created in
	// the same directory.
	Ledger string `mapstructure:"ledger" json:"ledger"`

	// MaxAttempts bounds random suffix retries for unslugged names.
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts"`

	// Lock enables the advisory ledger lock.
	Lock        bool          `mapstructure:"lock" json:"lock"`
	LockTimeout time.Duration `mapstructure:"lock_timeout" json:"lock_timeout"`

	Log LogConfig `mapstructure:"log" json:"log"`

	// Per-command configuration
	List   ListConfig   `mapstructure:"list" json:"list"`
	Doctor DoctorConfig `mapstructure:"doctor" json:"doctor"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// ListConfig holds list command settings.
type ListConfig struct {
	Output string `mapstructure:"output" json:"output"`
}

// DoctorConfig holds doctor command settings.
type DoctorConfig struct {
	Verbose bool `mapstructure:"verbose" json:"verbose"`
}

// LoadConfig discovers and loads configuration with proper precedence:
// flags > env > config file > defaults.
//
// Returns the loaded config, the path to the config file (empty if none found),
// and any error encountered.
func LoadConfig(explicitConfigPath string) (*Config, string, error) {
	v := viper.New()

	// 1. Set defaults first (lowest precedence)
	setDefaults(v)

	// 2. Set up environment variable binding
	v.SetEnvPrefix("MIGLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 3. Find and load config file
	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	// 4. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Relative ledger paths in a config file are relative to that file.
	if configPath != "" && v.InConfig("ledger") && os.Getenv("MIGLEDGER_LEDGER") == "" && !filepath.IsAbs(cfg.Ledger) {
		cfg.Ledger = filepath.Join(filepath.Dir(configPath), cfg.Ledger)
	}

	if err := cfg.Validate(); err != nil {
		return nil, configPath, err
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ledger", filepath.Join("migrations", "migrations.json"))
	v.SetDefault("max_attempts", 10)
	v.SetDefault("lock", true)
	v.SetDefault("lock_timeout", 10*time.Second)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// List defaults
	v.SetDefault("list.output", "table")

	// Doctor defaults
	v.SetDefault("doctor.verbose", false)
}

// Validate checks values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if c.Ledger == "" {
		return fmt.Errorf("ledger path is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Lock && c.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive when lock is enabled")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// findConfigFile finds the config file to use.
// If explicitPath is provided, it validates the file exists.
// Otherwise, it walks up from cwd looking for migledger.yaml or migledger.yml,
// stopping at a .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	// Auto-discovery: walk up to .git or maxWalkDepth
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		// Try migledger.yaml then migledger.yml
		for _, name := range []string{"migledger.yaml", "migledger.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		// Check for repo boundary (.git file or directory)
		gitPath := filepath.Join(dir, ".git")
		if _, err := os.Stat(gitPath); err == nil {
			break // Stop at repo root
		}

		// Move up
		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		dir = parent
	}

	return "", nil // No config found, use defaults
}

// MarshalJSON renders the lock timeout as a duration string.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		LockTimeout string `json:"lock_timeout"`
	}{plain(c), c.LockTimeout.String()})
}

// ResolvedLedger returns the effective ledger path, with the --ledger flag
// taking precedence over configuration.
func (c *Config) ResolvedLedger(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return c.Ledger
}

// ResolvedLogLevel returns the log level after applying -v and -q.
func (c *Config) ResolvedLogLevel(verbose int, quiet bool) string {
	switch {
	case quiet:
		return "error"
	case verbose > 0:
		return "debug"
	default:
		return c.Log.Level
	}
}
