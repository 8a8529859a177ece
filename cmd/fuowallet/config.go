package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/fuowallet/internal/logger"
	"github.com/nkiryanov/fuowallet/internal/output"
)

const (
	defaultAPIURL        = "http://localhost:8080/api"
	defaultCheckInterval = time.Minute
	defaultTimeout       = 15 * time.Second
	defaultLoggingLevel  = logger.LevelWarn
	defaultEnvironment   = logger.EnvProduction
	defaultOutput        = string(output.FormatTable)
)

type Config struct {
	// Wallet backend address
	APIURL string

	// Where the session is persisted, see storage.Open for supported urls
	// If empty than file in user config dir is used
	Storage string

	// Hex encoded 32 bytes key to encrypt persisted session with
	// Empty means no encryption
	StorageKey string

	// How often session expiry is checked while wallet shell is running
	CheckInterval time.Duration

	// Backend request timeout
	Timeout time.Duration

	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Output format: table, json, yaml
	Output string
}

func NewConfig() *Config {
	return &Config{
		APIURL:        defaultAPIURL,
		CheckInterval: defaultCheckInterval,
		Timeout:       defaultTimeout,
		LogLevel:      defaultLoggingLevel,
		Environment:   defaultEnvironment,
		Output:        defaultOutput,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"FUO_API_URL":        setString(&c.APIURL),
		"FUO_STORAGE":        setString(&c.Storage),
		"FUO_STORAGE_KEY":    setString(&c.StorageKey),
		"FUO_CHECK_INTERVAL": setDuration(&c.CheckInterval),
		"FUO_TIMEOUT":        setDuration(&c.Timeout),
		"FUO_OUTPUT":         setString(&c.Output),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

// ParseFlags parses global flags, returns the command with its arguments
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("fuowallet", pflag.ContinueOnError)
	// Flags after command name belong to the command
	fs.SetInterspersed(false)

	fs.StringVarP(&c.APIURL, "api-url", "u", c.APIURL, "Wallet backend address")
	fs.StringVarP(&c.Storage, "storage", "s", c.Storage, "Session storage url (file://, sqlite://, postgres://, redis://, memory://)")
	fs.StringVarP(&c.StorageKey, "storage-key", "k", c.StorageKey, "Hex encoded key to encrypt stored session with")
	fs.DurationVarP(&c.CheckInterval, "check-interval", "i", c.CheckInterval, "How often session expiry is checked")
	fs.DurationVarP(&c.Timeout, "timeout", "t", c.Timeout, "Backend request timeout")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "Output format (table, json, yaml)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return fs.Args(), nil
}

// SetDefaultStorage points storage to file in user config dir unless set
func (c *Config) SetDefaultStorage(getenv func(string) string) error {
	if c.Storage != "" {
		return nil
	}

	dir := getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home := getenv("HOME")
		if home == "" {
			return errors.New("neither XDG_CONFIG_HOME nor HOME is set, set storage explicitly")
		}
		dir = filepath.Join(home, ".config")
	}

	c.Storage = "file://" + filepath.Join(dir, "fuowallet", "session.json")
	return nil
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api url must not be empty")
	}
	if c.CheckInterval <= 0 {
		return errors.New("check interval must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if _, err := output.ParseFormat(c.Output); err != nil {
		return err
	}
	return nil
}
