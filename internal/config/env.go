package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: the unlock password is prompted at runtime and kept in memory only - use TakePasswordBytes()
type Config struct {
	Port             string        `envconfig:"PORT" default:"8080"`
	DataDir          string        `envconfig:"DATA_DIR" default:"./data"`
	VaultScryptN     int           `envconfig:"VAULT_SCRYPT_N" default:"262144"`
	RefreshInterval  time.Duration `envconfig:"REFRESH_INTERVAL" default:"30s"`
	SendRefreshDelay time.Duration `envconfig:"SEND_REFRESH_DELAY" default:"1.5s"`
	RPCTimeout       time.Duration `envconfig:"RPC_TIMEOUT" default:"15s"`
	StrictWordlist   bool          `envconfig:"STRICT_WORDLIST" default:"false"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile          string        `envconfig:"LOG_FILE"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Load reads configuration from environment variables without touching the global instance
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if c.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive, got %s", c.RefreshInterval)
	}
	if c.SendRefreshDelay < 0 {
		return nil, fmt.Errorf("SEND_REFRESH_DELAY must not be negative, got %s", c.SendRefreshDelay)
	}
	return c, nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetDataDir returns the leveldb directory from configuration
func GetDataDir() string {
	return Get().DataDir
}

var passwordBytes []byte

// PromptForPassword prompts the user for the wallet password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter wallet password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
	clear(raw)
	return nil
}

// TakePasswordBytes returns the password stored by PromptForPassword and forgets it.
// Caller must zero the returned slice after use for security.
func TakePasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	clear(passwordBytes)
	passwordBytes = nil
	return out, nil
}
