package server

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// UserRec is one user record from the config file.
type UserRec struct {
	Name     string `toml:"name"`
	Address  string `toml:"address"`
	Password string `toml:"password"`
	Pwhash   string `toml:"pwhash"`
}

type SMTPConfig struct {
	Addr        string `toml:"addr"`
	Workers     int    `toml:"workers"`
	RequireAuth bool   `toml:"require_auth"`
}

type POPConfig struct {
	Addr    string `toml:"addr"`
	Workers int    `toml:"workers"`
}

// Config keeps the user-provided server parameters.
type Config struct {
	Debug           bool   `toml:"debug"`
	Hostname        string `toml:"hostname"`
	Maildir         string `toml:"maildir"`
	MetricsAddr     string `toml:"metrics_addr"`
	IdleTimeout     string `toml:"idle_timeout"`       // e.g. "5m"
	MaxAuthAttempts int    `toml:"max_auth_attempts"`

	SMTP  SMTPConfig `toml:"smtp"`
	POP   POPConfig  `toml:"pop3"`
	Users []UserRec  `toml:"users"`
}

// DefaultConfig returns a config with the defaults every omitted
// field falls back to.
func DefaultConfig() *Config {
	return &Config{
		Hostname:        "localhost",
		Maildir:         "./mail",
		IdleTimeout:     "5m",
		MaxAuthAttempts: 3,
		SMTP:            SMTPConfig{Addr: ":2525", Workers: 10},
		POP:             POPConfig{Addr: ":1100", Workers: 5},
	}
}

// LoadConfig reads a TOML config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) check() error {
	if c.SMTP.Workers < 1 || c.POP.Workers < 1 {
		return fmt.Errorf("worker counts must be positive")
	}
	if _, err := c.GetIdleTimeout(); err != nil {
		return fmt.Errorf("idle_timeout: %v", err)
	}
	seen := make(map[string]bool)
	for _, u := range c.Users {
		if u.Name == "" {
			return fmt.Errorf("user without a name")
		}
		if seen[u.Name] {
			return fmt.Errorf("duplicate user %q", u.Name)
		}
		seen[u.Name] = true
	}
	return nil
}

// GetIdleTimeout parses the idle timeout. Zero disables it.
func (c *Config) GetIdleTimeout() (time.Duration, error) {
	if c.IdleTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.IdleTimeout)
}
