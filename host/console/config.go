// Package console is the host side of the EVK command console: it opens
// the board's UART through a USB serial adapter, sends command lines and
// copies the board's log output back.
package console

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is loaded from YAML, then overridden from the environment.
type Config struct {
	Port          string   `yaml:"port"`
	Baud          int      `yaml:"baud"`
	ReadTimeoutMS int      `yaml:"read_timeout_ms"`
	Startup       []string `yaml:"startup"` // commands sent after opening

	// LineDelayMS paces startup commands so the firmware queue keeps up.
	LineDelayMS int `yaml:"line_delay_ms"`
}

const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultLineDelay   = 50 * time.Millisecond
)

// Environment overrides.
const (
	EnvPort        = "EVK_PORT"
	EnvBaud        = "EVK_BAUD"
	EnvReadTimeout = "EVK_READ_TIMEOUT_MS"
)

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

func (c *Config) LineDelay() time.Duration {
	return time.Duration(c.LineDelayMS) * time.Millisecond
}

// LoadEnv reads .env style files into the process environment. Missing
// files are skipped; variables already set are kept.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("env %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path (optional), applies environment overrides and fills
// defaults. It does not validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		c.Port = v
	}
	if err := envInt(EnvBaud, &c.Baud); err != nil {
		return err
	}
	return envInt(EnvReadTimeout, &c.ReadTimeoutMS)
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s=%q: not an integer", key, v)
	}
	*dst = n
	return nil
}

func (c *Config) applyDefaults() {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeoutMS == 0 {
		c.ReadTimeoutMS = int(DefaultReadTimeout / time.Millisecond)
	}
	if c.LineDelayMS == 0 {
		c.LineDelayMS = int(DefaultLineDelay / time.Millisecond)
	}
}

// Validate checks the configuration without changing it.
func Validate(c *Config) error {
	if c.Port == "" {
		return fmt.Errorf("port is required (set it in the config file or %s)", EnvPort)
	}
	switch {
	case c.Baud <= 0:
		return fmt.Errorf("baud %d: must be positive", c.Baud)
	case c.ReadTimeoutMS < 0:
		return fmt.Errorf("read_timeout_ms %d: must not be negative", c.ReadTimeoutMS)
	case c.LineDelayMS < 0:
		return fmt.Errorf("line_delay_ms %d: must not be negative", c.LineDelayMS)
	}
	for i, s := range c.Startup {
		for j := 0; j < len(s); j++ {
			if s[j] == '\n' || s[j] == '\r' {
				return fmt.Errorf("startup[%d]: command must be a single line", i)
			}
		}
	}
	return nil
}
