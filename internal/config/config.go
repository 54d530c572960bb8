package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "dstui"
	configFile = "config.yaml"

	// DefaultPollInterval is used when the config omits poll_interval
	DefaultPollInterval = 10 * time.Second

	// MinPollInterval guards against hammering the NAS
	MinPollInterval = 2 * time.Second
)

// ErrNotFound is returned by Load when no config file exists yet.
// Callers treat this as "run first-time setup", not as a failure.
var ErrNotFound = errors.New("config file not found")

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// Config holds everything needed to reach a Download Station server.
// The password is stored in cleartext in the config file; the file is
// written with 0600 permissions and the value is never logged.
type Config struct {
	Host               string `yaml:"host"`                // Server hostname or IP
	Scheme             string `yaml:"scheme"`              // "http" or "https"
	Port               int    `yaml:"port"`                // Web API port (5000/5001 typically)
	Username           string `yaml:"username"`            // DSM account
	Password           string `yaml:"password"`            // DSM password (cleartext at rest)
	PollIntervalSecs   int    `yaml:"poll_interval"`       // Task list refresh interval in seconds
	VerifyCertificates bool   `yaml:"verify_certificates"` // When false, accept any TLS certificate
}

// GetConfigDir returns the OS-appropriate configuration directory.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/dstui or $HOME/.config/dstui
//   - macOS: $HOME/.config/dstui (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\dstui
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		// Linux and other Unix-like systems: XDG_CONFIG_HOME or $HOME/.config
		xdgConfig := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfig != "" {
			baseDir = filepath.Join(xdgConfig, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads and validates the config file. Returns ErrNotFound when the
// file does not exist so the caller can fall back to interactive setup.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads and validates a config file at an explicit path.
func LoadFrom(path string) (*Config, error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to the default location, creating the directory
// if needed. The file is written 0600 because it contains the password.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills in fields a config file or the connection form may
// omit.
func (c *Config) ApplyDefaults() {
	if c.Scheme == "" {
		c.Scheme = "http"
	}
	if c.Port == 0 {
		if c.Scheme == "https" {
			c.Port = 5001
		} else {
			c.Port = 5000
		}
	}
	if c.PollIntervalSecs == 0 {
		c.PollIntervalSecs = int(DefaultPollInterval / time.Second)
	}
}

// Validate checks the config for values the client cannot work with.
func (c *Config) Validate() error {
	c.Host = strings.TrimSuffix(strings.TrimSpace(c.Host), "/")
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", c.Scheme)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if c.Username == "" {
		return fmt.Errorf("username must not be empty")
	}
	if time.Duration(c.PollIntervalSecs)*time.Second < MinPollInterval {
		return fmt.Errorf("poll_interval must be at least %d seconds", int(MinPollInterval/time.Second))
	}
	if _, err := url.Parse(c.BaseURL()); err != nil {
		return fmt.Errorf("invalid server address %q: %w", c.BaseURL(), err)
	}
	return nil
}

// BaseURL returns the server base URL, e.g. "https://nas.local:5001".
func (c *Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}
