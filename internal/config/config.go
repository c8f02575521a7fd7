// Package config manages lastword configuration
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/logging"
	"github.com/lcrostarosa/lastword/internal/service"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// File names inside the config directory
const (
	JSONFile = "config.json"
	YAMLFile = "config.yaml"
	EnvFile  = ".env"
)

// DefaultListenAddr is used by serve when nothing is configured
const DefaultListenAddr = ":8080"

// OwnerConfig describes who receives reminders
type OwnerConfig struct {
	Email           string `json:"email,omitempty" yaml:"email,omitempty"`
	ReminderSubject string `json:"reminder_subject,omitempty" yaml:"reminder_subject,omitempty"`
}

// TerminalConfig describes the final notification
type TerminalConfig struct {
	Recipients        []string `json:"recipients,omitempty" yaml:"recipients,omitempty"`
	Subject           string   `json:"subject,omitempty" yaml:"subject,omitempty"`
	FarewellHTML      string   `json:"farewell_html,omitempty" yaml:"farewell_html,omitempty"`
	ImportantInfoHTML string   `json:"important_info_html,omitempty" yaml:"important_info_html,omitempty"`
}

// RateLimitConfig limits check-in attempts per client IP
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty"`
	Burst             int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Config represents the lastword configuration
type Config struct {
	// HTTP
	ListenAddr         string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	PublicBaseURL      string `json:"public_base_url,omitempty" yaml:"public_base_url,omitempty"`
	CheckInRedirectURL string `json:"check_in_redirect_url,omitempty" yaml:"check_in_redirect_url,omitempty"`

	// Credentials
	CronSecret     string `json:"cron_secret,omitempty" yaml:"cron_secret,omitempty"`
	CronSecretHash string `json:"cron_secret_hash,omitempty" yaml:"cron_secret_hash,omitempty"`
	CheckInSecret  string `json:"check_in_secret,omitempty" yaml:"check_in_secret,omitempty"`

	// Notifications
	Sender   string         `json:"sender,omitempty" yaml:"sender,omitempty"`
	Owner    OwnerConfig    `json:"owner" yaml:"owner"`
	Terminal TerminalConfig `json:"terminal" yaml:"terminal"`

	// Switch policy and notification providers
	Emergency *emergency.Config `json:"emergency,omitempty" yaml:"emergency,omitempty"`

	// In-process scheduling for serve, e.g. "daily" or "0 9 * * *"
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`

	Storage   storage.Config  `json:"storage" yaml:"storage"`
	Log       logging.Config  `json:"log" yaml:"log"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// Paths (not serialized)
	ConfigDir string `json:"-" yaml:"-"`
	format    string
}

// Default returns a config with the default switch policy
func Default() *Config {
	return &Config{
		Emergency: emergency.NewConfig(),
		Log:       logging.DefaultConfig(),
		format:    JSONFile,
	}
}

// DefaultConfigDir returns the default config directory
func DefaultConfigDir() string {
	if dir := os.Getenv("LASTWORD_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lastword")
}

// Load reads config.yaml or config.json from configDir, then applies .env and
// the process environment on top. Without a config file the environment alone
// may configure the switch; with neither, ErrNotInitialized is returned.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg, err := readFile(configDir)
	fromFile := err == nil
	if err != nil && err != apperrors.ErrNotInitialized {
		return nil, err
	}
	if !fromFile {
		cfg = Default()
	}
	cfg.ConfigDir = configDir

	env, err := readEnv(configDir)
	if err != nil {
		return nil, err
	}
	applied, err := cfg.applyEnv(env)
	if err != nil {
		return nil, err
	}

	if !fromFile && applied == 0 {
		return nil, apperrors.ErrNotInitialized
	}
	cfg.normalize()
	return cfg, nil
}

func readFile(configDir string) (*Config, error) {
	for _, name := range []string{YAMLFile, JSONFile} {
		data, err := os.ReadFile(filepath.Join(configDir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}

		cfg := &Config{format: name}
		if name == YAMLFile {
			err = yaml.Unmarshal(data, cfg)
		} else {
			err = json.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return cfg, nil
	}
	return nil, apperrors.ErrNotInitialized
}

// Exists checks if a config file exists
func Exists(configDir string) bool {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	for _, name := range []string{YAMLFile, JSONFile} {
		if _, err := os.Stat(filepath.Join(configDir, name)); err == nil {
			return true
		}
	}
	return false
}

// Save writes the configuration back in the format it was loaded from
func (c *Config) Save() error {
	if c.ConfigDir == "" {
		c.ConfigDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	name := c.format
	if name == YAMLFile {
		data, err = yaml.Marshal(c)
	} else {
		name = JSONFile
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.ConfigDir, name), data, 0600)
}

// UseFormat selects the file Save writes: YAMLFile or JSONFile
func (c *Config) UseFormat(name string) error {
	if name != YAMLFile && name != JSONFile {
		return fmt.Errorf("unsupported config format %q", name)
	}
	c.format = name
	return nil
}

// Path returns the config file location
func (c *Config) Path() string {
	name := c.format
	if name == "" {
		name = JSONFile
	}
	return filepath.Join(c.ConfigDir, name)
}

func (c *Config) normalize() {
	if c.Emergency == nil {
		c.Emergency = emergency.NewConfig()
	}
	if c.Emergency.DeadManSwitch == nil {
		c.Emergency.DeadManSwitch = &emergency.DeadManSwitchConfig{}
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	recipients := c.Terminal.Recipients[:0]
	for _, r := range c.Terminal.Recipients {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	c.Terminal.Recipients = recipients
}

// Switch returns the dead man's switch policy (never nil after Load)
func (c *Config) Switch() *emergency.DeadManSwitchConfig {
	return c.Emergency.GetDeadManSwitch()
}

// HasCronCredential reports whether scheduled endpoints can authenticate callers
func (c *Config) HasCronCredential() bool {
	return c.CronSecret != "" || c.CronSecretHash != ""
}

// Validate checks the settings every invocation needs. Phase-specific
// settings are optional; a phase without them is skipped. Settings that are
// present but unusable are reported.
func (c *Config) Validate() error {
	var missing []string
	if c.CheckInSecret == "" {
		missing = append(missing, "check_in_secret")
	}
	notify := c.Emergency.GetNotify()
	if !notify.HasProviders() || len(notify.EnabledIDs()) == 0 {
		missing = append(missing, "emergency.notify.providers")
	} else if c.ServiceOptions().TerminalConfigured() && !notify.CanReachRecipients() {
		missing = append(missing, "emergency.notify.providers (no enabled provider can deliver to terminal.recipients)")
	}
	if sw := c.Switch(); sw != nil && sw.InactivityDays < 0 {
		missing = append(missing, "emergency.dead_man_switch.inactivity_days (must be >= 1)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// ServiceOptions builds the switch options
func (c *Config) ServiceOptions() service.Options {
	return service.Options{
		Switch:            c.Switch(),
		CheckInSecret:     c.CheckInSecret,
		PublicBaseURL:     c.PublicBaseURL,
		Sender:            c.Sender,
		OwnerEmail:        c.Owner.Email,
		ReminderSubject:   c.Owner.ReminderSubject,
		Beneficiaries:     c.Terminal.Recipients,
		TerminalSubject:   c.Terminal.Subject,
		FarewellHTML:      c.Terminal.FarewellHTML,
		ImportantInfoHTML: c.Terminal.ImportantInfoHTML,
	}
}
