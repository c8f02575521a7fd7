package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lcrostarosa/lastword/internal/config"
	"github.com/lcrostarosa/lastword/internal/emergency"
	"github.com/lcrostarosa/lastword/internal/notify"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// ClearEnv blanks every variable config.Load reads so the host environment
// cannot leak into a test
func ClearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvCheckInSecret, config.EnvCronSecret, config.EnvInactivityDays,
		config.EnvOwnerEmail, config.EnvSender, config.EnvResendAPIKey,
		config.EnvTerminalSubject, config.EnvReminderSubject, config.EnvFarewellHTML,
		config.EnvImportantHTML, config.EnvRecipients, config.EnvBaseURL,
		config.EnvPublicBaseURL, config.EnvRedisURL, config.EnvKVURL,
		config.EnvCronSecretHash, config.EnvListenAddr, config.EnvRedirectURL,
		config.EnvSchedule, config.EnvStorageBackend, config.EnvStoragePath,
		config.EnvStorageURL, config.EnvStorageFallback, config.EnvLogLevel,
		config.EnvLogJSON, config.EnvMetricsEnabled, config.EnvTelegramToken,
		config.EnvTelegramChatID, config.EnvWebhookURL, config.EnvResetOnFinalSend,
	} {
		t.Setenv(key, "")
	}
}

// ConfigFixture is a configuration saved to a temporary directory
type ConfigFixture struct {
	// Dir is the config directory path
	Dir string
	// Config is the configuration as written
	Config *config.Config
}

// ConfigFixtureBuilder constructs config fixtures
type ConfigFixtureBuilder struct {
	t          *testing.T
	dir        string
	format     string
	days       int
	webhookURL string
	resendKey  string
	recipients []string
	farewell   string
	info       string
	backend    string
	baseURL    string
}

// NewConfigFixture starts building a fully configured switch: reminders go
// to owner@example.com and the final message to friend@example.com.
func NewConfigFixture(t *testing.T) *ConfigFixtureBuilder {
	return &ConfigFixtureBuilder{
		t:          t,
		dir:        t.TempDir(),
		format:     config.YAMLFile,
		days:       emergency.DefaultInactivityDays,
		recipients: []string{"friend@example.com"},
		farewell:   "<p>Thank you for everything.</p>",
		info:       "<p>The documents are in the blue folder.</p>",
		backend:    storage.BackendFile,
		baseURL:    "https://switch.example.com",
	}
}

// WithDir sets the config directory
func (b *ConfigFixtureBuilder) WithDir(dir string) *ConfigFixtureBuilder {
	b.dir = dir
	return b
}

// AsJSON writes config.json instead of config.yaml
func (b *ConfigFixtureBuilder) AsJSON() *ConfigFixtureBuilder {
	b.format = config.JSONFile
	return b
}

// WithInactivityDays sets the switch threshold
func (b *ConfigFixtureBuilder) WithInactivityDays(days int) *ConfigFixtureBuilder {
	b.days = days
	return b
}

// WithWebhook enables the webhook provider
func (b *ConfigFixtureBuilder) WithWebhook(url string) *ConfigFixtureBuilder {
	b.webhookURL = url
	return b
}

// WithResend enables the resend provider
func (b *ConfigFixtureBuilder) WithResend(apiKey string) *ConfigFixtureBuilder {
	b.resendKey = apiKey
	return b
}

// WithRecipients replaces the beneficiaries
func (b *ConfigFixtureBuilder) WithRecipients(recipients ...string) *ConfigFixtureBuilder {
	b.recipients = recipients
	return b
}

// WithoutLetter leaves the farewell letter empty, so the final phase is skipped
func (b *ConfigFixtureBuilder) WithoutLetter() *ConfigFixtureBuilder {
	b.farewell = ""
	b.info = ""
	return b
}

// WithStorage selects the state store backend
func (b *ConfigFixtureBuilder) WithStorage(backend string) *ConfigFixtureBuilder {
	b.backend = backend
	return b
}

// Build saves the configuration and returns the fixture
func (b *ConfigFixtureBuilder) Build() *ConfigFixture {
	b.t.Helper()

	cfg := config.Default()
	cfg.ConfigDir = b.dir
	require.NoError(b.t, cfg.UseFormat(b.format))
	cfg.CheckInSecret = "checkin-secret"
	cfg.CronSecret = "cron-secret"
	cfg.PublicBaseURL = b.baseURL
	cfg.Sender = "switch@example.com"
	cfg.Owner = config.OwnerConfig{Email: "owner@example.com", ReminderSubject: "Are you still there?"}
	cfg.Terminal = config.TerminalConfig{
		Recipients:        b.recipients,
		Subject:           "A message left for you",
		FarewellHTML:      b.farewell,
		ImportantInfoHTML: b.info,
	}
	cfg.Emergency.WithDeadManSwitch(b.days)
	cfg.Storage.Backend = b.backend

	n := cfg.Emergency.EnsureNotify()
	if b.resendKey != "" {
		n.AddProvider(config.EnvProviderEmail, emergency.Provider{
			Type: emergency.ProviderResend, Enabled: true,
			Settings: map[string]string{notify.SettingAPIKey: b.resendKey},
		})
	}
	if b.webhookURL != "" {
		n.AddProvider(config.EnvProviderWebhook, emergency.Provider{
			Type: emergency.ProviderWebhook, Enabled: true,
			Settings: map[string]string{notify.SettingURL: b.webhookURL},
		})
	}

	require.NoError(b.t, cfg.Save())
	return &ConfigFixture{Dir: b.dir, Config: cfg}
}

// OpenStore opens the state store the fixture points at. It is closed when
// the test ends.
func (f *ConfigFixture) OpenStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), f.Config.Storage, f.Dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SeedLastActive records a check-in at ms in the fixture's store
func (f *ConfigFixture) SeedLastActive(t *testing.T, ms int64) {
	t.Helper()
	s := f.OpenStore(t)
	require.NoError(t, storage.SetLastActive(context.Background(), s, ms))
}
