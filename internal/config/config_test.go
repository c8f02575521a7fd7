// Package config tests
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// --- Helper functions ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func writeJSON(t *testing.T, dir string, cfg *Config) {
	t.Helper()
	data, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	writeFile(t, dir, JSONFile, string(data))
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvCheckInSecret, EnvCronSecret, EnvInactivityDays, EnvOwnerEmail, EnvSender,
		EnvResendAPIKey, EnvTerminalSubject, EnvReminderSubject, EnvFarewellHTML,
		EnvImportantHTML, EnvRecipients, EnvBaseURL, EnvPublicBaseURL, EnvRedisURL,
		EnvKVURL, EnvCronSecretHash, EnvListenAddr, EnvRedirectURL, EnvSchedule,
		EnvStorageBackend, EnvStoragePath, EnvStorageURL, EnvStorageFallback,
		EnvLogLevel, EnvLogJSON, EnvMetricsEnabled, EnvTelegramToken,
		EnvTelegramChatID, EnvWebhookURL, EnvResetOnFinalSend,
	} {
		t.Setenv(key, "")
	}
}

// --- Load tests ---

func TestLoad(t *testing.T) {
	t.Run("loads json config", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		expected := Default()
		expected.CheckInSecret = "checkin"
		expected.CronSecret = "cron"
		expected.ListenAddr = ":9090"
		expected.Owner.Email = "owner@example.com"
		expected.Emergency.WithDeadManSwitch(14)
		writeJSON(t, dir, expected)

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "checkin", cfg.CheckInSecret)
		assert.Equal(t, ":9090", cfg.ListenAddr)
		assert.Equal(t, "owner@example.com", cfg.Owner.Email)
		assert.Equal(t, 14, cfg.Switch().GetInactivityDays())
		assert.Equal(t, dir, cfg.ConfigDir)
		assert.Equal(t, filepath.Join(dir, JSONFile), cfg.Path())
	})

	t.Run("loads yaml config", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, dir, YAMLFile, `
check_in_secret: checkin
cron_secret: cron
terminal:
  recipients: ["a@example.com", " b@example.com "]
  subject: Goodbye
emergency:
  dead_man_switch:
    inactivity_days: 7
    reset_timer_on_final_send: false
  notify:
    providers:
      email:
        type: resend
        enabled: true
        settings:
          api_key: re_123
storage:
  backend: sqlite
  path: switch.db
`)

		cfg, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Terminal.Recipients)
		assert.Equal(t, 7, cfg.Switch().GetInactivityDays())
		assert.False(t, cfg.Switch().ResetsTimer())
		assert.Equal(t, storage.BackendSQLite, cfg.Storage.Backend)
		assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
		assert.Equal(t, []string{"email"}, cfg.Emergency.GetNotify().EnabledIDs())
		assert.NoError(t, cfg.Validate())
	})

	t.Run("returns ErrNotInitialized without file or env", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load(t.TempDir())
		assert.Nil(t, cfg)
		assert.ErrorIs(t, err, apperrors.ErrNotInitialized)
	})

	t.Run("returns error for invalid JSON", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, dir, JSONFile, "{not json")

		_, err := Load(dir)
		assert.Error(t, err)
	})
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCheckInSecret, "keepalive")
	t.Setenv(EnvCronSecret, "cron")
	t.Setenv(EnvInactivityDays, "45")
	t.Setenv(EnvOwnerEmail, "me@example.com")
	t.Setenv(EnvSender, "switch@example.com")
	t.Setenv(EnvResendAPIKey, "re_abc")
	t.Setenv(EnvTerminalSubject, "Final")
	t.Setenv(EnvReminderSubject, "Ping")
	t.Setenv(EnvFarewellHTML, "<p>bye</p>")
	t.Setenv(EnvImportantHTML, "<p>info</p>")
	t.Setenv(EnvRecipients, "a@example.com, b@example.com,,")
	t.Setenv(EnvPublicBaseURL, "switch.example.com")
	t.Setenv(EnvKVURL, "redis://localhost:6379/0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "keepalive", cfg.CheckInSecret)
	assert.Equal(t, 45, cfg.Switch().GetInactivityDays())
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Terminal.Recipients)
	assert.Equal(t, storage.BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.URL)

	email := cfg.Emergency.GetNotify().Providers[EnvProviderEmail]
	assert.Equal(t, emergency.ProviderResend, email.Type)
	assert.True(t, email.Enabled)
	assert.Equal(t, "re_abc", email.Setting("api_key"))

	opts := cfg.ServiceOptions()
	assert.True(t, opts.ReminderConfigured())
	assert.True(t, opts.TerminalConfigured())
	assert.Equal(t, "switch.example.com", opts.PublicBaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg := Default()
	cfg.CheckInSecret = "from-file"
	cfg.Owner.Email = "file@example.com"
	writeJSON(t, dir, cfg)
	writeFile(t, dir, EnvFile, "KEEPALIVE_SECRET=from-dotenv\nYOUR_EMAIL=dotenv@example.com\n")
	t.Setenv(EnvCheckInSecret, "from-process")

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-process", loaded.CheckInSecret, "process env beats .env")
	assert.Equal(t, "dotenv@example.com", loaded.Owner.Email, ".env beats the config file")
}

func TestEnvProviders(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCheckInSecret, "x")
	t.Setenv(EnvTelegramToken, "123:abc")
	t.Setenv(EnvTelegramChatID, "42")
	t.Setenv(EnvWebhookURL, "https://hooks.example.com/lastword")
	t.Setenv(EnvResetOnFinalSend, "false")
	t.Setenv(EnvStorageFallback, "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	ids := cfg.Emergency.GetNotify().EnabledIDs()
	assert.Equal(t, []string{EnvProviderTelegram, EnvProviderWebhook}, ids)
	assert.False(t, cfg.Switch().ResetsTimer())
	assert.True(t, cfg.Storage.Fallback)
}

func TestInactivityDaysFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
		days    int
	}{
		{name: "unset", value: ""},
		{name: "whole days", value: "14", days: 14},
		{name: "padded", value: " 7 ", days: 7},
		{name: "unit suffix", value: "7d", wantErr: true},
		{name: "zero", value: "0", wantErr: true},
		{name: "negative", value: "-5", wantErr: true},
		{name: "fraction", value: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvCheckInSecret, "keepalive")
			t.Setenv(EnvInactivityDays, tt.value)

			cfg, err := Load(t.TempDir())
			if tt.wantErr {
				require.ErrorIs(t, err, apperrors.ErrConfigurationMissing)
				assert.Contains(t, err.Error(), EnvInactivityDays)
				return
			}
			require.NoError(t, err)
			if tt.days == 0 {
				assert.False(t, cfg.Switch().HasThreshold())
				return
			}
			assert.True(t, cfg.Switch().HasThreshold())
			assert.Equal(t, tt.days, cfg.Switch().GetInactivityDays())
		})
	}
}

func TestUnsetThresholdDisablesTerminal(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCheckInSecret, "keepalive")
	t.Setenv(EnvResendAPIKey, "re_abc")
	t.Setenv(EnvSender, "switch@example.com")
	t.Setenv(EnvRecipients, "a@example.com")
	t.Setenv(EnvTerminalSubject, "Final")
	t.Setenv(EnvFarewellHTML, "<p>bye</p>")
	t.Setenv(EnvImportantHTML, "<p>info</p>")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.False(t, cfg.ServiceOptions().TerminalConfigured())
	assert.NoError(t, cfg.Validate())

	t.Setenv(EnvInactivityDays, "10")
	cfg, err = Load(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.ServiceOptions().TerminalConfigured())
}

// --- Validate tests ---

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.normalize()

	err := cfg.Validate()
	assert.ErrorIs(t, err, apperrors.ErrConfigurationMissing)
	assert.Contains(t, err.Error(), "check_in_secret")
	assert.Contains(t, err.Error(), "emergency.notify.providers")

	cfg.CheckInSecret = "s"
	cfg.Emergency.EnsureNotify().AddProvider("email", emergency.Provider{Type: emergency.ProviderResend})
	assert.Error(t, cfg.Validate(), "disabled providers do not count")

	p := cfg.Emergency.Notify.Providers["email"]
	p.Enabled = true
	cfg.Emergency.Notify.AddProvider("email", p)
	assert.NoError(t, cfg.Validate())

	t.Run("negative threshold in file", func(t *testing.T) {
		cfg.Emergency.WithDeadManSwitch(-5)
		defer cfg.Emergency.WithDeadManSwitch(0)

		err := cfg.Validate()
		assert.ErrorIs(t, err, apperrors.ErrConfigurationMissing)
		assert.Contains(t, err.Error(), "inactivity_days")
	})
}

func TestValidateTelegramOnlyTerminal(t *testing.T) {
	cfg := Default()
	cfg.normalize()
	cfg.CheckInSecret = "s"
	cfg.Sender = "switch@example.com"
	cfg.Terminal.Recipients = []string{"a@example.com"}
	cfg.Terminal.Subject = "Final"
	cfg.Terminal.FarewellHTML = "<p>bye</p>"
	cfg.Terminal.ImportantInfoHTML = "<p>info</p>"
	cfg.Emergency.WithDeadManSwitch(30)
	cfg.Emergency.EnsureNotify().AddProvider("chat", emergency.Provider{
		Type:     emergency.ProviderTelegram,
		Enabled:  true,
		Settings: map[string]string{"token": "123:abc", "chat_id": "42"},
	})

	err := cfg.Validate()
	require.ErrorIs(t, err, apperrors.ErrConfigurationMissing)
	assert.Contains(t, err.Error(), "terminal.recipients")

	cfg.Emergency.Notify.AddProvider("hook", emergency.Provider{
		Type:     emergency.ProviderWebhook,
		Enabled:  true,
		Settings: map[string]string{"url": "https://hooks.example.com"},
	})
	assert.NoError(t, cfg.Validate())

	cfg.Terminal.FarewellHTML = ""
	cfg.Emergency.Notify.RemoveProvider("hook")
	assert.NoError(t, cfg.Validate(), "a reminder-only switch may use a chat provider")
}

func TestHasCronCredential(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.HasCronCredential())
	cfg.CronSecretHash = "$argon2id$..."
	assert.True(t, cfg.HasCronCredential())
}

// --- Save tests ---

func TestSave(t *testing.T) {
	t.Run("round trips json", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		cfg := Default()
		cfg.ConfigDir = dir
		cfg.CheckInSecret = "saved"
		require.NoError(t, cfg.Save())

		info, err := os.Stat(filepath.Join(dir, JSONFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "saved", loaded.CheckInSecret)
	})

	t.Run("keeps yaml format", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, dir, YAMLFile, "check_in_secret: one\n")

		cfg, err := Load(dir)
		require.NoError(t, err)
		cfg.CheckInSecret = "two"
		require.NoError(t, cfg.Save())

		assert.NoFileExists(t, filepath.Join(dir, JSONFile))
		loaded, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, "two", loaded.CheckInSecret)
	})
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir))
	writeFile(t, dir, YAMLFile, "{}")
	assert.True(t, Exists(dir))
}
