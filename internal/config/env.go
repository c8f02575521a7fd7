package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// Environment variable names. The unprefixed names are kept so existing
// deployments can move over without renaming anything.
const (
	EnvCheckInSecret    = "KEEPALIVE_SECRET"
	EnvCronSecret       = "CRON_SECRET"
	EnvInactivityDays   = "INACTIVITY_DAYS"
	EnvOwnerEmail       = "YOUR_EMAIL"
	EnvSender           = "SENDER_EMAIL"
	EnvResendAPIKey     = "RESEND_API_KEY"
	EnvTerminalSubject  = "EMAIL_SUBJECT"
	EnvReminderSubject  = "KEEPALIVE_EMAIL_SUBJECT"
	EnvFarewellHTML     = "FAREWELL_LETTER_HTML"
	EnvImportantHTML    = "IMPORTANT_INFO_HTML"
	EnvRecipients       = "RECIPIENT_EMAILS"
	EnvBaseURL          = "BASE_URL"
	EnvPublicBaseURL    = "NEXT_PUBLIC_BASE_URL"
	EnvRedisURL         = "REDIS_URL"
	EnvKVURL            = "KV_URL"
	EnvCronSecretHash   = "LASTWORD_CRON_SECRET_HASH"
	EnvListenAddr       = "LASTWORD_LISTEN_ADDR"
	EnvRedirectURL      = "LASTWORD_CHECKIN_REDIRECT_URL"
	EnvSchedule         = "LASTWORD_SCHEDULE"
	EnvStorageBackend   = "LASTWORD_STORAGE_BACKEND"
	EnvStoragePath      = "LASTWORD_STORAGE_PATH"
	EnvStorageURL       = "LASTWORD_STORAGE_URL"
	EnvStorageFallback  = "LASTWORD_STORAGE_FALLBACK"
	EnvLogLevel         = "LASTWORD_LOG_LEVEL"
	EnvLogJSON          = "LASTWORD_LOG_JSON"
	EnvMetricsEnabled   = "LASTWORD_METRICS_ENABLED"
	EnvTelegramToken    = "LASTWORD_TELEGRAM_TOKEN"
	EnvTelegramChatID   = "LASTWORD_TELEGRAM_CHAT_ID"
	EnvWebhookURL       = "LASTWORD_WEBHOOK_URL"
	EnvResetOnFinalSend = "LASTWORD_RESET_TIMER_ON_FINAL_SEND"
)

// Provider ids created from the environment
const (
	EnvProviderEmail    = "email"
	EnvProviderTelegram = "telegram"
	EnvProviderWebhook  = "webhook"
)

// lookupFunc resolves an environment variable
type lookupFunc func(key string) (string, bool)

// readEnv layers the process environment over the optional .env file
func readEnv(configDir string) (lookupFunc, error) {
	fileEnv, err := godotenv.Read(filepath.Join(configDir, EnvFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("parse %s: %w", EnvFile, err)
		}
		fileEnv = map[string]string{}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}, nil
}

// applyEnv overrides fields from the environment and returns how many
// variables were applied. A variable that is set but cannot be used is an
// error, never a silent fallback.
func (c *Config) applyEnv(lookup lookupFunc) (int, error) {
	applied := 0
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
			applied++
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
				applied++
			}
		}
	}

	str(EnvCheckInSecret, &c.CheckInSecret)
	str(EnvCronSecret, &c.CronSecret)
	str(EnvCronSecretHash, &c.CronSecretHash)
	str(EnvOwnerEmail, &c.Owner.Email)
	str(EnvSender, &c.Sender)
	str(EnvTerminalSubject, &c.Terminal.Subject)
	str(EnvReminderSubject, &c.Owner.ReminderSubject)
	str(EnvFarewellHTML, &c.Terminal.FarewellHTML)
	str(EnvImportantHTML, &c.Terminal.ImportantInfoHTML)
	str(EnvPublicBaseURL, &c.PublicBaseURL)
	str(EnvBaseURL, &c.PublicBaseURL)
	str(EnvListenAddr, &c.ListenAddr)
	str(EnvRedirectURL, &c.CheckInRedirectURL)
	str(EnvSchedule, &c.Schedule)
	str(EnvStorageBackend, &c.Storage.Backend)
	str(EnvStoragePath, &c.Storage.Path)
	str(EnvStorageURL, &c.Storage.URL)
	boolean(EnvStorageFallback, &c.Storage.Fallback)
	str(EnvLogLevel, &c.Log.Level)
	boolean(EnvLogJSON, &c.Log.JSON)
	boolean(EnvMetricsEnabled, &c.Metrics.Enabled)

	if v, ok := lookup(EnvRecipients); ok && v != "" {
		c.Terminal.Recipients = splitList(v)
		applied++
	}

	if c.Emergency == nil {
		c.Emergency = emergency.NewConfig()
	}
	if c.Emergency.DeadManSwitch == nil {
		c.Emergency.DeadManSwitch = &emergency.DeadManSwitchConfig{}
	}
	if v, ok := lookup(EnvInactivityDays); ok && strings.TrimSpace(v) != "" {
		days, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || days < 1 {
			return applied, fmt.Errorf("%w: %s must be a whole number of days >= 1, got %q",
				apperrors.ErrConfigurationMissing, EnvInactivityDays, v)
		}
		c.Emergency.DeadManSwitch.InactivityDays = days
		applied++
	}
	if v, ok := lookup(EnvResetOnFinalSend); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Emergency.DeadManSwitch.ResetTimerOnFinalSend = &b
			applied++
		}
	}

	// a bare redis url selects the redis backend unless another was chosen
	for _, key := range []string{EnvRedisURL, EnvKVURL} {
		if v, ok := lookup(key); ok && v != "" && c.Storage.URL == "" {
			c.Storage.URL = v
			if c.Storage.Backend == "" {
				c.Storage.Backend = storage.BackendRedis
			}
			applied++
		}
	}

	if v, ok := lookup(EnvResendAPIKey); ok && v != "" {
		c.envProvider(EnvProviderEmail, emergency.ProviderResend, map[string]string{"api_key": v})
		applied++
	}
	if v, ok := lookup(EnvWebhookURL); ok && v != "" {
		c.envProvider(EnvProviderWebhook, emergency.ProviderWebhook, map[string]string{"url": v})
		applied++
	}
	token, hasToken := lookup(EnvTelegramToken)
	chat, hasChat := lookup(EnvTelegramChatID)
	if hasToken && hasChat && token != "" && chat != "" {
		c.envProvider(EnvProviderTelegram, emergency.ProviderTelegram, map[string]string{"token": token, "chat_id": chat})
		applied++
	}

	return applied, nil
}

// envProvider merges settings into a provider, creating and enabling it
func (c *Config) envProvider(id, typ string, settings map[string]string) {
	n := c.Emergency.EnsureNotify()
	p, ok := n.Providers[id]
	if !ok {
		p = emergency.Provider{Type: typ}
	}
	if p.Settings == nil {
		p.Settings = map[string]string{}
	}
	for k, v := range settings {
		p.Settings[k] = v
	}
	p.Enabled = true
	n.AddProvider(id, p)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
