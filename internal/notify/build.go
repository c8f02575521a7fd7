package notify

import (
	"fmt"
	"strings"

	"github.com/lcrostarosa/lastword/internal/emergency"
	apperrors "github.com/lcrostarosa/lastword/internal/errors"
)

// Provider setting keys
const (
	SettingAPIKey   = "api_key"
	SettingFrom     = "from"
	SettingBaseURL  = "base_url"
	SettingURL      = "url"
	SettingToken    = "token"
	SettingChatID   = "chat_id"
	SettingEndpoint = "endpoint"
	SettingKinds    = "kinds"
)

// FromConfig builds a dispatcher from the enabled providers. The primary is
// the first enabled Resend provider, else the first provider that addresses
// recipients, else the first enabled one. All others become mirrors. Chat
// mirrors default to reminders only, so the final letter never lands in a
// chat unless kinds says so.
func FromConfig(cfg *emergency.NotifyConfig) (*Fanout, error) {
	ids := cfg.EnabledIDs()
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no notification providers enabled", apperrors.ErrConfigurationMissing)
	}

	primaryID := ids[0]
	for _, id := range ids {
		if emergency.AddressesRecipients(cfg.Providers[id].Type) {
			primaryID = id
			break
		}
	}
	for _, id := range ids {
		if cfg.Providers[id].Type == emergency.ProviderResend {
			primaryID = id
			break
		}
	}

	primary, err := build(cfg.Providers[primaryID])
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", primaryID, err)
	}

	var mirrors []Mirror
	for _, id := range ids {
		if id == primaryID {
			continue
		}
		p := cfg.Providers[id]
		d, err := build(p)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", id, err)
		}
		kinds := parseKinds(p.Setting(SettingKinds))
		if len(kinds) == 0 && !emergency.AddressesRecipients(p.Type) {
			kinds = []Kind{KindReminder}
		}
		mirrors = append(mirrors, Mirror{Dispatcher: d, Kinds: kinds})
	}

	return NewFanout(primary, mirrors...), nil
}

func build(p emergency.Provider) (Dispatcher, error) {
	switch p.Type {
	case emergency.ProviderResend:
		var opts []ResendOption
		if base := p.Setting(SettingBaseURL); base != "" {
			opts = append(opts, WithResendBaseURL(base))
		}
		return NewResendDispatcher(p.Setting(SettingAPIKey), p.Setting(SettingFrom), opts...)
	case emergency.ProviderWebhook:
		return NewWebhookDispatcher(p.Setting(SettingURL), p.Setting(SettingToken), nil)
	case emergency.ProviderTelegram:
		return NewTelegramDispatcher(p.Setting(SettingToken), p.Setting(SettingChatID), p.Setting(SettingEndpoint))
	default:
		return nil, fmt.Errorf("unknown provider type %q", p.Type)
	}
}

func parseKinds(raw string) []Kind {
	var kinds []Kind
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, Kind(k))
		}
	}
	return kinds
}
