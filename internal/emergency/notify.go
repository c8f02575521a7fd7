package emergency

import "sort"

// Provider types understood by the notify package
const (
	ProviderResend   = "resend"
	ProviderWebhook  = "webhook"
	ProviderTelegram = "telegram"
)

// AddressesRecipients reports whether a provider type delivers to the
// message's recipient list. A chat bot posts to its one configured chat.
func AddressesRecipients(providerType string) bool {
	return providerType == ProviderResend || providerType == ProviderWebhook
}

// NotifyConfig defines the notification channels. The first enabled email
// provider is the primary channel; the others mirror it.
type NotifyConfig struct {
	Providers map[string]Provider `json:"providers" yaml:"providers"`
}

// Provider defines a notification provider
type Provider struct {
	Type     string            `json:"type" yaml:"type"`
	Enabled  bool              `json:"enabled" yaml:"enabled"`
	Settings map[string]string `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// Setting returns a provider setting or "" (nil-safe)
func (p Provider) Setting(key string) string {
	if p.Settings == nil {
		return ""
	}
	return p.Settings[key]
}

// HasProviders returns true if providers are configured (nil-safe)
func (n *NotifyConfig) HasProviders() bool {
	return n != nil && len(n.Providers) > 0
}

// ProviderCount returns the number of configured providers (nil-safe)
func (n *NotifyConfig) ProviderCount() int {
	if n == nil {
		return 0
	}
	return len(n.Providers)
}

// AddProvider adds a notification provider (nil-safe - no-op if nil)
func (n *NotifyConfig) AddProvider(id string, p Provider) {
	if n == nil {
		return
	}
	if n.Providers == nil {
		n.Providers = make(map[string]Provider)
	}
	n.Providers[id] = p
}

// RemoveProvider removes a notification provider (nil-safe)
func (n *NotifyConfig) RemoveProvider(id string) {
	if n == nil {
		return
	}
	delete(n.Providers, id)
}

// EnabledIDs returns the ids of enabled providers in a stable order (nil-safe)
func (n *NotifyConfig) EnabledIDs() []string {
	if n == nil {
		return nil
	}
	ids := make([]string, 0, len(n.Providers))
	for id, p := range n.Providers {
		if p.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CanReachRecipients reports whether an enabled provider can deliver to
// beneficiaries (nil-safe)
func (n *NotifyConfig) CanReachRecipients() bool {
	if n == nil {
		return false
	}
	for _, p := range n.Providers {
		if p.Enabled && AddressesRecipients(p.Type) {
			return true
		}
	}
	return false
}
