package emergency

// Config holds the dead man's switch settings
type Config struct {
	DeadManSwitch *DeadManSwitchConfig `json:"dead_man_switch,omitempty" yaml:"dead_man_switch,omitempty"`
	Notify        *NotifyConfig        `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// NewConfig creates a config with the default send policy. The inactivity
// threshold is left unset; until one is configured the final message is never
// sent.
func NewConfig() *Config {
	return &Config{
		DeadManSwitch: &DeadManSwitchConfig{
			FinalSendLimit: DefaultFinalSendLimit,
		},
	}
}

// GetDeadManSwitch returns dead man's switch config (nil-safe)
func (c *Config) GetDeadManSwitch() *DeadManSwitchConfig {
	if c == nil {
		return nil
	}
	return c.DeadManSwitch
}

// GetNotify returns notify config (nil-safe)
func (c *Config) GetNotify() *NotifyConfig {
	if c == nil {
		return nil
	}
	return c.Notify
}

// WithDeadManSwitch sets the inactivity threshold
func (c *Config) WithDeadManSwitch(inactivityDays int) *Config {
	if c.DeadManSwitch == nil {
		c.DeadManSwitch = &DeadManSwitchConfig{}
	}
	c.DeadManSwitch.InactivityDays = inactivityDays
	return c
}

// EnsureNotify ensures the Notify section exists
func (c *Config) EnsureNotify() *NotifyConfig {
	if c.Notify == nil {
		c.Notify = &NotifyConfig{Providers: make(map[string]Provider)}
	}
	return c.Notify
}
