package runner

import (
	"context"
	"fmt"
	"sync"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lcrostarosa/lastword/internal/config"
	"github.com/lcrostarosa/lastword/internal/metrics"
	"github.com/lcrostarosa/lastword/internal/notify"
	"github.com/lcrostarosa/lastword/internal/service"
	"github.com/lcrostarosa/lastword/internal/storage"
)

// CommandContext provides shared dependencies to command handlers.
// Dependencies are lazily initialized on first access to avoid unnecessary work.
type CommandContext struct {
	// Config is the loaded configuration (may be nil if not initialized)
	Config *config.Config

	// ConfigErr is the error from loading config, if any
	ConfigErr error

	mu         sync.Mutex
	store      storage.Store
	dispatcher *notify.Fanout
	registry   *prom.Registry
	recorder   metrics.Recorder
}

// NewContext creates a new CommandContext with the given config.
func NewContext(cfg *config.Config, cfgErr error) *CommandContext {
	return &CommandContext{
		Config:    cfg,
		ConfigErr: cfgErr,
	}
}

// HasConfig returns true if config is loaded successfully.
func (c *CommandContext) HasConfig() bool {
	return c.Config != nil && c.ConfigErr == nil
}

// SaveConfig saves the configuration with standardized error wrapping.
func (c *CommandContext) SaveConfig() error {
	if c.Config == nil {
		return ErrNotInitialized
	}
	if err := c.Config.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Store opens the configured state store once per command
func (c *CommandContext) Store(ctx context.Context) (storage.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	if c.Config == nil {
		return nil, ErrNotInitialized
	}
	s, err := storage.Open(ctx, c.Config.Storage, c.Config.ConfigDir)
	if err != nil {
		return nil, err
	}
	c.store = s
	return s, nil
}

// SetStore injects a store, for tests
func (c *CommandContext) SetStore(s storage.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = s
}

// Dispatcher builds the notification fan-out from the enabled providers
func (c *CommandContext) Dispatcher() (notify.Dispatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher != nil {
		return c.dispatcher, nil
	}
	if c.Config == nil {
		return nil, ErrNotInitialized
	}
	d, err := notify.FromConfig(c.Config.Emergency.GetNotify())
	if err != nil {
		return nil, err
	}
	c.dispatcher = d
	return d, nil
}

// Metrics returns the Prometheus registry (nil when metrics are disabled)
// and the recorder services report to
func (c *CommandContext) Metrics() (*prom.Registry, metrics.Recorder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recorder == nil {
		if c.Config != nil && c.Config.Metrics.Enabled {
			c.registry = metrics.NewRegistry()
			c.recorder = metrics.NewPrometheusRecorder(c.registry)
		} else {
			c.recorder = metrics.NoopRecorder{}
		}
	}
	return c.registry, c.recorder
}

// SwitchService wires the scheduled check orchestrator
func (c *CommandContext) SwitchService(ctx context.Context) (*service.SwitchService, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	dispatcher, err := c.Dispatcher()
	if err != nil {
		return nil, err
	}
	_, rec := c.Metrics()
	return service.NewSwitchService(c.Config.ServiceOptions(), store, dispatcher, service.WithRecorder(rec)), nil
}

// CheckInService wires the check-in handler
func (c *CommandContext) CheckInService(ctx context.Context) (*service.CheckInService, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	_, rec := c.Metrics()
	return service.NewCheckInService(c.Config.CheckInSecret, store, service.WithRecorder(rec)), nil
}

// StatusService wires the read-only status view
func (c *CommandContext) StatusService(ctx context.Context) (*service.StatusService, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	_, rec := c.Metrics()
	return service.NewStatusService(c.Config.Switch(), store, service.WithRecorder(rec)), nil
}

// Close releases the store if one was opened
func (c *CommandContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
