package runner

import (
	"github.com/spf13/cobra"

	"github.com/lcrostarosa/lastword/internal/config"
)

// ConfigProvider returns the configuration loaded at startup and its load
// error. Commands read it at run time, after cobra has parsed --config-dir.
type ConfigProvider func() (*config.Config, error)

// CommandFunc is a command body with its dependencies
type CommandFunc func(ctx *CommandContext, cmd *cobra.Command, args []string) error

// CommandRunner applies an interceptor chain around command bodies
type CommandRunner struct {
	provider ConfigProvider
	chain    []Interceptor
}

// NewRunner creates an empty runner
func NewRunner(provider ConfigProvider) *CommandRunner {
	return &CommandRunner{provider: provider}
}

// Use appends interceptors; the first one added runs outermost
func (r *CommandRunner) Use(interceptors ...Interceptor) *CommandRunner {
	r.chain = append(r.chain, interceptors...)
	return r
}

// Clone copies the chain so the copy can be extended independently
func (r *CommandRunner) Clone() *CommandRunner {
	return &CommandRunner{
		provider: r.provider,
		chain:    append([]Interceptor(nil), r.chain...),
	}
}

// Wrap turns fn into a cobra RunE. Every invocation gets a fresh
// CommandContext, so stores opened by one command never leak into another.
func (r *CommandRunner) Wrap(fn CommandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := NewContext(r.provider())
		return r.invoke(0, ctx, cmd, args, fn)
	}
}

func (r *CommandRunner) invoke(i int, ctx *CommandContext, cmd *cobra.Command, args []string, fn CommandFunc) error {
	if i == len(r.chain) {
		return fn(ctx, cmd, args)
	}
	return r.chain[i](ctx, cmd, args, func() error {
		return r.invoke(i+1, ctx, cmd, args, fn)
	})
}

// Builder hands out the runner flavours the commands use
type Builder struct {
	provider ConfigProvider
}

// NewBuilder creates a builder over provider
func NewBuilder(provider ConfigProvider) *Builder {
	return &Builder{provider: provider}
}

// Base only logs
func (b *Builder) Base() *CommandRunner {
	return NewRunner(b.provider).Use(WithLogging())
}

// Config needs a loaded configuration and closes the store afterwards
func (b *Builder) Config() *CommandRunner {
	return b.Base().Use(RequireConfig(), CloseResources())
}

// Validated additionally needs the check-in secret and a provider, which is
// what scheduled runs and the server depend on
func (b *Builder) Validated() *CommandRunner {
	return b.Base().Use(RequireValid(), CloseResources())
}

// Uninitialized runs with or without a configuration (init, hash-secret)
func (b *Builder) Uninitialized() *CommandRunner {
	return b.Base().Use(AllowUninitialized())
}
