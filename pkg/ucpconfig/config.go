// Package ucpconfig is the engine-wide configuration surface (spec §2
// Configuration): one struct a host process builds once and hands to
// pkg/engine, pkg/traversal, and pkg/codegraph instead of threading
// ResourceLimits/Limits/GlobalLimits/ExtractorConfig through three separate
// constructors. Built with functional options, the same Option pattern
// pkg/engine itself already uses (WithPipeline/WithEstimator/WithLogger) —
// config loading from files or environment is an external collaborator's
// job, out of scope here.
package ucpconfig

import (
	"github.com/kittclouds/ucp/pkg/codegraph"
	"github.com/kittclouds/ucp/pkg/engine"
	"github.com/kittclouds/ucp/pkg/obs"
	"github.com/kittclouds/ucp/pkg/traversal"
)

// Config aggregates every tunable the core exposes.
type Config struct {
	// Pipeline is the validation pipeline a new Engine runs on every write
	// (spec §4.3.2). Nil means engine.DefaultPipeline().
	Pipeline *engine.ValidationPipeline

	SessionLimits traversal.Limits
	GlobalLimits  traversal.GlobalLimits
	Capabilities  traversal.Capabilities

	Extractor codegraph.ExtractorConfig

	// Recorder and Metrics are shared across every traversal.Manager and
	// codegraph.BuildCodeGraph call built from this Config (spec §2
	// Observability hooks). Either may be left at its zero value.
	Recorder obs.Recorder
	Metrics  *obs.Counters
}

// Option configures a Config at construction time.
type Option func(*Config)

// WithPipeline overrides the validation pipeline new engines are built
// with.
func WithPipeline(p *engine.ValidationPipeline) Option {
	return func(c *Config) { c.Pipeline = p }
}

// WithSessionLimits overrides the per-session traversal limits new
// sessions are created with.
func WithSessionLimits(l traversal.Limits) Option {
	return func(c *Config) { c.SessionLimits = l }
}

// WithGlobalLimits overrides the process-wide traversal limits a Manager
// enforces.
func WithGlobalLimits(l traversal.GlobalLimits) Option {
	return func(c *Config) { c.GlobalLimits = l }
}

// WithCapabilities overrides the default capability set new sessions are
// granted when a caller doesn't specify its own.
func WithCapabilities(caps traversal.Capabilities) Option {
	return func(c *Config) { c.Capabilities = caps }
}

// WithExtractorConfig overrides the codegraph extractor settings.
func WithExtractorConfig(e codegraph.ExtractorConfig) Option {
	return func(c *Config) { c.Extractor = e }
}

// WithObservability attaches an event recorder and/or metric counters,
// shared by every component this Config wires up.
func WithObservability(rec obs.Recorder, metrics *obs.Counters) Option {
	return func(c *Config) {
		c.Recorder = rec
		c.Metrics = metrics
	}
}

// New builds a Config from sensible defaults — the same defaults each
// package's own DefaultXxx constructor returns — then applies opts.
func New(opts ...Option) Config {
	c := Config{
		SessionLimits: traversal.DefaultLimits(),
		GlobalLimits:  traversal.DefaultGlobalLimits(),
		Capabilities:  traversal.DefaultCapabilities(),
		Extractor:     codegraph.DefaultExtractorConfig(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
