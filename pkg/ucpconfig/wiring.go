package ucpconfig

import (
	"github.com/kittclouds/ucp/pkg/codegraph"
	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/engine"
	"github.com/kittclouds/ucp/pkg/traversal"
)

// NewEngine constructs an engine.Engine over doc using this Config's
// validation pipeline.
func (c Config) NewEngine(doc *document.Document) *engine.Engine {
	var opts []engine.Option
	if c.Pipeline != nil {
		opts = append(opts, engine.WithPipeline(c.Pipeline))
	}
	return engine.New(doc, opts...)
}

// NewManager constructs a traversal.Manager over eng using this Config's
// global limits, with Recorder/Metrics attached.
func (c Config) NewManager(eng *engine.Engine) *traversal.Manager {
	m := traversal.NewManager(eng, c.GlobalLimits)
	m.SetObservability(c.Recorder, c.Metrics)
	return m
}

// SessionConfig builds a traversal.Config for a new session named name,
// starting at startBlock (document root if nil), using this Config's
// default session limits and capabilities.
func (c Config) SessionConfig(name string, startBlock *document.Block) traversal.Config {
	cfg := traversal.Config{
		Name:         name,
		Limits:       c.SessionLimits,
		Capabilities: c.Capabilities,
		ViewMode:     traversal.ViewPreview,
	}
	if startBlock != nil {
		id := startBlock.Id
		cfg.StartBlock = &id
	}
	return cfg
}

// BuildInput builds a codegraph.BuildInput for repositoryPath at commitHash
// using this Config's extractor settings and observability hooks.
func (c Config) BuildInput(repositoryPath, commitHash string) codegraph.BuildInput {
	return codegraph.BuildInput{
		RepositoryPath: repositoryPath,
		CommitHash:     commitHash,
		Config:         c.Extractor,
		Recorder:       c.Recorder,
		Metrics:        c.Metrics,
	}
}
