package ucpconfig

import (
	"testing"

	"github.com/kittclouds/ucp/pkg/document"
	"github.com/kittclouds/ucp/pkg/obs"
	"github.com/kittclouds/ucp/pkg/traversal"
)

func TestNewAppliesDefaultsAndOptions(t *testing.T) {
	var metrics obs.Counters
	c := New(
		WithGlobalLimits(traversal.GlobalLimits{MaxSessions: 5, MaxTotalContextBlocks: 50, MaxOpsPerSecond: 10}),
		WithObservability(obs.Recorder{}, &metrics),
	)

	if c.SessionLimits != traversal.DefaultLimits() {
		t.Fatalf("expected default session limits to survive unrelated options")
	}
	if c.GlobalLimits.MaxSessions != 5 {
		t.Fatalf("expected WithGlobalLimits override, got %+v", c.GlobalLimits)
	}
	if c.Metrics != &metrics {
		t.Fatalf("expected WithObservability to set Metrics pointer")
	}
}

func TestNewManagerWiresObservability(t *testing.T) {
	var metrics obs.Counters
	c := New(WithObservability(obs.Recorder{}, &metrics))

	doc := document.New("doc1")
	eng := c.NewEngine(doc)
	mgr := c.NewManager(eng)

	if _, err := mgr.CreateSession(c.SessionConfig("agent-1", nil)); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if metrics.Snapshot().SessionsCreated != 1 {
		t.Fatalf("expected NewManager's observability wiring to be exercised by CreateSession")
	}
}

func TestBuildInputCarriesExtractorAndObservability(t *testing.T) {
	var metrics obs.Counters
	c := New(WithObservability(obs.Recorder{}, &metrics))

	input := c.BuildInput("/tmp/some-repo", "deadbeef")
	if input.RepositoryPath != "/tmp/some-repo" || input.CommitHash != "deadbeef" {
		t.Fatalf("unexpected BuildInput: %+v", input)
	}
	if input.Metrics != &metrics {
		t.Fatalf("expected BuildInput to carry the shared Metrics pointer")
	}
	if len(input.Config.IncludeExtensions) == 0 {
		t.Fatalf("expected default extractor config to be populated")
	}
}
