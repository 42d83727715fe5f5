package engine

import (
	"fmt"
	"sort"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

// Severity is the closed set of issue severities a validation Check can
// report (spec §4.3.2).
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single finding from a validation Check.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Block    *blockid.BlockId
}

// ValidationReport is the aggregate result of running a ValidationPipeline
// (spec §6.4).
type ValidationReport struct {
	Valid  bool
	Issues []Issue
}

func (r *ValidationReport) add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
	for _, i := range issues {
		if i.Severity == SeverityError {
			r.Valid = false
		}
	}
}

// ResourceLimits bounds document size, independent of the traversal layer's
// per-session limits (spec §4.3.2).
type ResourceLimits struct {
	MaxDocumentBytes int
	MaxBlockCount    int
	MaxBlockBytes    int
	MaxNestingDepth  int
	MaxEdgesPerBlock int
}

// DefaultResourceLimits returns generous limits suitable for tests and
// small/medium documents.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MaxDocumentBytes: 64 << 20,
		MaxBlockCount:    200_000,
		MaxBlockBytes:    4 << 20,
		MaxNestingDepth:  256,
		MaxEdgesPerBlock: 10_000,
	}
}

// Check is a single validation rule evaluated against a document.
type Check func(d *document.Document, limits ResourceLimits) []Issue

// ValidationPipeline runs a configurable set of Checks and aggregates their
// issues into a ValidationReport (spec §4.3.2).
type ValidationPipeline struct {
	Checks             []Check
	Limits             ResourceLimits
	ValidateOnOperation bool
}

// DefaultPipeline returns the pipeline with every built-in check enabled
// and validate_on_operation turned on.
func DefaultPipeline() *ValidationPipeline {
	return &ValidationPipeline{
		Checks: []Check{
			checkStructure,
			checkEdges,
			checkLabels,
			checkResourceLimits,
			checkContent,
			checkJSONSchema,
		},
		Limits:              DefaultResourceLimits(),
		ValidateOnOperation: true,
	}
}

// Run evaluates every check and returns the aggregate report.
func (p *ValidationPipeline) Run(d *document.Document) ValidationReport {
	report := ValidationReport{Valid: true}
	for _, check := range p.Checks {
		report.add(check(d, p.Limits)...)
	}
	return report
}

func checkStructure(d *document.Document, _ ResourceLimits) []Issue {
	var issues []Issue

	seen := map[blockid.BlockId]bool{d.Root: true}
	var walk func(id blockid.BlockId, depth int)
	cyclic := false
	walk = func(id blockid.BlockId, depth int) {
		for _, c := range d.Children(id) {
			if seen[c] {
				cyclic = true
				continue
			}
			seen[c] = true
			if _, ok := d.GetBlock(c); !ok {
				b := c
				issues = append(issues, Issue{Severity: SeverityError, Code: "STRUCT001",
					Message: "structure references unknown block", Block: &b})
				continue
			}
			walk(c, depth+1)
		}
	}
	walk(d.Root, 0)
	if cyclic {
		issues = append(issues, Issue{Severity: SeverityError, Code: "STRUCT002", Message: "structure graph contains a cycle"})
	}

	var unreachable []blockid.BlockId
	for id := range d.Blocks {
		if !seen[id] {
			unreachable = append(unreachable, id)
		}
	}
	for _, id := range blockid.SortedSet(unreachable) {
		b := id
		issues = append(issues, Issue{Severity: SeverityWarning, Code: "STRUCT003",
			Message: "block is unreachable from root", Block: &b})
	}
	return issues
}

func checkEdges(d *document.Document, _ ResourceLimits) []Issue {
	var issues []Issue
	type triple struct {
		source blockid.BlockId
		et     document.EdgeType
		target blockid.BlockId
	}
	seen := make(map[triple]bool)

	ids := make([]blockid.BlockId, 0, len(d.Blocks))
	for id := range d.Blocks {
		ids = append(ids, id)
	}
	for _, id := range blockid.SortedSet(ids) {
		b, _ := d.GetBlock(id)
		for _, e := range b.Edges {
			if _, ok := d.GetBlock(e.Target); !ok {
				src := id
				issues = append(issues, Issue{Severity: SeverityError, Code: "EDGE001",
					Message: fmt.Sprintf("edge target %s does not exist", e.Target), Block: &src})
				continue
			}
			t := triple{source: id, et: e.EdgeType, target: e.Target}
			if seen[t] {
				src := id
				issues = append(issues, Issue{Severity: SeverityError, Code: "EDGE002",
					Message: "duplicate (source, edge_type, target) triple", Block: &src})
			}
			seen[t] = true
		}
	}
	return issues
}

func checkLabels(d *document.Document, _ ResourceLimits) []Issue {
	var issues []Issue
	counts := make(map[string]int)
	for _, b := range d.Blocks {
		if b.Metadata.Label != "" {
			counts[b.Metadata.Label]++
		}
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		if counts[l] > 1 {
			issues = append(issues, Issue{Severity: SeverityError, Code: "LABEL001",
				Message: fmt.Sprintf("label %q is not unique", l)})
		}
	}
	return issues
}

func checkResourceLimits(d *document.Document, limits ResourceLimits) []Issue {
	var issues []Issue
	if limits.MaxBlockCount > 0 && len(d.Blocks) > limits.MaxBlockCount {
		issues = append(issues, Issue{Severity: SeverityError, Code: "LIMIT001",
			Message: fmt.Sprintf("block count %d exceeds limit %d", len(d.Blocks), limits.MaxBlockCount)})
	}
	if limits.MaxEdgesPerBlock > 0 {
		for id, b := range d.Blocks {
			if len(b.Edges) > limits.MaxEdgesPerBlock {
				bid := id
				issues = append(issues, Issue{Severity: SeverityError, Code: "LIMIT002",
					Message: "edge count exceeds per-block limit", Block: &bid})
			}
		}
	}
	if limits.MaxNestingDepth > 0 {
		depth := maxDepth(d, d.Root, 0)
		if depth > limits.MaxNestingDepth {
			issues = append(issues, Issue{Severity: SeverityError, Code: "LIMIT003",
				Message: fmt.Sprintf("nesting depth %d exceeds limit %d", depth, limits.MaxNestingDepth)})
		}
	}
	return issues
}

func maxDepth(d *document.Document, id blockid.BlockId, depth int) int {
	best := depth
	for _, c := range d.Children(id) {
		if v := maxDepth(d, c, depth+1); v > best {
			best = v
		}
	}
	return best
}

func checkContent(d *document.Document, limits ResourceLimits) []Issue {
	var issues []Issue
	for id, b := range d.Blocks {
		switch b.Content.Kind {
		case content.KindComposite:
			for _, childID := range b.Content.Children {
				if _, ok := d.GetBlock(childID); !ok {
					bid := id
					issues = append(issues, Issue{Severity: SeverityError, Code: "CONTENT001",
						Message: "composite child does not exist", Block: &bid})
				}
			}
		case content.KindBinary:
			if limits.MaxBlockBytes > 0 && len(b.Content.Bytes) > limits.MaxBlockBytes {
				bid := id
				issues = append(issues, Issue{Severity: SeverityError, Code: "CONTENT002",
					Message: "binary content exceeds per-block size limit", Block: &bid})
			}
		}
	}
	return issues
}
