package engine

import (
	"encoding/json"
	"fmt"

	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

// blockToDynamic projects the fields of a Block that Edit paths may address
// into a generic map[string]any tree. Only the fields actually reachable
// through a path expression are projected; everything else (ids, version,
// edges) is addressed through dedicated operations instead.
func blockToDynamic(b *document.Block) map[string]any {
	c := map[string]any{
		"type": string(b.Content.Kind),
	}
	switch b.Content.Kind {
	case content.KindText:
		c["text"] = b.Content.Text
		c["format"] = string(b.Content.TextFormat)
	case content.KindCode:
		c["language"] = b.Content.Language
		c["source"] = b.Content.Source
	case content.KindMath:
		c["expression"] = b.Content.Expression
		c["display_mode"] = b.Content.DisplayMode
	case content.KindMedia:
		c["alt"] = b.Content.Alt
		c["media_ref"] = b.Content.MediaRef
	case content.KindJson:
		var v any
		if len(b.Content.Value) > 0 {
			_ = json.Unmarshal(b.Content.Value, &v)
		}
		c["value"] = v
	}

	tags := make([]any, len(b.Metadata.Tags))
	for i, t := range b.Metadata.Tags {
		tags[i] = t
	}

	m := map[string]any{
		"label":   b.Metadata.Label,
		"tags":    tags,
		"summary": b.Metadata.Summary,
	}

	return map[string]any{
		"content":  c,
		"metadata": m,
	}
}

// applyDynamicToBlock writes the (possibly-edited) dynamic tree back onto b,
// the inverse of blockToDynamic, for exactly the fields the two functions
// agree on.
func applyDynamicToBlock(b *document.Block, tree map[string]any) error {
	if c, ok := tree["content"].(map[string]any); ok {
		switch b.Content.Kind {
		case content.KindText:
			if v, ok := c["text"]; ok {
				s, ok := v.(string)
				if !ok {
					return fmt.Errorf("engine: content.text must be a string")
				}
				b.Content.Text = s
			}
		case content.KindCode:
			if v, ok := c["source"]; ok {
				s, ok := v.(string)
				if !ok {
					return fmt.Errorf("engine: content.source must be a string")
				}
				b.Content.Source = s
			}
		case content.KindMath:
			if v, ok := c["expression"]; ok {
				s, ok := v.(string)
				if !ok {
					return fmt.Errorf("engine: content.expression must be a string")
				}
				b.Content.Expression = s
			}
		case content.KindMedia:
			if v, ok := c["alt"]; ok {
				s, ok := v.(string)
				if !ok {
					return fmt.Errorf("engine: content.alt must be a string")
				}
				b.Content.Alt = s
			}
		case content.KindJson:
			if v, ok := c["value"]; ok {
				raw, err := json.Marshal(v)
				if err != nil {
					return fmt.Errorf("engine: re-marshal content.value: %w", err)
				}
				b.Content.Value = raw
			}
		}
	}

	if m, ok := tree["metadata"].(map[string]any); ok {
		if v, ok := m["label"]; ok {
			if s, ok := v.(string); ok {
				b.Metadata.Label = s
			}
		}
		if v, ok := m["summary"]; ok {
			if s, ok := v.(string); ok {
				b.Metadata.Summary = s
			}
		}
		if v, ok := m["tags"]; ok {
			if arr, ok := v.([]any); ok {
				tags := make([]string, 0, len(arr))
				for _, e := range arr {
					if s, ok := e.(string); ok {
						tags = append(tags, s)
					}
				}
				b.Metadata.Tags = tags
			}
		}
	}
	return nil
}

// refreshDerived recomputes a block's content_hash and token estimate after
// its content changed (spec §4.1: "recomputed on content change").
func refreshDerived(b *document.Block, estimator *content.Estimator) error {
	hash, err := content.HashHex(b.Content)
	if err != nil {
		return fmt.Errorf("engine: hash content: %w", err)
	}
	b.Metadata.ContentHash = hash

	if estimator != nil {
		est, err := estimator.Estimate(b.Content)
		if err != nil {
			return fmt.Errorf("engine: estimate tokens: %w", err)
		}
		b.Metadata.TokenEstimate = &est

		if b.Metadata.Summary != "" {
			b.Metadata.SummaryTokenEstimate = estimator.EstimateSummaryTokens(b.Metadata.Summary)
		} else {
			b.Metadata.SummaryTokenEstimate = 0
		}
	}
	return nil
}
