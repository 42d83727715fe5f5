package engine

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/document"
)

// jsonSchemaCustomKey is the Document.Metadata.Custom key an optional
// per-document JSON Schema is stored under, applied to every Json-kind
// block's value.
const jsonSchemaCustomKey = "json_schema"

// checkJSONSchema validates each Json-kind block's value against the
// document's optional schema, when one is configured.
func checkJSONSchema(d *document.Document, _ ResourceLimits) []Issue {
	raw, ok := d.Metadata.Custom[jsonSchemaCustomKey]
	if !ok {
		return nil
	}
	schemaText, ok := raw.(string)
	if !ok || schemaText == "" {
		return nil
	}

	schema, err := jsonschema.CompileString(d.Id+"#json_schema", schemaText)
	if err != nil {
		return []Issue{{Severity: SeverityError, Code: "CONTENT003",
			Message: fmt.Sprintf("invalid json_schema on document: %v", err)}}
	}

	ids := make([]blockid.BlockId, 0, len(d.Blocks))
	for id := range d.Blocks {
		ids = append(ids, id)
	}

	var issues []Issue
	for _, id := range blockid.SortedSet(ids) {
		b, _ := d.GetBlock(id)
		if b.Content.Kind != content.KindJson || len(b.Content.Value) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(b.Content.Value, &v); err != nil {
			continue // malformed json is reported by the content normalizer, not here
		}
		if err := schema.Validate(v); err != nil {
			bid := id
			issues = append(issues, Issue{Severity: SeverityError, Code: "CONTENT004",
				Message: fmt.Sprintf("json content violates document schema: %v", err), Block: &bid})
		}
	}
	return issues
}
