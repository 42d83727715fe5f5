package traversal

import (
	"regexp"

	"github.com/coregx/ahocorasick"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/pkg/document"
)

// FindByPattern linearly scans the document for blocks matching every
// supplied filter, stopping once limits.max_results_per_operation matches
// have been collected (spec §4.5.2 find_by_pattern). A blank query matches
// every block that passes the role filter.
func (s *Session) FindByPattern(query PatternQuery) ([]blockid.BlockId, error) {
	if err := s.allow(); err != nil {
		return nil, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return nil, err
	}

	var contentRe *regexp.Regexp
	if query.ContentRegex != "" {
		re, err := regexp.Compile(query.ContentRegex)
		if err != nil {
			return nil, &InternalError{Err: err}
		}
		contentRe = re
	}

	var tagLabelMatcher *ahocorasick.Automaton
	if query.Tag != "" || query.Label != "" {
		var needles []string
		if query.Tag != "" {
			needles = append(needles, query.Tag)
		}
		if query.Label != "" {
			needles = append(needles, query.Label)
		}
		automaton, err := ahocorasick.NewBuilder().
			AddStrings(needles).
			SetMatchKind(ahocorasick.LeftmostLongest).
			Build()
		if err != nil {
			return nil, &InternalError{Err: err}
		}
		tagLabelMatcher = automaton
	}

	doc := s.engine.Document()
	limit := s.Config.Limits.MaxResultsPerOperation

	var matches []blockid.BlockId
	for id, b := range doc.Blocks {
		if !matchesPattern(b, query, tagLabelMatcher, contentRe) {
			continue
		}
		matches = append(matches, id)
		if len(matches) >= limit {
			break
		}
	}
	return blockid.SortedSet(matches), nil
}

func matchesPattern(b *document.Block, query PatternQuery, tagLabelMatcher *ahocorasick.Automaton, contentRe *regexp.Regexp) bool {
	if query.Role != nil {
		if b.Metadata.SemanticRole == nil || b.Metadata.SemanticRole.Category != *query.Role {
			return false
		}
	}
	if query.Tag != "" {
		found := false
		for _, t := range b.Metadata.Tags {
			if len(tagLabelMatcher.FindAllOverlapping([]byte(t))) > 0 || t == query.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if query.Label != "" {
		if len(tagLabelMatcher.FindAllOverlapping([]byte(b.Metadata.Label))) == 0 {
			return false
		}
	}
	if contentRe != nil && !contentRe.MatchString(contentPreview(b)) {
		return false
	}
	return true
}
