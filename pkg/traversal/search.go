package traversal

import "time"

// SearchOptions bounds and configures a search call.
type SearchOptions struct {
	K             int
	MinSimilarity float64
}

// Search embeds query through the session's attached RAGProvider and
// returns its nearest matches, capped at limits.MaxResultsPerOperation
// (spec §4.5.2 search). Fails with UnsupportedCapabilityError if no
// provider is attached, or CapabilityDeniedError if the session was not
// granted can_search.
func (s *Session) Search(query string, options SearchOptions) ([]SearchMatch, error) {
	if err := s.allow(); err != nil {
		return nil, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanSearch, "can_search"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	provider := s.rag
	limit := s.Config.Limits.MaxResultsPerOperation
	s.mu.Unlock()

	if provider == nil {
		return nil, &UnsupportedCapabilityError{Operation: "search"}
	}

	start := time.Now()
	k := options.K
	if k <= 0 || k > limit {
		k = limit
	}

	vec, err := provider.Embed(query)
	if err != nil {
		return nil, &InternalError{Err: err}
	}

	matches, err := provider.Search(vec, k, options.MinSimilarity)
	if err != nil {
		return nil, &InternalError{Err: err}
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	if s.manager != nil {
		s.manager.rec.SearchPerformed(string(s.Id), query, len(matches), time.Since(start))
		if s.manager.metrics != nil {
			s.manager.metrics.IncSearchesPerformed()
		}
	}
	return matches, nil
}
