package traversal

import (
	"time"

	"github.com/kittclouds/ucp/internal/blockid"
)

// ContextAdd pins id into the context window at the given relevance,
// respecting max_context_blocks and the token budget (spec §4.5.2
// context_add).
func (s *Session) ContextAdd(id blockid.BlockId, relevance float64) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanModifyContext, "can_modify_context"); err != nil {
		return err
	}
	// Checked before taking s.mu: it locks every session's mutex in turn,
	// and must never nest inside the mutex of the very session calling it.
	if s.manager != nil {
		if err := s.manager.checkGlobalContextBudget(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engine.Document().GetBlock(id); !ok {
		return &BlockNotFoundError{Id: id}
	}
	if idx := s.context.indexOf(id); idx >= 0 {
		s.context.Entries[idx].Relevance = relevance
		return nil
	}
	if len(s.context.Entries) >= s.Config.Limits.MaxContextBlocks {
		return &LimitExceededError{Which: LimitMaxContextBlocks}
	}

	entry := ContextEntry{BlockId: id, Relevance: relevance, AddedAt: time.Now().UTC()}
	if tokens, ok := s.estimateEntryTokens(entry); ok {
		if s.context.totalTokens(s.estimator, s)+tokens > s.Config.Limits.MaxContextTokens {
			return &LimitExceededError{Which: LimitMaxContextTokens}
		}
	}

	s.context.Entries = append(s.context.Entries, entry)
	return nil
}

func (s *Session) estimateEntryTokens(entry ContextEntry) (int, bool) {
	b, ok := s.engine.Document().GetBlock(entry.BlockId)
	if !ok {
		return 0, false
	}
	if b.Metadata.TokenEstimate != nil {
		return b.Metadata.TokenEstimate.Generic, true
	}
	est, err := s.estimator.Estimate(b.Content)
	if err != nil {
		return 0, false
	}
	return est.Generic, true
}

// ContextAddResults pins every match from a search/pattern result set,
// using each SearchMatch's similarity as its relevance. Stops at the first
// error; matches pinned before it stay pinned.
func (s *Session) ContextAddResults(matches []SearchMatch) error {
	for _, m := range matches {
		if err := s.ContextAdd(m.BlockId, m.Similarity); err != nil {
			return err
		}
	}
	return nil
}

// ContextRemove unpins id, a no-op if it was never pinned.
func (s *Session) ContextRemove(id blockid.BlockId) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanModifyContext, "can_modify_context"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.context.indexOf(id)
	if idx < 0 {
		return nil
	}
	s.context.Entries = append(s.context.Entries[:idx:idx], s.context.Entries[idx+1:]...)
	return nil
}

// ContextClear unpins every block.
func (s *Session) ContextClear() error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanModifyContext, "can_modify_context"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.context.Entries = nil
	return nil
}

// ContextFocus sets exactly one pinned block's Focus flag, clearing every
// other entry's. id must already be pinned.
func (s *Session) ContextFocus(id blockid.BlockId) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanModifyContext, "can_modify_context"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.context.indexOf(id)
	if idx < 0 {
		return &BlockNotFoundError{Id: id}
	}
	for i := range s.context.Entries {
		s.context.Entries[i].Focus = i == idx
	}
	return nil
}

// ContextEntries returns a copy of the session's current context window.
func (s *Session) ContextEntries() []ContextEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ContextEntry{}, s.context.Entries...)
}
