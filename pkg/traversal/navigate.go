package traversal

import (
	"errors"

	"github.com/kittclouds/ucp/internal/blockid"
)

// errNoHistory reports go_back called with an empty history stack.
var errNoHistory = errors.New("traversal: navigation history is empty")

// NavigateTo moves the session's cursor to id, pushing the previous
// position onto bounded history (spec §4.5.2 navigate_to).
func (s *Session) NavigateTo(id blockid.BlockId) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.engine.Document().GetBlock(id); !ok {
		return &BlockNotFoundError{Id: id}
	}
	s.cursor.navigateTo(id)
	return nil
}

// GoBack pops up to steps entries off the cursor's history (spec §4.5.2
// go_back).
func (s *Session) GoBack(steps int) error {
	if err := s.allow(); err != nil {
		return err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanTraverse, "can_traverse"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cursor.goBack(steps) {
		return &InternalError{Err: errNoHistory}
	}
	return nil
}
