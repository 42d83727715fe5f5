package traversal

import (
	"github.com/kittclouds/ucp/pkg/engine"
	"github.com/kittclouds/ucp/pkg/ucl"
)

// ExecuteUcl parses text as a UCL command transcript under the session's
// identity and forwards the resulting operations to the engine. Gated by
// can_modify_context; deliberately NOT subject to the session's traversal
// limits (max_expand_depth, max_results_per_operation, ...) since it is a
// write path through the engine, not a read through the traversal layer
// (spec §4.5.2 execute_ucl).
func (s *Session) ExecuteUcl(text string) ([]engine.OperationResult, error) {
	if err := s.allow(); err != nil {
		return nil, err
	}
	if err := s.checkCapability(s.Config.Capabilities.CanModifyContext, "can_modify_context"); err != nil {
		return nil, err
	}

	ops, err := ucl.ParseCommandsOnly(text)
	if err != nil {
		return nil, &InternalError{Err: err}
	}

	results, err := ucl.ApplyAll(s.engine, ops)
	if s.manager != nil {
		s.manager.rec.UclExecuted(string(s.Id), len(ops), err)
	}
	if err != nil {
		return results, &InternalError{Err: err}
	}

	if s.manager != nil {
		s.manager.UpdateDocument()
	}

	s.mu.Lock()
	provider := s.rag
	s.mu.Unlock()
	if provider != nil {
		provider.DocumentReady(s.engine.Document())
	}

	return results, nil
}
