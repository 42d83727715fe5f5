package traversal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kittclouds/ucp/internal/blockid"
	"github.com/kittclouds/ucp/internal/content"
	"github.com/kittclouds/ucp/pkg/engine"
	"github.com/kittclouds/ucp/pkg/obs"
)

// AgentSessionId identifies a traversal session, mirroring the engine
// package's TransactionId: an opaque string minted from a random UUID.
type AgentSessionId string

func newAgentSessionId() AgentSessionId {
	return AgentSessionId(uuid.NewString())
}

// defaultHistoryLimit bounds a cursor's navigation history depth (spec
// §4.5.1 "bounded stack"). It is independent of a session's context-window
// limits, which bound a different resource.
const defaultHistoryLimit = 100

// Cursor is a session's current position plus a bounded navigation
// history. History is a plain capped stack — not an LRU — since
// go_back(steps) needs strict most-recent-first pop order, which an
// eviction-by-recency cache does not give you.
type Cursor struct {
	Current   blockid.BlockId
	history   []blockid.BlockId
	limit     int
	dangling  bool
}

func newCursor(start blockid.BlockId, limit int) Cursor {
	if limit <= 0 {
		limit = 1
	}
	return Cursor{Current: start, limit: limit}
}

// navigateTo moves the cursor to id, pushing the previous position onto
// history. Oldest entries are dropped once history exceeds limit.
func (c *Cursor) navigateTo(id blockid.BlockId) {
	c.history = append(c.history, c.Current)
	if len(c.history) > c.limit {
		c.history = c.history[len(c.history)-c.limit:]
	}
	c.Current = id
	c.dangling = false
}

// goBack pops up to steps entries off history, landing the cursor on the
// oldest of the popped positions. Returns false if history is empty.
func (c *Cursor) goBack(steps int) bool {
	if steps <= 0 {
		steps = 1
	}
	if len(c.history) == 0 {
		return false
	}
	if steps > len(c.history) {
		steps = len(c.history)
	}
	c.Current = c.history[len(c.history)-steps]
	c.history = c.history[:len(c.history)-steps]
	c.dangling = false
	return true
}

// ContextWindow is a session's pinned-block working set.
type ContextWindow struct {
	Entries []ContextEntry
}

func (w *ContextWindow) indexOf(id blockid.BlockId) int {
	for i, e := range w.Entries {
		if e.BlockId == id {
			return i
		}
	}
	return -1
}

func (w *ContextWindow) totalTokens(estimator *content.Estimator, session *Session) int {
	total := 0
	for _, e := range w.Entries {
		if b, ok := session.engine.Document().GetBlock(e.BlockId); ok {
			if b.Metadata.TokenEstimate != nil {
				total += b.Metadata.TokenEstimate.Generic
				continue
			}
			if est, err := estimator.Estimate(b.Content); err == nil {
				total += est.Generic
			}
		}
	}
	return total
}

// Session is one agent's bounded view onto a document, held by a Manager.
type Session struct {
	Id     AgentSessionId
	Config Config

	mu         sync.Mutex
	engine     *engine.Engine
	manager    *Manager
	cursor     Cursor
	context    ContextWindow
	rag        RAGProvider
	estimator  *content.Estimator
	createdAt  time.Time
	lastActive time.Time
}

// AttachRAGProvider wires a session's search() delegate. A session with no
// provider attached fails search with UnsupportedCapabilityError.
func (s *Session) AttachRAGProvider(p RAGProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rag = p
}

// Cursor returns a copy of the session's current cursor state.
func (s *Session) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Session) touch() {
	s.lastActive = time.Now().UTC()
}

func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(s.lastActive)
}

func (s *Session) checkCapability(ok bool, name string) error {
	if !ok {
		return &CapabilityDeniedError{Capability: name}
	}
	return nil
}

// allow consults the Manager's global token-bucket limiter, a no-op for a
// Session built without one (e.g. directly in a test).
func (s *Session) allow() error {
	if s.manager == nil {
		return nil
	}
	return s.manager.Allow()
}

// Manager hosts every live session for one document, enforcing
// GlobalLimits and a process-wide operations-per-second budget (spec
// §4.5.3).
type Manager struct {
	mu       sync.RWMutex
	sessions map[AgentSessionId]*Session
	eng      *engine.Engine
	global   GlobalLimits
	limiter  *rate.Limiter
	rec      obs.Recorder
	metrics  *obs.Counters
}

// SetObservability attaches an event recorder and/or a metric counter set
// (spec §2 Observability hooks). Either argument may be the type's zero
// value / nil to leave that half unwired; every call site nil-checks
// metrics before use and Recorder's zero value already discards.
func (m *Manager) SetObservability(rec obs.Recorder, metrics *obs.Counters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = rec
	m.metrics = metrics
}

// NewManager creates a Manager bound to eng's live document, applying
// global limits.
func NewManager(eng *engine.Engine, global GlobalLimits) *Manager {
	return &Manager{
		sessions: make(map[AgentSessionId]*Session),
		eng:      eng,
		global:   global,
		limiter:  rate.NewLimiter(rate.Limit(global.MaxOpsPerSecond), max(1, int(global.MaxOpsPerSecond))),
	}
}

// Allow consults the global token-bucket limiter. Every traversal
// operation that reaches a Session method must call this first.
func (m *Manager) Allow() error {
	if !m.limiter.Allow() {
		if m.metrics != nil {
			m.metrics.IncRateLimitRejections()
		}
		return &RateLimitedError{}
	}
	return nil
}

// totalContextBlocksLocked sums every session's pinned-block count. Callers
// must hold m.mu.
func (m *Manager) totalContextBlocksLocked() int {
	total := 0
	for _, s := range m.sessions {
		s.mu.Lock()
		total += len(s.context.Entries)
		s.mu.Unlock()
	}
	return total
}

// checkGlobalContextBudget reports LimitExceededError if adding one more
// pinned block would breach MaxTotalContextBlocks (spec §4.5.3).
func (m *Manager) checkGlobalContextBudget() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.totalContextBlocksLocked() >= m.global.MaxTotalContextBlocks {
		return &LimitExceededError{Which: LimitMaxTotalContextBlocks}
	}
	return nil
}

// CreateSession mints a new session rooted at cfg.StartBlock (or the
// document root), enforcing MaxSessions.
func (m *Manager) CreateSession(cfg Config) (AgentSessionId, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.global.MaxSessions {
		return "", &LimitExceededError{Which: LimitMaxSessions}
	}

	start := m.eng.Document().Root
	if cfg.StartBlock != nil {
		start = *cfg.StartBlock
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}

	id := newAgentSessionId()
	now := time.Now().UTC()
	m.sessions[id] = &Session{
		Id:         id,
		Config:     cfg,
		engine:     m.eng,
		manager:    m,
		cursor:     newCursor(start, defaultHistoryLimit),
		estimator:  content.NewEstimator(nil),
		createdAt:  now,
		lastActive: now,
	}

	m.rec.SessionCreated(string(id), cfg.Name)
	if m.metrics != nil {
		m.metrics.IncSessionsCreated()
	}
	return id, nil
}

// GetSession looks up a live, non-timed-out session by id.
func (m *Manager) GetSession(id AgentSessionId) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &SessionNotFoundError{Id: id}
	}
	if s.idleFor(time.Now().UTC()) > s.Config.Limits.SessionTimeout {
		delete(m.sessions, id)
		return nil, &SessionNotFoundError{Id: id}
	}
	s.touch()
	return s, nil
}

// CloseSession discards a session immediately.
func (m *Manager) CloseSession(id AgentSessionId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return &SessionNotFoundError{Id: id}
	}
	delete(m.sessions, id)

	m.rec.SessionClosed(string(id), time.Since(s.createdAt))
	if m.metrics != nil {
		m.metrics.IncSessionsClosed()
	}
	return nil
}

// ReapIdle drops every session whose SessionTimeout has elapsed since its
// last operation, returning the ids it closed.
func (m *Manager) ReapIdle() []AgentSessionId {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var reaped []AgentSessionId
	for id, s := range m.sessions {
		if s.idleFor(now) > s.Config.Limits.SessionTimeout {
			reaped = append(reaped, id)
			delete(m.sessions, id)
		}
	}
	return reaped
}

// UpdateDocument is called after every engine.Apply that changes the live
// document. Any cursor whose Current block no longer exists is marked
// dangling rather than silently moved, per spec §4.5.1 update_document.
func (m *Manager) UpdateDocument() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc := m.eng.Document()
	for _, s := range m.sessions {
		s.mu.Lock()
		if _, ok := doc.GetBlock(s.cursor.Current); !ok {
			s.cursor.dangling = true
		}
		s.mu.Unlock()
	}
}
