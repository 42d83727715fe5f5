package obs

import "sync/atomic"

// Counters is a thin set of process-wide metric counters (spec §2
// "metric counters (thin)"). No client_golang/prometheus-style exporter
// is wired in: across every example repo in the retrieval pack,
// prometheus/client_golang shows up only as an indirect/transitive
// dependency of something else — never imported or called directly by
// any repo's own code — so there was no usage pattern to ground a
// concrete exporter on. Snapshot() gives an external collector (an HTTP
// handler, a periodic log line) a cheap, consistent read of the current
// values; this package does not itself expose one.
type Counters struct {
	operationsApplied      int64
	transactionsCommitted  int64
	transactionsRolledBack int64
	sessionsCreated        int64
	sessionsClosed         int64
	searchesPerformed      int64
	codeGraphsBuilt        int64
	validationFailures     int64
	rateLimitRejections    int64
}

// CounterSnapshot is a point-in-time copy of Counters' values.
type CounterSnapshot struct {
	OperationsApplied      int64
	TransactionsCommitted  int64
	TransactionsRolledBack int64
	SessionsCreated        int64
	SessionsClosed         int64
	SearchesPerformed      int64
	CodeGraphsBuilt        int64
	ValidationFailures     int64
	RateLimitRejections    int64
}

func (c *Counters) IncOperationsApplied()      { atomic.AddInt64(&c.operationsApplied, 1) }
func (c *Counters) IncTransactionsCommitted()  { atomic.AddInt64(&c.transactionsCommitted, 1) }
func (c *Counters) IncTransactionsRolledBack() { atomic.AddInt64(&c.transactionsRolledBack, 1) }
func (c *Counters) IncSessionsCreated()        { atomic.AddInt64(&c.sessionsCreated, 1) }
func (c *Counters) IncSessionsClosed()         { atomic.AddInt64(&c.sessionsClosed, 1) }
func (c *Counters) IncSearchesPerformed()      { atomic.AddInt64(&c.searchesPerformed, 1) }
func (c *Counters) IncCodeGraphsBuilt()        { atomic.AddInt64(&c.codeGraphsBuilt, 1) }
func (c *Counters) IncValidationFailures()     { atomic.AddInt64(&c.validationFailures, 1) }
func (c *Counters) IncRateLimitRejections()    { atomic.AddInt64(&c.rateLimitRejections, 1) }

// Snapshot reads every counter's current value.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		OperationsApplied:      atomic.LoadInt64(&c.operationsApplied),
		TransactionsCommitted:  atomic.LoadInt64(&c.transactionsCommitted),
		TransactionsRolledBack: atomic.LoadInt64(&c.transactionsRolledBack),
		SessionsCreated:        atomic.LoadInt64(&c.sessionsCreated),
		SessionsClosed:         atomic.LoadInt64(&c.sessionsClosed),
		SearchesPerformed:      atomic.LoadInt64(&c.searchesPerformed),
		CodeGraphsBuilt:        atomic.LoadInt64(&c.codeGraphsBuilt),
		ValidationFailures:     atomic.LoadInt64(&c.validationFailures),
		RateLimitRejections:    atomic.LoadInt64(&c.rateLimitRejections),
	}
}
