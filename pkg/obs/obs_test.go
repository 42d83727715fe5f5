package obs

import "testing"

func TestCountersSnapshotReflectsIncrements(t *testing.T) {
	var c Counters
	c.IncOperationsApplied()
	c.IncOperationsApplied()
	c.IncSessionsCreated()
	c.IncRateLimitRejections()

	snap := c.Snapshot()
	if snap.OperationsApplied != 2 {
		t.Fatalf("expected OperationsApplied=2, got %d", snap.OperationsApplied)
	}
	if snap.SessionsCreated != 1 {
		t.Fatalf("expected SessionsCreated=1, got %d", snap.SessionsCreated)
	}
	if snap.RateLimitRejections != 1 {
		t.Fatalf("expected RateLimitRejections=1, got %d", snap.RateLimitRejections)
	}
	if snap.TransactionsCommitted != 0 {
		t.Fatalf("expected TransactionsCommitted=0, got %d", snap.TransactionsCommitted)
	}
}

func TestZeroValueRecorderDoesNotPanic(t *testing.T) {
	var r Recorder
	r.SessionCreated("sess_1", "test")
	r.SessionClosed("sess_1", 0)
	r.RateLimited("sess_1", "search")
	r.SearchPerformed("sess_1", "query text", 3, 0)
	r.UclExecuted("sess_1", 2, nil)
	r.CodeGraphBuilt("/tmp/repo", 10, 20, "success", 0)
	r.ValidationFailed("tx_1", 1)
}
