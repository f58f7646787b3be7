package resolve

import (
	"sync"

	"go.uber.org/atomic"
)

// Trace records the outcome of every lookup attempt during a resolution,
// for diagnostics only — it never changes the outcome. Safe for concurrent
// use by racing lookups. The zero value is ready to use.
type Trace struct {
	candidates atomic.Int64
	failures   atomic.Int64

	mu   sync.Mutex
	errs []error
}

// Observer returns a callback suitable for WithObserver.
func (t *Trace) Observer() func(Candidate) {
	return func(c Candidate) {
		t.candidates.Inc()
		if c.Err == nil {
			return
		}
		t.failures.Inc()
		t.mu.Lock()
		t.errs = append(t.errs, c.Err)
		t.mu.Unlock()
	}
}

// Candidates returns how many candidates (including failures) were observed.
func (t *Trace) Candidates() int64 { return t.candidates.Load() }

// Failures returns how many lookups failed.
func (t *Trace) Failures() int64 { return t.failures.Load() }

// Errors returns a copy of the lookup errors observed so far.
func (t *Trace) Errors() []error {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]error, len(t.errs))
	copy(out, t.errs)
	return out
}
