// Package health reports readiness of the planner's backing services.
package health

import (
	"context"
	"time"
)

// checkTimeout bounds each dependency check.
const checkTimeout = 3 * time.Second

// Serving states.
const (
	StatusServing    = "SERVING"
	StatusNotServing = "NOT_SERVING"
)

// Pinger checks database connectivity. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks the guardrail policy engine.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Status is the result of a readiness check. Failures maps a dependency name to its error text.
type Status struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// Serving reports whether every dependency passed.
func (s Status) Serving() bool {
	return s.Status == StatusServing
}

// Checker runs the readiness checks. Nil dependencies are skipped (e.g. the in-memory store has no DB).
type Checker struct {
	pinger        Pinger
	policyChecker PolicyChecker
}

// NewChecker returns a Checker. pinger and policyChecker may be nil.
func NewChecker(pinger Pinger, policyChecker PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policyChecker: policyChecker}
}

// Check runs every configured check. It never returns an error; failures are reported in Status.
func (c *Checker) Check(ctx context.Context) Status {
	st := Status{Status: StatusServing}
	fail := func(name string, err error) {
		if st.Failures == nil {
			st.Failures = make(map[string]string)
		}
		st.Failures[name] = err.Error()
		st.Status = StatusNotServing
	}
	if c.pinger != nil {
		if err := run(ctx, c.pinger.PingContext); err != nil {
			fail("database", err)
		}
	}
	if c.policyChecker != nil {
		if err := run(ctx, c.policyChecker.HealthCheck); err != nil {
			fail("policy", err)
		}
	}
	return st
}

func run(ctx context.Context, check func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return check(ctx)
}
