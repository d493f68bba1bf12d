package health

import (
	"context"
	"errors"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name         string
		pinger       Pinger
		policy       PolicyChecker
		wantServing  bool
		wantFailures []string
	}{
		{"no dependencies", nil, nil, true, nil},
		{"pinger success", &mockPinger{}, nil, true, nil},
		{"pinger failure", &mockPinger{pingErr: errors.New("connection refused")}, nil, false, []string{"database"}},
		{"policy success", nil, &mockPolicyChecker{}, true, nil},
		{"policy failure", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, false, []string{"policy"}},
		{"both fail", &mockPinger{pingErr: errors.New("down")}, &mockPolicyChecker{healthErr: errors.New("policy error")}, false, []string{"database", "policy"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := NewChecker(tc.pinger, tc.policy).Check(context.Background())
			if st.Serving() != tc.wantServing {
				t.Errorf("serving = %v, want %v (status %q)", st.Serving(), tc.wantServing, st.Status)
			}
			if len(st.Failures) != len(tc.wantFailures) {
				t.Fatalf("failures = %v, want keys %v", st.Failures, tc.wantFailures)
			}
			for _, k := range tc.wantFailures {
				if st.Failures[k] == "" {
					t.Errorf("missing failure for %q", k)
				}
			}
		})
	}
}

func TestCheck_PassesDeadline(t *testing.T) {
	var hadDeadline bool
	p := pingFunc(func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})
	NewChecker(p, nil).Check(context.Background())
	if !hadDeadline {
		t.Error("checks should run with a deadline")
	}
}

type pingFunc func(context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }
