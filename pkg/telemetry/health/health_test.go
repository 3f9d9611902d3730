package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_Liveness(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("broken", func(context.Context) error { return errors.New("down") })

	if got := checker.CheckLiveness(context.Background()).Status; got != "ok" {
		t.Errorf("liveness status = %q, want ok", got)
	}
}

func TestChecker_Readiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   string
	}{
		{
			name:   "no checks",
			checks: nil,
			want:   "ready",
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"history": func(context.Context) error { return nil },
			},
			want: "ready",
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"history":  func(context.Context) error { return nil },
				"last_run": func(context.Context) error { return errors.New("stale") },
			},
			want: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.want {
				t.Errorf("status = %q, want %q", status.Status, tt.want)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("expected %d results, got %d", len(tt.checks), len(status.Checks))
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	if status.Checks["slow"].Status != "unhealthy" {
		t.Errorf("slow check should time out, got %+v", status.Checks["slow"])
	}
}

func TestChecker_Names(t *testing.T) {
	checker := New(0)
	checker.RegisterCheck("last_run", func(context.Context) error { return nil })
	checker.RegisterCheck("history", func(context.Context) error { return nil })

	names := checker.Names()
	if len(names) != 2 || names[0] != "history" || names[1] != "last_run" {
		t.Errorf("Names() = %v", names)
	}
}

var errUnavailable = errors.New("unavailable")

func isUnavailable(err error) bool { return errors.Is(err, errUnavailable) }

func TestLastRunCheck(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		finished time.Time
		err      error
		maxAge   time.Duration
		wantErr  bool
	}{
		{"no run yet", time.Time{}, nil, time.Hour, false},
		{"recent success", now, nil, time.Hour, false},
		{"recent partial", now, errors.New("1 deletion failed"), time.Hour, false},
		{"registry unavailable", now, errUnavailable, time.Hour, true},
		{"stale", now.Add(-2 * time.Hour), nil, time.Hour, true},
		{"stale check disabled", now.Add(-48 * time.Hour), nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := LastRunCheck(func() (time.Time, error) { return tt.finished, tt.err }, tt.maxAge, isUnavailable)
			if err := check(context.Background()); (err != nil) != tt.wantErr {
				t.Errorf("check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("last_run", func(context.Context) error { return errors.New("stale") })

	mux := http.NewServeMux()
	checker.Register(mux)

	tests := []struct {
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{http.MethodGet, "/healthz", http.StatusOK, "ok"},
		{http.MethodGet, "/readyz", http.StatusServiceUnavailable, "degraded"},
		{http.MethodPost, "/healthz", http.StatusMethodNotAllowed, ""},
		{http.MethodHead, "/healthz", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == "" {
				return
			}
			var status Status
			if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
				t.Fatalf("invalid JSON body: %v", err)
			}
			if status.Status != tt.wantBody {
				t.Errorf("status = %q, want %q", status.Status, tt.wantBody)
			}
		})
	}
}
