package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.AuthEvent("login", nil)
	r.AuthEvent("login", errors.New("bad password"))
	r.AuthEvent("login", errors.New("bad password"))
	r.RoleDenied("isAdmin")

	if got := testutil.ToFloat64(r.AuthEventsTotal.WithLabelValues("login", OutcomeSuccess)); got != 1 {
		t.Errorf("login success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.AuthEventsTotal.WithLabelValues("login", OutcomeFailure)); got != 2 {
		t.Errorf("login failure = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RoleDenialsTotal.WithLabelValues("isAdmin")); got != 1 {
		t.Errorf("isAdmin denials = %v, want 1", got)
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder
	r.AuthEvent("login", nil)
	r.RoleDenied("isSeller")
	r.ObserveRequest("login", "200", time.Millisecond)
	r.TrackAllowListSize(func() int { return 1 })
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.TrackAllowListSize(func() int { return 7 })
	r.ObserveRequest("login", "200", 20*time.Millisecond)
	r.AuthEvent("register", nil)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"storefront_refresh_allowlist_size 7",
		`storefront_auth_events_total{event="register",outcome="success"} 1`,
		`storefront_request_duration_seconds_count{operation="login",status="200"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
