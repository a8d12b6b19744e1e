package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPollStarted(t *testing.T) {
	before := testutil.ToFloat64(PollsActive)

	done := PollStarted()
	if got := testutil.ToFloat64(PollsActive); got != before+1 {
		t.Fatalf("polls_active = %v, want %v", got, before+1)
	}

	done(OutcomeTimeout)
	if got := testutil.ToFloat64(PollsActive); got != before {
		t.Fatalf("polls_active after done = %v, want %v", got, before)
	}
	if n := testutil.CollectAndCount(PollDuration, "becmi_poll_duration_seconds"); n == 0 {
		t.Fatal("expected a poll duration series")
	}
}

func TestEventAppended(t *testing.T) {
	before := testutil.ToFloat64(EventsAppended.WithLabelValues("hp_change"))
	EventAppended("hp_change")
	EventAppended("hp_change")
	if got := testutil.ToFloat64(EventsAppended.WithLabelValues("hp_change")); got != before+2 {
		t.Fatalf("events_appended{hp_change} = %v, want %v", got, before+2)
	}
}

func TestHandler(t *testing.T) {
	PresenceTouches.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "becmi_presence_touches_total") {
		t.Fatal("expected becmi_presence_touches_total in output")
	}
}
