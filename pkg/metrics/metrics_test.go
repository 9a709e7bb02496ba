package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formflow/pkg/faults"
	"github.com/goliatone/go-formflow/pkg/location"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/submit"
)

var (
	_ submit.Recorder   = Recorder{}
	_ session.Observer  = Recorder{}
	_ location.Recorder = Recorder{}
)

func TestRecorderCountsSubmissions(t *testing.T) {
	Register()
	before := testutil.ToFloat64(submissionCounter.WithLabelValues("profile", "succeeded"))

	Recorder{}.Submission("profile", "succeeded", 120*time.Millisecond)

	if got := testutil.ToFloat64(submissionCounter.WithLabelValues("profile", "succeeded")); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}

func TestGuardObserverCountsLogoutOnce(t *testing.T) {
	Register()
	before := testutil.ToFloat64(logoutCounter.WithLabelValues(string(faults.KindExpiredToken)))

	guard := session.NewGuard(func() {}, session.WithObserver(Recorder{}))
	fault := faults.Session(faults.KindExpiredToken, "Token expired")
	guard.OnFailure(fault)
	guard.OnFailure(fault)

	if got := testutil.ToFloat64(logoutCounter.WithLabelValues(string(faults.KindExpiredToken))); got != before+1 {
		t.Fatalf("expected one logout recorded, got %v", got-before)
	}
}

func TestResolverRecordsResolutions(t *testing.T) {
	Register()
	before := testutil.ToFloat64(resolutionCounter.WithLabelValues("device", string(faults.KindUnavailable)))

	r := location.NewResolver(nil, nil, location.WithRecorder(Recorder{}))
	_, _ = r.RequestDevice(context.Background())

	if got := testutil.ToFloat64(resolutionCounter.WithLabelValues("device", string(faults.KindUnavailable))); got != before+1 {
		t.Fatalf("expected resolution recorded, got %v", got-before)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordSubmission("astro", "failed_transport", time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `formflow_submissions_total{form="astro",outcome="failed_transport"}`) {
		t.Fatalf("expected submission counter in output:\n%s", body)
	}
}
