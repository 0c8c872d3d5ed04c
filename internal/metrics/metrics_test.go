package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/info", "200", 0.123)

	counter := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/info", "200"))
	if counter != 1.0 {
		t.Errorf("Expected counter to be 1.0, got %f", counter)
	}
}

func TestRecordExtractorCall(t *testing.T) {
	ExtractorRequestsTotal.Reset()

	start := time.Now()
	RecordExtractorCall("youtube", "info", start, nil)
	RecordExtractorCall("youtube", "info", start, errors.New("blocked"))
	RecordExtractorCall("youtube", "resolve", start, nil)

	success := testutil.ToFloat64(ExtractorRequestsTotal.WithLabelValues("youtube", "info", "success"))
	if success != 1.0 {
		t.Errorf("Expected success counter to be 1.0, got %f", success)
	}

	failed := testutil.ToFloat64(ExtractorRequestsTotal.WithLabelValues("youtube", "info", "error"))
	if failed != 1.0 {
		t.Errorf("Expected error counter to be 1.0, got %f", failed)
	}
}

func TestRelayLifecycle(t *testing.T) {
	RelaysCompletedTotal.Reset()
	RelaysActive.Set(0)
	before := testutil.ToFloat64(RelayBytesTotal)

	RelayStarted()
	RelayStarted()
	if active := testutil.ToFloat64(RelaysActive); active != 2.0 {
		t.Errorf("Expected 2 active relays, got %f", active)
	}

	RelayFinished(RelayOutcomeCompleted, 1024)
	RelayFinished(RelayOutcomeClientAbort, 512)
	RecordRelayRejected()

	if active := testutil.ToFloat64(RelaysActive); active != 0.0 {
		t.Errorf("Expected 0 active relays, got %f", active)
	}
	if got := testutil.ToFloat64(RelayBytesTotal) - before; got != 1536.0 {
		t.Errorf("Expected 1536 relayed bytes, got %f", got)
	}
	if aborted := testutil.ToFloat64(RelaysCompletedTotal.WithLabelValues(RelayOutcomeClientAbort)); aborted != 1.0 {
		t.Errorf("Expected 1 aborted relay, got %f", aborted)
	}
	if rejected := testutil.ToFloat64(RelaysCompletedTotal.WithLabelValues(RelayOutcomeRejected)); rejected != 1.0 {
		t.Errorf("Expected 1 rejected relay, got %f", rejected)
	}
}
