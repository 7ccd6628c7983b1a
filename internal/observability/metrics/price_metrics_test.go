package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPriceMetricsCounters(t *testing.T) {
	m := NewPriceMetrics(prometheus.NewRegistry(), Config{Environment: "test"})

	m.ObserveConnectorCall("rimi", "search", "ok", 120*time.Millisecond)
	m.ObserveConnectorCall("rimi", "search", "timeout", 2*time.Second)
	m.ObserveConnectorCall("rimi", "search", "timeout", 2*time.Second)
	m.IncRejected("rimi", "negative_price")
	m.IncWriteFailure("rimi")
	m.AddAccepted("rimi", 0)

	if got := testutil.ToFloat64(m.ConnectorCallCounter("rimi", "search", "timeout")); got != 2 {
		t.Fatalf("expected 2 timeouts, got %v", got)
	}
	if got := testutil.ToFloat64(m.RejectedCounter("rimi", "negative_price")); got != 1 {
		t.Fatalf("expected 1 rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.WriteFailureCounter("rimi")); got != 1 {
		t.Fatalf("expected 1 write failure, got %v", got)
	}
}
