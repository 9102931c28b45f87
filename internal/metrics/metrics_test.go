package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDial(t *testing.T) {
	okBefore := testutil.ToFloat64(UpstreamDials.WithLabelValues("fallback", ResultOK))
	errBefore := testutil.ToFloat64(UpstreamDials.WithLabelValues("fallback", ResultError))
	kindBefore := testutil.ToFloat64(HandshakeFailures.WithLabelValues("upstream_rejected"))

	ObserveDial("fallback", nil, "")
	ObserveDial("fallback", errors.New("boom"), "upstream_rejected")
	ObserveDial("fallback", errors.New("boom"), "")

	if got := testutil.ToFloat64(UpstreamDials.WithLabelValues("fallback", ResultOK)) - okBefore; got != 1 {
		t.Fatalf("ok dials=%v", got)
	}
	if got := testutil.ToFloat64(UpstreamDials.WithLabelValues("fallback", ResultError)) - errBefore; got != 2 {
		t.Fatalf("error dials=%v", got)
	}
	if got := testutil.ToFloat64(HandshakeFailures.WithLabelValues("upstream_rejected")) - kindBefore; got != 1 {
		t.Fatalf("handshake failures=%v", got)
	}
}

func TestObserveBytes(t *testing.T) {
	ObserveBytes("2121:mail.example.com:21", 10, 20)
	ObserveBytes("2121:mail.example.com:21", 1, 2)

	if got := testutil.ToFloat64(Bytes.WithLabelValues("2121:mail.example.com:21", DirectionSent)); got != 11 {
		t.Fatalf("sent=%v", got)
	}
	if got := testutil.ToFloat64(Bytes.WithLabelValues("2121:mail.example.com:21", DirectionReceived)); got != 22 {
		t.Fatalf("received=%v", got)
	}
}
