package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCountsCommands(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegistry(reg), WithSubsystem("client"))

	m.Observe(Transfer{Op: "get_rect", BytesSent: 8, BytesRecv: 400, Pixels: 100, Chunks: 1}, time.Millisecond, "")
	m.Observe(Transfer{Op: "print_rect", BytesSent: 408, Pixels: 100, Flushes: 1}, time.Millisecond, "")
	m.Observe(Transfer{Op: "print_rect"}, time.Millisecond, "precondition")

	if got := testutil.ToFloat64(m.Commands("get_rect")); got != 1 {
		t.Fatalf("get_rect commands=%v", got)
	}
	if got := testutil.ToFloat64(m.Commands("print_rect")); got != 1 {
		t.Fatalf("print_rect commands=%v", got)
	}
	if got := testutil.ToFloat64(m.Failures("print_rect", "precondition")); got != 1 {
		t.Fatalf("failures=%v", got)
	}
	if got := testutil.ToFloat64(m.BytesSent()); got != 416 {
		t.Fatalf("bytes sent=%v", got)
	}
	if got := testutil.ToFloat64(m.BytesRecv()); got != 400 {
		t.Fatalf("bytes recv=%v", got)
	}
	if n := testutil.CollectAndCount(m.pixels, "pixelflut_client_pixels_total"); n != 2 {
		t.Fatalf("expected in/out pixel series, got %d", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe(Transfer{Op: "info"}, time.Millisecond, "")
}

func TestTransferString(t *testing.T) {
	tr := &Transfer{Op: "fill_rect", BytesSent: 12}
	if !strings.Contains(tr.String(), "Op: fill_rect") || !strings.Contains(tr.String(), "BytesSent: 12") {
		t.Fatalf("unexpected String(): %s", tr)
	}
}
