package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/client"
)

// opStats accumulates the command events of one opcode.
type opStats struct {
	count    int64
	failures int64
	bytesTx  int64
	bytesRx  int64
	pixels   int64
	flushes  int64
	chunks   int64
	durs     []float64 // seconds
}

type telemetry struct {
	mu   sync.Mutex
	ops  map[string]*opStats
	rows [][]string
	t0   time.Time
}

func newTelemetry() *telemetry {
	return &telemetry{ops: make(map[string]*opStats), t0: time.Now()}
}

func (t *telemetry) op(name string) *opStats {
	s, ok := t.ops[name]
	if !ok {
		s = &opStats{}
		t.ops[name] = s
	}
	return s
}

func (t *telemetry) handle(ev client.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, _ := ev.Fields["op"].(string)
	switch ev.Type {
	case client.EventCommand:
		s := t.op(op)
		s.count++
		tx, _ := toInt64(ev.Fields["bytes_sent"])
		rx, _ := toInt64(ev.Fields["bytes_recv"])
		px, _ := toInt64(ev.Fields["pixels"])
		fl, _ := toInt64(ev.Fields["flushes"])
		ch, _ := toInt64(ev.Fields["chunks"])
		s.bytesTx += tx
		s.bytesRx += rx
		s.pixels += px
		s.flushes += fl
		s.chunks += ch
		dur, _ := ev.Fields["dur"].(time.Duration)
		s.durs = append(s.durs, dur.Seconds())
		t.rows = append(t.rows, []string{
			fmt.Sprintf("%.6f", ev.Time.Sub(t.t0).Seconds()),
			op,
			fmt.Sprintf("%d", tx),
			fmt.Sprintf("%d", rx),
			fmt.Sprintf("%d", px),
			fmt.Sprintf("%.6f", dur.Seconds()),
		})
	case client.EventError:
		t.op(op).failures++
	}
}

func (t *telemetry) writeCommandsCSV(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{"t_seconds", "op", "bytes_sent", "bytes_recv", "pixels", "dur_seconds"})
	for _, r := range t.rows {
		_ = w.Write(r)
	}
	w.Flush()
	return w.Error()
}

// statsLines renders one summary line per opcode, sorted by name.
func (t *telemetry) statsLines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.ops))
	for n := range t.ops {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		s := t.ops[n]
		p := percentiles(s.durs, 50, 95, 99)
		total := 0.0
		for _, d := range s.durs {
			total += d
		}
		mbps := math.NaN()
		if total > 0 {
			mbps = float64(s.bytesTx+s.bytesRx) / (1024 * 1024) / total
		}
		out = append(out, fmt.Sprintf(
			"%-10s n=%d fail=%d px=%d tx=%dB rx=%dB flushes=%d chunks=%d p50=%.2fms p95=%.2fms p99=%.2fms mean=%.2fms %.1fMiB/s",
			n, s.count, s.failures, s.pixels, s.bytesTx, s.bytesRx, s.flushes, s.chunks,
			p[0]*1e3, p[1]*1e3, p[2]*1e3, meanFloat(s.durs)*1e3, mbps))
	}
	return out
}

// helpers

func percentiles(xs []float64, ps ...int) []float64 {
	ys := slices.Clone(xs)
	sort.Float64s(ys)
	out := make([]float64, len(ps))
	for i, p := range ps {
		if len(ys) == 0 {
			out[i] = math.NaN()
			continue
		}
		rank := (float64(p) / 100.0) * float64(len(ys)-1)
		lo := int(math.Floor(rank))
		hi := int(math.Ceil(rank))
		if lo == hi {
			out[i] = ys[lo]
			continue
		}
		frac := rank - float64(lo)
		out[i] = ys[lo]*(1-frac) + ys[hi]*frac
	}
	return out
}

func meanFloat(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}
