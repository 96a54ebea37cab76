// logreport summarizes the JSON lines written by pxctl --events and
// canvasd -activity.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/mockcanvas"
)

type eventLine struct {
	Kind    string         `json:"kind"`
	Time    time.Time      `json:"time"`
	Session string         `json:"session"`
	Type    string         `json:"type"`
	Fields  map[string]any `json:"fields"`
}

type activityLine = mockcanvas.ActivityRecord

func main() {
	eventsPath := flag.String("events", "", "pxctl --events file")
	activityPath := flag.String("activity", "", "canvasd -activity file")
	flag.Parse()

	if *eventsPath == "" && *activityPath == "" {
		fmt.Fprintln(os.Stderr, "logreport: give -events and/or -activity")
		os.Exit(2)
	}

	printHeader("LOG REPORT")
	if *eventsPath != "" {
		events, err := readFile[eventLine](*eventsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logreport: %v\n", err)
			os.Exit(1)
		}
		printEvents(os.Stdout, events)
	}
	if *activityPath != "" {
		acts, err := readFile[activityLine](*activityPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logreport: %v\n", err)
			os.Exit(1)
		}
		printActivity(os.Stdout, acts)
	}
}

func readFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines[T](f)
}

// readLines skips lines that do not parse as T.
func readLines[T any](r io.Reader) ([]T, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64<<10), 1<<20)
	var out []T
	for s.Scan() {
		var v T
		if err := json.Unmarshal(s.Bytes(), &v); err == nil {
			out = append(out, v)
		}
	}
	return out, s.Err()
}

func printHeader(title string) {
	fmt.Println(strings.Repeat("=", len(title)))
	fmt.Println(title)
	fmt.Println(strings.Repeat("=", len(title)))
}

type opAgg struct {
	Count, Failures int
	BytesTx         int64
	BytesRx         int64
	Pixels          int64
	Dur             float64
}

func printEvents(w io.Writer, events []eventLine) {
	fmt.Fprintln(w, "Client Events")
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		fmt.Fprintln(w)
		return
	}
	byType := map[string]int{}
	sessions := map[string]struct{}{}
	byOp := map[string]*opAgg{}
	failKinds := map[string]int{}
	for _, e := range events {
		byType[e.Type]++
		sessions[e.Session] = struct{}{}
		op, _ := e.Fields["op"].(string)
		if op == "" {
			continue
		}
		agg := byOp[op]
		if agg == nil {
			agg = &opAgg{}
			byOp[op] = agg
		}
		switch e.Type {
		case "command":
			agg.Count++
			agg.BytesTx += num(e.Fields["bytes_sent"])
			agg.BytesRx += num(e.Fields["bytes_recv"])
			agg.Pixels += num(e.Fields["pixels"])
			if d, ok := e.Fields["dur"].(float64); ok {
				agg.Dur += d
			}
		case "error":
			agg.Failures++
			k, _ := e.Fields["kind"].(string)
			failKinds[k]++
		}
	}

	fmt.Fprintf(w, "  Sessions: %d\n", len(sessions))
	fmt.Fprintln(w, "  By type:")
	for _, k := range sortedKeys(byType) {
		fmt.Fprintf(w, "    %-10s %6d\n", k, byType[k])
	}
	fmt.Fprintln(w, "  By op:")
	for _, k := range sortedKeys(byOp) {
		a := byOp[k]
		avg := 0.0
		if a.Count > 0 {
			avg = a.Dur / float64(a.Count) * 1e3
		}
		fmt.Fprintf(w, "    %-10s n=%5d fail=%3d px=%8d tx=%9d rx=%9d avg=%.2fms\n",
			k, a.Count, a.Failures, a.Pixels, a.BytesTx, a.BytesRx, avg)
	}
	if len(failKinds) > 0 {
		fmt.Fprintln(w, "  Failures:")
		for _, k := range sortedKeys(failKinds) {
			fmt.Fprintf(w, "    %-12s %6d\n", k, failKinds[k])
		}
	}
	fmt.Fprintln(w)
}

func printActivity(w io.Writer, acts []activityLine) {
	fmt.Fprintln(w, "Server Activity")
	if len(acts) == 0 {
		fmt.Fprintln(w, "  (no activity)")
		fmt.Fprintln(w)
		return
	}
	byKind := map[string]int{}
	byOp := map[string]int{}
	pixels := map[string]int64{}
	opened := map[string]time.Time{}
	var connDur []time.Duration
	var errs []string
	for _, a := range acts {
		byKind[a.Kind]++
		switch a.Kind {
		case "open":
			opened[a.Remote] = a.Time
		case "close":
			if t0, ok := opened[a.Remote]; ok {
				connDur = append(connDur, a.Time.Sub(t0))
				delete(opened, a.Remote)
			}
		case "command":
			byOp[a.Op]++
			pixels[a.Op] += int64(a.Pixels)
		}
		if a.Err != "" {
			errs = append(errs, fmt.Sprintf("%s %s %s: %s", a.Time.Format(time.RFC3339), a.Kind, a.Remote, a.Err))
		}
	}

	fmt.Fprintln(w, "  By kind:")
	for _, k := range sortedKeys(byKind) {
		fmt.Fprintf(w, "    %-10s %6d\n", k, byKind[k])
	}
	fmt.Fprintln(w, "  Commands:")
	for _, k := range sortedKeys(byOp) {
		fmt.Fprintf(w, "    %-12s %6d  px=%d\n", k, byOp[k], pixels[k])
	}
	if len(connDur) > 0 {
		total := time.Duration(0)
		for _, d := range connDur {
			total += d
		}
		fmt.Fprintf(w, "  Connections: %d closed  avg=%s  still open=%d\n",
			len(connDur), total/time.Duration(len(connDur)), len(opened))
	}
	if len(errs) > 0 {
		fmt.Fprintln(w, "  Errors:")
		for _, e := range errs {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	fmt.Fprintln(w)
}

func num(v any) int64 {
	switch x := v.(type) {
	case float64:
		return int64(x)
	case int:
		return int64(x)
	case int64:
		return x
	default:
		return 0
	}
}

func sortedKeys[V any](m map[string]V) []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
