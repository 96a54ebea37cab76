// Package feed parses command scripts: one command per line, fields
// separated by ';', '#' starting a comment line.
//
//	info
//	put;10;10;ff0000
//	fill;395;295;10;10;ff0000
//	get;10;10
//	getrect;0;0;64;64
//	invert;0;0;64;64
//	sleep;250ms
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

type Kind string

const (
	Info    Kind = "info"
	Put     Kind = "put"
	Get     Kind = "get"
	Fill    Kind = "fill"
	GetRect Kind = "getrect"
	Invert  Kind = "invert"
	Sleep   Kind = "sleep"
)

// Step is one parsed script line. Only the fields its Kind uses are set.
type Step struct {
	Line  int
	Kind  Kind
	Pixel wire.Pixel
	Rect  wire.Rect
	Color wire.Color
	Wait  time.Duration
}

var arity = map[Kind]int{Info: 0, Put: 3, Get: 2, Fill: 5, GetRect: 4, Invert: 4, Sleep: 1}

func readCsvFile(r io.Reader) ([][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = ';'
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	csvReader.LazyQuotes = true
	return csvReader.ReadAll()
}

// Parse reads a whole script. Errors name the offending record.
func Parse(r io.Reader) ([]Step, error) {
	records, err := readCsvFile(r)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(records))
	for i, rec := range records {
		st, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i+1, strings.Join(rec, ";"), err)
		}
		st.Line = i + 1
		steps = append(steps, st)
	}
	return steps, nil
}

func Load(path string) ([]Step, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func parseRecord(rec []string) (Step, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(rec[0])))
	n, ok := arity[k]
	if !ok {
		return Step{}, fmt.Errorf("unknown command %q", rec[0])
	}
	args := rec[1:]
	if len(args) != n {
		return Step{}, fmt.Errorf("%s takes %d arguments, got %d", k, n, len(args))
	}
	st := Step{Kind: k}
	var err error
	switch k {
	case Put:
		var v []uint16
		if v, err = coords(args[:2]); err == nil {
			st.Pixel.X, st.Pixel.Y = v[0], v[1]
			st.Pixel.Color, err = wire.ParseColor(args[2])
		}
	case Get:
		var v []uint16
		if v, err = coords(args); err == nil {
			st.Pixel.X, st.Pixel.Y = v[0], v[1]
		}
	case Fill:
		if st.Rect, err = rect(args[:4]); err == nil {
			st.Color, err = wire.ParseColor(args[4])
		}
	case GetRect, Invert:
		st.Rect, err = rect(args)
	case Sleep:
		st.Wait, err = time.ParseDuration(strings.TrimSpace(args[0]))
	}
	return st, err
}

func coords(args []string) ([]uint16, error) {
	out := make([]uint16, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(strings.TrimSpace(a), 10, 16)
		if err != nil {
			return nil, err
		}
		out[i] = uint16(v)
	}
	return out, nil
}

func rect(args []string) (wire.Rect, error) {
	v, err := coords(args)
	if err != nil {
		return wire.Rect{}, err
	}
	r := wire.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}
	return r, r.Validate()
}
