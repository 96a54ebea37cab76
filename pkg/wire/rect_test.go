package wire

import (
	"bytes"
	"errors"
	"testing"
)

// Every 12-bit width/height must survive the shared-nibble packing.
func TestRectHeaderRoundtripAllDims(t *testing.T) {
	var b [FrameSize]byte
	for w := 0; w <= MaxRectDim; w += 7 {
		for h := 0; h <= MaxRectDim; h++ {
			r := Rect{X: uint16(w * 13), Y: uint16(h * 17), W: uint16(w), H: uint16(h)}
			EncodeRect(r, b[:])
			if got := DecodeRect(b[:]); got != r {
				t.Fatalf("roundtrip mismatch: in=%+v out=%+v", r, got)
			}
		}
	}
	for _, w := range []uint16{0, 255, 256, 4095} {
		r := Rect{W: w, H: MaxRectDim}
		EncodeRect(r, b[:])
		if got := DecodeRect(b[:]); got != r {
			t.Fatalf("roundtrip mismatch: in=%+v out=%+v", r, got)
		}
	}
}

// (h>>4)&0xf0 is the same nibble as ((h>>8)&0x0f)<<4 for 12-bit heights.
func TestRectHeightNibbleMatchesWidthForm(t *testing.T) {
	var b [FrameSize]byte
	for h := uint16(0); h <= MaxRectDim; h++ {
		EncodeRect(Rect{H: h}, b[:])
		want := byte(((h >> 8) & 0x0f) << 4)
		if b[7] != want {
			t.Fatalf("h=%d: packed=%#x want %#x", h, b[7], want)
		}
	}
}

func TestEncodeRectLayout(t *testing.T) {
	var b [FrameSize]byte
	b[0] = OP_FILL_RECT
	EncodeRect(Rect{X: 395, Y: 295, W: 10, H: 10}, b[:])
	want := []byte{'f', 0x8B, 0x01, 0x27, 0x01, 10, 10, 0}
	if !bytes.Equal(b[:], want) {
		t.Fatalf("got %v want %v", b, want)
	}

	EncodeRect(Rect{W: 0x123, H: 0xABC}, b[:])
	if b[5] != 0x23 || b[6] != 0xBC || b[7] != 0xA1 {
		t.Fatalf("high bits misplaced: %v", b)
	}
	if b[0] != OP_FILL_RECT {
		t.Fatalf("opcode slot overwritten")
	}
}

func TestRectValidate(t *testing.T) {
	if err := (Rect{W: MaxRectDim, H: MaxRectDim}).Validate(); err != nil {
		t.Fatalf("max dims rejected: %v", err)
	}
	for _, r := range []Rect{{W: 4096}, {H: 4096}, {W: 65535, H: 1}} {
		if err := r.Validate(); !errors.Is(err, ErrRectTooLarge) {
			t.Fatalf("%v: expected ErrRectTooLarge, got %v", r, err)
		}
	}
}

func TestRectSizes(t *testing.T) {
	r := Rect{W: 4095, H: 4095}
	if r.Area() != 4095*4095 || r.PayloadSize() != 4095*4095*4 {
		t.Fatalf("bad sizes: %d %d", r.Area(), r.PayloadSize())
	}
}

func TestPixelRoundtrip(t *testing.T) {
	var b [FrameSize]byte
	b[0] = OP_PUT_PIXEL
	p := Pixel{X: 0x1234, Y: 0xBEEF, Color: Color{1, 2, 3}}
	EncodePixel(p, b[:])
	if !bytes.Equal(b[:], []byte{'P', 0x34, 0x12, 0xEF, 0xBE, 1, 2, 3}) {
		t.Fatalf("layout: %v", b)
	}
	if got := DecodePixel(b[:]); got != p {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestColorGroup(t *testing.T) {
	b := []byte{9, 9, 9, 9}
	PutColorGroup(b, Color{10, 20, 30})
	if !bytes.Equal(b, []byte{10, 20, 30, 0}) {
		t.Fatalf("group: %v", b)
	}
	if c := ColorFromGroup([]byte{7, 8, 9, 1}); c != (Color{7, 8, 9}) {
		t.Fatalf("decode ignored-byte group: %v", c)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	if err != nil || c != (Color{255, 128, 0}) {
		t.Fatalf("ParseColor: %v %v", c, err)
	}
	if c.String() != "ff8000" {
		t.Fatalf("String: %s", c)
	}
	if c.Invert() != (Color{0, 127, 255}) {
		t.Fatalf("Invert: %v", c.Invert())
	}
	for _, s := range []string{"", "fff", "gg0000", "#12345"} {
		if _, err := ParseColor(s); err == nil {
			t.Fatalf("ParseColor(%q) accepted", s)
		}
	}
}

func TestRectSplit(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 5000, H: 4100}
	tiles := r.Split(MaxRectDim)
	if len(tiles) != 4 {
		t.Fatalf("want 4 tiles, got %d: %v", len(tiles), tiles)
	}
	want := []Rect{
		{X: 10, Y: 20, W: 4095, H: 4095},
		{X: 4105, Y: 20, W: 905, H: 4095},
		{X: 10, Y: 4115, W: 4095, H: 5},
		{X: 4105, Y: 4115, W: 905, H: 5},
	}
	area := 0
	for i, tl := range tiles {
		if tl != want[i] {
			t.Fatalf("tile %d = %v, want %v", i, tl, want[i])
		}
		if err := tl.Validate(); err != nil {
			t.Fatalf("tile %d invalid: %v", i, err)
		}
		area += tl.Area()
	}
	if area != r.Area() {
		t.Fatalf("tiles cover %d pixels, want %d", area, r.Area())
	}
	if got := (Rect{W: 3, H: 3}).Split(MaxRectDim); len(got) != 1 || got[0] != (Rect{W: 3, H: 3}) {
		t.Fatalf("small rect split = %v", got)
	}
	if got := (Rect{W: 0, H: 3}).Split(MaxRectDim); got != nil {
		t.Fatalf("empty rect split = %v", got)
	}
}
