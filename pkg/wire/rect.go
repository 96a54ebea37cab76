package wire

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// MaxRectDim is the largest width or height the rect header can carry:
// 8 low bits in their own byte plus 4 high bits in a shared nibble.
const MaxRectDim = 1<<12 - 1

var ErrRectTooLarge = errors.New("wire: rect dimension exceeds 12 bits")

type Color struct {
	R, G, B uint8
}

func (c Color) Invert() Color { return Color{255 - c.R, 255 - c.G, 255 - c.B} }

func (c Color) String() string { return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B) }

type Pixel struct {
	X, Y uint16
	Color
}

// Rect is a region of the canvas; pixels are addressed row-major.
type Rect struct {
	X, Y, W, H uint16
}

func (r Rect) Validate() error {
	if r.W > MaxRectDim || r.H > MaxRectDim {
		return fmt.Errorf("%w: %dx%d (max %d)", ErrRectTooLarge, r.W, r.H, MaxRectDim)
	}
	return nil
}

// Area is W*H, the number of colors a print/get transfers.
func (r Rect) Area() int { return int(r.W) * int(r.H) }

// PayloadSize is the number of bytes carried by print and get bodies.
func (r Rect) PayloadSize() int { return r.Area() * GroupSize }

func (r Rect) String() string { return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y) }

// Split cuts r into row-major tiles no larger than maxDim on either side.
// Tiles in a row share Y and H; the last tile of a row or column takes
// the remainder.
func (r Rect) Split(maxDim uint16) []Rect {
	if maxDim == 0 || r.W == 0 || r.H == 0 {
		return nil
	}
	var out []Rect
	for y := 0; y < int(r.H); y += int(maxDim) {
		h := min(int(maxDim), int(r.H)-y)
		for x := 0; x < int(r.W); x += int(maxDim) {
			w := min(int(maxDim), int(r.W)-x)
			out = append(out, Rect{X: r.X + uint16(x), Y: r.Y + uint16(y), W: uint16(w), H: uint16(h)})
		}
	}
	return out
}

// EncodeRect writes the rect into b[1:8]. b[0] is left for the opcode.
// Byte 7 packs w bits 8..11 in the low nibble and h bits 8..11 in the
// high nibble.
func EncodeRect(r Rect, b []byte) {
	_ = b[7]
	putU16(b[1:3], r.X)
	putU16(b[3:5], r.Y)
	b[5] = byte(r.W)
	b[6] = byte(r.H)
	b[7] = byte((r.W>>8)&0x0f) | byte((r.H>>4)&0xf0)
}

func DecodeRect(b []byte) Rect {
	_ = b[7]
	return Rect{
		X: getU16(b[1:3]),
		Y: getU16(b[3:5]),
		W: uint16(b[5]) | uint16(b[7]&0x0f)<<8,
		H: uint16(b[6]) | uint16(b[7]&0xf0)<<4,
	}
}

// PutColorGroup writes r, g, b and a zero pad byte.
func PutColorGroup(b []byte, c Color) {
	_ = b[3]
	b[0] = c.R
	b[1] = c.G
	b[2] = c.B
	b[3] = 0
}

// ColorFromGroup reads r, g, b. The 4th byte is not part of the color.
func ColorFromGroup(b []byte) Color {
	_ = b[3]
	return Color{R: b[0], G: b[1], B: b[2]}
}

// EncodePixel writes x, y and the color into b[1:8].
func EncodePixel(p Pixel, b []byte) {
	_ = b[7]
	putU16(b[1:3], p.X)
	putU16(b[3:5], p.Y)
	b[5] = p.R
	b[6] = p.G
	b[7] = p.B
}

func DecodePixel(b []byte) Pixel {
	_ = b[7]
	return Pixel{
		X:     getU16(b[1:3]),
		Y:     getU16(b[3:5]),
		Color: Color{R: b[5], G: b[6], B: b[7]},
	}
}

// ParseColor accepts "rrggbb" with an optional leading '#'.
func ParseColor(s string) (Color, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("color %q: want 6 hex digits", s)
	}
	v, err := hex.DecodeString(s)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{R: v[0], G: v[1], B: v[2]}, nil
}
