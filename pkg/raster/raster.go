// Package raster converts between image.Image and the row-major color
// slices that rect commands carry.
package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

// Scaler picks the interpolation used by FromImage.
type Scaler string

const (
	Nearest    Scaler = "nearest"
	BiLinear   Scaler = "bilinear"
	CatmullRom Scaler = "catmullrom"
)

func (s Scaler) interpolator() (draw.Interpolator, error) {
	switch s {
	case Nearest:
		return draw.NearestNeighbor, nil
	case BiLinear, "":
		return draw.BiLinear, nil
	case CatmullRom:
		return draw.CatmullRom, nil
	default:
		return nil, fmt.Errorf("unknown scaler %q", string(s))
	}
}

// FromImage scales img to w x h and returns its pixels row-major.
// Alpha is composited over black.
func FromImage(img image.Image, w, h int, s Scaler) ([]wire.Color, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("raster: bad size %dx%d", w, h)
	}
	interp, err := s.interpolator()
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	interp.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([]wire.Color, 0, w*h)
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, wire.Color{R: row[x], G: row[x+1], B: row[x+2]})
		}
	}
	return out, nil
}

// ToImage builds an opaque RGBA image from row-major colors.
func ToImage(colors []wire.Color, w, h int) (*image.RGBA, error) {
	if w < 0 || h < 0 || len(colors) != w*h {
		return nil, fmt.Errorf("raster: %d colors for %dx%d", len(colors), w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range colors {
		img.SetRGBA(i%w, i/w, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
	}
	return img, nil
}

// Invert returns the negative of every color.
func Invert(colors []wire.Color) []wire.Color {
	out := make([]wire.Color, len(colors))
	for i, c := range colors {
		out[i] = c.Invert()
	}
	return out
}

// Decode reads any registered format: png, jpeg, gif, bmp or webp.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("raster decode: %w", err)
	}
	return img, nil
}

func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// SavePNG writes the colors as a w x h PNG.
func SavePNG(w io.Writer, colors []wire.Color, width, height int) error {
	img, err := ToImage(colors, width, height)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
