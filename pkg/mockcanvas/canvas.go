// Package mockcanvas is an in-memory canvas server speaking the same
// protocol as the real one. It backs the end-to-end tests and the
// canvasd development daemon.
package mockcanvas

import (
	"sync"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

// Canvas is a row-major color buffer. Writes outside it are ignored and
// reads outside it return black.
type Canvas struct {
	mu  sync.RWMutex
	w   int
	h   int
	pix []wire.Color
}

func New(w, h int) *Canvas {
	return &Canvas{w: w, h: h, pix: make([]wire.Color, w*h)}
}

func (c *Canvas) Size() (w, h int) { return c.w, c.h }

func (c *Canvas) inside(x, y int) bool { return x >= 0 && y >= 0 && x < c.w && y < c.h }

func (c *Canvas) Set(x, y int, col wire.Color) bool {
	if !c.inside(x, y) {
		return false
	}
	c.mu.Lock()
	c.pix[y*c.w+x] = col
	c.mu.Unlock()
	return true
}

func (c *Canvas) Get(x, y int) (wire.Color, bool) {
	if !c.inside(x, y) {
		return wire.Color{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pix[y*c.w+x], true
}

// Fill paints the part of r that lies on the canvas and returns how many
// pixels that was.
func (c *Canvas) Fill(r wire.Rect, col wire.Color) int {
	n := 0
	c.mu.Lock()
	defer c.mu.Unlock()
	for y := int(r.Y); y < int(r.Y)+int(r.H); y++ {
		for x := int(r.X); x < int(r.X)+int(r.W); x++ {
			if c.inside(x, y) {
				c.pix[y*c.w+x] = col
				n++
			}
		}
	}
	return n
}

// Snapshot copies the whole buffer.
func (c *Canvas) Snapshot() []wire.Color {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]wire.Color, len(c.pix))
	copy(out, c.pix)
	return out
}

// rectIter walks a rect row-major: x advances first, then y.
type rectIter struct {
	x0, x1 int
	y1     int
	x, y   int
}

func newRectIter(r wire.Rect) *rectIter {
	return &rectIter{
		x0: int(r.X), x1: int(r.X) + int(r.W),
		y1: int(r.Y) + int(r.H),
		x:  int(r.X), y: int(r.Y),
	}
}

func (it *rectIter) done() bool { return it.y >= it.y1 || it.x0 == it.x1 }

func (it *rectIter) next() (x, y int) {
	x, y = it.x, it.y
	it.x++
	if it.x == it.x1 {
		it.x = it.x0
		it.y++
	}
	return x, y
}
