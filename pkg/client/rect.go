package client

import (
	"context"
	"fmt"

	"github.com/juanpablocruz/pixelflut/pkg/metrics"
	"github.com/juanpablocruz/pixelflut/pkg/protoport"
	"github.com/juanpablocruz/pixelflut/pkg/transport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

func checkRect(op string, r wire.Rect) error {
	if err := r.Validate(); err != nil {
		return &PreconditionError{Op: op, Err: err}
	}
	return nil
}

func checkColors(op string, n int, r wire.Rect) error {
	if n != r.Area() {
		return &PreconditionError{Op: op, Err: fmt.Errorf("%w: %d colors for %v (want %d)", ErrColorCount, n, r, r.Area())}
	}
	return nil
}

// FillRect paints r with a single color using one 12-byte frame.
func (c *Client) FillRect(ctx context.Context, col wire.Color, r wire.Rect) error {
	cmd := protoport.FillRectCmd{R: r, C: col}
	return c.do(ctx, cmd, func(tr *metrics.Transfer) error {
		if err := checkRect("fill_rect", r); err != nil {
			return err
		}
		tr.Pixels = r.Area()
		return c.send(tr, cmd)
	})
}

// PrintRect writes len(colors) == r.W*r.H colors in row-major order.
// The header and the color groups share the transfer buffer; every time
// it cannot take another group its used part is written out.
func (c *Client) PrintRect(ctx context.Context, colors []wire.Color, r wire.Rect) error {
	cmd := protoport.PrintRectCmd{R: r}
	return c.do(ctx, cmd, func(tr *metrics.Transfer) error {
		if err := checkRect("print_rect", r); err != nil {
			return err
		}
		if err := checkColors("print_rect", len(colors), r); err != nil {
			return err
		}
		frame, _ := protoport.EncodeCommand(cmd)
		cw := transport.NewChunkWriter(c.s, c.wbuf)
		defer func() {
			tr.BytesSent, tr.Flushes = cw.Written(), cw.Flushes()
		}()
		if err := cw.Append(frame); err != nil {
			return err
		}
		for _, col := range colors {
			g, err := cw.Reserve(wire.GroupSize)
			if err != nil {
				return err
			}
			wire.PutColorGroup(g, col)
		}
		if err := cw.Flush(); err != nil {
			return err
		}
		tr.Pixels = len(colors)
		return nil
	})
}

// GetRect reads r.W*r.H colors in row-major order.
func (c *Client) GetRect(ctx context.Context, r wire.Rect) ([]wire.Color, error) {
	if err := r.Validate(); err != nil {
		return nil, c.do(ctx, protoport.GetRectCmd{R: r}, func(*metrics.Transfer) error {
			return checkRect("get_rect", r)
		})
	}
	dst := make([]wire.Color, r.Area())
	if err := c.GetRectInto(ctx, dst, r); err != nil {
		return nil, err
	}
	return dst, nil
}

// GetRectInto is GetRect into a caller buffer of exactly r.W*r.H
// colors. On a transport failure dst holds whatever arrived.
func (c *Client) GetRectInto(ctx context.Context, dst []wire.Color, r wire.Rect) error {
	cmd := protoport.GetRectCmd{R: r}
	return c.do(ctx, cmd, func(tr *metrics.Transfer) error {
		if err := checkRect("get_rect", r); err != nil {
			return err
		}
		if err := checkColors("get_rect", len(dst), r); err != nil {
			return err
		}
		if err := c.send(tr, cmd); err != nil {
			return err
		}
		cr := transport.NewChunkReader(c.s, c.rbuf)
		defer func() {
			tr.BytesRecv, tr.Chunks = cr.BytesRead(), cr.Chunks()
		}()
		i := 0
		err := cr.ReadGroups(r.PayloadSize(), wire.GroupSize, func(chunk []byte) error {
			for off := 0; off < len(chunk); off += wire.GroupSize {
				dst[i] = wire.ColorFromGroup(chunk[off:])
				i++
			}
			return nil
		})
		if err != nil {
			return err
		}
		tr.Pixels = i
		return nil
	})
}
