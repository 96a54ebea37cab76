package client

import (
	"context"

	"github.com/juanpablocruz/pixelflut/pkg/metrics"
	"github.com/juanpablocruz/pixelflut/pkg/protoport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

// PutPixel writes one pixel. There is no reply.
func (c *Client) PutPixel(ctx context.Context, p wire.Pixel) error {
	cmd := protoport.PutPixelCmd{P: p}
	return c.do(ctx, cmd, func(tr *metrics.Transfer) error {
		tr.Pixels = 1
		return c.send(tr, cmd)
	})
}

// GetPixel reads one pixel. The reply's 4th byte is read and dropped.
func (c *Client) GetPixel(ctx context.Context, x, y uint16) (wire.Color, error) {
	var col wire.Color
	cmd := protoport.GetPixelCmd{X: x, Y: y}
	err := c.do(ctx, cmd, func(tr *metrics.Transfer) error {
		if err := c.send(tr, cmd); err != nil {
			return err
		}
		var reply [wire.GroupSize]byte
		if err := c.recv(tr, reply[:]); err != nil {
			return err
		}
		col = wire.ColorFromGroup(reply[:])
		tr.Pixels = 1
		return nil
	})
	return col, err
}
