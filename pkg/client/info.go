package client

import (
	"context"

	"github.com/juanpablocruz/pixelflut/pkg/metrics"
	"github.com/juanpablocruz/pixelflut/pkg/protoport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

// QueryInfo sends the info frame and decodes the 16-byte reply. The
// result is also kept for ServerInfo.
func (c *Client) QueryInfo(ctx context.Context) (wire.ServerInfo, error) {
	var info wire.ServerInfo
	cmd := protoport.InfoCmd{}
	err := c.do(ctx, cmd, func(tr *metrics.Transfer) error {
		if err := c.send(tr, cmd); err != nil {
			return err
		}
		var reply [wire.InfoReplySize]byte
		if err := c.recv(tr, reply[:]); err != nil {
			return err
		}
		var err error
		info, err = wire.DecodeInfoReply(reply[:])
		if err != nil {
			return err
		}
		c.info, c.hasInfo = info, true
		return nil
	})
	if err != nil {
		return wire.ServerInfo{}, err
	}
	c.log.Info("server info", "width", info.Width, "height", info.Height,
		"recv_buffer", info.RecvBufferSize, "send_buffer", info.SendBufferSize)
	c.emit(EventInfo, map[string]any{"width": info.Width, "height": info.Height})
	return info, nil
}
