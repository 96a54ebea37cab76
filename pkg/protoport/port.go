// Package protoport maps the closed set of canvas commands to and from
// their wire frames.
package protoport

import (
	"errors"
	"fmt"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

// Command is a typed union of the protocol's request frames.
type Command interface {
	Opcode() byte
	isCommand()
}

type (
	InfoCmd     struct{}
	PutPixelCmd struct{ P wire.Pixel }
	GetPixelCmd struct{ X, Y uint16 }
	// PrintRectCmd is only the header; R.Area() color groups follow it.
	PrintRectCmd struct{ R wire.Rect }
	GetRectCmd   struct{ R wire.Rect }
)

type FillRectCmd struct {
	R wire.Rect
	C wire.Color
}

func (InfoCmd) isCommand()      {}
func (PutPixelCmd) isCommand()  {}
func (GetPixelCmd) isCommand()  {}
func (FillRectCmd) isCommand()  {}
func (PrintRectCmd) isCommand() {}
func (GetRectCmd) isCommand()   {}

func (InfoCmd) Opcode() byte      { return wire.OP_INFO }
func (PutPixelCmd) Opcode() byte  { return wire.OP_PUT_PIXEL }
func (GetPixelCmd) Opcode() byte  { return wire.OP_GET_PIXEL }
func (FillRectCmd) Opcode() byte  { return wire.OP_FILL_RECT }
func (PrintRectCmd) Opcode() byte { return wire.OP_PRINT_RECT }
func (GetRectCmd) Opcode() byte   { return wire.OP_GET_RECT }

var ErrUnknownOpcode = errors.New("protoport: unknown opcode")

// EncodeCommand returns the request frame for m. Rect commands must carry
// a validated rect. ok=false for an unknown command type.
func EncodeCommand(m Command) (frame []byte, ok bool) {
	switch x := m.(type) {
	case InfoCmd:
		frame = make([]byte, wire.FrameSize)
	case PutPixelCmd:
		frame = make([]byte, wire.FrameSize)
		wire.EncodePixel(x.P, frame)
	case GetPixelCmd:
		frame = make([]byte, wire.FrameSize)
		wire.EncodePixel(wire.Pixel{X: x.X, Y: x.Y}, frame)
	case FillRectCmd:
		frame = make([]byte, wire.FillFrameSize)
		wire.EncodeRect(x.R, frame)
		wire.PutColorGroup(frame[wire.FrameSize:], x.C)
	case PrintRectCmd:
		frame = make([]byte, wire.FrameSize)
		wire.EncodeRect(x.R, frame)
	case GetRectCmd:
		frame = make([]byte, wire.FrameSize)
		wire.EncodeRect(x.R, frame)
	default:
		return nil, false
	}
	frame[0] = m.Opcode()
	return frame, true
}

// DecodeCommand parses an 8-byte request frame. For FillRectCmd the color
// is not part of the frame; the caller reads the following color group
// and sets C.
func DecodeCommand(frame []byte) (Command, error) {
	if len(frame) < wire.FrameSize {
		return nil, fmt.Errorf("command frame: %w: %d bytes", wire.ErrShortBuffer, len(frame))
	}
	switch frame[0] {
	case wire.OP_INFO:
		return InfoCmd{}, nil
	case wire.OP_PUT_PIXEL:
		return PutPixelCmd{P: wire.DecodePixel(frame)}, nil
	case wire.OP_GET_PIXEL:
		p := wire.DecodePixel(frame)
		return GetPixelCmd{X: p.X, Y: p.Y}, nil
	case wire.OP_FILL_RECT:
		return FillRectCmd{R: wire.DecodeRect(frame)}, nil
	case wire.OP_PRINT_RECT:
		return PrintRectCmd{R: wire.DecodeRect(frame)}, nil
	case wire.OP_GET_RECT:
		return GetRectCmd{R: wire.DecodeRect(frame)}, nil
	default:
		return nil, fmt.Errorf("%w: %#x", ErrUnknownOpcode, frame[0])
	}
}

// ReplySize is the number of bytes the server sends back for m.
func ReplySize(m Command) int {
	switch x := m.(type) {
	case InfoCmd:
		return wire.InfoReplySize
	case GetPixelCmd:
		return wire.GroupSize
	case GetRectCmd:
		return x.R.PayloadSize()
	default:
		return 0
	}
}

// BodySize is the number of bytes that follow the encoded frame on the
// request side.
func BodySize(m Command) int {
	if x, ok := m.(PrintRectCmd); ok {
		return x.R.PayloadSize()
	}
	return 0
}
