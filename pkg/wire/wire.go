// Package wire is the byte-level codec of the canvas protocol. Every
// multi-byte field is little endian. Nothing in here does I/O.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/juanpablocruz/pixelflut/pkg/internal/bin"
)

const (
	OP_INFO       byte = 'I'
	OP_PUT_PIXEL  byte = 'P'
	OP_GET_PIXEL  byte = 'G'
	OP_PRINT_RECT byte = 'p'
	OP_FILL_RECT  byte = 'f'
	OP_GET_RECT   byte = 'g'
)

const (
	FrameSize     = 8  // every command starts with one 8-byte frame
	FillFrameSize = 12 // header + one color group
	InfoReplySize = 16 // 4 x u32
	GroupSize     = 4  // r, g, b, pad/flag

	DefaultPort = 1337
)

var ErrShortBuffer = errors.New("wire: short buffer")

// OpName returns a stable lowercase name for an opcode, used as a
// log/metric label.
func OpName(op byte) string {
	switch op {
	case OP_INFO:
		return "info"
	case OP_PUT_PIXEL:
		return "put_pixel"
	case OP_GET_PIXEL:
		return "get_pixel"
	case OP_PRINT_RECT:
		return "print_rect"
	case OP_FILL_RECT:
		return "fill_rect"
	case OP_GET_RECT:
		return "get_rect"
	default:
		return fmt.Sprintf("unknown_%02x", op)
	}
}

// DecodeU32 assembles b[0..3] with b[0] as the least significant byte.
func DecodeU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func EncodeU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func getU16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

// ServerInfo is the decoded handshake reply.
type ServerInfo struct {
	Width          uint32
	Height         uint32
	RecvBufferSize uint32
	SendBufferSize uint32
}

func (s ServerInfo) String() string {
	return fmt.Sprintf("%dx%d recv=%d send=%d", s.Width, s.Height, s.RecvBufferSize, s.SendBufferSize)
}

func EncodeInfoReply(s ServerInfo) []byte {
	var buf bytes.Buffer
	_ = bin.PutU32(&buf, s.Width)
	_ = bin.PutU32(&buf, s.Height)
	_ = bin.PutU32(&buf, s.RecvBufferSize)
	_ = bin.PutU32(&buf, s.SendBufferSize)
	return buf.Bytes()
}

func DecodeInfoReply(b []byte) (ServerInfo, error) {
	if len(b) != InfoReplySize {
		return ServerInfo{}, fmt.Errorf("info reply: %w: %d bytes", ErrShortBuffer, len(b))
	}
	r := bytes.NewReader(b)
	var s ServerInfo
	for _, dst := range []*uint32{&s.Width, &s.Height, &s.RecvBufferSize, &s.SendBufferSize} {
		v, err := bin.GetU32(r)
		if err != nil {
			return ServerInfo{}, err
		}
		*dst = v
	}
	return s, nil
}
