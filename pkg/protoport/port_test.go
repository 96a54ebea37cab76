package protoport

import (
	"bytes"
	"errors"
	"testing"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

func TestEncodeCommandFrames(t *testing.T) {
	cases := []struct {
		m    Command
		want []byte
	}{
		{InfoCmd{}, []byte{'I', 0, 0, 0, 0, 0, 0, 0}},
		{PutPixelCmd{P: wire.Pixel{X: 300, Y: 2, Color: wire.Color{R: 1, G: 2, B: 3}}}, []byte{'P', 44, 1, 2, 0, 1, 2, 3}},
		{GetPixelCmd{X: 1, Y: 513}, []byte{'G', 1, 0, 1, 2, 0, 0, 0}},
		{FillRectCmd{R: wire.Rect{X: 395, Y: 295, W: 10, H: 10}, C: wire.Color{R: 255}}, []byte{'f', 139, 1, 39, 1, 10, 10, 0, 255, 0, 0, 0}},
		{PrintRectCmd{R: wire.Rect{W: 4095, H: 256}}, []byte{'p', 0, 0, 0, 0, 0xff, 0, 0x1f}},
		{GetRectCmd{R: wire.Rect{X: 1, Y: 1, W: 2, H: 2}}, []byte{'g', 1, 0, 1, 0, 2, 2, 0}},
	}
	for _, c := range cases {
		got, ok := EncodeCommand(c.m)
		if !ok {
			t.Fatalf("encode failed for %T", c.m)
		}
		if !bytes.Equal(got, c.want) {
			t.Fatalf("%T: got %v want %v", c.m, got, c.want)
		}
	}
}

type bogusCmd struct{}

func (bogusCmd) Opcode() byte { return 'z' }
func (bogusCmd) isCommand()   {}

func TestEncodeUnknownCommand(t *testing.T) {
	if _, ok := EncodeCommand(bogusCmd{}); ok {
		t.Fatalf("expected ok=false for unknown command")
	}
}

func TestDecodeCommandRoundtrip(t *testing.T) {
	cmds := []Command{
		InfoCmd{},
		PutPixelCmd{P: wire.Pixel{X: 7, Y: 9, Color: wire.Color{R: 4, G: 5, B: 6}}},
		GetPixelCmd{X: 65535, Y: 1},
		FillRectCmd{R: wire.Rect{X: 3, Y: 4, W: 4095, H: 4095}},
		PrintRectCmd{R: wire.Rect{W: 1000, H: 3000}},
		GetRectCmd{R: wire.Rect{X: 10, Y: 20, W: 30, H: 40}},
	}
	for _, m := range cmds {
		frame, _ := EncodeCommand(m)
		got, err := DecodeCommand(frame[:wire.FrameSize])
		if err != nil {
			t.Fatalf("%T: %v", m, err)
		}
		if got != m {
			t.Fatalf("roundtrip mismatch: in=%#v out=%#v", m, got)
		}
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	if _, err := DecodeCommand([]byte{'I', 0, 0}); !errors.Is(err, wire.ErrShortBuffer) {
		t.Fatalf("expected short buffer error, got %v", err)
	}
	if _, err := DecodeCommand([]byte{'x', 0, 0, 0, 0, 0, 0, 0}); !errors.Is(err, ErrUnknownOpcode) {
		t.Fatalf("expected unknown opcode, got %v", err)
	}
}

func TestReplyAndBodySizes(t *testing.T) {
	r := wire.Rect{W: 3, H: 5}
	if ReplySize(InfoCmd{}) != 16 || ReplySize(GetPixelCmd{}) != 4 || ReplySize(GetRectCmd{R: r}) != 60 {
		t.Fatalf("reply sizes wrong")
	}
	if ReplySize(PutPixelCmd{}) != 0 || ReplySize(PrintRectCmd{R: r}) != 0 {
		t.Fatalf("write-only commands must not expect replies")
	}
	if BodySize(PrintRectCmd{R: r}) != 60 || BodySize(FillRectCmd{R: r}) != 0 {
		t.Fatalf("body sizes wrong")
	}
}
