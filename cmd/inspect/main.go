// inspect decodes a captured client-to-server byte stream into commands.
// Input is hex (whitespace ignored) from the arguments or stdin, or raw
// bytes with -raw.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/juanpablocruz/pixelflut/pkg/protoport"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

func main() {
	raw := flag.Bool("raw", false, "stdin is raw bytes instead of hex")
	bodies := flag.Int("bodies", 4, "print_rect colors to show per command, 0=none")
	flag.Parse()

	var data []byte
	var err error
	switch {
	case flag.NArg() > 0:
		data, err = decodeHex(strings.Join(flag.Args(), ""))
	case *raw:
		data, err = io.ReadAll(os.Stdin)
	default:
		var text []byte
		text, err = io.ReadAll(os.Stdin)
		if err == nil {
			data, err = decodeHex(string(text))
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
	if err := inspect(os.Stdout, data, *bodies); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t', ':', ',':
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(s)
}

// inspect prints one line per command plus up to showColors colors of
// each print_rect body. It stops at the first truncated or unknown frame.
func inspect(w io.Writer, data []byte, showColors int) error {
	fmt.Fprintf(w, "%-8s %-11s %-22s %8s %8s\n", "Offset", "Op", "Args", "Body", "Reply")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 61))
	off, n := 0, 0
	for off < len(data) {
		if len(data)-off < wire.FrameSize {
			return fmt.Errorf("offset %d: %d trailing bytes, frame needs %d", off, len(data)-off, wire.FrameSize)
		}
		cmd, err := protoport.DecodeCommand(data[off : off+wire.FrameSize])
		if err != nil {
			return fmt.Errorf("offset %d: %w", off, err)
		}
		start := off
		off += wire.FrameSize

		if fc, ok := cmd.(protoport.FillRectCmd); ok {
			if len(data)-off < wire.GroupSize {
				return fmt.Errorf("offset %d: fill color truncated", off)
			}
			fc.C = wire.ColorFromGroup(data[off:])
			cmd = fc
			off += wire.GroupSize
		}
		body := protoport.BodySize(cmd)
		if len(data)-off < body {
			return fmt.Errorf("offset %d: body of %d bytes truncated to %d", off, body, len(data)-off)
		}
		fmt.Fprintf(w, "%-8d %-11s %-22s %8d %8d\n", start, wire.OpName(cmd.Opcode()), describe(cmd), body, protoport.ReplySize(cmd))
		for i := 0; i < min(showColors, body/wire.GroupSize); i++ {
			fmt.Fprintf(w, "%8s   #%-4d %s\n", "", i, wire.ColorFromGroup(data[off+i*wire.GroupSize:]))
		}
		off += body
		n++
	}
	fmt.Fprintf(w, "\n%d commands, %d bytes\n", n, len(data))
	return nil
}

func describe(cmd protoport.Command) string {
	switch x := cmd.(type) {
	case protoport.InfoCmd:
		return ""
	case protoport.PutPixelCmd:
		return fmt.Sprintf("%d,%d #%s", x.P.X, x.P.Y, x.P.Color)
	case protoport.GetPixelCmd:
		return fmt.Sprintf("%d,%d", x.X, x.Y)
	case protoport.FillRectCmd:
		return fmt.Sprintf("%v #%s", x.R, x.C)
	case protoport.PrintRectCmd:
		return x.R.String()
	case protoport.GetRectCmd:
		return x.R.String()
	default:
		return fmt.Sprintf("%T", cmd)
	}
}
