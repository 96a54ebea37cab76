// pxview shows a live, pannable view of a canvas in the terminal. Each
// character cell draws two canvas pixels with an upper half block.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/juanpablocruz/pixelflut/pkg/client"
)

var (
	flAddr    = flag.String("addr", client.DefaultConfig().Addr, "server address")
	flRefresh = flag.Duration("refresh", 500*time.Millisecond, "redraw period")
	flBuffer  = flag.Int("buffer-size", client.DefaultBufferSize, "transfer buffer size in bytes")
	flStep    = flag.Int("step", 8, "pixels per arrow key press")
)

func main() {
	flag.Parse()

	// Keep slog output off the alternate screen.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})))

	cfg := client.DefaultConfig()
	cfg.Addr = *flAddr
	cfg.BufferSize = *flBuffer
	cfg.IOTimeout = 5 * time.Second

	ctx := context.Background()
	c, err := client.Dial(ctx, cfg)
	if err != nil {
		log.Fatalf("connect %s: %v", *flAddr, err)
	}
	defer c.Close()
	info, err := c.QueryInfo(ctx)
	if err != nil {
		log.Fatalf("query info: %v", err)
	}

	p := tea.NewProgram(newModel(c, info, *flRefresh, *flStep), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("TUI error: %v", err)
	}
}
