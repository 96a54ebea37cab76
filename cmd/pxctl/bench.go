package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

func benchCmd(g *globals) *cobra.Command {
	var (
		rounds int
		size   uint16
		out    string
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time fill, print and get round trips",
		Long: `Run fill_rect, print_rect and get_rect on a square at the
canvas origin and report latency percentiles and throughput per opcode.

Examples:
  pxctl bench --rounds 50 --size 256
  pxctl bench --csv commands.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size == 0 || size > wire.MaxRectDim {
				return fmt.Errorf("--size must be in 1..%d", wire.MaxRectDim)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			tele := newTelemetry()
			s, err := g.connect(ctx, tele.handle)
			if err != nil {
				return err
			}
			start := time.Now()
			err = runBench(ctx, s, rounds, size)
			// Close drains the event log, so tele is complete after it.
			_ = s.Close()
			if err != nil {
				return err
			}

			fmt.Printf("  %d rounds of %dx%d in %v\n", rounds, size, size, time.Since(start).Round(time.Millisecond))
			for _, l := range tele.statsLines() {
				fmt.Println("  " + l)
			}
			if out != "" {
				if err := tele.writeCommandsCSV(out); err != nil {
					return err
				}
				fmt.Printf("  wrote %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&rounds, "rounds", "n", 20, "rounds per opcode")
	cmd.Flags().Uint16Var(&size, "size", 128, "square side in pixels")
	cmd.Flags().StringVar(&out, "csv", "", "write per-command rows to this CSV file")
	return cmd
}

func runBench(ctx context.Context, s *session, rounds int, size uint16) error {
	if _, err := s.QueryInfo(ctx); err != nil {
		return err
	}
	r := wire.Rect{W: size, H: size}
	colors := make([]wire.Color, r.Area())
	for i := 0; i < rounds; i++ {
		col := wire.Color{R: byte(i * 13), G: byte(i * 7), B: byte(i)}
		if err := s.FillRect(ctx, col, r); err != nil {
			return err
		}
		for j := range colors {
			colors[j] = wire.Color{R: byte(j), G: byte(i), B: byte(j >> 8)}
		}
		if err := s.PrintRect(ctx, colors, r); err != nil {
			return err
		}
		if _, err := s.GetRect(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
