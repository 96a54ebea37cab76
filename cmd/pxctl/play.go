package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/juanpablocruz/pixelflut/internal/feed"
)

func playCmd(g *globals) *cobra.Command {
	var loops int
	cmd := &cobra.Command{
		Use:   "play SCRIPT",
		Short: "Run a ';'-separated command script",
		Long: `Run the commands of a script file, one per line:

  info
  put;X;Y;RRGGBB
  get;X;Y
  fill;X;Y;W;H;RRGGBB
  getrect;X;Y;W;H
  invert;X;Y;W;H
  sleep;DURATION

Lines starting with '#' are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := feed.Load(args[0])
			if err != nil {
				return err
			}
			return g.run(cmd, func(ctx context.Context, s *session) error {
				for i := 0; loops <= 0 || i < loops; i++ {
					for _, st := range steps {
						if err := playStep(ctx, s, st); err != nil {
							return fmt.Errorf("line %d (%s): %w", st.Line, st.Kind, err)
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&loops, "loops", 1, "times to run the script, 0=forever")
	return cmd
}

func playStep(ctx context.Context, s *session, st feed.Step) error {
	switch st.Kind {
	case feed.Info:
		info, err := s.QueryInfo(ctx)
		if err == nil {
			fmt.Printf("  %v\n", info)
		}
		return err
	case feed.Put:
		return s.PutPixel(ctx, st.Pixel)
	case feed.Get:
		col, err := s.GetPixel(ctx, st.Pixel.X, st.Pixel.Y)
		if err == nil {
			fmt.Printf("  %d,%d %s\n", st.Pixel.X, st.Pixel.Y, col)
		}
		return err
	case feed.Fill:
		return s.FillRect(ctx, st.Color, st.Rect)
	case feed.GetRect:
		colors, err := s.GetRect(ctx, st.Rect)
		if err == nil {
			fmt.Printf("  %v: %d colors\n", st.Rect, len(colors))
		}
		return err
	case feed.Invert:
		return invertRect(ctx, s, st.Rect)
	case feed.Sleep:
		select {
		case <-time.After(st.Wait):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		return fmt.Errorf("unhandled step %q", st.Kind)
	}
}
