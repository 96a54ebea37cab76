package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/juanpablocruz/pixelflut/pkg/raster"
	"github.com/juanpablocruz/pixelflut/pkg/wire"
)

func infoCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print canvas size and server buffer sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, s *session) error {
				info, err := s.QueryInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("  Canvas:      %dx%d\n", info.Width, info.Height)
				fmt.Printf("  Recv buffer: %d\n", info.RecvBufferSize)
				fmt.Printf("  Send buffer: %d\n", info.SendBufferSize)
				fmt.Printf("  Session:     %s\n", s.Session())
				return nil
			})
		},
	}
}

func getCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "get X Y",
		Short: "Print the color of one pixel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			xy, err := parseCoords(args)
			if err != nil {
				return err
			}
			return g.run(cmd, func(ctx context.Context, s *session) error {
				col, err := s.GetPixel(ctx, xy[0], xy[1])
				if err != nil {
					return err
				}
				fmt.Println(col)
				return nil
			})
		},
	}
}

func putCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "put X Y RRGGBB",
		Short: "Set one pixel",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			xy, err := parseCoords(args[:2])
			if err != nil {
				return err
			}
			col, err := wire.ParseColor(args[2])
			if err != nil {
				return err
			}
			return g.run(cmd, func(ctx context.Context, s *session) error {
				return s.PutPixel(ctx, wire.Pixel{X: xy[0], Y: xy[1], Color: col})
			})
		},
	}
}

func fillCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "fill X Y W H RRGGBB",
		Short: "Fill a rectangle with one color",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseCoords(args[:4])
			if err != nil {
				return err
			}
			col, err := wire.ParseColor(args[4])
			if err != nil {
				return err
			}
			r := wire.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}
			return g.run(cmd, func(ctx context.Context, s *session) error {
				for _, t := range r.Split(wire.MaxRectDim) {
					if err := s.FillRect(ctx, col, t); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// rectFlags selects a region; zero W or H means up to the canvas edge.
type rectFlags struct {
	x, y, w, h uint16
}

func (rf *rectFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint16Var(&rf.x, "x", 0, "left edge")
	cmd.Flags().Uint16Var(&rf.y, "y", 0, "top edge")
	cmd.Flags().Uint16Var(&rf.w, "w", 0, "width, 0=to the right edge")
	cmd.Flags().Uint16Var(&rf.h, "h", 0, "height, 0=to the bottom edge")
}

func (rf *rectFlags) resolve(info wire.ServerInfo) (wire.Rect, error) {
	r := wire.Rect{X: rf.x, Y: rf.y, W: rf.w, H: rf.h}
	if r.W == 0 {
		if uint32(r.X) >= info.Width {
			return r, fmt.Errorf("x %d is outside the %d wide canvas", r.X, info.Width)
		}
		r.W = uint16(min(info.Width-uint32(r.X), 0xffff))
	}
	if r.H == 0 {
		if uint32(r.Y) >= info.Height {
			return r, fmt.Errorf("y %d is outside the %d high canvas", r.Y, info.Height)
		}
		r.H = uint16(min(info.Height-uint32(r.Y), 0xffff))
	}
	return r, nil
}

func drawCmd(g *globals) *cobra.Command {
	var (
		rf     rectFlags
		scaler string
	)
	cmd := &cobra.Command{
		Use:   "draw FILE",
		Short: "Scale an image into a rectangle and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := raster.Load(args[0])
			if err != nil {
				return err
			}
			return g.run(cmd, func(ctx context.Context, s *session) error {
				info, err := s.QueryInfo(ctx)
				if err != nil {
					return err
				}
				r, err := rf.resolve(info)
				if err != nil {
					return err
				}
				colors, err := raster.FromImage(img, int(r.W), int(r.H), raster.Scaler(scaler))
				if err != nil {
					return err
				}
				return printTiles(ctx, s, colors, r)
			})
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&scaler, "scaler", string(raster.BiLinear), "nearest, bilinear or catmullrom")
	return cmd
}

func snapshotCmd(g *globals) *cobra.Command {
	var rf rectFlags
	cmd := &cobra.Command{
		Use:   "snapshot FILE",
		Short: "Read a rectangle and save it as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, s *session) error {
				info, err := s.QueryInfo(ctx)
				if err != nil {
					return err
				}
				r, err := rf.resolve(info)
				if err != nil {
					return err
				}
				colors, err := getTiles(ctx, s, r)
				if err != nil {
					return err
				}
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				if err := raster.SavePNG(f, colors, int(r.W), int(r.H)); err != nil {
					return err
				}
				fmt.Printf("  saved %v to %s\n", r, args[0])
				return nil
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func invertCmd(g *globals) *cobra.Command {
	var rf rectFlags
	cmd := &cobra.Command{
		Use:   "invert",
		Short: "Invert the colors of a rectangle (default: whole canvas)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, s *session) error {
				info, err := s.QueryInfo(ctx)
				if err != nil {
					return err
				}
				r, err := rf.resolve(info)
				if err != nil {
					return err
				}
				return invertRect(ctx, s, r)
			})
		},
	}
	rf.register(cmd)
	return cmd
}

// demoCmd replays the reference client session: info, a 10x10 gray
// ramp at the center, then invert the whole canvas.
func demoCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Draw a gray ramp at the center and invert the canvas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, func(ctx context.Context, s *session) error {
				info, err := s.QueryInfo(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("  %v\n", info)
				if info.Width < 10 || info.Height < 10 {
					return fmt.Errorf("canvas %dx%d too small for the demo", info.Width, info.Height)
				}
				center := wire.Rect{X: uint16(info.Width/2 - 5), Y: uint16(info.Height/2 - 5), W: 10, H: 10}
				ramp := make([]wire.Color, center.Area())
				for i := range ramp {
					ramp[i] = wire.Color{R: byte(i), G: byte(i), B: byte(i)}
				}
				if err := s.PrintRect(ctx, ramp, center); err != nil {
					return err
				}
				whole := wire.Rect{W: uint16(min(info.Width, 0xffff)), H: uint16(min(info.Height, 0xffff))}
				return invertRect(ctx, s, whole)
			})
		},
	}
}

func invertRect(ctx context.Context, s *session, r wire.Rect) error {
	for _, t := range r.Split(wire.MaxRectDim) {
		colors, err := s.GetRect(ctx, t)
		if err != nil {
			return err
		}
		if err := s.PrintRect(ctx, raster.Invert(colors), t); err != nil {
			return err
		}
	}
	return nil
}

// printTiles prints a row-major W x H color slice, one command per tile.
func printTiles(ctx context.Context, s *session, colors []wire.Color, r wire.Rect) error {
	for _, t := range r.Split(wire.MaxRectDim) {
		if err := s.PrintRect(ctx, crop(colors, r, t), t); err != nil {
			return err
		}
	}
	return nil
}

func getTiles(ctx context.Context, s *session, r wire.Rect) ([]wire.Color, error) {
	out := make([]wire.Color, r.Area())
	for _, t := range r.Split(wire.MaxRectDim) {
		part, err := s.GetRect(ctx, t)
		if err != nil {
			return nil, err
		}
		paste(out, r, part, t)
	}
	return out, nil
}

// crop copies tile t out of the row-major colors of r.
func crop(colors []wire.Color, r, t wire.Rect) []wire.Color {
	out := make([]wire.Color, 0, t.Area())
	for y := 0; y < int(t.H); y++ {
		off := (int(t.Y-r.Y)+y)*int(r.W) + int(t.X-r.X)
		out = append(out, colors[off:off+int(t.W)]...)
	}
	return out
}

func paste(dst []wire.Color, r wire.Rect, part []wire.Color, t wire.Rect) {
	for y := 0; y < int(t.H); y++ {
		off := (int(t.Y-r.Y)+y)*int(r.W) + int(t.X-r.X)
		copy(dst[off:off+int(t.W)], part[y*int(t.W):(y+1)*int(t.W)])
	}
}

func parseCoords(args []string) ([]uint16, error) {
	out := make([]uint16, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q): %w", i+1, a, err)
		}
		out[i] = uint16(v)
	}
	return out, nil
}
