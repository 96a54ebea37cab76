package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/juanpablocruz/pixelflut/pkg/client"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	addr       string
	bufferSize int
	timeout    time.Duration
	ioTimeout  time.Duration
	logLevel   string
	eventsFile string
}

func main() {
	g := &globals{}
	rootCmd := &cobra.Command{
		Use:   "pxctl",
		Short: "Talk to a pixelflut canvas server",
		Long: `pxctl sends canvas commands to a pixelflut server.

Examples:
  pxctl info
  pxctl put 10 10 ff0000
  pxctl fill 395 295 10 10 ff0000
  pxctl draw logo.png --x 100 --y 100 --w 64 --h 64
  pxctl snapshot canvas.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setupLogging()
		},
	}

	def := client.DefaultConfig()
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.addr, "addr", "a", def.Addr, "server address")
	pf.IntVar(&g.bufferSize, "buffer-size", def.BufferSize, "transfer buffer size in bytes (multiple of 4, >= 8)")
	pf.DurationVar(&g.timeout, "timeout", def.DialTimeout, "dial timeout")
	pf.DurationVar(&g.ioTimeout, "io-timeout", 0, "per-command I/O timeout, 0=none")
	pf.StringVar(&g.logLevel, "log-level", "warn", "debug, info, warn or error")
	pf.StringVar(&g.eventsFile, "events", "", "append client events as JSON lines to this file")

	rootCmd.AddCommand(
		infoCmd(g),
		getCmd(g),
		putCmd(g),
		fillCmd(g),
		drawCmd(g),
		snapshotCmd(g),
		invertCmd(g),
		demoCmd(g),
		benchCmd(g),
		playCmd(g),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func (g *globals) setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func (g *globals) config() client.Config {
	return client.Config{
		Addr:        g.addr,
		BufferSize:  g.bufferSize,
		DialTimeout: g.timeout,
		IOTimeout:   g.ioTimeout,
	}
}

// session is a connected client plus the event recorder, if enabled.
type session struct {
	*client.Client
	rec *eventLog
}

// connect dials the server. tap, if set, sees every client event.
func (g *globals) connect(ctx context.Context, tap func(client.Event)) (*session, error) {
	s := &session{}
	var opts []client.Option
	if g.eventsFile != "" || tap != nil {
		rec, err := openEventLog(g.eventsFile, tap)
		if err != nil {
			return nil, err
		}
		s.rec = rec
		opts = append(opts, client.WithEvents(rec.events))
	}
	c, err := client.Dial(ctx, g.config(), opts...)
	if err != nil {
		s.closeLog()
		return nil, err
	}
	s.Client = c
	return s, nil
}

func (s *session) Close() error {
	err := s.Client.Close()
	s.closeLog()
	return err
}

func (s *session) closeLog() {
	if s.rec != nil {
		s.rec.Close()
	}
}

// run dials, runs fn and closes the connection.
func (g *globals) run(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := g.connect(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
