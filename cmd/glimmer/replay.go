package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/internal/appconfig"
	"pkt.systems/glimmer/internal/peer"
	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/internal/termui"
	"pkt.systems/pslog"
)

type replayFlags struct {
	cfgPath   string
	cols      int
	rows      int
	events    string
	recording bool
	paging    bool
}

func newReplayCmd() *cobra.Command {
	var flags replayFlags
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Apply a file of updates headlessly and print the final screen",
		Long: "Replay feeds the updates in FILE (\"-\" for stdin) to a display session and prints " +
			"the resulting screen. With --recording, FILE is a glkote transcript as stored by serve.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(flags.cfgPath)
			if err != nil {
				return err
			}
			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn()
			var events io.Writer = io.Discard
			if flags.events != "" {
				file, err := os.Create(flags.events)
				if err != nil {
					return err
				}
				defer func() { _ = file.Close() }()
				events = file
			}
			return runReplay(cmd.Context(), cfg, flags, in, cmd.OutOrStdout(), events)
		},
	}
	cmd.Flags().StringVarP(&flags.cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().IntVar(&flags.cols, "cols", 80, "screen width")
	cmd.Flags().IntVar(&flags.rows, "rows", 24, "screen height including the status line")
	cmd.Flags().StringVar(&flags.events, "events", "", "write the events the session sends to this file")
	cmd.Flags().BoolVar(&flags.recording, "recording", false, "read a glkote transcript instead of raw updates")
	cmd.Flags().BoolVar(&flags.paging, "paging", false, "keep more prompts instead of showing all output")
	return cmd
}

func openInput(cmd *cobra.Command, name string) (io.Reader, func(), error) {
	if name == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	file, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

// runReplay drives a headless session from in and renders the final screen
// to out. Events the session sends are written to events as JSON lines.
func runReplay(ctx context.Context, cfg appconfig.Config, flags replayFlags, in io.Reader, out, events io.Writer) error {
	logger := pslog.Ctx(ctx)
	if flags.recording {
		pr, pw := io.Pipe()
		go func() { _ = pw.CloseWithError(transcriptUpdates(in, pw)) }()
		defer func() { _ = pr.Close() }()
		in = pr
	}
	stream := peer.NewStream(in, events, logger)
	defer func() { _ = stream.Close() }()

	sessionCfg := cfg.SessionConfig()
	sessionCfg.DisablePaging = !flags.paging
	sessionCfg.FontLoadDelay = 0
	screen := termui.New(termui.Options{Width: flags.cols, Height: flags.rows, Logger: logger})
	sess, err := core.NewSession(ctx, sessionCfg, core.SessionDeps{
		Surface: screen,
		Metrics: screen,
		Sink:    stream,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()
	if err := sess.Init(ctx); err != nil {
		return err
	}

	applied := 0
	for {
		update, err := stream.Next(ctx)
		if errors.Is(err, peer.ErrClosed) {
			break
		}
		if err != nil {
			return err
		}
		if err := sess.Update(ctx, update); err != nil {
			logger.Warn("replay update rejected items", "gen", update.Gen, "err", err)
		}
		applied++
	}
	sess.Drain()
	logger.Info("replay done", "updates", applied)
	return screen.Render(out)
}

// transcriptUpdates copies the update of every glkote transcript entry in r
// to w, one JSON value per line.
func transcriptUpdates(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry struct {
			Format recording.Format `json:"format"`
			Output json.RawMessage  `json:"output"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return fmt.Errorf("transcript line %d: %w", line, err)
		}
		if entry.Format != recording.FormatGlkote || len(entry.Output) == 0 {
			continue
		}
		if _, err := w.Write(append(entry.Output, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}
