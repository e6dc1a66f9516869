package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/glimmer/core"
	"pkt.systems/glimmer/internal/appconfig"
	"pkt.systems/glimmer/internal/eventbus"
	"pkt.systems/glimmer/internal/player"
	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/internal/termui"
	"pkt.systems/pslog"
)

const sizePollInterval = 250 * time.Millisecond

type playFlags struct {
	cfgPath      string
	story        string
	theme        string
	recordURL    string
	recordFormat string
	recordLabel  string
	imagesURL    string
	saveDir      string
	logFile      string
	noAutosave   bool
	plain        bool
	trace        bool
}

func newPlayCmd() *cobra.Command {
	var flags playFlags
	cmd := &cobra.Command{
		Use:   "play [flags] [-- command args...]",
		Short: "Play a story in this terminal",
		Long: "Play starts the interpreter named in the config, or the command given after --, " +
			"and runs its display in this terminal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(flags.cfgPath)
			if err != nil {
				return err
			}
			applyPlayFlags(&cfg, flags, args)
			return runPlay(cmd.Context(), cfg, flags)
		},
	}
	cmd.Flags().StringVarP(&flags.cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&flags.story, "story", "", "autosave slot name (default: story file name)")
	cmd.Flags().StringVar(&flags.theme, "theme", "", "color theme")
	cmd.Flags().StringVar(&flags.recordURL, "record", "", "post the transcript to this URL")
	cmd.Flags().StringVar(&flags.recordFormat, "record-format", "", "transcript format: glkote or simple")
	cmd.Flags().StringVar(&flags.recordLabel, "record-label", "", "label sent with every transcript entry")
	cmd.Flags().StringVar(&flags.imagesURL, "images", "", "base URL for story images")
	cmd.Flags().StringVar(&flags.saveDir, "save-dir", "", "directory for save and transcript files")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "write logs and interpreter stderr to this file")
	cmd.Flags().BoolVar(&flags.noAutosave, "no-autosave", false, "do not restore or save display state")
	cmd.Flags().BoolVar(&flags.plain, "plain", false, "plain output without colors or full-screen redraws")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "log every update and event (needs --log-file)")
	return cmd
}

func applyPlayFlags(cfg *appconfig.Config, flags playFlags, args []string) {
	if len(args) > 0 {
		cfg.Peer.Command = args[0]
		cfg.Peer.Args = append([]string(nil), args[1:]...)
	}
	if flags.theme != "" {
		cfg.Terminal.Theme = flags.theme
	}
	if flags.recordURL != "" {
		cfg.Recording.URL = flags.recordURL
	}
	if flags.recordFormat != "" {
		cfg.Recording.Format = flags.recordFormat
	}
	if flags.recordLabel != "" {
		cfg.Recording.Label = flags.recordLabel
	}
	if flags.imagesURL != "" {
		cfg.Images.BaseURL = flags.imagesURL
	}
	if flags.saveDir != "" {
		cfg.Files.SaveDir = flags.saveDir
	}
	if flags.noAutosave {
		cfg.Autosave.Enabled = false
	}
}

func runPlay(ctx context.Context, cfg appconfig.Config, flags playFlags) error {
	logger := pslog.Ctx(ctx)
	var stderr io.Writer
	if flags.logFile != "" {
		file, err := os.OpenFile(flags.logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		defer func() { _ = file.Close() }()
		level := pslog.InfoLevel
		if flags.trace {
			level = pslog.TraceLevel
		}
		logger = pslog.NewWithOptions(file, pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: level})
		stderr = file
	}

	terminal, isTTY, err := termui.OpenTerminal(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer terminal.Restore()
	if isTTY && flags.logFile == "" {
		// The screen owns the terminal; only errors may interrupt it.
		logger = pslog.NewWithOptions(os.Stderr, pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.ErrorLevel})
	}
	ctx = pslog.ContextWithLogger(ctx, logger)

	opts, err := playerOptions(cfg, logger)
	if err != nil {
		return err
	}
	opts.Peer.Stderr = stderr
	opts.SessionID = core.NewSessionID()
	opts.Story = flags.story
	if opts.Story == "" {
		opts.Story = storyName(cfg.Peer)
	}
	cols, rows := terminal.Size(cfg.Terminal.Width, cfg.Terminal.Height)
	opts.Screen.Width, opts.Screen.Height = cols, rows
	opts.Screen.ANSI = isTTY && !flags.plain
	opts.In = os.Stdin
	opts.Out = os.Stdout

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if isTTY {
		resize := make(chan player.Size, 1)
		opts.Resize = resize
		go terminal.WatchSize(runCtx, sizePollInterval, func(c, r int) {
			select {
			case resize <- player.Size{Cols: c, Rows: r}:
			default:
			}
		})
	}
	if flags.trace {
		bus := eventbus.New(logger)
		opts.Monitor = bus
		events, unsubscribe := bus.Subscribe(opts.SessionID)
		defer unsubscribe()
		go traceEvents(runCtx, logger, events)
	}

	logger.Info("play", "story", opts.Story, "peer", cfg.Peer.Command, "cols", cols, "rows", rows, "tty", isTTY,
		"recording", opts.Recording.URL != "", "recording_format", recording.ParseFormat(cfg.Recording.Format))
	err = player.Run(runCtx, opts)
	if opts.Screen.ANSI {
		_, _ = io.WriteString(os.Stdout, "\x1b[0m\r\n")
	}
	return err
}

func traceEvents(ctx context.Context, logger pslog.Logger, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case eventbus.EventUpdate:
				logger.Trace("trace update", "type", ev.Update.Type, "gen", ev.Update.Gen, "windows", len(ev.Update.Windows), "content", len(ev.Update.Content))
			case eventbus.EventOutbound:
				logger.Trace("trace event", "type", ev.Outbound.Type, "gen", ev.Outbound.Gen)
			case eventbus.EventDebugOutput:
				for _, line := range ev.Lines {
					logger.Debug("peer debug", "line", line)
				}
			}
		}
	}
}
