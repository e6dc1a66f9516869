package main

import (
	"path/filepath"
	"strings"

	"pkt.systems/glimmer/internal/appconfig"
	"pkt.systems/glimmer/internal/imagefetch"
	"pkt.systems/glimmer/internal/peer"
	"pkt.systems/glimmer/internal/persist"
	"pkt.systems/glimmer/internal/player"
	"pkt.systems/glimmer/internal/recording"
	"pkt.systems/glimmer/internal/termui"
	"pkt.systems/pslog"
)

// playerOptions builds the session template shared by play and serve.
func playerOptions(cfg appconfig.Config, logger pslog.Logger) (player.Options, error) {
	opts := player.Options{
		Session: cfg.SessionConfig(),
		Peer: peer.Config{
			Command: cfg.Peer.Command,
			Args:    append([]string(nil), cfg.Peer.Args...),
			Env:     cfg.Peer.Env,
			Dir:     cfg.Peer.Dir,
			Logger:  logger,
		},
		Screen:  termui.Options{Theme: cfg.Terminal.Theme, Logger: logger},
		SaveDir: cfg.Files.SaveDir,
		Logger:  logger,
	}

	images, err := imagefetch.New(imagefetch.Config{
		BaseURL: cfg.Images.BaseURL,
		Timeout: cfg.Images.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return player.Options{}, err
	}
	opts.Images = images

	if cfg.Autosave.Enabled {
		store, err := persist.NewStoreWithLogger(cfg.Autosave.Dir, logger)
		if err != nil {
			return player.Options{}, err
		}
		opts.Autosave = store
	}

	if strings.TrimSpace(cfg.Recording.URL) != "" {
		opts.Recording = recording.Config{
			URL:    cfg.Recording.URL,
			Format: recording.ParseFormat(cfg.Recording.Format),
			Label:  cfg.Recording.Label,
		}
	}
	return opts, nil
}

// storyName picks the autosave slot: the story file the peer runs, or the
// peer command when it takes no arguments.
func storyName(cfg appconfig.PeerConfig) string {
	for i := len(cfg.Args) - 1; i >= 0; i-- {
		arg := cfg.Args[i]
		if arg != "" && !strings.HasPrefix(arg, "-") {
			return filepath.Base(arg)
		}
	}
	return filepath.Base(cfg.Command)
}
