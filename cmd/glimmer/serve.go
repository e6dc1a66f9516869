package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/glimmer"
	"pkt.systems/glimmer/httpapi"
	"pkt.systems/glimmer/internal/appconfig"
	"pkt.systems/glimmer/sshserver"
	"pkt.systems/pslog"
)

const stopTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var cfgPath string
	var noSSH bool
	var noHTTP bool
	cmd := &cobra.Command{
		Use:   "serve [flags] [-- command args...]",
		Short: "Serve the story over SSH and receive transcript recordings over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Peer.Command = args[0]
				cfg.Peer.Args = append([]string(nil), args[1:]...)
			}
			serverCfg, opts, err := serverConfig(cfg, logger)
			if err != nil {
				return err
			}
			if noSSH {
				opts = removeOption(opts, "ssh")
			}
			if noHTTP {
				opts = removeOption(opts, "http")
			}
			if len(opts) == 0 {
				return errors.New("both --no-ssh and --no-http given; nothing to serve")
			}
			srv, err := glimmer.New(serverCfg, serverOptions(opts)...)
			if err != nil {
				return err
			}
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			err = srv.Wait()
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), stopTimeout)
			defer cancel()
			_ = srv.Stop(stopCtx)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "do not start the SSH story server")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not start the recording receiver")
	return cmd
}

// serverConfig maps the app config to the compositor config. The returned
// names list the services to enable.
func serverConfig(cfg appconfig.Config, logger pslog.Logger) (glimmer.ServerConfig, []string, error) {
	play, err := playerOptions(cfg, logger)
	if err != nil {
		return glimmer.ServerConfig{}, nil, err
	}
	out := glimmer.ServerConfig{
		HTTP: httpapi.Config{
			Addr:      cfg.HTTP.Addr,
			RecordDir: cfg.HTTP.RecordDir,
			BasePath:  cfg.HTTP.BasePath,
		},
		SSH: sshserver.Config{
			Addr:               cfg.SSH.Addr,
			HostKeyPath:        cfg.SSH.HostKeyPath,
			HostKeyType:        cfg.SSH.HostKeyType,
			AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
			Story:              cfg.SSH.Story,
			Theme:              cfg.Terminal.Theme,
		},
		Play:       play,
		HubHistory: 1000,
	}
	if path := strings.TrimSpace(cfg.SSH.AuthorizedKeysPath); path != "" {
		keys, err := sshserver.LoadAuthorizedKeys(path)
		if err != nil {
			return glimmer.ServerConfig{}, nil, err
		}
		out.Keys = keys
		logger.Info("ssh authorized keys loaded", "path", path, "keys", keys.Len())
	}
	return out, []string{"ssh", "http"}, nil
}

func removeOption(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func serverOptions(names []string) []glimmer.ServerOption {
	opts := make([]glimmer.ServerOption, 0, len(names))
	for _, name := range names {
		switch name {
		case "ssh":
			opts = append(opts, glimmer.WithSSH())
		case "http":
			opts = append(opts, glimmer.WithHTTP())
		}
	}
	return opts
}
