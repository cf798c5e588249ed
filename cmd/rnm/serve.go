package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/rnm-query/internal/server"
	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/query"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the character query over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address",
				Value:   server.DefaultConfig().Addr,
				Sources: cli.EnvVars("RNM_ADDR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, closeClient, err := newClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeClient()

			store := query.NewStore[character.Character]()
			defer store.Close()

			cfg := server.DefaultConfig()
			cfg.Addr = cmd.String("addr")

			srv, err := server.New(c, store, cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.Run(ctx)
		},
	}
}
