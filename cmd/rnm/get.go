package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
)

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "show one character",
		UsageText: "rnm get ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly one character id")
			}
			id, err := strconv.Atoi(cmd.Args().First())
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid character id %q", cmd.Args().First())
			}

			c, closeClient, err := newClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeClient()

			ch, err := c.GetCharacter(ctx, id)
			if err != nil {
				return err
			}

			fmt.Fprintln(writer(cmd), newRenderer(cmd).Card(ch))
			return nil
		},
	}
}
