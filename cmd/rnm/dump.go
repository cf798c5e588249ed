package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/client"
	"github.com/Sternrassler/rnm-query/pkg/pagination"
)

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "export every character as JSON lines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file, stdout when empty",
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "parallel page requests",
				Value: pagination.DefaultConfig().MaxConcurrency,
			},
		},
		Action: dumpAction,
	}
}

func dumpAction(ctx context.Context, cmd *cli.Command) error {
	c, closeClient, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeClient()

	cfg := pagination.DefaultConfig()
	cfg.MaxConcurrency = cmd.Int("concurrency")

	start := time.Now()
	pages, fetchErr := pagination.NewBatchFetcher(c, cfg).FetchAllPages(ctx, client.CharacterEndpoint)
	if len(pages) == 0 {
		return fetchErr
	}

	out := writer(cmd)
	if path := cmd.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	records, size, err := writeRecords(out, pagination.Ordered(pages))
	if err != nil {
		return err
	}

	fmt.Fprintf(errWriter(cmd), "dumped %s characters from %d pages (%s) in %s\n",
		humanize.Comma(int64(records)), len(pages), humanize.Bytes(uint64(size)),
		time.Since(start).Round(time.Millisecond))

	return fetchErr
}

// writeRecords decodes page bodies and writes one character per line.
func writeRecords(w io.Writer, bodies [][]byte) (records, size int, err error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	for _, body := range bodies {
		size += len(body)

		page, err := character.DecodePage(body)
		if err != nil {
			return records, size, err
		}
		for _, c := range page.Results {
			if err := enc.Encode(c); err != nil {
				return records, size, fmt.Errorf("write record: %w", err)
			}
			records++
		}
	}

	if err := bw.Flush(); err != nil {
		return records, size, fmt.Errorf("flush output: %w", err)
	}
	return records, size, nil
}
