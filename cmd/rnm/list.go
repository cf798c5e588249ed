package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/query"
	"github.com/Sternrassler/rnm-query/pkg/trigger"
)

// Layout used to turn the record count into scroll positions.
const (
	viewportHeight = 800
	rowHeight      = 120
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list characters, scrolling to the bottom once per page",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "pages",
				Usage: "number of pages to load",
				Value: 1,
				Validator: func(n int) error {
					if n < 1 {
						return fmt.Errorf("pages must be >= 1")
					}
					return nil
				},
			},
			&cli.BoolFlag{
				Name:  "cards",
				Usage: "render cards instead of a table",
			},
		},
		Action: listAction,
	}
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	c, closeClient, err := newClient(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeClient()

	store := query.NewStore[character.Character]()
	defer store.Close()

	characters, err := store.Infinite("characters", c.FetchPage, query.Options{PageSize: character.PageSize})
	if err != nil {
		return err
	}

	start := time.Now()
	snap := scrollPages(ctx, characters, cmd.Int("pages"))

	r := newRenderer(cmd)
	out := writer(cmd)
	if cmd.Bool("cards") {
		fmt.Fprintln(out, r.Cards(snap.Data))
		if footer := r.Footer(snap); footer != "" {
			fmt.Fprintln(out, footer)
		}
	} else {
		fmt.Fprint(out, r.Snapshot(snap))
	}

	fmt.Fprintf(errWriter(cmd), "%s characters, %d pages, %s\n",
		humanize.Comma(int64(len(snap.Data))), snap.Pages, time.Since(start).Round(time.Millisecond))

	if snap.IsError() {
		return snap.Err
	}
	return nil
}

// scrollPages feeds bottom-of-list positions to a watcher until pages have
// been requested, the query is exhausted or a fetch fails.
func scrollPages(ctx context.Context, q *query.Infinite[character.Character], pages int) query.Snapshot[character.Character] {
	updates, cancel := q.Subscribe()
	defer cancel()

	w := trigger.NewWatcher(q)
	snap := q.Snapshot()

	for i := 0; i < pages; i++ {
		docHeight := float64(len(snap.Data) * rowHeight)
		pos := trigger.Position{
			ViewportHeight: viewportHeight,
			ScrollTop:      max(0, docHeight-viewportHeight),
			DocumentHeight: docHeight,
		}

		if w.Handle(ctx, pos) != trigger.OutcomeStarted {
			break
		}

		snap = waitSettled(updates, q)
		if snap.IsError() {
			break
		}
	}

	return q.Snapshot()
}

// waitSettled returns the first snapshot that is not loading. It must be
// called after a fetch has started, so the pending value is never stale.
func waitSettled(updates <-chan query.Snapshot[character.Character], q *query.Infinite[character.Character]) query.Snapshot[character.Character] {
	for snap := range updates {
		if !snap.IsLoading() {
			return snap
		}
	}
	return q.Snapshot()
}
