// Package trigger turns scroll positions into "fetch next page" requests.
//
// A Watcher does not guard against duplicate requests itself. It relies on
// the Pager, normally a *query.Infinite, to ignore calls while a fetch is
// in flight or after the last page.
package trigger

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var scrollEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rnm_scroll_events_total",
	Help: "Scroll events by outcome",
}, []string{"outcome"})

// Outcomes of a handled scroll event.
const (
	OutcomeNotAtBottom = "not_at_bottom"
	OutcomeIgnored     = "ignored"
	OutcomeStarted     = "started"
)

// Position is the scroll state of a viewport over a document, in pixels.
type Position struct {
	ViewportHeight float64 `json:"viewportHeight"`
	ScrollTop      float64 `json:"scrollTop"`
	DocumentHeight float64 `json:"documentHeight"`
}

// AtBottom reports whether the viewport reaches the end of the document.
func (p Position) AtBottom() bool {
	return p.ViewportHeight+p.ScrollTop >= p.DocumentHeight
}

// Pager starts loading the next page if it can.
type Pager interface {
	TryFetchNext(ctx context.Context) bool
}

// Stats counts events seen by a Watcher.
type Stats struct {
	Events  int64 `json:"events"`
	Fired   int64 `json:"fired"`
	Started int64 `json:"started"`
}

// Watcher calls Pager.TryFetchNext whenever a position reaches the bottom.
type Watcher struct {
	pager  Pager
	logger zerolog.Logger

	events  atomic.Int64
	fired   atomic.Int64
	started atomic.Int64
}

// NewWatcher creates a watcher for pager.
func NewWatcher(pager Pager) *Watcher {
	if pager == nil {
		panic("trigger: pager cannot be nil")
	}
	return &Watcher{
		pager:  pager,
		logger: log.With().Str("component", "scroll-trigger").Logger(),
	}
}

// Handle processes one scroll event and returns its outcome.
func (w *Watcher) Handle(ctx context.Context, pos Position) string {
	w.events.Add(1)

	if !pos.AtBottom() {
		scrollEvents.WithLabelValues(OutcomeNotAtBottom).Inc()
		return OutcomeNotAtBottom
	}
	w.fired.Add(1)

	if !w.pager.TryFetchNext(ctx) {
		scrollEvents.WithLabelValues(OutcomeIgnored).Inc()
		return OutcomeIgnored
	}
	w.started.Add(1)
	scrollEvents.WithLabelValues(OutcomeStarted).Inc()

	w.logger.Debug().
		Float64("scroll_top", pos.ScrollTop).
		Float64("document_height", pos.DocumentHeight).
		Msg("Bottom reached, fetching next page")

	return OutcomeStarted
}

// Run handles positions until the channel is closed or ctx is done.
func (w *Watcher) Run(ctx context.Context, positions <-chan Position) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok := <-positions:
			if !ok {
				return nil
			}
			w.Handle(ctx, pos)
		}
	}
}

// Stats returns the counts so far.
func (w *Watcher) Stats() Stats {
	return Stats{
		Events:  w.events.Load(),
		Fired:   w.fired.Load(),
		Started: w.started.Load(),
	}
}
