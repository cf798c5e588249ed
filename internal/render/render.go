// Package render formats characters and query state for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Sternrassler/rnm-query/pkg/character"
	"github.com/Sternrassler/rnm-query/pkg/query"
)

// cardWidth is the minimum inner width of a card, padding included.
const cardWidth = 48

// Status glyphs.
const (
	GlyphAlive   = "✔"
	GlyphDead    = "✘"
	GlyphUnknown = "?"
)

// Glyph returns the marker shown next to a status.
func Glyph(s character.Status) string {
	switch s {
	case character.StatusAlive:
		return GlyphAlive
	case character.StatusDead:
		return GlyphDead
	default:
		return GlyphUnknown
	}
}

// Renderer holds the styles used for output.
type Renderer struct {
	name    lipgloss.Style
	faint   lipgloss.Style
	card    lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	alive   lipgloss.Style
	dead    lipgloss.Style
	unknown lipgloss.Style
	footer  lipgloss.Style
	failure lipgloss.Style
}

// New creates a renderer. With color false no foreground colors are set.
func New(color bool) *Renderer {
	r := &Renderer{
		name:    lipgloss.NewStyle().Bold(true),
		faint:   lipgloss.NewStyle().Faint(true),
		card:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		header:  lipgloss.NewStyle().Bold(true).Align(lipgloss.Left),
		cell:    lipgloss.NewStyle().Align(lipgloss.Left).PaddingRight(2),
		alive:   lipgloss.NewStyle(),
		dead:    lipgloss.NewStyle(),
		unknown: lipgloss.NewStyle(),
		footer:  lipgloss.NewStyle().Italic(true),
		failure: lipgloss.NewStyle().Bold(true),
	}

	if color {
		r.alive = r.alive.Foreground(lipgloss.Color("#55cc44"))
		r.dead = r.dead.Foreground(lipgloss.Color("#d63d2e"))
		r.unknown = r.unknown.Foreground(lipgloss.Color("#9e9e9e"))
		r.header = r.header.Foreground(lipgloss.Color("#f6be00"))
		r.card = r.card.BorderForeground(lipgloss.Color("#00c8f0"))
		r.failure = r.failure.Foreground(lipgloss.Color("#d63d2e"))
	}

	return r
}

func (r *Renderer) statusStyle(s character.Status) lipgloss.Style {
	switch s {
	case character.StatusAlive:
		return r.alive
	case character.StatusDead:
		return r.dead
	default:
		return r.unknown
	}
}

// Status renders "✔ Alive - Human".
func (r *Renderer) Status(c character.Character) string {
	marker := r.statusStyle(c.Status).Render(Glyph(c.Status) + " " + string(c.Status))
	return marker + " - " + c.Species
}

// Card renders one character as a bordered card.
func (r *Renderer) Card(c character.Character) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		r.name.Render(c.Name),
		r.Status(c),
		r.faint.Render(c.Image),
	)
	// Cards grow to fit their longest line so the image URI is never wrapped.
	width := max(cardWidth, lipgloss.Width(body)+r.card.GetHorizontalPadding())
	return r.card.Width(width).Render(body)
}

// Cards renders characters as cards stacked vertically.
func (r *Renderer) Cards(chars []character.Character) string {
	cards := make([]string, len(chars))
	for i, c := range chars {
		cards[i] = r.Card(c)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// Table renders characters as a borderless table.
func (r *Renderer) Table(chars []character.Character) string {
	rows := make([][]string, len(chars))
	for i, c := range chars {
		rows[i] = []string{
			strconv.Itoa(c.ID),
			c.Name,
			Glyph(c.Status) + " " + string(c.Status),
			c.Species,
		}
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			if col == 2 && row >= 0 && row < len(chars) {
				return r.statusStyle(chars[row].Status).Inherit(r.cell)
			}
			return r.cell
		}).
		Headers("ID", "NAME", "STATUS", "SPECIES").
		Rows(rows...)

	return t.String()
}

// Footer describes the loading state below a list: an error, a loading
// note or the end of the collection. It is empty while more pages can be
// requested.
func (r *Renderer) Footer(snap query.Snapshot[character.Character]) string {
	switch {
	case snap.IsError():
		return r.failure.Render("Error: " + snap.ErrorMessage)
	case snap.IsLoading():
		return r.footer.Render("Loading more...")
	case snap.Status == query.StatusSuccess && !snap.HasNextPage:
		return r.footer.Render(fmt.Sprintf("No more characters (%d shown)", len(snap.Data)))
	}
	return ""
}

// Snapshot renders the data of snap as a table followed by its footer.
func (r *Renderer) Snapshot(snap query.Snapshot[character.Character]) string {
	var b strings.Builder
	if len(snap.Data) > 0 {
		b.WriteString(r.Table(snap.Data))
		b.WriteString("\n")
	}
	if footer := r.Footer(snap); footer != "" {
		b.WriteString(footer)
		b.WriteString("\n")
	}
	return b.String()
}
