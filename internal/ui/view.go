package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/session"
)

// itemHeight is the fixed row extent of one rendered item: title line,
// meta line, separator. Fixed heights keep the visibility math exact.
const itemHeight = 3

type renderedItem struct {
	item content.Item
	top  int
}

// feedView is the rendering collaborator: it owns the rendered rows and
// exposes them to the session only through the Renderer contract. Held by
// pointer so Bubble Tea's value-copied models share one surface.
type feedView struct {
	items []renderedItem
	width int
	err   error
}

func newFeedView() *feedView {
	return &feedView{}
}

// RenderItem appends the item to the feed surface and returns the tagged
// element handle.
func (v *feedView) RenderItem(item content.Item) session.Element {
	v.items = append(v.items, renderedItem{item: item})
	v.err = nil
	return session.Element{ID: item.ID, Slug: item.Slug}
}

// RemoveItems drops the given content IDs from the surface.
func (v *feedView) RemoveItems(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := v.items[:0]
	for _, ri := range v.items {
		if _, gone := drop[ri.item.ID]; !gone {
			kept = append(kept, ri)
		}
	}
	v.items = kept
}

// ShowError surfaces a load failure to the user.
func (v *feedView) ShowError(err error) {
	v.err = err
}

// Clear empties the feed surface.
func (v *feedView) Clear() {
	v.items = nil
	v.err = nil
}

// relayout assigns row offsets to every item and returns the sentinel's
// row position (the first row past the last item).
func (v *feedView) relayout() (sentinelTop int) {
	for i := range v.items {
		v.items[i].top = i * itemHeight
	}
	return len(v.items) * itemHeight
}

func (v *feedView) itemCount() int { return len(v.items) }

// renderRow produces the text for one feed row. Rows past the sentinel
// are blank.
func (v *feedView) renderRow(row, cursorIdx int, phase session.Phase, spinnerView string) string {
	idx := row / itemHeight
	if idx >= len(v.items) {
		if row == len(v.items)*itemHeight {
			return v.renderSentinel(phase, spinnerView)
		}
		return ""
	}

	ri := v.items[idx]
	selected := idx == cursorIdx
	switch row % itemHeight {
	case 0:
		return v.renderTitleLine(ri.item, selected)
	case 1:
		return v.renderMetaLine(ri.item)
	default:
		return ""
	}
}

func (v *feedView) renderTitleLine(item content.Item, selected bool) string {
	marker := "  "
	style := titleStyle
	if selected {
		marker = "> "
		style = selectedTitleStyle
	}
	dot := categoryStyle(item.Category).Render("●")
	title := truncateLine(item.Title, v.width-8)
	return marker + dot + " " + style.Render(title)
}

func (v *feedView) renderMetaLine(item content.Item) string {
	parts := []string{item.SourceName, humanTime(item.CreatedAt)}
	if len(item.Tags) > 0 {
		parts = append(parts, strings.Join(item.Tags[:min(3, len(item.Tags))], " "))
	}
	meta := truncateLine(strings.Join(parts, "  ·  "), v.width-8)
	return "    " + metaStyle.Render(meta)
}

// renderSentinel draws the trailing marker row whose visibility drives
// pagination.
func (v *feedView) renderSentinel(phase session.Phase, spinnerView string) string {
	switch phase {
	case session.PhaseLoading:
		return "  " + spinnerView + sentinelStyle.Render(" loading more…")
	case session.PhaseExhausted:
		return sentinelStyle.Render("  — end of feed —")
	case session.PhaseFailed:
		return errorStyle.Render("  load failed · press l to retry")
	default:
		return sentinelStyle.Render("  ·")
	}
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// humanTime formats a timestamp as a short relative age.
func humanTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
