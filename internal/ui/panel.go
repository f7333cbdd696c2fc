package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todo-client/internal/model"
)

const maxTitle = 80

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel draws a framed box around lines using the current theme.
func Panel(w io.Writer, lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if vw := lipgloss.Width(ln); vw > maxw {
			maxw = vw
		}
	}
	fmt.Fprintln(w, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		pad := strings.Repeat(" ", maxw-lipgloss.Width(ln))
		fmt.Fprintln(w, t.V+" "+ln+pad+" "+t.V)
	}
	fmt.Fprintln(w, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// Header is the title line with done/pending/total counts.
func Header(items []model.Item) string {
	t := Current()
	d, p := model.Stats(items)
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "Todos"),
		C(t.Success, t.SymDone), d,
		C(t.Pending, t.SymPending), p,
		C(t.Accent, "Total"), len(items),
	)
}

// ListLines renders the full static listing: header, progress, items.
func ListLines(items []model.Item, group bool) []string {
	d, _ := model.Stats(items)
	lines := []string{
		Header(items),
		C(Current().Muted, ProgressBar(d, len(items), 28)),
		"",
	}
	if group {
		lines = append(lines, GroupLines(items)...)
	} else {
		lines = append(lines, ItemLines(items, 1)...)
	}
	return lines
}

// ItemLines renders one numbered line per item, counting from first.
func ItemLines(items []model.Item, first int) []string {
	t := Current()
	if len(items) == 0 {
		return []string{C(t.Muted, "no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		idx := fmt.Sprintf("%2d.", first+i)
		box, boxColor, title := t.BoxUnchecked, t.Muted, Truncate(it.Title, maxTitle)
		if it.Completed {
			box, boxColor = t.BoxChecked, t.Success
			title = C(t.Done, title)
		}
		out = append(out, fmt.Sprintf("%s %s %s", Dim(idx), C(boxColor, box), title))
	}
	return out
}

// GroupLines renders pending items, then done items, keeping the indexes
// of the flat listing so they can be passed to `done` and `rm`.
func GroupLines(items []model.Item) []string {
	t := Current()
	var pend, done []string
	for i, it := range items {
		line := ItemLines([]model.Item{it}, i+1)[0]
		if it.Completed {
			done = append(done, line)
		} else {
			pend = append(pend, line)
		}
	}
	none := []string{C(t.Muted, "(none)")}
	if len(pend) == 0 {
		pend = none
	}
	if len(done) == 0 {
		done = none
	}
	lines := []string{C(t.Accent, "Pending")}
	lines = append(lines, pend...)
	lines = append(lines, "", C(t.Accent, "Done"))
	return append(lines, done...)
}

// Truncate shortens s to at most n runes, ending in "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
