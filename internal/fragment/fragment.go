// Package fragment renders the HTML snippets shown in permission-matrix cells.
package fragment

import (
	"strings"
	"unicode/utf8"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"principalcheck/internal/principal/models"
	"principalcheck/internal/symbol"
)

// Icon is the principal icon placed before a label.
type Icon int

const (
	IconNone Icon = iota
	IconUser
	IconGroup
	IconAlert
)

const (
	cellClass        = "mas-table__cell"
	warningCellClass = "mas-table__cell mas-table__cell-warning"
	notFoundClass    = "mas-table__cell--not-found"
	ellipsis         = "..."
	minWidth         = len(ellipsis) + 1
)

// IconFor maps a principal kind to its icon. EITHER has none.
func IconFor(kind models.Kind) Icon {
	switch kind {
	case models.KindUser:
		return IconUser
	case models.KindGroup:
		return IconGroup
	case models.KindEither:
		return IconNone
	}
	return IconNone
}

// Renderer formats validation fragments using a resolved symbol table.
type Renderer struct {
	Symbols symbol.Table
}

// Format renders label with icon and a tooltip. Warning fragments carry the
// warning icon ahead of the principal icon and a distinct cell class.
func (r Renderer) Format(icon Icon, label, tooltip string, warning bool) string {
	return r.format(icon, g.Text(label), tooltip, warning)
}

// FormatNotFound renders label with the alert icon and the not-found styling.
func (r Renderer) FormatNotFound(label, tooltip string, warning bool) string {
	return r.format(IconAlert, h.Span(h.Class(notFoundClass), g.Text(label)), tooltip, warning)
}

// Text renders label alone, escaped and undecorated.
func (r Renderer) Text(label string) string {
	return render(g.Text(label))
}

func (r Renderer) format(icon Icon, label g.Node, tooltip string, warning bool) string {
	class := cellClass
	if warning {
		class = warningCellClass
	}
	return render(h.Div(
		g.Attr("tooltip", tooltip),
		h.Class(class),
		g.If(warning, g.Raw(r.Symbols.Warning)),
		g.Raw(r.markup(icon)),
		label,
	))
}

func (r Renderer) markup(icon Icon) string {
	switch icon {
	case IconUser:
		return r.Symbols.User
	case IconGroup:
		return r.Symbols.Group
	case IconAlert:
		return r.Symbols.Alert
	case IconNone:
		return ""
	}
	return ""
}

func render(n g.Node) string {
	var b strings.Builder
	// strings.Builder never returns a write error.
	_ = n.Render(&b)
	return b.String()
}

// Abbreviate shortens s to at most width runes, replacing the tail with
// "...". Widths below 4 are raised to 4.
func Abbreviate(s string, width int) string {
	if width < minWidth {
		width = minWidth
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-len(ellipsis)]) + ellipsis
}
