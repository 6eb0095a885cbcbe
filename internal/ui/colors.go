package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/playq/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
	nowBar  lipgloss.Style
	section lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:   NewBold(t).MarginBottom(1),
		ok:      NewBold(s),
		err:     NewBold(e),
		warn:    NewStyle(w),
		help:    NewEm(h),
		nowBar:  NewBold(s).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t)).Padding(0, 1),
		section: NewBold(t),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// notice picks the style for a sync notice.
func (p *Palette) notice(n tasks.Notice) lipgloss.Style {
	switch n.Kind {
	case tasks.NoticeConfirmed:
		return p.ok
	case tasks.NoticeFailure:
		return p.err
	case tasks.NoticeConflict, tasks.NoticeDropped:
		return p.warn
	default:
		return p.help
	}
}
