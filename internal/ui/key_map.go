package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	enter      key.Binding
	toggle     key.Binding
	next       key.Binding
	prev       key.Binding
	trackEnd   key.Binding
	enqueue    key.Binding
	dequeue    key.Binding
	clearQueue key.Binding
	remove     key.Binding
	stop       key.Binding
	back       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		moveUp:     key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("shift+↑/K", "move up")),
		moveDown:   key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("shift+↓/J", "move down")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		trackEnd:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end track")),
		enqueue:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "queue")),
		dequeue:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unqueue last")),
		clearQueue: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear queue")),
		remove:     key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		stop:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.moveUp, k.moveDown, k.back, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.moveUp, k.moveDown},
		{k.enter, k.toggle, k.next, k.prev, k.trackEnd},
		{k.enqueue, k.dequeue, k.clearQueue, k.remove},
		{k.stop, k.back, k.quit},
	}
}
