package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit   key.Binding
	Cancel key.Binding
	Reload key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Cancel: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel run")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload ideas")),
}

func (k keyMap) help() string {
	out := ""
	for i, b := range []key.Binding{k.Cancel, k.Reload, k.Quit} {
		if i > 0 {
			out += "  "
		}
		out += b.Help().Key + ": " + b.Help().Desc
	}
	return out
}
