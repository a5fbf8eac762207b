package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Accept   key.Binding
	Rewrite  key.Binding
	Draft    key.Binding
	Realtime key.Binding
	Save     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Accept:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "accept")),
		Rewrite:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "rewrite line")),
		Draft:    key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "draft from line")),
		Realtime: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toggle realtime")),
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Accept, k.Rewrite, k.Draft, k.Realtime, k.Save, k.Quit}
}
