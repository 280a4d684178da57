package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/thenoetrevino/dealflow/internal/config"
)

// keyMap binds the configured key mappings. Arrow keys always work
// alongside the configured navigation keys.
type keyMap struct {
	PrevColumn key.Binding
	NextColumn key.Binding
	PrevCard   key.Binding
	NextCard   key.Binding
	PickUp     key.Binding
	Drop       key.Binding
	Cancel     key.Binding
	Refresh    key.Binding
	Search     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap(km config.KeyMappings) keyMap {
	return keyMap{
		PrevColumn: key.NewBinding(key.WithKeys(km.PrevColumn, "left"), key.WithHelp("←/"+km.PrevColumn, "prev column")),
		NextColumn: key.NewBinding(key.WithKeys(km.NextColumn, "right"), key.WithHelp("→/"+km.NextColumn, "next column")),
		PrevCard:   key.NewBinding(key.WithKeys(km.PrevCard, "up"), key.WithHelp("↑/"+km.PrevCard, "up")),
		NextCard:   key.NewBinding(key.WithKeys(km.NextCard, "down"), key.WithHelp("↓/"+km.NextCard, "down")),
		PickUp:     key.NewBinding(key.WithKeys(km.PickUp), key.WithHelp(displayKey(km.PickUp), "pick up")),
		Drop:       key.NewBinding(key.WithKeys(km.Drop), key.WithHelp(km.Drop, "drop")),
		Cancel:     key.NewBinding(key.WithKeys(km.CancelDrag), key.WithHelp(km.CancelDrag, "cancel")),
		Refresh:    key.NewBinding(key.WithKeys(km.Refresh), key.WithHelp(km.Refresh, "refresh")),
		Search:     key.NewBinding(key.WithKeys(km.Search), key.WithHelp(km.Search, "search")),
		Help:       key.NewBinding(key.WithKeys(km.ShowHelp), key.WithHelp(km.ShowHelp, "help")),
		Quit:       key.NewBinding(key.WithKeys(km.Quit, "ctrl+c"), key.WithHelp(km.Quit, "quit")),
	}
}

func displayKey(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PickUp, k.Drop, k.Search, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevColumn, k.NextColumn, k.PrevCard, k.NextCard},
		{k.PickUp, k.Drop, k.Cancel},
		{k.Refresh, k.Search, k.Help, k.Quit},
	}
}
