package browser

import "github.com/charmbracelet/bubbles/help"

// HelpBindings returns the help.KeyMap for the focused pane.
func HelpBindings(focus Focus) help.KeyMap {
	if focus == PaneRight {
		return DetailKeyMap()
	}
	return ListKeyMap()
}
