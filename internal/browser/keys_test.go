package browser

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
)

func collectKeys(bindings []key.Binding) []string {
	var keys []string
	for _, b := range bindings {
		keys = append(keys, b.Keys()...)
	}
	return keys
}

func containsKey(keys []string, want string) bool {
	for _, k := range keys {
		if k == want {
			return true
		}
	}
	return false
}

func TestHelpBindings(t *testing.T) {
	tests := []struct {
		name  string
		focus Focus
		want  []string
	}{
		{"list", PaneLeft, []string{"up", "down", "enter", "tab", "r", "q"}},
		{"detail", PaneRight, []string{"up", "down", "tab", "q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := collectKeys(HelpBindings(tt.focus).ShortHelp())
			for _, want := range tt.want {
				if !containsKey(keys, want) {
					t.Errorf("missing key %q, got %v", want, keys)
				}
			}
		})
	}
}

func TestDetailKeys_NoRefresh(t *testing.T) {
	keys := collectKeys(DetailKeyMap().ShortHelp())
	if containsKey(keys, "r") {
		t.Error("detail bindings should not offer refresh")
	}
}
