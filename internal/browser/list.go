package browser

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/multiverse/internal/catalog"
)

// CursorMarker is the prefix shown on the highlighted row.
const CursorMarker = "▸ "

// listState manages the record list, cursor, and loading/error states
// for the left pane.
type listState struct {
	records    catalog.Snapshot
	cursor     int
	loading    bool
	err        error
	autoSelect bool
}

// newListState returns a listState in the loading state.
func newListState(autoSelect bool) listState {
	return listState{loading: true, autoSelect: autoSelect}
}

// initList returns a tea.Cmd that calls lister.ListRecords off the update
// goroutine and wraps the result in a RecordListMsg.
func initList(ctx context.Context, lister RecordLister) tea.Cmd {
	return func() tea.Msg {
		records, err := lister.ListRecords(ctx)
		return RecordListMsg{Records: records, Err: err}
	}
}

// Update processes messages for the list state.
func (ls listState) Update(msg tea.Msg) (listState, tea.Cmd) {
	switch msg := msg.(type) {
	case RecordListMsg:
		return ls.applyRecords(msg.Records, msg.Err), nil

	case tea.KeyMsg:
		if ls.loading {
			return ls, nil
		}
		return ls.handleKey(msg)
	}

	return ls, nil
}

// applyRecords applies a fetched snapshot (or error), clearing the loading
// indicator and resetting the cursor.
func (ls listState) applyRecords(records catalog.Snapshot, err error) listState {
	ls.loading = false
	ls.cursor = 0
	if err != nil {
		ls.err = err
		ls.records = nil
		return ls
	}
	ls.err = nil
	ls.records = append(catalog.Snapshot(nil), records...)
	return ls
}

func (ls listState) handleKey(msg tea.KeyMsg) (listState, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if len(ls.records) == 0 {
			return ls, nil
		}
		ls.cursor--
		if ls.cursor < 0 {
			ls.cursor = len(ls.records) - 1
		}
		return ls, ls.autoSelectCmd()

	case "down", "j":
		if len(ls.records) == 0 {
			return ls, nil
		}
		ls.cursor++
		if ls.cursor >= len(ls.records) {
			ls.cursor = 0
		}
		return ls, ls.autoSelectCmd()

	case "enter":
		return ls, ls.selectCmd()

	case "r":
		ls.loading = true
		ls.err = nil
		return ls, func() tea.Msg { return RefreshMsg{} }
	}

	return ls, nil
}

func (ls listState) autoSelectCmd() tea.Cmd {
	if !ls.autoSelect {
		return nil
	}
	return ls.selectCmd()
}

func (ls listState) selectCmd() tea.Cmd {
	r, ok := ls.Selected()
	if !ok {
		return nil
	}
	return func() tea.Msg { return SelectMsg{Record: r} }
}

// Selected returns the record at the cursor, if any.
func (ls listState) Selected() (catalog.Record, bool) {
	if len(ls.records) == 0 || ls.cursor < 0 || ls.cursor >= len(ls.records) {
		return catalog.Record{}, false
	}
	return ls.records[ls.cursor], true
}

// View renders the list pane content.
// spinnerView is the current spinner frame (may be empty when the spinner is inactive).
func (ls listState) View(spinnerView string) string {
	if ls.loading {
		return fmt.Sprintf("%s Loading characters...", spinnerView)
	}

	if ls.err != nil {
		return fmt.Sprintf("No characters loaded\n\nError: %s\n\nPress r to retry", ls.err)
	}

	if len(ls.records) == 0 {
		return "No characters loaded. Press r to refresh"
	}

	var b strings.Builder
	for i, r := range ls.records {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i == ls.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(StatusBadge(r.Status) + " " + r.Name)
	}
	return b.String()
}
