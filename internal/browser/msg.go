// Package browser implements the two-pane TUI for browsing catalog records
// and viewing the selected record's portrait.
package browser

import (
	"context"

	"github.com/smileynet/multiverse/internal/catalog"
)

// Focus represents which pane has keyboard focus.
type Focus int

const (
	PaneLeft  Focus = iota // Record list has focus.
	PaneRight              // Detail viewport has focus.
)

// RecordLister fetches the catalog snapshot.
type RecordLister interface {
	ListRecords(ctx context.Context) (catalog.Snapshot, error)
}

// RecordListMsg carries the result of a RecordLister.ListRecords call.
type RecordListMsg struct {
	Records catalog.Snapshot
	Err     error
}

// RefreshMsg signals that the record list should be reloaded.
// listState emits this on 'r'; Model.Update intercepts it and refetches.
type RefreshMsg struct{}

// SelectMsg signals that the user picked a record.
type SelectMsg struct {
	Record catalog.Record
}
