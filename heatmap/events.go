package heatmap

import (
	"brheatmap/models"
)

// Event is a unit of work for the controller loop.
type Event interface {
	event()
}

// InitEvent builds the heatmap from a fresh fetch.
type InitEvent struct{}

// UpdateEvent redraws the heatmap. Without ReDownload the cached rows are reused,
// which is only valid while mode and bracket range are unchanged.
type UpdateEvent struct {
	ReDownload bool
}

// ClickEvent toggles the selection of a cell.
type ClickEvent struct {
	Key models.CellKey
}

// fetchDone re-enters a completed fetch into the loop.
type fetchDone struct {
	url  string
	kind FrameKind
	rows *models.RowSet
	err  error
}

func (InitEvent) event()   {}
func (UpdateEvent) event() {}
func (ClickEvent) event()  {}
func (fetchDone) event()   {}
