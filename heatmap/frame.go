package heatmap

import (
	"brheatmap/models"
)

// FrameKind says how a view should apply a frame.
type FrameKind int

const (
	// FrameBuild replaces the whole drawing.
	FrameBuild FrameKind = iota
	// FrameUpdate rebuilds the axes and recolors the cells.
	FrameUpdate
	// FrameToggle repaints the cells it carries and nothing else.
	FrameToggle
)

// Cell is a positioned, colored heatmap square. Fields are immediately usable as svg attributes.
type Cell struct {
	models.CellKey
	Value         float64
	Fill          string
	X, Y          float64
	Width, Height float64
	Selected      bool
}

// Frame is one render pass of the controller.
type Frame struct {
	Kind   FrameKind
	Cells  []Cell
	XTicks []Tick
	YTicks []Tick
	Width  float64
	Height float64
	// Dates available for the active class, ascending, and the one drawn.
	Dates []string
	Date  string
	// Transition asks the view to animate fill changes.
	Transition bool
}

// Redraws reports whether the frame is a full render pass, carrying axes and dates.
func (frame Frame) Redraws() bool {
	return frame.Kind != FrameToggle
}
