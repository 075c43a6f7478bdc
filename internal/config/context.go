package config

import (
	"fmt"
	"strings"
)

// DefaultChunkSize is the tile edge length used when nothing else is set.
const DefaultChunkSize = 256

// Quality selects the accuracy/speed trade-off of operations.
type Quality int

const (
	QualityHigh Quality = iota
	QualityMedium
	QualityLow
)

func (q Quality) String() string {
	switch q {
	case QualityHigh:
		return "high"
	case QualityMedium:
		return "medium"
	case QualityLow:
		return "low"
	default:
		return fmt.Sprintf("quality(%d)", int(q))
	}
}

// ParseQuality parses "high", "medium" or "low".
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(s) {
	case "high":
		return QualityHigh, nil
	case "medium":
		return QualityMedium, nil
	case "low":
		return QualityLow, nil
	default:
		return 0, fmt.Errorf("invalid quality %q: must be one of 'high', 'medium', 'low'", s)
	}
}

// SchedulingMode selects how output groups are evaluated.
type SchedulingMode int

const (
	// InputToOutput builds the work package graph and pushes tiles from the
	// roots towards the outputs.
	InputToOutput SchedulingMode = iota
	// OutputToInput lets every output group pull the tiles it needs.
	OutputToInput
)

func (m SchedulingMode) String() string {
	switch m {
	case InputToOutput:
		return "input-to-output"
	case OutputToInput:
		return "output-to-input"
	default:
		return fmt.Sprintf("scheduling_mode(%d)", int(m))
	}
}

// ParseSchedulingMode parses "input-to-output" or "output-to-input".
func ParseSchedulingMode(s string) (SchedulingMode, error) {
	switch strings.ToLower(s) {
	case "input-to-output", "":
		return InputToOutput, nil
	case "output-to-input":
		return OutputToInput, nil
	default:
		return 0, fmt.Errorf("invalid scheduling mode %q: must be 'input-to-output' or 'output-to-input'", s)
	}
}

// Border is a rectangle in normalized [0, 1] coordinates.
type Border struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Valid reports whether the border has a positive area.
func (b Border) Valid() bool {
	return b.XMin < b.XMax && b.YMin < b.YMax
}

// RenderData carries the render settings relevant to scheduling.
type RenderData struct {
	UseBorder bool
	Crop      bool
	Border    Border
}

// Context parameterizes one evaluation.
type Context struct {
	Quality         Quality
	Rendering       bool
	FastCalculation bool
	// HasActiveOpenCLDevices is cleared by the execution system when the
	// scheduler has no GPU device.
	HasActiveOpenCLDevices bool
	RenderData             RenderData
	ViewSettings           string
	DisplaySettings        string
	ViewName               string
	ChunkSize              int
	SchedulingMode         SchedulingMode
	// SingleThreaded evaluates every group as a single tile.
	SingleThreaded bool
	// ViewerBorder limits viewer and preview groups when set.
	ViewerBorder *Border
}

// DefaultContext returns the context used when nothing is configured.
func DefaultContext() Context {
	return Context{
		Quality:   QualityHigh,
		ChunkSize: DefaultChunkSize,
	}
}

// UseRenderBorder reports whether the render border applies.
func (c Context) UseRenderBorder() bool {
	return c.Rendering && c.RenderData.UseBorder && !c.RenderData.Crop
}
