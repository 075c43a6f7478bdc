package execgroup

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/vk/gridcomp/internal/operation"
	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/scheduler"
	"github.com/vk/gridcomp/internal/workpackage"
)

// ExecutionGroup is a set of operations evaluated tile by tile into the
// output of its root operation.
type ExecutionGroup struct {
	index      int
	output     operation.RegionExecutor
	operations []operation.Operation

	readOperations      []*operation.ReadBufferOperation
	maxReadBufferOffset int

	isOutput       bool
	gpuCapable     bool
	useGPU         bool
	chunkSize      int
	singleThreaded bool

	resolution   operation.Resolution
	viewerBorder rect.Rect
	xChunks      int
	yChunks      int

	// packages holds the arena index of every chunk, by chunk number.
	packages []int
	// order lists chunk numbers in scheduling order.
	order []int
}

// New creates the group rooted at output and collects every operation
// reachable from it without crossing a read buffer.
func New(index int, output operation.RegionExecutor) *ExecutionGroup {
	if output == nil {
		panic("execgroup: nil output operation")
	}
	g := &ExecutionGroup{
		index:    index,
		output:   output,
		isOutput: operation.IsOutput(output),
	}

	seen := make(map[int]bool)
	var walk func(op operation.Operation)
	walk = func(op operation.Operation) {
		if op == nil || seen[op.ID()] {
			return
		}
		seen[op.ID()] = true
		g.operations = append(g.operations, op)

		if read, ok := op.(*operation.ReadBufferOperation); ok {
			g.readOperations = append(g.readOperations, read)
			return
		}
		if !operation.IsWriteBuffer(op) && operation.GPUCapable(op) {
			g.gpuCapable = true
		}
		for _, in := range op.Inputs() {
			walk(in)
		}
	}
	walk(output)

	return g
}

// Index returns the group's position in the execution system.
func (g *ExecutionGroup) Index() int { return g.index }

// OutputOperation returns the root operation.
func (g *ExecutionGroup) OutputOperation() operation.RegionExecutor { return g.output }

// Operations returns every operation of the group, the output first.
func (g *ExecutionGroup) Operations() []operation.Operation { return g.operations }

// IsOutput reports whether the group is rooted at an output operation
// rather than a write buffer.
func (g *ExecutionGroup) IsOutput() bool { return g.isOutput }

// Kind labels the group for logs and metrics.
func (g *ExecutionGroup) Kind() string {
	if g.isOutput {
		return "output"
	}
	return "buffer"
}

// RenderPriority returns the tier of an output group, Unset otherwise.
func (g *ExecutionGroup) RenderPriority() workpackage.Priority {
	if !g.isOutput {
		return workpackage.Unset
	}
	if p, ok := g.output.(operation.Prioritized); ok {
		return p.RenderPriority()
	}
	return workpackage.Low
}

// GPUCapable reports whether any operation of the group can run on a GPU.
func (g *ExecutionGroup) GPUCapable() bool { return g.gpuCapable }

// SetUseGPU marks the group's tiles for GPU devices. It has no effect on
// groups that are not GPU-capable.
func (g *ExecutionGroup) SetUseGPU(use bool) { g.useGPU = use && g.gpuCapable }

// UseGPU reports whether tiles of this group prefer GPU devices.
func (g *ExecutionGroup) UseGPU() bool { return g.useGPU }

// Capability returns the device class for the group's tiles.
func (g *ExecutionGroup) Capability() scheduler.Capability {
	if g.useGPU {
		return scheduler.GPU
	}
	return scheduler.CPU
}

// SetChunkSize sets the edge length of the square chunks.
func (g *ExecutionGroup) SetChunkSize(size int) { g.chunkSize = size }

// ChunkSize returns the edge length of the chunks.
func (g *ExecutionGroup) ChunkSize() int { return g.chunkSize }

// SetSingleThreaded makes the group a single chunk covering its border.
func (g *ExecutionGroup) SetSingleThreaded(single bool) { g.singleThreaded = single }

// ReadOperations returns the read buffers the group depends on.
func (g *ExecutionGroup) ReadOperations() []*operation.ReadBufferOperation {
	return g.readOperations
}

// MaxReadBufferOffset returns one past the highest read buffer offset in the
// group, zero when the group reads no buffers.
func (g *ExecutionGroup) MaxReadBufferOffset() int { return g.maxReadBufferOffset }

// DetermineResolution resolves the output size and resets the viewer border
// to the whole area.
func (g *ExecutionGroup) DetermineResolution(preferred operation.Resolution) operation.Resolution {
	g.resolution = g.output.DetermineResolution(preferred)
	g.viewerBorder = g.resolution.Rect()
	return g.resolution
}

// Resolution returns the resolved output size.
func (g *ExecutionGroup) Resolution() operation.Resolution { return g.resolution }

// ViewerBorder returns the area of the output that is materialized.
func (g *ExecutionGroup) ViewerBorder() rect.Rect { return g.viewerBorder }

func (g *ExecutionGroup) isViewerOrPreview() bool {
	return operation.IsViewer(g.output) || operation.IsPreview(g.output)
}

// SetViewerBorder limits a viewer or preview group to the normalized border.
func (g *ExecutionGroup) SetViewerBorder(xmin, xmax, ymin, ymax float64) {
	if g.isViewerOrPreview() {
		g.setBorder(xmin, xmax, ymin, ymax)
	}
}

// SetRenderBorder limits an output group that is not a viewer or preview to
// the normalized border.
func (g *ExecutionGroup) SetRenderBorder(xmin, xmax, ymin, ymax float64) {
	if g.isOutput && !g.isViewerOrPreview() {
		g.setBorder(xmin, xmax, ymin, ymax)
	}
}

// setBorder converts a normalized border to pixels, clipped to the resolution.
func (g *ExecutionGroup) setBorder(xmin, xmax, ymin, ymax float64) {
	w, h := float64(g.resolution.Width), float64(g.resolution.Height)
	border := rect.New(int(xmin*w), int(xmax*w), int(ymin*h), int(ymax*h))
	g.viewerBorder = border.Intersect(g.resolution.Rect())
}

// InitExecution lays out the chunk grid over the viewer border and adds one
// work package per chunk to arena.
func (g *ExecutionGroup) InitExecution(arena *workpackage.Arena) {
	g.initChunks()

	g.maxReadBufferOffset = 0
	for _, read := range g.readOperations {
		g.maxReadBufferOffset = max(g.maxReadBufferOffset, read.Offset()+1)
	}

	n := g.NumChunks()
	g.packages = make([]int, n)
	for chunk := range n {
		g.packages[chunk] = arena.Add(g.index, chunk, g.ChunkRect(chunk))
	}
	g.order = g.chunkOrder()
}

func (g *ExecutionGroup) initChunks() {
	border := g.viewerBorder
	switch {
	case border.Empty():
		g.xChunks, g.yChunks = 0, 0
	case g.singleThreaded || g.chunkSize <= 0:
		g.xChunks, g.yChunks = 1, 1
	default:
		g.xChunks = ceilDiv(border.Width(), g.chunkSize)
		g.yChunks = ceilDiv(border.Height(), g.chunkSize)
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// NumChunks returns the number of chunks laid out by InitExecution.
func (g *ExecutionGroup) NumChunks() int {
	return g.xChunks * g.yChunks
}

// ChunkRect returns the area of chunk n, clipped to the viewer border.
func (g *ExecutionGroup) ChunkRect(n int) rect.Rect {
	border := g.viewerBorder
	if g.xChunks == 1 && g.yChunks == 1 {
		return border
	}
	x, y := n%g.xChunks, n/g.xChunks
	xmin := x*g.chunkSize + border.XMin
	ymin := y*g.chunkSize + border.YMin
	return rect.New(xmin, min(xmin+g.chunkSize, border.XMax), ymin, min(ymin+g.chunkSize, border.YMax))
}

// chunkOrder returns chunk numbers in row-major order, or centre-out for
// viewer groups so the visible middle appears first.
func (g *ExecutionGroup) chunkOrder() []int {
	order := make([]int, g.NumChunks())
	for i := range order {
		order[i] = i
	}
	if !operation.IsViewer(g.output) {
		return order
	}

	cx, cy := g.viewerBorder.Center()
	dist := func(n int) float64 {
		x, y := g.ChunkRect(n).Center()
		return math.Hypot(x-cx, y-cy)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		da, db := dist(a), dist(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
	return order
}

// WorkPackages returns the arena indices of the group's packages in
// scheduling order.
func (g *ExecutionGroup) WorkPackages() []int {
	out := make([]int, len(g.order))
	for i, chunk := range g.order {
		out[i] = g.packages[chunk]
	}
	return out
}

// PackageIndex returns the arena index of the package for chunk.
func (g *ExecutionGroup) PackageIndex(chunk int) int { return g.packages[chunk] }

// LinkChildWorkPackage makes child depend on every package of this group
// whose area intersects area.
func (g *ExecutionGroup) LinkChildWorkPackage(arena *workpackage.Arena, child int, area rect.Rect) {
	for _, idx := range g.packages {
		if arena.Get(idx).Rect.Intersects(area) {
			arena.Link(idx, child)
		}
	}
}

// ExecuteChunk evaluates one area of the output.
func (g *ExecutionGroup) ExecuteChunk(ctx context.Context, r rect.Rect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.output.ExecuteRegion(ctx, r); err != nil {
		return fmt.Errorf("group %d (%s) chunk %s: %w", g.index, g.output.Name(), r, err)
	}
	return nil
}

// DeinitExecution ends the evaluation. The chunk layout and package indices
// stay readable until the next InitExecution replaces them.
func (g *ExecutionGroup) DeinitExecution() {}

func (g *ExecutionGroup) String() string {
	return fmt.Sprintf("group %d (%s %s)", g.index, g.Kind(), g.output.Name())
}
