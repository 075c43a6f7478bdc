package execgroup

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridcomp/internal/operation"
	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/scheduler"
	"github.com/vk/gridcomp/internal/workpackage"
)

var white = [operation.Channels]float32{1, 1, 1, 1}

func viewerGroup(t *testing.T, w, h, chunk int) *ExecutionGroup {
	t.Helper()
	viewer := operation.NewViewerOperation(2, "viewer.v", true)
	viewer.SetInput(0, operation.NewImageOperation(1, "image.src", w, h, white))
	g := New(0, viewer)
	g.DetermineResolution(operation.Resolution{})
	g.SetChunkSize(chunk)
	return g
}

func TestChunkLayout(t *testing.T) {
	g := viewerGroup(t, 100, 70, 32)
	arena := workpackage.NewArena()
	g.InitExecution(arena)

	assert.Equal(t, 4*3, g.NumChunks())
	assert.Equal(t, 12, arena.Len())
	assert.Equal(t, rect.New(0, 32, 0, 32), g.ChunkRect(0))
	assert.Equal(t, rect.New(96, 100, 0, 32), g.ChunkRect(3), "last column is clipped")
	assert.Equal(t, rect.New(96, 100, 64, 70), g.ChunkRect(11))

	total := 0
	for _, idx := range g.WorkPackages() {
		pkg := arena.Get(idx)
		assert.Equal(t, 0, pkg.Group)
		total += pkg.Rect.Area()
	}
	assert.Equal(t, 100*70, total, "chunks tile the output exactly")
}

func TestViewerBorderCullsTiles(t *testing.T) {
	g := viewerGroup(t, 128, 128, 64)
	g.SetViewerBorder(0, 0.5, 0, 1)
	arena := workpackage.NewArena()
	g.InitExecution(arena)

	require.Equal(t, 2, g.NumChunks(), "half of the 4 tiles")
	assert.Equal(t, rect.New(0, 64, 0, 128), g.ViewerBorder())
	for _, idx := range g.WorkPackages() {
		assert.LessOrEqual(t, arena.Get(idx).Rect.XMax, 64)
	}

	t.Run("render border does not apply to viewers", func(t *testing.T) {
		g := viewerGroup(t, 128, 128, 64)
		g.SetRenderBorder(0, 0.5, 0, 0.5)
		assert.Equal(t, rect.FromSize(128, 128), g.ViewerBorder())
	})

	t.Run("render border applies to composite outputs", func(t *testing.T) {
		comp := operation.NewCompositeOperation(2, "composite.c")
		comp.SetInput(0, operation.NewImageOperation(1, "image.src", 128, 128, white))
		g := New(0, comp)
		g.DetermineResolution(operation.Resolution{})
		g.SetViewerBorder(0, 0.5, 0, 0.5)
		assert.Equal(t, rect.FromSize(128, 128), g.ViewerBorder(), "viewer border ignored")
		g.SetRenderBorder(0.5, 1, 0.5, 1)
		assert.Equal(t, rect.New(64, 128, 64, 128), g.ViewerBorder())
	})

	t.Run("determine resolution resets the border", func(t *testing.T) {
		g := viewerGroup(t, 128, 128, 64)
		g.SetViewerBorder(0, 0.5, 0, 0.5)
		g.DetermineResolution(operation.Resolution{})
		assert.Equal(t, rect.FromSize(128, 128), g.ViewerBorder())
	})

	t.Run("border outside the image is clipped", func(t *testing.T) {
		g := viewerGroup(t, 128, 128, 64)
		g.SetViewerBorder(-0.5, 2, 0.5, 3)
		assert.Equal(t, rect.New(0, 128, 64, 128), g.ViewerBorder())

		arena := workpackage.NewArena()
		g.InitExecution(arena)
		assert.Equal(t, 2, g.NumChunks())
		for _, idx := range g.WorkPackages() {
			r := arena.Get(idx).Rect
			assert.Equal(t, r, r.Intersect(rect.FromSize(128, 128)), "tile %s", r)
		}
	})

	t.Run("layout survives deinit", func(t *testing.T) {
		g := viewerGroup(t, 128, 128, 64)
		g.InitExecution(workpackage.NewArena())
		g.DeinitExecution()
		assert.Equal(t, 4, g.NumChunks())
		assert.Len(t, g.WorkPackages(), 4)
	})

	t.Run("empty border yields no tiles", func(t *testing.T) {
		g := viewerGroup(t, 128, 128, 64)
		g.SetViewerBorder(0.5, 0.5, 0, 1)
		g.InitExecution(workpackage.NewArena())
		assert.Zero(t, g.NumChunks())
	})
}

func TestSingleChunkCases(t *testing.T) {
	t.Run("chunk larger than resolution", func(t *testing.T) {
		g := viewerGroup(t, 10, 10, 256)
		arena := workpackage.NewArena()
		g.InitExecution(arena)
		require.Equal(t, 1, g.NumChunks())
		pkg := arena.Get(g.WorkPackages()[0])
		assert.Equal(t, rect.FromSize(10, 10), pkg.Rect)
		assert.Zero(t, pkg.NumParents())
	})

	t.Run("single threaded", func(t *testing.T) {
		g := viewerGroup(t, 100, 100, 8)
		g.SetSingleThreaded(true)
		g.InitExecution(workpackage.NewArena())
		assert.Equal(t, 1, g.NumChunks())
		assert.Equal(t, rect.FromSize(100, 100), g.ChunkRect(0))
	})
}

func TestViewerChunksStartInTheCentre(t *testing.T) {
	g := viewerGroup(t, 30, 30, 10)
	g.InitExecution(workpackage.NewArena())
	order := g.WorkPackages()
	require.Len(t, order, 9)
	assert.Equal(t, 4, order[0], "middle chunk of the 3x3 grid first")

	t.Run("other outputs are row-major", func(t *testing.T) {
		comp := operation.NewCompositeOperation(2, "composite.c")
		comp.SetInput(0, operation.NewImageOperation(1, "image.src", 30, 30, white))
		g := New(0, comp)
		g.DetermineResolution(operation.Resolution{})
		g.SetChunkSize(10)
		g.InitExecution(workpackage.NewArena())
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8}, g.WorkPackages())
	})
}

// bufferedChain builds image -> write | read -> blur -> viewer and returns
// the upstream and downstream groups.
func bufferedChain(t *testing.T, size, upChunk, downChunk, radius int) (up, down *ExecutionGroup, read *operation.ReadBufferOperation) {
	t.Helper()
	src := operation.NewImageOperation(1, "image.src", size, size, white)
	write := operation.NewWriteBufferOperation(2, src)
	read = operation.NewReadBufferOperation(3, write.Proxy())
	blur := operation.NewBoxBlurOperation(4, "blur.b", radius)
	blur.SetInput(0, read)
	viewer := operation.NewViewerOperation(5, "viewer.v", true)
	viewer.SetInput(0, blur)

	up = New(0, write)
	down = New(1, viewer)
	up.DetermineResolution(operation.Resolution{})
	down.DetermineResolution(operation.Resolution{})
	up.SetChunkSize(upChunk)
	down.SetChunkSize(downChunk)
	return up, down, read
}

func TestGroupMembership(t *testing.T) {
	up, down, read := bufferedChain(t, 64, 32, 64, 1)

	assert.False(t, up.IsOutput())
	assert.Equal(t, "buffer", up.Kind())
	assert.Equal(t, workpackage.Unset, up.RenderPriority())
	assert.Len(t, up.Operations(), 2)
	assert.Empty(t, up.ReadOperations())
	assert.False(t, up.GPUCapable())

	assert.True(t, down.IsOutput())
	assert.Equal(t, workpackage.High, down.RenderPriority())
	assert.Len(t, down.Operations(), 3, "collection stops at the read buffer")
	assert.Equal(t, []*operation.ReadBufferOperation{read}, down.ReadOperations())
	assert.True(t, down.GPUCapable())

	down.SetUseGPU(true)
	assert.Equal(t, scheduler.GPU, down.Capability())
	up.SetUseGPU(true)
	assert.Equal(t, scheduler.CPU, up.Capability(), "only GPU-capable groups use the GPU")

	read.SetOffset(4)
	down.InitExecution(workpackage.NewArena())
	assert.Equal(t, 5, down.MaxReadBufferOffset())
}

func TestLinkChildWorkPackage(t *testing.T) {
	up, down, read := bufferedChain(t, 64, 32, 64, 0)
	arena := workpackage.NewArena()
	up.InitExecution(arena)
	down.InitExecution(arena)
	require.Equal(t, 4, up.NumChunks())
	require.Equal(t, 1, down.NumChunks())

	child := down.WorkPackages()[0]
	area, ok := down.OutputOperation().DetermineDependingAreaOfInterest(arena.Get(child).Rect, read)
	require.True(t, ok)
	up.LinkChildWorkPackage(arena, child, area)

	assert.Equal(t, 4, arena.Get(child).NumParents())
	for _, idx := range up.WorkPackages() {
		assert.Equal(t, []int{child}, arena.Get(idx).Children)
	}

	t.Run("only intersecting packages are linked", func(t *testing.T) {
		up, down, _ := bufferedChain(t, 64, 32, 32, 0)
		arena := workpackage.NewArena()
		up.InitExecution(arena)
		down.InitExecution(arena)
		child := down.WorkPackages()[0]
		up.LinkChildWorkPackage(arena, child, rect.New(0, 10, 0, 10))
		assert.Equal(t, 1, arena.Get(child).NumParents())
	})
}

type countingSubmitter struct {
	*scheduler.WorkScheduler
	mu     sync.Mutex
	chunks map[*ExecutionGroup]map[int]int
}

func (c *countingSubmitter) Submit(task scheduler.Task) *scheduler.Handle {
	ct := task.(*chunkTask)
	c.mu.Lock()
	if c.chunks[ct.group] == nil {
		c.chunks[ct.group] = make(map[int]int)
	}
	c.chunks[ct.group][ct.chunk]++
	c.mu.Unlock()
	return c.WorkScheduler.Submit(task)
}

func TestPullExecution(t *testing.T) {
	ctx := context.Background()
	up, down, read := bufferedChain(t, 64, 16, 32, 2)

	sched := scheduler.New(scheduler.WithWorkers(2))
	require.NoError(t, sched.Init(ctx))
	require.NoError(t, sched.Start(ctx, scheduler.StartOptions{}))
	defer func() {
		require.NoError(t, sched.Shutdown(ctx))
	}()

	for _, op := range up.Operations() {
		require.NoError(t, op.InitExecution(ctx))
	}
	read.UpdateMemoryBuffer()
	for _, op := range down.Operations() {
		require.NoError(t, op.InitExecution(ctx))
	}
	arena := workpackage.NewArena()
	up.InitExecution(arena)
	down.InitExecution(arena)

	sub := &countingSubmitter{WorkScheduler: sched, chunks: make(map[*ExecutionGroup]map[int]int)}
	p := NewPuller(sub, func(r *operation.ReadBufferOperation) *ExecutionGroup {
		require.Same(t, read, r)
		return up
	})
	var done int
	p.OnChunkDone = func(*ExecutionGroup, int) { done++ }

	require.NoError(t, down.Execute(ctx, p))

	assert.Len(t, sub.chunks[up], 16)
	for chunk, n := range sub.chunks[up] {
		assert.Equal(t, 1, n, "upstream chunk %d submitted once", chunk)
	}
	assert.Len(t, sub.chunks[down], 4)
	assert.Equal(t, 20, done)

	viewer := down.OutputOperation().(*operation.ViewerOperation)
	px := make([]float32, operation.Channels)
	viewer.Buffer().Read(63, 0, px)
	assert.InDeltaSlice(t, []float32{1, 1, 1, 1}, px, 1e-6)

	t.Run("second output reuses executed buffer chunks", func(t *testing.T) {
		sub.chunks = make(map[*ExecutionGroup]map[int]int)
		require.NoError(t, up.Execute(ctx, p))
		assert.Empty(t, sub.chunks)
	})
}
