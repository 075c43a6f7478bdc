package operation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/workpackage"
)

func red() [Channels]float32 { return [Channels]float32{1, 0, 0, 1} }

func TestDetermineResolution(t *testing.T) {
	src := NewImageOperation(1, "image.src", 64, 32, red())
	gain := NewGainOperation(2, "gain.g", 2)
	gain.SetInput(0, src)
	viewer := NewViewerOperation(3, "viewer.v", true)
	viewer.SetInput(0, gain)

	res := viewer.DetermineResolution(Resolution{Width: 1920, Height: 1080})
	assert.Equal(t, Resolution{Width: 64, Height: 32}, res)
	assert.Equal(t, res, gain.Resolution())

	t.Run("second input gets the first input's resolution", func(t *testing.T) {
		a := NewImageOperation(1, "image.a", 10, 10, red())
		inv := NewInvertOperation(2, "invert.b")
		inv.SetInput(0, NewImageOperation(3, "image.c", 99, 99, red()))
		mix := NewMixOperation(4, "mix.m", 0.5)
		mix.SetInput(0, a)
		mix.SetInput(1, inv)

		assert.Equal(t, Resolution{Width: 10, Height: 10}, mix.DetermineResolution(Resolution{}))
		assert.Equal(t, Resolution{Width: 99, Height: 99}, inv.Resolution(), "fixed-size sources keep their own size")
	})

	t.Run("source without fixed size adopts the preferred size", func(t *testing.T) {
		op := NewInvertOperation(1, "invert.lonely")
		assert.Equal(t, Resolution{Width: 8, Height: 4}, op.DetermineResolution(Resolution{Width: 8, Height: 4}))
	})
}

func TestSetInputOutOfRange(t *testing.T) {
	op := NewGainOperation(1, "gain.g", 1)
	assert.Panics(t, func() { op.SetInput(1, op) })
}

func TestDependingAreaOfInterest(t *testing.T) {
	src := NewImageOperation(1, "image.src", 100, 100, red())
	write := NewWriteBufferOperation(2, src)
	read := NewReadBufferOperation(3, write.Proxy())
	other := NewReadBufferOperation(4, write.Proxy())

	tile := rect.New(10, 20, 10, 20)

	t.Run("read buffer answers for itself only", func(t *testing.T) {
		area, ok := read.DetermineDependingAreaOfInterest(tile, read)
		require.True(t, ok)
		assert.Equal(t, tile, area)

		_, ok = read.DetermineDependingAreaOfInterest(tile, other)
		assert.False(t, ok)
	})

	t.Run("simple operations pass the area through", func(t *testing.T) {
		inv := NewInvertOperation(5, "invert.i")
		inv.SetInput(0, read)
		area, ok := inv.DetermineDependingAreaOfInterest(tile, read)
		require.True(t, ok)
		assert.Equal(t, tile, area)
	})

	t.Run("blur grows the area by its radius", func(t *testing.T) {
		blur := NewBoxBlurOperation(6, "blur.b", 3)
		blur.SetInput(0, read)
		area, ok := blur.DetermineDependingAreaOfInterest(tile, read)
		require.True(t, ok)
		assert.Equal(t, rect.New(7, 23, 7, 23), area)
	})

	t.Run("low quality halves the blur radius", func(t *testing.T) {
		blur := NewBoxBlurOperation(9, "blur.b", 3)
		blur.SetInput(0, read)
		require.NoError(t, blur.InitExecution(WithQuality(context.Background(), config.QualityLow)))
		assert.Equal(t, 3, blur.Radius())
		assert.Equal(t, 1, blur.EffectiveRadius())
		area, ok := blur.DetermineDependingAreaOfInterest(tile, read)
		require.True(t, ok)
		assert.Equal(t, rect.New(9, 21, 9, 21), area)

		require.NoError(t, blur.InitExecution(WithQuality(context.Background(), config.QualityMedium)))
		assert.Equal(t, 3, blur.EffectiveRadius())
		require.NoError(t, blur.InitExecution(context.Background()))
		assert.Equal(t, 3, blur.EffectiveRadius())
	})

	t.Run("mix unions both inputs", func(t *testing.T) {
		blur := NewBoxBlurOperation(7, "blur.b", 2)
		blur.SetInput(0, read)
		mix := NewMixOperation(8, "mix.m", 0.5)
		mix.SetInput(0, read)
		mix.SetInput(1, blur)
		area, ok := mix.DetermineDependingAreaOfInterest(tile, read)
		require.True(t, ok)
		assert.Equal(t, rect.New(8, 22, 8, 22), area)

		_, ok = mix.DetermineDependingAreaOfInterest(tile, other)
		assert.False(t, ok)
	})
}

func TestWriteReadBufferRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewImageOperation(1, "image.src", 4, 4, [Channels]float32{0.25, 0.5, 0.75, 1})
	inv := NewInvertOperation(2, "invert.i")
	inv.SetInput(0, src)

	write := NewWriteBufferOperation(3, inv)
	write.SetNodeTree("tree")
	read := NewReadBufferOperation(4, write.Proxy())
	viewer := NewViewerOperation(5, "viewer.v", true)
	viewer.SetInput(0, read)

	viewer.DetermineResolution(Resolution{})
	assert.Equal(t, Resolution{Width: 4, Height: 4}, read.Resolution())
	assert.Equal(t, "tree", write.NodeTree())
	assert.Same(t, write, write.Proxy().WriteBuffer())

	require.NoError(t, write.InitExecution(ctx))
	read.UpdateMemoryBuffer()
	require.NoError(t, viewer.InitExecution(ctx))

	require.NoError(t, write.ExecuteRegion(ctx, rect.FromSize(4, 4)))
	require.NoError(t, viewer.ExecuteRegion(ctx, rect.FromSize(4, 4)))

	px := make([]float32, Channels)
	viewer.Buffer().Read(3, 3, px)
	assert.InDeltaSlice(t, []float32{0.75, 0.5, 0.25, 1}, px, 1e-6)

	write.DeinitExecution()
	assert.Nil(t, write.Proxy().Buffer())
	assert.NotNil(t, viewer.Buffer(), "output buffers outlive the evaluation")
}

func TestExecuteRegionErrors(t *testing.T) {
	viewer := NewViewerOperation(1, "viewer.v", false)
	viewer.SetInput(0, NewImageOperation(2, "image.src", 2, 2, red()))
	viewer.DetermineResolution(Resolution{})

	err := viewer.ExecuteRegion(context.Background(), rect.FromSize(2, 2))
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, viewer.InitExecution(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, viewer.ExecuteRegion(ctx, rect.FromSize(2, 2)), context.Canceled)
}

func TestWriteBufferRequiresResolution(t *testing.T) {
	write := NewWriteBufferOperation(1, NewImageOperation(2, "image.src", 2, 2, red()))
	assert.Error(t, write.InitExecution(context.Background()))
}

func TestReadBufferWithoutMemoryPanics(t *testing.T) {
	write := NewWriteBufferOperation(1, NewImageOperation(2, "image.src", 2, 2, red()))
	read := NewReadBufferOperation(3, write.Proxy())
	assert.Equal(t, "read_buffer.image.src", read.Name())
	assert.Panics(t, func() { read.ReadPixel(0, 0, make([]float32, Channels)) })
}

func TestOutputPriorities(t *testing.T) {
	testCases := []struct {
		name  string
		op    Operation
		prio  workpackage.Priority
		flags Flags
	}{
		{"active viewer", NewViewerOperation(1, "viewer.a", true), workpackage.High, FlagViewer | FlagOutput},
		{"inactive viewer", NewViewerOperation(2, "viewer.b", false), workpackage.Low, FlagViewer | FlagOutput},
		{"preview", NewPreviewOperation(3, "preview.p"), workpackage.Medium, FlagPreview | FlagOutput},
		{"composite", NewCompositeOperation(4, "composite.c"), workpackage.High, FlagOutput},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := tc.op.(Prioritized)
			require.True(t, ok)
			assert.Equal(t, tc.prio, p.RenderPriority())
			assert.True(t, tc.op.Flags().Has(tc.flags))
			_, ok = tc.op.(RegionExecutor)
			assert.True(t, ok)
		})
	}
}

func TestMemoryBuffer(t *testing.T) {
	buf := NewMemoryBuffer(rect.New(2, 4, 2, 4))
	buf.Write(2, 2, []float32{1, 2, 3, 4})
	buf.Write(10, 10, []float32{9, 9, 9, 9})

	px := make([]float32, Channels)
	buf.Read(0, 0, px)
	assert.Equal(t, []float32{1, 2, 3, 4}, px, "reads outside clamp to the nearest edge")

	empty := NewMemoryBuffer(rect.Rect{})
	empty.Read(0, 0, px)
	assert.Equal(t, []float32{0, 0, 0, 0}, px)
}

func TestBoxBlurAverages(t *testing.T) {
	ctx := context.Background()
	src := NewImageOperation(1, "image.src", 8, 8, [Channels]float32{0.5, 0.5, 0.5, 1})
	blur := NewBoxBlurOperation(2, "blur.b", 1)
	blur.SetInput(0, src)
	blur.DetermineResolution(Resolution{})
	assert.True(t, blur.Flags().Has(FlagComplex|FlagGPU))
	require.NoError(t, blur.InitExecution(ctx))

	px := make([]float32, Channels)
	blur.ReadPixel(0, 0, px)
	assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5, 1}, px, 1e-6)
}

func TestFlagHelpers(t *testing.T) {
	src := NewImageOperation(1, "image.src", 4, 4, [Channels]float32{})
	blur := NewBoxBlurOperation(2, "blur.b", 1)
	viewer := NewViewerOperation(3, "viewer.v", true)
	preview := NewPreviewOperation(4, "preview.p")
	write := NewWriteBufferOperation(5, src)
	read := NewReadBufferOperation(6, write.Proxy())

	assert.True(t, IsComplex(blur))
	assert.True(t, GPUCapable(blur))
	assert.False(t, IsComplex(src))
	assert.True(t, IsViewer(viewer) && IsOutput(viewer))
	assert.True(t, IsPreview(preview) && IsOutput(preview))
	assert.False(t, IsViewer(preview))
	assert.True(t, IsWriteBuffer(write))
	assert.True(t, IsReadBuffer(read))
	assert.False(t, IsOutput(write))
}

func TestWriteBufferAdoptsNodeTreeFromContext(t *testing.T) {
	src := NewImageOperation(1, "image.src", 2, 2, red())
	write := NewWriteBufferOperation(2, src)
	write.DetermineResolution(Resolution{})

	_, ok := NodeTreeFromContext(context.Background())
	assert.False(t, ok)

	require.NoError(t, write.InitExecution(WithNodeTree(context.Background(), "scene")))
	assert.Equal(t, "scene", write.NodeTree())

	write.SetNodeTree("explicit")
	require.NoError(t, write.InitExecution(WithNodeTree(context.Background(), "scene")))
	assert.Equal(t, "explicit", write.NodeTree(), "an explicit tree is kept")
}
