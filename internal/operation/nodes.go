package operation

import (
	"context"

	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/workpackage"
)

// ImageOperation is a source producing a fixed-size image of one colour.
type ImageOperation struct {
	Base
	size  Resolution
	color [Channels]float32
}

// NewImageOperation creates a width x height source of the given colour.
func NewImageOperation(id int, name string, width, height int, color [Channels]float32) *ImageOperation {
	return &ImageOperation{
		Base:  NewBase(id, name, 0, 0),
		size:  Resolution{Width: width, Height: height},
		color: color,
	}
}

// DetermineResolution always returns the configured size.
func (o *ImageOperation) DetermineResolution(Resolution) Resolution {
	o.SetResolution(o.size)
	return o.size
}

func (o *ImageOperation) ReadPixel(_, _ int, out []float32) {
	copy(out[:Channels], o.color[:])
}

// InvertOperation inverts the colour channels and keeps alpha.
type InvertOperation struct {
	Base
}

// NewInvertOperation creates an unconnected invert.
func NewInvertOperation(id int, name string) *InvertOperation {
	return &InvertOperation{Base: NewBase(id, name, 0, 1)}
}

func (o *InvertOperation) ReadPixel(x, y int, out []float32) {
	o.Input(0).ReadPixel(x, y, out)
	for c := range 3 {
		out[c] = 1 - out[c]
	}
}

// GainOperation multiplies the colour channels by a factor.
type GainOperation struct {
	Base
	factor float32
}

// NewGainOperation creates an unconnected gain.
func NewGainOperation(id int, name string, factor float32) *GainOperation {
	return &GainOperation{Base: NewBase(id, name, 0, 1), factor: factor}
}

func (o *GainOperation) ReadPixel(x, y int, out []float32) {
	o.Input(0).ReadPixel(x, y, out)
	for c := range 3 {
		out[c] *= o.factor
	}
}

// MixOperation blends two inputs: (1-factor)*a + factor*b.
type MixOperation struct {
	Base
	factor float32
}

// NewMixOperation creates an unconnected mix.
func NewMixOperation(id int, name string, factor float32) *MixOperation {
	return &MixOperation{Base: NewBase(id, name, 0, 2), factor: factor}
}

func (o *MixOperation) ReadPixel(x, y int, out []float32) {
	var b [Channels]float32
	o.Input(0).ReadPixel(x, y, out)
	o.Input(1).ReadPixel(x, y, b[:])
	for c := range Channels {
		out[c] = out[c]*(1-o.factor) + b[c]*o.factor
	}
}

// BoxBlurOperation averages a (2*radius+1)^2 neighbourhood. It needs pixels
// outside the requested tile, so its input is always buffered. At
// QualityLow the radius is halved.
type BoxBlurOperation struct {
	Base
	radius    int
	effective int
}

// NewBoxBlurOperation creates an unconnected blur.
func NewBoxBlurOperation(id int, name string, radius int) *BoxBlurOperation {
	return &BoxBlurOperation{Base: NewBase(id, name, FlagComplex|FlagGPU, 1), radius: radius, effective: radius}
}

// Radius returns the configured blur radius in pixels.
func (o *BoxBlurOperation) Radius() int {
	return o.radius
}

// EffectiveRadius returns the radius used by the current evaluation.
func (o *BoxBlurOperation) EffectiveRadius() int {
	return o.effective
}

// InitExecution picks the radius for the quality carried by ctx.
func (o *BoxBlurOperation) InitExecution(ctx context.Context) error {
	o.effective = o.radius
	if QualityFromContext(ctx) == config.QualityLow {
		o.effective = o.radius / 2
	}
	return nil
}

// DetermineDependingAreaOfInterest grows the requested area by the radius.
func (o *BoxBlurOperation) DetermineDependingAreaOfInterest(in rect.Rect, read *ReadBufferOperation) (rect.Rect, bool) {
	return o.Base.DetermineDependingAreaOfInterest(in.Grow(o.effective, o.effective), read)
}

func (o *BoxBlurOperation) ReadPixel(x, y int, out []float32) {
	var sum, px [Channels]float32
	n := 0
	for dy := -o.effective; dy <= o.effective; dy++ {
		for dx := -o.effective; dx <= o.effective; dx++ {
			o.Input(0).ReadPixel(x+dx, y+dy, px[:])
			for c := range Channels {
				sum[c] += px[c]
			}
			n++
		}
	}
	for c := range Channels {
		out[c] = sum[c] / float32(n)
	}
}

// outputOperation is the shared behaviour of operations that store their
// input into a result buffer owned by the caller.
type outputOperation struct {
	Base
	buffer   *MemoryBuffer
	priority workpackage.Priority
}

func newOutputOperation(id int, name string, flags Flags, priority workpackage.Priority) outputOperation {
	return outputOperation{Base: NewBase(id, name, flags|FlagOutput, 1), priority: priority}
}

// InitExecution allocates the result buffer.
func (o *outputOperation) InitExecution(context.Context) error {
	o.buffer = NewMemoryBuffer(o.res.Rect())
	return nil
}

// Buffer returns the result. It stays valid after the evaluation finishes.
func (o *outputOperation) Buffer() *MemoryBuffer {
	return o.buffer
}

func (o *outputOperation) RenderPriority() workpackage.Priority {
	return o.priority
}

func (o *outputOperation) ReadPixel(x, y int, out []float32) {
	o.buffer.Read(x, y, out)
}

// ExecuteRegion pulls r from the input into the result buffer.
func (o *outputOperation) ExecuteRegion(ctx context.Context, r rect.Rect) error {
	return executeInto(ctx, o.Input(0), o.buffer, r)
}

// ViewerOperation shows its input in the editor. The active viewer renders
// in the High tier, inactive viewers in the Low tier.
type ViewerOperation struct {
	outputOperation
	active bool
}

// NewViewerOperation creates an unconnected viewer.
func NewViewerOperation(id int, name string, active bool) *ViewerOperation {
	prio := workpackage.Low
	if active {
		prio = workpackage.High
	}
	return &ViewerOperation{outputOperation: newOutputOperation(id, name, FlagViewer, prio), active: active}
}

// Active reports whether this is the active viewer.
func (o *ViewerOperation) Active() bool {
	return o.active
}

// PreviewOperation renders node previews in the Medium tier.
type PreviewOperation struct {
	outputOperation
}

// NewPreviewOperation creates an unconnected preview.
func NewPreviewOperation(id int, name string) *PreviewOperation {
	return &PreviewOperation{outputOperation: newOutputOperation(id, name, FlagPreview, workpackage.Medium)}
}

// CompositeOperation is the render result in the High tier.
type CompositeOperation struct {
	outputOperation
}

// NewCompositeOperation creates an unconnected composite output.
func NewCompositeOperation(id int, name string) *CompositeOperation {
	return &CompositeOperation{outputOperation: newOutputOperation(id, name, 0, workpackage.High)}
}
