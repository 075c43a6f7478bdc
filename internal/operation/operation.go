package operation

import (
	"context"
	"fmt"

	"github.com/vk/gridcomp/internal/rect"
	"github.com/vk/gridcomp/internal/workpackage"
)

// Channels is the number of float channels per pixel (RGBA).
const Channels = 4

// Flags describe the role of an operation in the graph.
type Flags uint32

const (
	FlagReadBuffer Flags = 1 << iota
	FlagWriteBuffer
	FlagViewer
	FlagPreview
	// FlagOutput marks operations that root an output execution group.
	FlagOutput
	// FlagComplex marks operations that read outside the requested pixel and
	// therefore need buffered inputs.
	FlagComplex
	// FlagGPU marks operations that may run on a GPU device.
	FlagGPU
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Resolution is the size in pixels of an operation's output.
type Resolution struct {
	Width  int
	Height int
}

// Rect returns the rectangle covering the whole resolution.
func (r Resolution) Rect() rect.Rect {
	return rect.FromSize(r.Width, r.Height)
}

// IsZero reports whether the resolution is unset.
func (r Resolution) IsZero() bool {
	return r.Width == 0 && r.Height == 0
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Operation is a node in the operation graph.
type Operation interface {
	ID() int
	Name() string
	Flags() Flags

	Inputs() []Operation
	SetInput(i int, op Operation)

	Resolution() Resolution
	SetResolution(res Resolution)
	// DetermineResolution resolves and caches the output size, propagating
	// the request to the inputs first.
	DetermineResolution(preferred Resolution) Resolution

	InitExecution(ctx context.Context) error
	DeinitExecution()

	// ReadPixel writes the RGBA value at (x, y) into out.
	ReadPixel(x, y int, out []float32)

	// DetermineDependingAreaOfInterest returns the area of read's buffer that
	// is needed to produce in. The boolean is false when read is not reachable
	// from this operation.
	DetermineDependingAreaOfInterest(in rect.Rect, read *ReadBufferOperation) (rect.Rect, bool)
}

// RegionExecutor is implemented by operations that can root an execution
// group: they produce a region of output by pulling pixels from their inputs.
type RegionExecutor interface {
	Operation
	ExecuteRegion(ctx context.Context, r rect.Rect) error
}

// Prioritized is implemented by output operations to place their group in a
// priority tier.
type Prioritized interface {
	RenderPriority() workpackage.Priority
}

// Base carries the state shared by every operation. Concrete operations embed
// it and override what they need.
type Base struct {
	id       int
	name     string
	flags    Flags
	inputs   []Operation
	res      Resolution
	resolved bool
}

// NewBase returns a Base with numInputs unconnected input slots.
func NewBase(id int, name string, flags Flags, numInputs int) Base {
	return Base{id: id, name: name, flags: flags, inputs: make([]Operation, numInputs)}
}

func (b *Base) ID() int             { return b.id }
func (b *Base) Name() string        { return b.name }
func (b *Base) Flags() Flags        { return b.flags }
func (b *Base) Inputs() []Operation { return b.inputs }

// SetInput connects op to input slot i.
func (b *Base) SetInput(i int, op Operation) {
	if i < 0 || i >= len(b.inputs) {
		panic(fmt.Sprintf("operation %s: input %d out of range (%d inputs)", b.name, i, len(b.inputs)))
	}
	b.inputs[i] = op
}

// Input returns the operation connected to slot i.
func (b *Base) Input(i int) Operation {
	return b.inputs[i]
}

func (b *Base) Resolution() Resolution { return b.res }

func (b *Base) SetResolution(res Resolution) {
	b.res = res
	b.resolved = true
}

// DetermineResolution takes the resolution of the first input and offers it
// as the preferred resolution to the remaining inputs. Operations without
// inputs adopt the preferred resolution.
func (b *Base) DetermineResolution(preferred Resolution) Resolution {
	if b.resolved {
		return b.res
	}
	res := preferred
	for i, in := range b.inputs {
		if in == nil {
			continue
		}
		if i == 0 {
			res = in.DetermineResolution(preferred)
			continue
		}
		in.DetermineResolution(res)
	}
	b.SetResolution(res)
	return res
}

func (b *Base) InitExecution(context.Context) error { return nil }
func (b *Base) DeinitExecution()                    {}

// DetermineDependingAreaOfInterest asks every input for the area of read it
// needs to produce in and returns the union.
func (b *Base) DetermineDependingAreaOfInterest(in rect.Rect, read *ReadBufferOperation) (rect.Rect, bool) {
	var (
		out   rect.Rect
		found bool
	)
	for _, input := range b.inputs {
		if input == nil {
			continue
		}
		area, ok := input.DetermineDependingAreaOfInterest(in, read)
		if !ok {
			continue
		}
		if !found {
			out, found = area, true
			continue
		}
		out = out.Union(area)
	}
	return out, found
}

// IsReadBuffer reports whether op is a ReadBufferOperation.
func IsReadBuffer(op Operation) bool { return op.Flags().Has(FlagReadBuffer) }

// IsWriteBuffer reports whether op is a WriteBufferOperation.
func IsWriteBuffer(op Operation) bool { return op.Flags().Has(FlagWriteBuffer) }

// IsViewer reports whether op shows its result in the editor.
func IsViewer(op Operation) bool { return op.Flags().Has(FlagViewer) }

// IsPreview reports whether op renders a node preview.
func IsPreview(op Operation) bool { return op.Flags().Has(FlagPreview) }

// IsOutput reports whether op can root an output group.
func IsOutput(op Operation) bool { return op.Flags().Has(FlagOutput) }

// IsComplex reports whether op needs its inputs buffered.
func IsComplex(op Operation) bool { return op.Flags().Has(FlagComplex) }

// GPUCapable reports whether op can run on a GPU device.
func GPUCapable(op Operation) bool { return op.Flags().Has(FlagGPU) }
