package operation

import (
	"context"
	"fmt"

	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/vk/gridcomp/internal/rect"
)

// WriteBufferOperation materializes its single input into a MemoryBuffer so
// that operations in other execution groups can read it.
type WriteBufferOperation struct {
	Base
	proxy    *MemoryProxy
	treeName string
}

// NewWriteBufferOperation creates a write buffer fed by input.
func NewWriteBufferOperation(id int, input Operation) *WriteBufferOperation {
	op := &WriteBufferOperation{
		Base: NewBase(id, fmt.Sprintf("write_buffer.%s", input.Name()), FlagWriteBuffer, 1),
	}
	op.SetInput(0, input)
	op.proxy = &MemoryProxy{write: op}
	return op
}

// Proxy returns the memory proxy shared with the read side.
func (w *WriteBufferOperation) Proxy() *MemoryProxy {
	return w.proxy
}

// SetNodeTree records the name of the node tree this buffer belongs to.
func (w *WriteBufferOperation) SetNodeTree(name string) {
	w.treeName = name
}

// NodeTree returns the name set with SetNodeTree.
func (w *WriteBufferOperation) NodeTree() string {
	return w.treeName
}

type nodeTreeKey struct{}

// WithNodeTree returns a context carrying the name of the node tree being
// evaluated.
func WithNodeTree(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nodeTreeKey{}, name)
}

// NodeTreeFromContext returns the node tree name stored by WithNodeTree.
func NodeTreeFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(nodeTreeKey{}).(string)
	return name, ok
}

// InitExecution allocates the full-resolution buffer. A buffer without a
// node tree adopts the one carried by ctx.
func (w *WriteBufferOperation) InitExecution(ctx context.Context) error {
	if !w.resolved {
		return fmt.Errorf("write buffer %s: resolution not determined", w.Name())
	}
	if name, ok := NodeTreeFromContext(ctx); ok && w.treeName == "" {
		w.treeName = name
	}
	w.proxy.buffer = NewMemoryBuffer(w.res.Rect())
	ctxlog.FromContext(ctx).Debug("Allocated write buffer.", "operation", w.Name(), "tree", w.treeName, "resolution", w.res.String())
	return nil
}

// DeinitExecution releases the buffer.
func (w *WriteBufferOperation) DeinitExecution() {
	w.proxy.buffer = nil
}

// ReadPixel reads the already materialized value.
func (w *WriteBufferOperation) ReadPixel(x, y int, out []float32) {
	w.proxy.buffer.Read(x, y, out)
}

// ExecuteRegion evaluates the input over r and stores it.
func (w *WriteBufferOperation) ExecuteRegion(ctx context.Context, r rect.Rect) error {
	return executeInto(ctx, w.Input(0), w.proxy.buffer, r)
}

// ReadBufferOperation reads from the buffer of a WriteBufferOperation in
// another execution group.
type ReadBufferOperation struct {
	Base
	proxy  *MemoryProxy
	offset int
	buffer *MemoryBuffer
}

// NewReadBufferOperation creates a reader of proxy's buffer.
func NewReadBufferOperation(id int, proxy *MemoryProxy) *ReadBufferOperation {
	return &ReadBufferOperation{
		Base:  NewBase(id, fmt.Sprintf("read_buffer.%s", proxy.write.Input(0).Name()), FlagReadBuffer, 0),
		proxy: proxy,
	}
}

// Proxy returns the memory proxy this operation reads from.
func (r *ReadBufferOperation) Proxy() *MemoryProxy {
	return r.proxy
}

// SetOffset assigns the reader's stable position among all readers of the
// evaluation.
func (r *ReadBufferOperation) SetOffset(offset int) {
	r.offset = offset
}

// Offset returns the value set with SetOffset.
func (r *ReadBufferOperation) Offset() int {
	return r.offset
}

// UpdateMemoryBuffer attaches the proxy's buffer. The write side must have
// been initialized first.
func (r *ReadBufferOperation) UpdateMemoryBuffer() {
	r.buffer = r.proxy.Buffer()
}

// DetermineResolution adopts the resolution of the write side.
func (r *ReadBufferOperation) DetermineResolution(preferred Resolution) Resolution {
	if r.resolved {
		return r.res
	}
	res := r.proxy.write.DetermineResolution(preferred)
	r.SetResolution(res)
	return res
}

// DetermineDependingAreaOfInterest returns in unchanged when asked about
// itself.
func (r *ReadBufferOperation) DetermineDependingAreaOfInterest(in rect.Rect, read *ReadBufferOperation) (rect.Rect, bool) {
	if read == r {
		return in, true
	}
	return rect.Rect{}, false
}

// ReadPixel reads from the attached buffer.
func (r *ReadBufferOperation) ReadPixel(x, y int, out []float32) {
	if r.buffer == nil {
		panic(fmt.Sprintf("read buffer %s: memory buffer not attached", r.Name()))
	}
	r.buffer.Read(x, y, out)
}

// executeInto pulls every pixel of r from src into dst. Cancellation is
// checked once per row.
func executeInto(ctx context.Context, src Operation, dst *MemoryBuffer, r rect.Rect) error {
	if dst == nil {
		return fmt.Errorf("%s: %w", src.Name(), ErrNotInitialized)
	}
	px := make([]float32, Channels)
	for y := r.YMin; y < r.YMax; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for x := r.XMin; x < r.XMax; x++ {
			src.ReadPixel(x, y, px)
			dst.Write(x, y, px)
		}
	}
	return nil
}
