package operation

import (
	"github.com/vk/gridcomp/internal/rect"
)

// MemoryBuffer holds RGBA float pixels for a rectangle.
//
// Tiles of the same operation write disjoint rectangles of one shared buffer
// concurrently; the buffer itself takes no lock.
type MemoryBuffer struct {
	rect rect.Rect
	data []float32
}

// NewMemoryBuffer allocates a zeroed buffer covering r.
func NewMemoryBuffer(r rect.Rect) *MemoryBuffer {
	return &MemoryBuffer{rect: r, data: make([]float32, r.Area()*Channels)}
}

// Rect returns the area covered by the buffer.
func (m *MemoryBuffer) Rect() rect.Rect {
	return m.rect
}

func (m *MemoryBuffer) offset(x, y int) int {
	return ((y-m.rect.YMin)*m.rect.Width() + (x - m.rect.XMin)) * Channels
}

// Read copies the pixel at (x, y) into out. Coordinates outside the buffer
// are clamped to the nearest edge pixel.
func (m *MemoryBuffer) Read(x, y int, out []float32) {
	if m.rect.Empty() {
		clear(out[:Channels])
		return
	}
	x = min(max(x, m.rect.XMin), m.rect.XMax-1)
	y = min(max(y, m.rect.YMin), m.rect.YMax-1)
	off := m.offset(x, y)
	copy(out[:Channels], m.data[off:off+Channels])
}

// Write stores px at (x, y). Writes outside the buffer are dropped.
func (m *MemoryBuffer) Write(x, y int, px []float32) {
	if !m.rect.Contains(x, y) {
		return
	}
	off := m.offset(x, y)
	copy(m.data[off:off+Channels], px[:Channels])
}

// MemoryProxy links a WriteBufferOperation with the ReadBufferOperations that
// consume its buffer. The buffer is allocated when the write operation is
// initialized.
type MemoryProxy struct {
	write  *WriteBufferOperation
	buffer *MemoryBuffer
}

// WriteBuffer returns the producing operation.
func (p *MemoryProxy) WriteBuffer() *WriteBufferOperation {
	return p.write
}

// Buffer returns the allocated buffer, nil before initialization.
func (p *MemoryProxy) Buffer() *MemoryBuffer {
	return p.buffer
}
