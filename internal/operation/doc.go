// Package operation defines the nodes of the operation graph consumed by the
// execution system, the buffered hand-off between execution groups, and a
// small set of reference operations.
//
// Operations are pull based: an output operation executes a region by reading
// every pixel of that region from its inputs, which in turn read from their
// inputs, down to either a source operation or a ReadBufferOperation. A
// ReadBufferOperation reads from the MemoryBuffer filled by its paired
// WriteBufferOperation, which is the output of another execution group. Those
// pairs are the only edges between groups.
package operation
