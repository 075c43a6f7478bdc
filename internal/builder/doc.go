// Package builder converts a node tree into the operation graph and its
// execution groups.
//
// # How It Works
//
//  1. Validate the topology: every input must name a node and the tree must
//     be acyclic. Nodes are then visited in topological order.
//  2. Create one operation per node. Parameters are decoded by the
//     config.Converter into per-kind structs with defaults.
//  3. Connect inputs. A link feeding a complex operation, or any link of a
//     node marked `buffered`, is routed through a write/read buffer pair.
//     One write buffer is shared by all readers of the same source.
//  4. Keep only operations that contribute to an output and create one
//     execution group per output operation and per write buffer.
package builder
