// Package execgroup partitions the operation graph into spatially tiled
// execution groups.
//
// A group is rooted at one output or write-buffer operation and contains
// every operation reachable from it without crossing a read buffer. Its
// output area is split into square chunks; each chunk becomes one work
// package. Groups depend on each other only through read/write buffer
// pairs.
package execgroup
