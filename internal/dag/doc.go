// Package dag validates node tree topology. It holds the node-to-node links
// of a tree, rejects cycles and yields a deterministic build order in which
// every node comes after all of its inputs.
package dag
