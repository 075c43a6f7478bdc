// Package hcl_adapter loads node trees written in HCL into the config model.
//
// A tree file contains an optional `compositor` settings block and any
// number of `node "<kind>" "<name>"` blocks. Links between nodes are written
// as traversals, `input = node.image.src`, or as a list in `inputs`.
package hcl_adapter
