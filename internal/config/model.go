package config

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Model is the unified, format-agnostic representation of a node tree.
type Model struct {
	// Name identifies the tree, usually derived from the source file.
	Name     string
	Settings *Settings
	Nodes    []*Node
}

// Node returns the node with the given reference, or nil.
func (m *Model) Node(ref NodeRef) *Node {
	for _, n := range m.Nodes {
		if n.Ref() == ref {
			return n
		}
	}
	return nil
}

// NodeRef addresses a node by kind and name, as in `node.blur.soft`.
type NodeRef struct {
	Kind string
	Name string
}

// ID returns the "<kind>.<name>" form of the reference.
func (r NodeRef) ID() string {
	return fmt.Sprintf("%s.%s", r.Kind, r.Name)
}

func (r NodeRef) String() string {
	return r.ID()
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Kind string
	Name string
	// Inputs are the upstream nodes in input slot order.
	Inputs []NodeRef
	// Buffered forces every input link of this node through a buffer.
	Buffered bool
	// Params holds the remaining kind-specific attributes.
	Params map[string]cty.Value
}

// Ref returns the node's reference.
func (n *Node) Ref() NodeRef {
	return NodeRef{Kind: n.Kind, Name: n.Name}
}

// Settings holds the optional `compositor` block. Nil fields keep the value
// already present in the Context.
type Settings struct {
	ChunkSize       *int
	Quality         *string
	FastCalculation *bool
	SchedulingMode  *string
	SingleThreaded  *bool
	ViewerBorder    []float64
}

// Apply overrides the fields of c that the settings define.
func (s *Settings) Apply(c *Context) error {
	if s == nil {
		return nil
	}
	if s.ChunkSize != nil {
		if *s.ChunkSize <= 0 {
			return fmt.Errorf("chunk_size must be positive, got %d", *s.ChunkSize)
		}
		c.ChunkSize = *s.ChunkSize
	}
	if s.Quality != nil {
		q, err := ParseQuality(*s.Quality)
		if err != nil {
			return err
		}
		c.Quality = q
	}
	if s.FastCalculation != nil {
		c.FastCalculation = *s.FastCalculation
	}
	if s.SchedulingMode != nil {
		m, err := ParseSchedulingMode(*s.SchedulingMode)
		if err != nil {
			return err
		}
		c.SchedulingMode = m
	}
	if s.SingleThreaded != nil {
		c.SingleThreaded = *s.SingleThreaded
	}
	if s.ViewerBorder != nil {
		if len(s.ViewerBorder) != 4 {
			return fmt.Errorf("viewer_border needs 4 values (xmin, xmax, ymin, ymax), got %d", len(s.ViewerBorder))
		}
		c.ViewerBorder = &Border{
			XMin: s.ViewerBorder[0], XMax: s.ViewerBorder[1],
			YMin: s.ViewerBorder[2], YMax: s.ViewerBorder[3],
		}
	}
	return nil
}
