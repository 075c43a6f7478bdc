package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Compositor *CompositorBlock `hcl:"compositor,block"`
	Nodes      []*NodeBlock     `hcl:"node,block"`
	Remain     hcl.Body         `hcl:",remain"`
}

// CompositorBlock is the optional `compositor { ... }` settings block.
type CompositorBlock struct {
	ChunkSize       hcl.Expression `hcl:"chunk_size,optional"`
	Quality         hcl.Expression `hcl:"quality,optional"`
	FastCalculation hcl.Expression `hcl:"fast_calculation,optional"`
	SchedulingMode  hcl.Expression `hcl:"scheduling_mode,optional"`
	SingleThreaded  hcl.Expression `hcl:"single_threaded,optional"`
	ViewerBorder    hcl.Expression `hcl:"viewer_border,optional"`
}

// NodeBlock is a `node "<kind>" "<name>" { ... }` block.
type NodeBlock struct {
	Kind     string         `hcl:"kind,label"`
	Name     string         `hcl:"name,label"`
	Input    hcl.Expression `hcl:"input,optional"`
	Inputs   hcl.Expression `hcl:"inputs,optional"`
	Buffered hcl.Expression `hcl:"buffered,optional"`
	// Params holds every other attribute.
	Params hcl.Body `hcl:",remain"`
}
