package builder

import (
	"context"
	"fmt"

	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/vk/gridcomp/internal/dag"
	"github.com/vk/gridcomp/internal/execgroup"
	"github.com/vk/gridcomp/internal/operation"
)

// Result is the operation graph of one node tree.
type Result struct {
	// Tree is the name of the node tree the graph was built from.
	Tree string
	// Operations lists every operation that contributes to an output.
	Operations []operation.Operation
	// Groups lists output groups first, then buffer groups.
	Groups []*execgroup.ExecutionGroup
	// BufferOwners maps a write-buffer operation ID to the index of the
	// group it roots.
	BufferOwners map[int]int
}

// NodeOperationBuilder converts node trees into operation graphs.
type NodeOperationBuilder struct {
	conv config.Converter
}

// New creates a builder that decodes node parameters with conv.
func New(conv config.Converter) *NodeOperationBuilder {
	return &NodeOperationBuilder{conv: conv}
}

// Build constructs the operations and execution groups for model.
func (b *NodeOperationBuilder) Build(ctx context.Context, model *config.Model) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("tree", model.Name)
	logger.Debug("Build: Starting operation graph construction.", "nodes", len(model.Nodes))

	order, err := b.validate(model)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Topology validated.")

	nextID := 0
	newID := func() int {
		nextID++
		return nextID
	}

	nodes := make(map[config.NodeRef]*config.Node, len(model.Nodes))
	for _, n := range model.Nodes {
		nodes[n.Ref()] = n
	}

	ops := make(map[config.NodeRef]operation.Operation, len(model.Nodes))
	for _, ref := range order {
		n := nodes[ref]
		op, err := b.createOperation(ctx, newID(), n)
		if err != nil {
			return nil, err
		}
		if len(n.Inputs) != len(op.Inputs()) {
			return nil, fmt.Errorf("node %s: %w: has %d, needs %d", ref, ErrInputCount, len(n.Inputs), len(op.Inputs()))
		}
		ops[ref] = op
	}
	logger.Debug("Build: Operation creation complete.", "operations", len(ops))

	writes := make(map[config.NodeRef]*operation.WriteBufferOperation)
	for _, ref := range order {
		n := nodes[ref]
		consumer := ops[ref]
		buffered := n.Buffered || operation.IsComplex(consumer)

		for i, in := range n.Inputs {
			src := ops[in]
			if operation.IsOutput(src) {
				return nil, fmt.Errorf("node %s: %w: %s", ref, ErrOutputAsInput, in)
			}
			if !buffered {
				consumer.SetInput(i, src)
				continue
			}
			write, ok := writes[in]
			if !ok {
				write = operation.NewWriteBufferOperation(newID(), src)
				write.SetNodeTree(model.Name)
				writes[in] = write
			}
			consumer.SetInput(i, operation.NewReadBufferOperation(newID(), write.Proxy()))
		}
	}
	logger.Debug("Build: Node linking complete.", "write_buffers", len(writes))

	var outputs []operation.RegionExecutor
	for _, ref := range order {
		if out, ok := ops[ref].(operation.RegionExecutor); ok && operation.IsOutput(out) {
			outputs = append(outputs, out)
		}
	}
	if len(outputs) == 0 {
		return nil, ErrNoOutputs
	}

	res := &Result{Tree: model.Name, BufferOwners: make(map[int]int)}
	for _, out := range outputs {
		res.Groups = append(res.Groups, execgroup.New(len(res.Groups), out))
	}

	// Walk from the outputs through read buffers to discover the buffer
	// groups that are actually needed.
	seenOps := make(map[int]bool)
	for i := 0; i < len(res.Groups); i++ {
		g := res.Groups[i]
		for _, op := range g.Operations() {
			if !seenOps[op.ID()] {
				seenOps[op.ID()] = true
				res.Operations = append(res.Operations, op)
			}
		}
		for _, read := range g.ReadOperations() {
			write := read.Proxy().WriteBuffer()
			if _, ok := res.BufferOwners[write.ID()]; ok {
				continue
			}
			res.BufferOwners[write.ID()] = len(res.Groups)
			res.Groups = append(res.Groups, execgroup.New(len(res.Groups), write))
		}
	}

	if pruned := nextID - len(res.Operations); pruned > 0 {
		logger.Debug("Build: Skipped operations that feed no output.", "count", pruned)
	}
	logger.Debug("Build: Graph construction successful.", "operations", len(res.Operations), "groups", len(res.Groups))
	return res, nil
}

// validate checks references and cycles and returns the nodes in an order
// where every node follows its inputs.
func (b *NodeOperationBuilder) validate(model *config.Model) ([]config.NodeRef, error) {
	g := dag.New()
	refs := make(map[string]config.NodeRef, len(model.Nodes))
	for _, n := range model.Nodes {
		g.AddNode(n.Ref().ID())
		refs[n.Ref().ID()] = n.Ref()
	}
	for _, n := range model.Nodes {
		for _, in := range n.Inputs {
			if _, ok := refs[in.ID()]; !ok {
				return nil, fmt.Errorf("node %s: %w %s", n.Ref(), ErrUnknownInput, in)
			}
			if err := g.AddEdge(in.ID(), n.Ref().ID()); err != nil {
				return nil, fmt.Errorf("node %s: %w", n.Ref(), err)
			}
		}
	}

	ids, err := g.TopologicalOrder()
	if err != nil {
		return nil, fmt.Errorf("error validating node tree: %w", err)
	}
	order := make([]config.NodeRef, len(ids))
	for i, id := range ids {
		order[i] = refs[id]
	}
	return order, nil
}
