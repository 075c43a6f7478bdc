// This file contains the logic for translating HCL schema structs into the
// format-agnostic node tree model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional fields with zero-width
// placeholder expressions, so a nil check is insufficient.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// decodeExpr evaluates a constant expression into target.
func decodeExpr(expr hcl.Expression, name string, target any) error {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return fmt.Errorf("invalid value for '%s': %w", name, diags)
	}
	if err := gocty.FromCtyValue(val, target); err != nil {
		return fmt.Errorf("invalid value for '%s': %w", name, err)
	}
	return nil
}

// translateSettings converts the compositor block into config.Settings.
func (l *Loader) translateSettings(ctx context.Context, b *CompositorBlock) (*config.Settings, error) {
	logger := ctxlog.FromContext(ctx)
	s := &config.Settings{}

	if isExprDefined(b.ChunkSize) {
		s.ChunkSize = new(int)
		if err := decodeExpr(b.ChunkSize, "chunk_size", s.ChunkSize); err != nil {
			return nil, err
		}
	}
	if isExprDefined(b.Quality) {
		s.Quality = new(string)
		if err := decodeExpr(b.Quality, "quality", s.Quality); err != nil {
			return nil, err
		}
	}
	if isExprDefined(b.FastCalculation) {
		s.FastCalculation = new(bool)
		if err := decodeExpr(b.FastCalculation, "fast_calculation", s.FastCalculation); err != nil {
			return nil, err
		}
	}
	if isExprDefined(b.SchedulingMode) {
		s.SchedulingMode = new(string)
		if err := decodeExpr(b.SchedulingMode, "scheduling_mode", s.SchedulingMode); err != nil {
			return nil, err
		}
	}
	if isExprDefined(b.SingleThreaded) {
		s.SingleThreaded = new(bool)
		if err := decodeExpr(b.SingleThreaded, "single_threaded", s.SingleThreaded); err != nil {
			return nil, err
		}
	}
	if isExprDefined(b.ViewerBorder) {
		exprs, diags := hcl.ExprList(b.ViewerBorder)
		if diags.HasErrors() {
			return nil, fmt.Errorf("viewer_border must be a list: %w", diags)
		}
		for i, e := range exprs {
			var v float64
			if err := decodeExpr(e, fmt.Sprintf("viewer_border[%d]", i), &v); err != nil {
				return nil, err
			}
			s.ViewerBorder = append(s.ViewerBorder, v)
		}
	}

	logger.Debug("Translated compositor settings.")
	return s, nil
}

// translateNode converts a node block into the agnostic model.
func (l *Loader) translateNode(ctx context.Context, b *NodeBlock) (*config.Node, error) {
	logger := ctxlog.FromContext(ctx).With("node_kind", b.Kind, "node_name", b.Name)
	logger.Debug("Translating HCL node to internal config model.")

	n := &config.Node{
		Kind:   b.Kind,
		Name:   b.Name,
		Params: make(map[string]cty.Value),
	}

	if isExprDefined(b.Input) && isExprDefined(b.Inputs) {
		return nil, fmt.Errorf("node %s: 'input' and 'inputs' are mutually exclusive", n.Ref())
	}
	if isExprDefined(b.Input) {
		ref, err := traversableToRef(b.Input)
		if err != nil {
			return nil, fmt.Errorf("node %s: input: %w", n.Ref(), err)
		}
		n.Inputs = []config.NodeRef{ref}
	}
	if isExprDefined(b.Inputs) {
		exprs, diags := hcl.ExprList(b.Inputs)
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %s: inputs must be a list: %w", n.Ref(), diags)
		}
		for i, e := range exprs {
			ref, err := traversableToRef(e)
			if err != nil {
				return nil, fmt.Errorf("node %s: inputs[%d]: %w", n.Ref(), i, err)
			}
			n.Inputs = append(n.Inputs, ref)
		}
	}
	if isExprDefined(b.Buffered) {
		if err := decodeExpr(b.Buffered, "buffered", &n.Buffered); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Ref(), err)
		}
	}

	if b.Params != nil {
		attrs, diags := b.Params.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("node %s: %w", n.Ref(), diags)
		}
		for name, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return nil, fmt.Errorf("node %s: invalid value for '%s': %w", n.Ref(), name, diags)
			}
			n.Params[name] = val
		}
	}

	logger.Debug("Translated node.", "inputs", len(n.Inputs), "params", len(n.Params), "buffered", n.Buffered)
	return n, nil
}

// traversableToRef resolves a `node.<kind>.<name>` traversal.
func traversableToRef(expr hcl.Expression) (config.NodeRef, error) {
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return config.NodeRef{}, fmt.Errorf("expected a node reference like node.<kind>.<name>: %w", diags)
	}
	if len(trav) != 3 || trav.RootName() != "node" {
		return config.NodeRef{}, fmt.Errorf("expected a node reference like node.<kind>.<name>, got %d parts", len(trav))
	}
	kind, ok1 := trav[1].(hcl.TraverseAttr)
	name, ok2 := trav[2].(hcl.TraverseAttr)
	if !ok1 || !ok2 {
		return config.NodeRef{}, fmt.Errorf("expected a node reference like node.<kind>.<name>")
	}
	return config.NodeRef{Kind: kind.Name, Name: name.Name}, nil
}
