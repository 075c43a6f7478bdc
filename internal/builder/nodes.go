package builder

import (
	"context"
	"fmt"

	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/operation"
)

type imageParams struct {
	Width  int       `cty:"width"`
	Height int       `cty:"height"`
	Color  []float64 `cty:"color"`
}

type factorParams struct {
	Factor float64 `cty:"factor"`
}

type blurParams struct {
	Radius int `cty:"radius"`
}

type viewerParams struct {
	Active bool `cty:"active"`
}

type noParams struct{}

// createOperation instantiates the operation for node n.
func (b *NodeOperationBuilder) createOperation(ctx context.Context, id int, n *config.Node) (operation.Operation, error) {
	name := n.Ref().ID()

	switch n.Kind {
	case "image":
		p := imageParams{Width: 256, Height: 256, Color: []float64{0, 0, 0, 1}}
		if err := b.decode(ctx, n, &p); err != nil {
			return nil, err
		}
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("node %s: size must be positive, got %dx%d", name, p.Width, p.Height)
		}
		if len(p.Color) != operation.Channels {
			return nil, fmt.Errorf("node %s: color needs %d channels, got %d", name, operation.Channels, len(p.Color))
		}
		var color [operation.Channels]float32
		for i, c := range p.Color {
			color[i] = float32(c)
		}
		return operation.NewImageOperation(id, name, p.Width, p.Height, color), nil

	case "invert":
		if err := b.decode(ctx, n, &noParams{}); err != nil {
			return nil, err
		}
		return operation.NewInvertOperation(id, name), nil

	case "gain":
		p := factorParams{Factor: 1}
		if err := b.decode(ctx, n, &p); err != nil {
			return nil, err
		}
		return operation.NewGainOperation(id, name, float32(p.Factor)), nil

	case "mix":
		p := factorParams{Factor: 0.5}
		if err := b.decode(ctx, n, &p); err != nil {
			return nil, err
		}
		return operation.NewMixOperation(id, name, float32(p.Factor)), nil

	case "blur":
		p := blurParams{Radius: 1}
		if err := b.decode(ctx, n, &p); err != nil {
			return nil, err
		}
		if p.Radius < 0 {
			return nil, fmt.Errorf("node %s: radius must not be negative, got %d", name, p.Radius)
		}
		return operation.NewBoxBlurOperation(id, name, p.Radius), nil

	case "viewer":
		p := viewerParams{Active: true}
		if err := b.decode(ctx, n, &p); err != nil {
			return nil, err
		}
		return operation.NewViewerOperation(id, name, p.Active), nil

	case "preview":
		if err := b.decode(ctx, n, &noParams{}); err != nil {
			return nil, err
		}
		return operation.NewPreviewOperation(id, name), nil

	case "composite":
		if err := b.decode(ctx, n, &noParams{}); err != nil {
			return nil, err
		}
		return operation.NewCompositeOperation(id, name), nil

	default:
		return nil, fmt.Errorf("node %s: %w '%s'", name, ErrUnknownKind, n.Kind)
	}
}

func (b *NodeOperationBuilder) decode(ctx context.Context, n *config.Node, target any) error {
	if err := b.conv.DecodeParams(ctx, n.Params, target); err != nil {
		return fmt.Errorf("node %s: %w", n.Ref(), err)
	}
	return nil
}
