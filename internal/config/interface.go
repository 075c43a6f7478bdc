package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific node tree loader.
type Loader interface {
	// Load reads node tree files from the given paths, translates them into
	// the format-agnostic model, and returns a matching Converter.
	Load(ctx context.Context, paths ...string) (*Model, Converter, error)
}

// Converter binds raw node parameters to the Go types used by operations.
type Converter interface {
	// DecodeParams decodes params into the struct pointed to by target.
	// Fields are matched by their `cty` tag; fields without a matching
	// parameter keep their current value, so callers preset defaults.
	DecodeParams(ctx context.Context, params map[string]cty.Value, target any) error
}
