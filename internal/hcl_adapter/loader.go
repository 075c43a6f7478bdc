package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/gridcomp/internal/config"
	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/vk/gridcomp/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL node tree loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file found under paths and merges their blocks into
// one node tree. The tree is named after the first file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := fsutil.FindFiles(paths, ".hcl")
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no .hcl files found in %s", strings.Join(paths, ", "))
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{
		Name: strings.TrimSuffix(filepath.Base(hclFiles[0]), ".hcl"),
	}
	seen := make(map[config.NodeRef]string)
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Compositor != nil {
			if model.Settings != nil {
				return nil, nil, fmt.Errorf("duplicate compositor block in %s", file)
			}
			settings, err := l.translateSettings(ctx, root.Compositor)
			if err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Settings = settings
		}

		for _, block := range root.Nodes {
			n, err := l.translateNode(ctx, block)
			if err != nil {
				return nil, nil, fmt.Errorf("in %s: %w", file, err)
			}
			if prev, dup := seen[n.Ref()]; dup {
				return nil, nil, fmt.Errorf("node %s in %s is already defined in %s", n.Ref(), file, prev)
			}
			seen[n.Ref()] = file
			model.Nodes = append(model.Nodes, n)
		}
	}

	logger.Debug("HCL loading complete.", "tree", model.Name, "nodes", len(model.Nodes), "has_settings", model.Settings != nil)
	return model, NewConverter(), nil
}
