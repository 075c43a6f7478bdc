package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridcomp/internal/config"
	"github.com/zclconf/go-cty/cty"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"tree.hcl": `
compositor {
  chunk_size    = 64
  viewer_border = [0, 0.5, 0, 1]
}

node "image" "src" {
  width  = 128
  height = 64
  color  = [1, 0.5, 0.25, 1]
}

node "blur" "soft" {
  input  = node.image.src
  radius = 4
}

node "mix" "blend" {
  inputs   = [node.image.src, node.blur.soft]
  buffered = true
  factor   = 0.5
}
`,
	})

	model, conv, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, conv)

	assert.Equal(t, "tree", model.Name)
	require.NotNil(t, model.Settings)
	require.NotNil(t, model.Settings.ChunkSize)
	assert.Equal(t, 64, *model.Settings.ChunkSize)
	assert.Equal(t, []float64{0, 0.5, 0, 1}, model.Settings.ViewerBorder)
	assert.Nil(t, model.Settings.Quality)

	require.Len(t, model.Nodes, 3)

	blur := model.Node(config.NodeRef{Kind: "blur", Name: "soft"})
	require.NotNil(t, blur)
	assert.Equal(t, []config.NodeRef{{Kind: "image", Name: "src"}}, blur.Inputs)
	assert.False(t, blur.Buffered)
	assert.True(t, blur.Params["radius"].RawEquals(cty.NumberIntVal(4)))

	mix := model.Node(config.NodeRef{Kind: "mix", Name: "blend"})
	require.NotNil(t, mix)
	assert.Equal(t, []config.NodeRef{{Kind: "image", Name: "src"}, {Kind: "blur", Name: "soft"}}, mix.Inputs)
	assert.True(t, mix.Buffered)
	assert.NotContains(t, mix.Params, "inputs")
	assert.Contains(t, mix.Params, "factor")
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no files",
			files:   map[string]string{"readme.txt": "nothing"},
			wantErr: "no .hcl files found",
		},
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": `node "image" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "bad reference",
			files:   map[string]string{"a.hcl": `node "blur" "b" { input = image.src }`},
			wantErr: "expected a node reference",
		},
		{
			name:    "input and inputs together",
			files:   map[string]string{"a.hcl": "node \"mix\" \"m\" {\n  input  = node.image.a\n  inputs = [node.image.b]\n}\n"},
			wantErr: "mutually exclusive",
		},
		{
			name: "duplicate node across files",
			files: map[string]string{
				"a.hcl": `node "image" "src" {}`,
				"b.hcl": `node "image" "src" {}`,
			},
			wantErr: "already defined",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeTree(t, tc.files)
			_, _, err := NewLoader().Load(context.Background(), dir)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestDecodeParams(t *testing.T) {
	type params struct {
		Width  int       `cty:"width"`
		Color  []float64 `cty:"color"`
		Active bool      `cty:"active"`
	}

	t.Run("decodes present fields and keeps defaults", func(t *testing.T) {
		p := params{Width: 10, Active: true}
		err := NewConverter().DecodeParams(context.Background(), map[string]cty.Value{
			"width": cty.NumberIntVal(32),
			"color": cty.TupleVal([]cty.Value{cty.NumberFloatVal(0.5), cty.NumberIntVal(1)}),
		}, &p)
		require.NoError(t, err)
		assert.Equal(t, params{Width: 32, Color: []float64{0.5, 1}, Active: true}, p)
	})

	t.Run("rejects unknown parameters", func(t *testing.T) {
		var p params
		err := NewConverter().DecodeParams(context.Background(), map[string]cty.Value{
			"radius": cty.NumberIntVal(3),
		}, &p)
		assert.ErrorContains(t, err, "unsupported parameters: radius")
	})

	t.Run("rejects wrong types", func(t *testing.T) {
		var p params
		err := NewConverter().DecodeParams(context.Background(), map[string]cty.Value{
			"width": cty.StringVal("wide"),
		}, &p)
		assert.ErrorContains(t, err, "width")
	})

	t.Run("requires a struct pointer", func(t *testing.T) {
		assert.Error(t, NewConverter().DecodeParams(context.Background(), nil, params{}))
	})
}
