package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsApply(t *testing.T) {
	t.Run("nil settings keep the context", func(t *testing.T) {
		c := DefaultContext()
		var s *Settings
		require.NoError(t, s.Apply(&c))
		assert.Equal(t, DefaultContext(), c)
	})

	t.Run("overrides defined fields", func(t *testing.T) {
		c := DefaultContext()
		chunk, quality, mode, fast := 64, "low", "output-to-input", true
		s := &Settings{
			ChunkSize:       &chunk,
			Quality:         &quality,
			SchedulingMode:  &mode,
			FastCalculation: &fast,
			ViewerBorder:    []float64{0, 0.5, 0, 1},
		}
		require.NoError(t, s.Apply(&c))

		assert.Equal(t, 64, c.ChunkSize)
		assert.Equal(t, QualityLow, c.Quality)
		assert.Equal(t, OutputToInput, c.SchedulingMode)
		assert.True(t, c.FastCalculation)
		require.NotNil(t, c.ViewerBorder)
		assert.Equal(t, Border{XMin: 0, XMax: 0.5, YMin: 0, YMax: 1}, *c.ViewerBorder)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		c := DefaultContext()
		zero := 0
		assert.Error(t, (&Settings{ChunkSize: &zero}).Apply(&c))

		bad := "ultra"
		assert.Error(t, (&Settings{Quality: &bad}).Apply(&c))
		assert.Error(t, (&Settings{SchedulingMode: &bad}).Apply(&c))
		assert.Error(t, (&Settings{ViewerBorder: []float64{0, 1}}).Apply(&c))
	})
}

func TestUseRenderBorder(t *testing.T) {
	c := DefaultContext()
	c.RenderData.UseBorder = true
	assert.False(t, c.UseRenderBorder(), "not rendering")

	c.Rendering = true
	assert.True(t, c.UseRenderBorder())

	c.RenderData.Crop = true
	assert.False(t, c.UseRenderBorder(), "crop disables the border")
}

func TestModelNode(t *testing.T) {
	m := &Model{Nodes: []*Node{{Kind: "image", Name: "src"}, {Kind: "viewer", Name: "main"}}}
	assert.Equal(t, "viewer", m.Node(NodeRef{Kind: "viewer", Name: "main"}).Kind)
	assert.Nil(t, m.Node(NodeRef{Kind: "viewer", Name: "missing"}))
	assert.Equal(t, "image.src", NodeRef{Kind: "image", Name: "src"}.ID())
}
