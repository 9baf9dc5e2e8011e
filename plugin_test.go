package svcreg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginCatalog(t *testing.T) {
	t.Run("selector filters candidates", func(t *testing.T) {
		c := NewPluginCatalog()
		require.NoError(t, c.Add("editors", PluginCandidate{TypeID: "app.TextEditor", Selector: "text"}))
		require.NoError(t, c.Add("editors", PluginCandidate{TypeID: "app.HexEditor", Selector: "hex"}))

		typeID, err := c.ResolvePlugin("editors", "hex")
		require.NoError(t, err)
		assert.Equal(t, "app.HexEditor", typeID)
	})

	t.Run("empty selector picks the first declared candidate", func(t *testing.T) {
		c := NewPluginCatalog()
		require.NoError(t, c.Add("editors", PluginCandidate{TypeID: "app.TextEditor", Selector: "text"}))
		require.NoError(t, c.Add("editors", PluginCandidate{TypeID: "app.HexEditor", Selector: "hex"}))

		typeID, err := c.ResolvePlugin("editors", "")
		require.NoError(t, err)
		assert.Equal(t, "app.TextEditor", typeID)
	})

	t.Run("no match", func(t *testing.T) {
		c := NewPluginCatalog()
		require.NoError(t, c.Add("editors", PluginCandidate{TypeID: "app.TextEditor", Selector: "text"}))

		_, err := c.ResolvePlugin("editors", "pdf")
		require.ErrorIs(t, err, ErrPluginNotFound)

		var lookup PluginLookupError
		require.ErrorAs(t, err, &lookup)
		assert.Equal(t, "editors", lookup.Category)
		assert.Equal(t, "pdf", lookup.Selector)

		_, err = c.ResolvePlugin("viewers", "")
		require.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("relative categories live under the root", func(t *testing.T) {
		c := NewPluginCatalog(WithPluginRoot("app/plugins"))
		require.NoError(t, c.Add("editors", PluginCandidate{TypeID: "app.TextEditor"}))

		// Relative and absolute addressing reach the same bucket.
		typeID, err := c.ResolvePlugin("editors", "")
		require.NoError(t, err)
		assert.Equal(t, "app.TextEditor", typeID)

		typeID, err = c.ResolvePlugin("/app/plugins/editors", "")
		require.NoError(t, err)
		assert.Equal(t, "app.TextEditor", typeID)
	})

	t.Run("search is non-recursive", func(t *testing.T) {
		c := NewPluginCatalog()
		require.NoError(t, c.Add("editors/text", PluginCandidate{TypeID: "app.TextEditor"}))

		_, err := c.ResolvePlugin("editors", "")
		require.ErrorIs(t, err, ErrPluginNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		c := NewPluginCatalog()
		require.Error(t, c.Add("", PluginCandidate{TypeID: "x"}))
		require.Error(t, c.Add("editors", PluginCandidate{}))
	})

	t.Run("categories", func(t *testing.T) {
		c := NewPluginCatalog(WithPluginRoot("root"))
		require.NoError(t, c.Add("a", PluginCandidate{TypeID: "x"}))
		require.NoError(t, c.Add("/b", PluginCandidate{TypeID: "y"}))

		got := c.Categories()
		assert.ElementsMatch(t, []string{"root/a", "b"}, got)
	})
}

func TestLoadPluginManifest(t *testing.T) {
	t.Run("builds a catalog preserving candidate order", func(t *testing.T) {
		manifest := `
root: app/plugins
categories:
  editors:
    - type: app.TextEditor
      selector: text
    - type: app.HexEditor
      selector: hex
      metadata:
        author: tools-team
  viewers:
    - type: app.ImageViewer
`
		c, err := LoadPluginManifest(strings.NewReader(manifest))
		require.NoError(t, err)

		typeID, err := c.ResolvePlugin("editors", "")
		require.NoError(t, err)
		assert.Equal(t, "app.TextEditor", typeID)

		typeID, err = c.ResolvePlugin("editors", "hex")
		require.NoError(t, err)
		assert.Equal(t, "app.HexEditor", typeID)

		typeID, err = c.ResolvePlugin("/app/plugins/viewers", "")
		require.NoError(t, err)
		assert.Equal(t, "app.ImageViewer", typeID)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := LoadPluginManifest(strings.NewReader("wrong: field\n"))
		require.Error(t, err)
	})

	t.Run("rejects candidates without a type", func(t *testing.T) {
		manifest := `
categories:
  editors:
    - selector: text
`
		_, err := LoadPluginManifest(strings.NewReader(manifest))
		require.Error(t, err)
	})
}
