package svcreg

import (
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// PluginCandidate is one constructible type declared under a plugin
// category.
type PluginCandidate struct {
	// TypeID names the cataloged type to construct.
	TypeID string

	// Selector is the declared key a resolution selector matches against.
	Selector string

	// Metadata carries free-form descriptive entries.
	Metadata map[string]string
}

// PluginCatalog is the stock in-process PluginResolver: an ordered list of
// candidates per category. Categories are flat grouping paths, searched
// non-recursively; a relative category is placed under the catalog root, a
// leading slash addresses the path absolutely.
type PluginCatalog struct {
	mu         sync.RWMutex
	root       string
	categories map[string][]PluginCandidate
}

// PluginCatalogOption configures a PluginCatalog.
type PluginCatalogOption func(*PluginCatalog)

// WithPluginRoot sets the root path relative categories are placed under.
func WithPluginRoot(root string) PluginCatalogOption {
	return func(c *PluginCatalog) {
		c.root = strings.Trim(root, "/")
	}
}

// NewPluginCatalog creates an empty catalog.
func NewPluginCatalog(opts ...PluginCatalogOption) *PluginCatalog {
	c := &PluginCatalog{categories: make(map[string][]PluginCandidate)}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Add declares a candidate under category. Candidates keep declaration
// order: an empty selector at resolution picks the earliest one.
func (c *PluginCatalog) Add(category string, candidate PluginCandidate) error {
	if category == "" {
		return fmt.Errorf("plugin category cannot be empty")
	}
	if candidate.TypeID == "" {
		return fmt.Errorf("plugin candidate in category %q has no type identity", category)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := c.normalize(category)
	c.categories[normalized] = append(c.categories[normalized], candidate)
	return nil
}

// ResolvePlugin implements PluginResolver. An empty selector picks the
// first declared candidate of the category; otherwise the first candidate
// whose declared selector matches wins.
func (c *PluginCatalog) ResolvePlugin(category, selector string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	candidates := c.categories[c.normalize(category)]
	for _, candidate := range candidates {
		if selector == "" || candidate.Selector == selector {
			return candidate.TypeID, nil
		}
	}

	return "", PluginLookupError{Category: category, Selector: selector}
}

// Categories returns the normalized category paths with at least one
// candidate.
func (c *PluginCatalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.categories))
	for category := range c.categories {
		out = append(out, category)
	}
	return out
}

// normalize maps a caller-supplied category to its flat bucket path. The
// search is non-recursive: "editors" under root "app/plugins" and the
// absolute "/app/plugins/editors" address the same bucket.
func (c *PluginCatalog) normalize(category string) string {
	if strings.HasPrefix(category, "/") {
		return path.Clean(strings.TrimPrefix(category, "/"))
	}
	if c.root == "" {
		return path.Clean(category)
	}
	return path.Join(c.root, category)
}

// pluginManifest is the YAML shape accepted by LoadPluginManifest.
type pluginManifest struct {
	Root       string                          `yaml:"root"`
	Categories map[string][]pluginManifestItem `yaml:"categories"`
}

type pluginManifestItem struct {
	Type     string            `yaml:"type"`
	Selector string            `yaml:"selector"`
	Metadata map[string]string `yaml:"metadata"`
}

// LoadPluginManifest builds a PluginCatalog from a YAML manifest:
//
//	root: app/plugins
//	categories:
//	  editors:
//	    - type: app.TextEditor
//	      selector: text
//	    - type: app.HexEditor
//	      selector: hex
//	      metadata:
//	        author: tools-team
//
// Candidate order within a category is preserved from the document.
func LoadPluginManifest(r io.Reader) (*PluginCatalog, error) {
	var manifest pluginManifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		return nil, fmt.Errorf("plugin manifest: %w", err)
	}

	catalog := NewPluginCatalog(WithPluginRoot(manifest.Root))
	for category, items := range manifest.Categories {
		for _, item := range items {
			err := catalog.Add(category, PluginCandidate{
				TypeID:   item.Type,
				Selector: item.Selector,
				Metadata: item.Metadata,
			})
			if err != nil {
				return nil, fmt.Errorf("plugin manifest: %w", err)
			}
		}
	}

	return catalog, nil
}
