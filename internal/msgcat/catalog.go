package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var defaultFiles embed.FS

// Catalog holds user-facing texts keyed by dotted paths ("status.checkmate").
// Parsed templates are cached per key; overrides replace the cache entry.
type Catalog struct {
	mu    sync.RWMutex
	data  map[string]string
	cache map[string]*template.Template
}

// New loads the embedded English messages and then overrides from dir if provided.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]string), cache: make(map[string]*template.Template)}

	base, err := loadFS(defaultFiles, false)
	if err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	c.merge(base)

	if dir := strings.TrimSpace(overrideDir); dir != "" {
		over, err := loadFS(os.DirFS(dir), true)
		if err != nil {
			return nil, fmt.Errorf("messages dir %s: %w", dir, err)
		}
		c.merge(over)
	}
	return c, nil
}

// Default returns the embedded catalog. It panics only if the embedded file is broken.
func Default() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) merge(flat map[string]string) {
	c.mu.Lock()
	for k, v := range flat {
		c.data[k] = v
		delete(c.cache, k)
	}
	c.mu.Unlock()
}

// loadFS reads every top-level *.yaml / *.yml in name order. With strict
// set, a key defined by two files is an error.
func loadFS(fsys fs.FS, strict bool) (map[string]string, error) {
	names, err := fs.Glob(fsys, "*.y*ml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make(map[string]string)
	owner := make(map[string]string)
	for _, name := range names {
		if ext := path.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		flat := make(map[string]string)
		if len(doc.Content) > 0 {
			if err := walk(doc.Content[0], "", flat); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
		}
		for k, v := range flat {
			if prev, dup := owner[k]; dup && strict {
				return nil, fmt.Errorf("key %q defined in both %s and %s", k, prev, name)
			}
			owner[k] = name
			out[k] = v
		}
	}
	return out, nil
}

// walk flattens nested mappings into dotted keys. Only string leaves are allowed.
func walk(n *yaml.Node, prefix string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := walk(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if prefix == "" {
			return errors.New("top level must be a mapping")
		}
		if n.Tag != "!!str" && n.Tag != "!!null" {
			return fmt.Errorf("line %d: %s must be a string, got %s", n.Line, prefix, n.Tag)
		}
		if n.Tag == "!!str" {
			out[prefix] = n.Value
		}
		return nil
	}
	return fmt.Errorf("line %d: unsupported value at %q", n.Line, prefix)
}

func (c *Catalog) template(key string) (*template.Template, error) {
	key = strings.TrimSpace(key)
	c.mu.RLock()
	t, cached := c.cache[key]
	src, ok := c.data[key]
	c.mu.RUnlock()
	if cached {
		return t, nil
	}
	if !ok || strings.TrimSpace(src) == "" {
		return nil, fmt.Errorf("template not found: %s", key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[key] = t
	c.mu.Unlock()
	return t, nil
}

// Render executes the template for key. Missing keys and missing fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	t, err := c.template(key)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text renders key and falls back to the key itself on any error.
func (c *Catalog) Text(key string, data any) string {
	if c == nil {
		return key
	}
	s, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return s
}
