package preset

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMalformedPresetFile is returned when a preset file is not valid YAML or
// is not a sequence of mappings carrying id and name.
var ErrMalformedPresetFile = errors.New("malformed preset file")

// LoadFile reads and parses the preset file at path.
// Errors opening the file are returned as-is (wrapped), not as
// [ErrMalformedPresetFile].
func LoadFile(path string) (Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preset: open %q: %w", path, err)
	}
	defer f.Close()

	c, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("preset: parse %q: %w", path, err)
	}
	return c, nil
}

// LoadFromReader parses a preset collection from r. An empty document yields
// an empty collection. Input holding more than one document is malformed.
func LoadFromReader(r io.Reader) (Collection, error) {
	dec := yaml.NewDecoder(r)
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Collection{}, nil
		}
		return nil, fmt.Errorf("preset: decode yaml: %w: %w", ErrMalformedPresetFile, err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("preset: %w: expected a single document, found another at line %d", ErrMalformedPresetFile, extra.Line)
		}
		return nil, fmt.Errorf("preset: decode yaml: %w: %w", ErrMalformedPresetFile, err)
	}

	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = resolve(root.Content[0])
	}
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("preset: %w: top-level node must be a sequence (line %d)", ErrMalformedPresetFile, root.Line)
	}

	out := make(Collection, 0, len(root.Content))
	for i, item := range root.Content {
		p, err := decodePreset(resolve(item))
		if err != nil {
			return nil, fmt.Errorf("preset: entry %d: %w: %w", i, ErrMalformedPresetFile, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// decodePreset reads one mapping. Only id and name are mandatory; other keys
// are taken when they decode and ignored otherwise.
func decodePreset(n *yaml.Node) (Preset, error) {
	if n.Kind != yaml.MappingNode {
		return Preset{}, fmt.Errorf("line %d: expected a mapping", n.Line)
	}

	var p Preset
	// Type errors on tuning fields are tolerated; id and name are checked
	// separately below.
	_ = n.Decode(&p)

	idNode := lookup(n, "id")
	if idNode == nil {
		return Preset{}, fmt.Errorf("line %d: missing key \"id\"", n.Line)
	}
	if err := idNode.Decode(&p.ID); err != nil {
		return Preset{}, fmt.Errorf("line %d: id: %w", idNode.Line, err)
	}

	nameNode := lookup(n, "name")
	if nameNode == nil {
		return Preset{}, fmt.Errorf("line %d: missing key \"name\"", n.Line)
	}
	if nameNode.Kind != yaml.ScalarNode {
		return Preset{}, fmt.Errorf("line %d: name must be a scalar", nameNode.Line)
	}
	p.Name = nameNode.Value

	var styleID int64
	uuidNode, styleNode := lookup(n, "speaker_uuid"), lookup(n, "style_id")
	if uuidNode == nil || uuidNode.Kind != yaml.ScalarNode || styleNode == nil || styleNode.Decode(&styleID) != nil {
		p.noStyleKey = true
	}

	p.source = cloneBlock(n)
	return p, nil
}

// lookup returns the value node stored under key in mapping n, or nil.
func lookup(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolve(n.Content[i+1])
		}
	}
	return nil
}

// resolve follows alias nodes to their anchor.
func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// cloneBlock deep-copies n with aliases expanded, anchors removed and flow
// style cleared, so the copy can be emitted on its own in block layout.
func cloneBlock(n *yaml.Node) *yaml.Node {
	n = resolve(n)
	c := *n
	c.Anchor = ""
	c.Alias = nil
	c.Style &^= yaml.FlowStyle
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneBlock(child)
		}
	}
	return &c
}
