package preset

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Encode writes c to w as a block-style YAML sequence with two-space
// indentation. Loaded presets are written from their source mapping; the
// rest are written in the field order of [Preset]. Non-ASCII text is kept
// literal. An empty collection is written as "[]".
func Encode(w io.Writer, c Collection) error {
	root := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for i, p := range c {
		n, err := p.node()
		if err != nil {
			return fmt.Errorf("preset: encode entry %d (%q): %w", i, p.Name, err)
		}
		root.Content = append(root.Content, n)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("preset: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("preset: flush yaml: %w", err)
	}
	return nil
}

// Marshal returns the YAML encoding of c.
func Marshal(c Collection) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// node returns the YAML mapping for p.
func (p Preset) node() (*yaml.Node, error) {
	if p.source != nil {
		return p.source, nil
	}
	var n yaml.Node
	if err := n.Encode(p); err != nil {
		return nil, err
	}
	return &n, nil
}
