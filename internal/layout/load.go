package layout

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML layout, applies defaults and validates it.
// Unknown keys are rejected so a typo does not silently drop a rule.
func Parse(data []byte) (Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}

	l = l.WithDefaults()
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Load reads a YAML layout file.
func Load(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

// Resolve returns the layout from path when set, otherwise the registered
// layout called name.
func Resolve(name, path string) (Layout, error) {
	if path != "" {
		return Load(path)
	}
	l, ok := Get(name)
	if !ok {
		return Layout{}, fmt.Errorf("unknown layout %q (registered: %v)", name, Names())
	}
	return l, nil
}
