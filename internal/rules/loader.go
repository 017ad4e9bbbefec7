package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile parses a rules file: a sequence of YAML documents separated by
// "---". Each document has fields name (required, unique per
// file), description, priority (default 0), condition, and actions.
func LoadFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: failed to read %s: %w", path, err)
	}
	return Load(data)
}

// Load parses rules-file YAML content from bytes.
func Load(data []byte) ([]*Rule, error) {
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	seen := map[string]bool{}
	var out []*Rule
	for {
		var r Rule
		if err := dec.Decode(&r); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("rules: malformed rule document: %w", err)
		}
		if r.Name == "" {
			return nil, fmt.Errorf("rules: rule document missing required field 'name'")
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rules: duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		out = append(out, &r)
	}
	return out, nil
}
