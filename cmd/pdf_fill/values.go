package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/filler"
)

// readValuesFile loads field values from YAML. Both a mapping of
// name: value and a list of {name, value} entries are accepted; the file
// order is kept.
func readValuesFile(path string) ([]filler.FieldValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}
	return parseValues(data)
}

func parseValues(data []byte) ([]filler.FieldValue, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid values file: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	node := root.Content[0]
	switch node.Kind {
	case yaml.MappingNode:
		values := make([]filler.FieldValue, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, val := node.Content[i], node.Content[i+1]
			if val.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: value of %q must be a scalar", val.Line, key.Value)
			}
			values = append(values, filler.FieldValue{Name: key.Value, Value: val.Value})
		}
		return values, nil
	case yaml.SequenceNode:
		var values []filler.FieldValue
		if err := node.Decode(&values); err != nil {
			return nil, fmt.Errorf("invalid values list: %w", err)
		}
		for i, v := range values {
			if v.Name == "" {
				return nil, fmt.Errorf("entry %d has no name", i+1)
			}
		}
		return values, nil
	default:
		return nil, fmt.Errorf("line %d: values must be a mapping or a list", node.Line)
	}
}

// parseAssignments turns name=value pairs from --set into field values
func parseAssignments(pairs []string) ([]filler.FieldValue, error) {
	values := make([]filler.FieldValue, 0, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected name=value", pair)
		}
		values = append(values, filler.FieldValue{Name: name, Value: value})
	}
	return values, nil
}
