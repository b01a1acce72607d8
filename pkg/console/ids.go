package console

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// StdinMarker is the single argument that selects reading ids from stdin.
const StdinMarker = "-"

// idKeys are the keys that hold the instance id in structured input records.
var idKeys = []string{"instance_id", "InstanceId", "id"}

// ReadsStdin reports whether args select reading ids from stdin.
func ReadsStdin(args []string) bool {
	return len(args) == 1 && args[0] == StdinMarker
}

// ReadInstanceIDs returns args, or the ids read from stdin when args is exactly "-".
func ReadInstanceIDs(args []string, stdin io.Reader) ([]string, error) {
	if ReadsStdin(args) {
		return ParseInstanceIDs(stdin)
	}
	ids := make([]string, len(args))
	copy(ids, args)
	return ids, nil
}

// ParseInstanceIDs reads a list of instance ids.
//
// The input is either a YAML or JSON sequence, whose items are ids or records
// holding an "instance_id" field, or plain ids separated by whitespace.
func ParseInstanceIDs(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []string{}, nil
	}

	structured := trimmed[0] == '[' || trimmed[0] == '{' || bytes.HasPrefix(trimmed, []byte("- "))

	var doc yaml.Node
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		if structured {
			return nil, fmt.Errorf("failed to parse instance id list: %w", err)
		}
		return strings.Fields(string(trimmed)), nil
	}

	if len(doc.Content) != 1 || doc.Content[0].Kind != yaml.SequenceNode {
		if structured {
			return nil, fmt.Errorf("instance id list must be a sequence")
		}
		return strings.Fields(string(trimmed)), nil
	}

	seq := doc.Content[0]
	ids := make([]string, 0, len(seq.Content))
	for i, item := range seq.Content {
		id, err := idOf(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func idOf(node *yaml.Node) (string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value, nil
	case yaml.MappingNode:
		for _, key := range idKeys {
			for i := 0; i+1 < len(node.Content); i += 2 {
				if node.Content[i].Value == key && node.Content[i+1].Kind == yaml.ScalarNode {
					return node.Content[i+1].Value, nil
				}
			}
		}
		return "", fmt.Errorf("record has no instance id")
	default:
		return "", fmt.Errorf("unexpected value at line %d", node.Line)
	}
}
