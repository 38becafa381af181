package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	trawlerrors "github.com/oceanbright/trawl/pkg/errors"
)

// Map is a flat key-to-scalar configuration mapping, the only configuration
// shape the system supports. Nested mappings and sequences are disallowed.
type Map map[string]any

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads a flat configuration map from a YAML file. A missing file is a
// parse error; an empty document loads as an empty map.
func Load(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, trawlerrors.NewParseError(path, 0, err)
	}

	var m Map
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, trawlerrors.NewParseError(path, extractLine(err), err)
	}
	if m == nil {
		m = Map{}
	}

	return m, nil
}

// Save writes a flat configuration map to a YAML file, replacing any previous
// contents. An empty map writes an empty document rather than nothing, so a
// freshly created config file exists on disk.
func Save(path string, m Map) error {
	if err := CheckFlat(m); err != nil {
		return err
	}

	if m == nil {
		m = Map{}
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// CheckFlat verifies that every value in the map is a scalar. The value types
// are later used to infer prompting and parsing types, so structured values
// are rejected outright.
func CheckFlat(m Map) error {
	for key, value := range m {
		switch value.(type) {
		case nil, string, bool, int, int64, float64:
		default:
			return fmt.Errorf("configuration key %q has non-scalar value of type %T", key, value)
		}
	}
	return nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
