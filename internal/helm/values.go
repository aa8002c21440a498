package helm

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge combines multiple Values maps with later maps taking precedence.
// Nested maps are merged recursively so overrides keep sibling defaults.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		result = deepMerge(result, m)
	}
	return result
}

// deepMerge merges override into base recursively. Values from override win;
// maps present on both sides are merged rather than replaced.
func deepMerge(base, override Values) Values {
	result := make(Values, len(base))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		existing, ok := result[k]
		if !ok {
			result[k] = v
			continue
		}
		existingMap := toValues(existing)
		overrideMap := toValues(v)
		if existingMap != nil && overrideMap != nil {
			result[k] = deepMerge(existingMap, overrideMap)
			continue
		}
		result[k] = v
	}
	return result
}

func toValues(v any) Values {
	switch m := v.(type) {
	case Values:
		return m
	case map[string]any:
		return m
	default:
		return nil
	}
}

// ToMap converts nested Values to plain map[string]interface{} recursively,
// as the helm engine expects plain maps.
func (v Values) ToMap() map[string]any {
	result := make(map[string]any, len(v))
	for k, val := range v {
		if nested := toValues(val); nested != nil {
			result[k] = Values(nested).ToMap()
			continue
		}
		result[k] = val
	}
	return result
}

// ToYAML converts values to YAML bytes.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}
