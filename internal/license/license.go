// Package license holds the footer blocks appended to every amalgamation.
package license

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Preset names.
const (
	MIT2024 = "mit-2024"
	MIT2020 = "mit-2020"
	None    = "none"

	// Default is the latest footer.
	Default = MIT2024
)

//go:embed mit-2024.txt
var mit2024 string

//go:embed mit-2020.txt
var mit2020 string

var presets = map[string]string{
	MIT2024: mit2024,
	MIT2020: mit2020,
	None:    "",
}

// Presets returns the known preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the footer text for name. An empty name selects Default.
func Preset(name string) (string, error) {
	if name == "" {
		name = Default
	}
	text, ok := presets[strings.ToLower(name)]
	if !ok {
		return "", fmt.Errorf("unknown license preset %q (available: %s)", name, strings.Join(Presets(), ", "))
	}
	return text, nil
}

// Load returns the footer text. A non-empty file wins over the preset and
// is used verbatim.
func Load(preset, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read license file: %w", err)
		}
		return string(data), nil
	}
	return Preset(preset)
}
