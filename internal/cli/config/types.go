// Package config provides configuration management for the amalgam CLI.
//
// Values are layered with koanf: built-in defaults, then amalgam.yaml,
// then AMALGAM_* environment variables, then explicitly set flags.
package config

import (
	"encoding/json"
	"time"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
	"github.com/leapstack-labs/amalgam/internal/license"
)

// LicenseConfig selects the footer appended to the output.
type LicenseConfig struct {
	// Preset is one of license.Presets().
	Preset string `koanf:"preset" yaml:"preset" json:"preset"`
	// File, when set, is used verbatim instead of the preset.
	File string `koanf:"file" yaml:"file,omitempty" json:"file,omitempty"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Debounce time.Duration `koanf:"debounce" yaml:"debounce" json:"debounce"`
}

// MarshalYAML writes the debounce as a duration string such as "200ms".
func (w WatchConfig) MarshalYAML() (interface{}, error) {
	return map[string]string{"debounce": w.Debounce.String()}, nil
}

// MarshalJSON mirrors MarshalYAML.
func (w WatchConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"debounce": w.Debounce.String()})
}

// Config holds all CLI configuration options.
type Config struct {
	// SourceDir holds the root document and every module file.
	SourceDir string `koanf:"source_dir" yaml:"source_dir" json:"source_dir"`
	// Root is the root document, relative to SourceDir.
	Root string `koanf:"root" yaml:"root" json:"root"`
	// Dest is the output file, relative to SourceDir.
	Dest    string `koanf:"dest" yaml:"dest" json:"dest"`
	DeclExt string `koanf:"decl_ext" yaml:"decl_ext" json:"decl_ext"`
	ImplExt string `koanf:"impl_ext" yaml:"impl_ext" json:"impl_ext"`
	// Guard is the macro gating the implementation section.
	Guard   string               `koanf:"guard" yaml:"guard" json:"guard"`
	Exclude amalgam.ExclusionSet `koanf:"exclude" yaml:"exclude" json:"exclude"`
	License LicenseConfig        `koanf:"license" yaml:"license" json:"license"`
	Watch   WatchConfig          `koanf:"watch" yaml:"watch" json:"watch"`

	Verbose      bool   `koanf:"verbose" yaml:"verbose,omitempty" json:"verbose,omitempty"`
	OutputFormat string `koanf:"output" yaml:"output,omitempty" json:"output,omitempty"`

	// ConfigDir is the directory relative paths were resolved against.
	ConfigDir string `koanf:"-" yaml:"-" json:"-"`
}

// Default configuration values.
const (
	DefaultSourceDir = "."
	DefaultRoot      = amalgam.DefaultRoot
	DefaultDest      = "../sk_gpu.h"
	DefaultDeclExt   = amalgam.DefaultDeclExt
	DefaultImplExt   = amalgam.DefaultImplExt
	DefaultGuard     = amalgam.DefaultGuard
	DefaultLicense   = license.Default
	DefaultDebounce  = 200 * time.Millisecond
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "AMALGAM_"
)

// ConfigFileNames are searched, in order, in the working directory.
var ConfigFileNames = []string{"amalgam.yaml", "amalgam.yml"}

// DefaultExclude lists backends that are referenced by the root document
// but not ready to ship.
func DefaultExclude() amalgam.ExclusionSet {
	return amalgam.ExclusionSet{
		"sk_gpu_dx12": true,
		"sk_gpu_vk":   true,
	}
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		SourceDir:    DefaultSourceDir,
		Root:         DefaultRoot,
		Dest:         DefaultDest,
		DeclExt:      DefaultDeclExt,
		ImplExt:      DefaultImplExt,
		Guard:        DefaultGuard,
		Exclude:      DefaultExclude(),
		License:      LicenseConfig{Preset: DefaultLicense},
		Watch:        WatchConfig{Debounce: DefaultDebounce},
		OutputFormat: DefaultOutput,
	}
}
