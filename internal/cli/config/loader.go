package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// configKey is used to store the loaded config in a command context.
type configKey struct{}

var (
	configFileUsed string
	currentConfig  *Config
)

// flagKeys maps flag names to config keys where they differ from the
// kebab-to-snake convention. An empty key means the flag is not a config
// value.
var flagKeys = map[string]string{
	"license":      "license.preset",
	"license-file": "license.file",
	"config":       "",
	"skip":         "",
}

// findConfigFile returns the config file to use, or "" if none exists.
// Priority: explicit path > amalgam.yaml > amalgam.yml in dir.
func findConfigFile(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig clears the package-level state. Used for testing.
func ResetConfig() {
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from defaults, file, environment variables
// and flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults. Relative source_dir and license.file values resolve against the
// config file's directory (the working directory without one); dest resolves
// against source_dir. Paths given as flags resolve against the working
// directory.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// 1. Defaults
	def := Default()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"source_dir":     def.SourceDir,
		"root":           def.Root,
		"dest":           def.Dest,
		"decl_ext":       def.DeclExt,
		"impl_ext":       def.ImplExt,
		"guard":          def.Guard,
		"exclude":        exclusionMap(def.Exclude),
		"license.preset": def.License.Preset,
		"watch.debounce": def.Watch.Debounce.String(),
		"verbose":        false,
		"output":         def.OutputFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile, cwd)
	baseDir := cwd
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	// 3. Environment variables (AMALGAM_ prefix)
	// Transform: AMALGAM_SOURCE_DIR -> source_dir, AMALGAM_LICENSE__PRESET -> license.preset
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, mapped := flagKeys[f.Name]
			if !mapped {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				ExclusionSetHook(),
				mapstructure.StringToTimeDurationHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if cfg.Exclude == nil {
		cfg.Exclude = amalgam.ExclusionSet{}
	}

	// 6. --skip adds to whatever the other layers produced
	if flags != nil {
		if skips, err := flags.GetStringSlice("skip"); err == nil {
			for _, name := range skips {
				if name = strings.TrimSpace(name); name != "" {
					cfg.Exclude[name] = true
				}
			}
		}
	}

	// 7. Resolve paths
	cfg.ConfigDir = baseDir
	if flagChanged(flags, "source-dir") {
		cfg.SourceDir = resolvePathRelativeTo(cfg.SourceDir, cwd)
	} else {
		cfg.SourceDir = resolvePathRelativeTo(cfg.SourceDir, baseDir)
	}
	if flagChanged(flags, "dest") {
		cfg.Dest = resolvePathRelativeTo(cfg.Dest, cwd)
	} else {
		cfg.Dest = resolvePathRelativeTo(cfg.Dest, cfg.SourceDir)
	}
	if flagChanged(flags, "license-file") {
		cfg.License.File = resolvePathRelativeTo(cfg.License.File, cwd)
	} else {
		cfg.License.File = resolvePathRelativeTo(cfg.License.File, baseDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the most recently loaded configuration.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithConfig returns a copy of ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config stored by WithConfig, falling back to
// the most recently loaded configuration.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return GetCurrentConfig()
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// ExclusionSetHook decodes an exclusion set from any of the shapes users
// write it in:
//
//	exclude: {sk_gpu_vk: true, sk_gpu_gl: skip}
//	exclude: [sk_gpu_vk, sk_gpu_dx12]
//	AMALGAM_EXCLUDE=sk_gpu_vk,sk_gpu_dx12
func ExclusionSetHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(amalgam.ExclusionSet{})
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		set := amalgam.ExclusionSet{}
		switch v := data.(type) {
		case nil:
			return set, nil
		case string:
			for _, name := range strings.Split(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					set[name] = true
				}
			}
		case []interface{}:
			for _, item := range v {
				name := strings.TrimSpace(fmt.Sprint(item))
				if name != "" {
					set[name] = true
				}
			}
		case []string:
			for _, name := range v {
				if name = strings.TrimSpace(name); name != "" {
					set[name] = true
				}
			}
		case map[string]interface{}:
			for name, raw := range v {
				skip, err := parseSkip(raw)
				if err != nil {
					return nil, fmt.Errorf("exclude.%s: %w", name, err)
				}
				set[name] = skip
			}
		case map[string]bool:
			for name, skip := range v {
				set[name] = skip
			}
		default:
			return nil, fmt.Errorf("exclude: unsupported value of type %T", data)
		}
		return set, nil
	}
}

// parseSkip accepts booleans and the words skip/include.
func parseSkip(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case nil:
		return true, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "skip", "exclude", "":
			return true, nil
		case "include", "keep":
			return false, nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("want true, false, skip or include, got %q", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("want true, false, skip or include, got %v", raw)
	}
}

func exclusionMap(set amalgam.ExclusionSet) map[string]interface{} {
	m := make(map[string]interface{}, len(set))
	for name, skip := range set {
		m[name] = skip
	}
	return m
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
