package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
)

// newFlags registers the persistent flags the root command defines.
func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.String("source-dir", "", "source directory")
	flags.String("root", "", "root document")
	flags.String("dest", "", "output file")
	flags.String("guard", "", "guard macro")
	flags.String("license", "", "license preset")
	flags.String("license-file", "", "license file")
	flags.StringSlice("skip", nil, "modules to skip")
	flags.BoolP("verbose", "v", false, "verbose")
	flags.StringP("output", "o", "", "output format")
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "amalgam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, cwd, cfg.SourceDir)
	assert.Equal(t, "sk_gpu_dev.h", cfg.Root)
	assert.Equal(t, filepath.Join(filepath.Dir(cwd), "sk_gpu.h"), cfg.Dest, "output lands in the parent of the source directory")
	assert.Equal(t, ".h", cfg.DeclExt)
	assert.Equal(t, ".cpp", cfg.ImplExt)
	assert.Equal(t, "SKG_IMPL", cfg.Guard)
	assert.Equal(t, []string{"sk_gpu_dx12", "sk_gpu_vk"}, cfg.Exclude.Names())
	assert.Equal(t, "mit-2024", cfg.License.Preset)
	assert.Equal(t, DefaultDebounce, cfg.Watch.Debounce)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_FileResolvesRelativeToItself(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, `source_dir: src
root: lib_dev.h
dest: ../dist/lib.h
guard: LIB_IMPL
license:
  preset: mit-2020
  file: LICENSE.txt
watch:
  debounce: 1s
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "src"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(dir, "dist", "lib.h"), cfg.Dest)
	assert.Equal(t, filepath.Join(dir, "LICENSE.txt"), cfg.License.File)
	assert.Equal(t, "lib_dev.h", cfg.Root)
	assert.Equal(t, "LIB_IMPL", cfg.Guard)
	assert.Equal(t, "mit-2020", cfg.License.Preset)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, filepath.Join(dir, "src", "lib_dev.h"), cfg.RootPath())
}

func TestLoadConfig_FoundInWorkingDirectory(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, "guard: FROM_FILE\n")
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "FROM_FILE", cfg.Guard)
	assert.NotEmpty(t, GetConfigFileUsed())
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	cfgPath := writeConfig(t, t.TempDir(), "guard: FROM_FILE\nroot: file.h\n")

	t.Setenv("AMALGAM_GUARD", "FROM_ENV")
	t.Setenv("AMALGAM_ROOT", "env.h")

	flags := newFlags()
	require.NoError(t, flags.Set("guard", "FROM_FLAG"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "FROM_FLAG", cfg.Guard, "flag value should override config file and env var")
	assert.Equal(t, "env.h", cfg.Root, "env var should override config file when the flag is unset")
}

func TestLoadConfig_NestedEnv(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	t.Setenv("AMALGAM_LICENSE__PRESET", "none")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.License.Preset)
}

func TestLoadConfig_FlagPathsResolveAgainstWorkingDirectory(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)
	cfgPath := writeConfig(t, t.TempDir(), "source_dir: elsewhere\n")

	flags := newFlags()
	require.NoError(t, flags.Set("source-dir", "src"))
	require.NoError(t, flags.Set("dest", "out/lib.h"))
	require.NoError(t, flags.Set("license", "none"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "src"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(cwd, "out", "lib.h"), cfg.Dest)
	assert.Equal(t, "none", cfg.License.Preset)
}

func TestLoadConfig_ExcludeShapes(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  string
		skip []string
		want []string
	}{
		{
			name: "defaults",
			want: []string{"sk_gpu_dx12", "sk_gpu_vk"},
		},
		{
			name: "map merges with defaults",
			file: "exclude:\n  sk_gpu_vk: false\n  sk_gpu_gl: skip\n",
			want: []string{"sk_gpu_dx12", "sk_gpu_gl"},
		},
		{
			name: "list replaces defaults",
			file: "exclude: [sk_gpu_null]\n",
			want: []string{"sk_gpu_null"},
		},
		{
			name: "env string replaces file",
			file: "exclude: [sk_gpu_null]\n",
			env:  "sk_gpu_gl, sk_gpu_dx11",
			want: []string{"sk_gpu_dx11", "sk_gpu_gl"},
		},
		{
			name: "skip flag adds",
			file: "exclude: []\n",
			skip: []string{"sk_gpu_gl"},
			want: []string{"sk_gpu_gl"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			t.Chdir(t.TempDir())

			cfgPath := ""
			if tt.file != "" {
				cfgPath = writeConfig(t, t.TempDir(), tt.file)
			}
			if tt.env != "" {
				t.Setenv("AMALGAM_EXCLUDE", tt.env)
			}
			flags := newFlags()
			for _, name := range tt.skip {
				require.NoError(t, flags.Set("skip", name))
			}

			cfg, err := LoadConfig(cfgPath, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Exclude.Names())
		})
	}
}

func TestLoadConfig_InvalidExcludeValue(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())
	cfgPath := writeConfig(t, t.TempDir(), "exclude:\n  sk_gpu_vk: maybe\n")

	_, err := LoadConfig(cfgPath, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude")
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty root", mutate: func(c *Config) { c.Root = "" }, errSubstr: "root is required"},
		{name: "absolute root", mutate: func(c *Config) { c.Root = filepath.Join(string(filepath.Separator), "abs.h") }, errSubstr: "relative"},
		{name: "empty dest", mutate: func(c *Config) { c.Dest = "" }, errSubstr: "dest is required"},
		{name: "extension without dot", mutate: func(c *Config) { c.ImplExt = "cpp" }, errSubstr: "start with a dot"},
		{name: "same extensions", mutate: func(c *Config) { c.ImplExt = ".h" }, errSubstr: "must differ"},
		{name: "guard with spaces", mutate: func(c *Config) { c.Guard = "A B" }, errSubstr: "single macro"},
		{name: "unknown license", mutate: func(c *Config) { c.License.Preset = "gpl" }, errSubstr: "unknown license preset"},
		{name: "license file skips preset check", mutate: func(c *Config) { c.License = LicenseConfig{Preset: "gpl", File: "x"} }},
		{name: "negative debounce", mutate: func(c *Config) { c.Watch.Debounce = -time.Second }, errSubstr: "debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_ValidateDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.SourceDir = dir

	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root document does not exist")
	assert.Contains(t, err.Error(), "--root")

	require.NoError(t, os.WriteFile(cfg.RootPath(), []byte("// root\n"), 0o644))
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.SourceDir = filepath.Join(dir, "missing")
	err = cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--source-dir")
}

func TestExclusionSetHook(t *testing.T) {
	hook := ExclusionSetHook()
	target := reflect.TypeOf(amalgam.ExclusionSet{})

	out, err := hook(reflect.TypeOf(""), reflect.TypeOf(""), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", out, "other targets pass through")

	out, err = hook(nil, target, []string{" a ", "", "b"})
	require.NoError(t, err)
	assert.Equal(t, amalgam.ExclusionSet{"a": true, "b": true}, out)

	out, err = hook(nil, target, map[string]interface{}{"a": "include", "b": nil, "c": "true"})
	require.NoError(t, err)
	assert.Equal(t, amalgam.ExclusionSet{"a": false, "b": true, "c": true}, out)

	_, err = hook(nil, target, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
