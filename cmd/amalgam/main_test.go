// Package main provides end-to-end tests for the amalgam CLI.
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
	"github.com/leapstack-labs/amalgam/internal/cli"
	"github.com/leapstack-labs/amalgam/internal/cli/commands"
	"github.com/leapstack-labs/amalgam/internal/cli/config"
	"github.com/leapstack-labs/amalgam/internal/cli/testutil"
	"github.com/leapstack-labs/amalgam/internal/license"
)

// run executes the CLI in dir and returns stdout and stderr.
func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Chdir(dir)

	cmd := cli.NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func readOutput(t *testing.T, project string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(project, "sk_gpu.h"))
	require.NoError(t, err)
	return string(data)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "amalgam v")
}

func TestHelpCommand(t *testing.T) {
	stdout, _, err := run(t, t.TempDir(), "--help")
	require.NoError(t, err)
	for _, expected := range []string{"build", "list", "check", "watch", "init", "config", "completion"} {
		assert.Contains(t, stdout, expected)
	}
}

func TestBuildCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)

	stdout, _, err := run(t, project, "build", "--source-dir", "src")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote")
	assert.Contains(t, stdout, "3 modules inlined, 2 excluded")

	text := readOutput(t, project)
	footer, err := license.Preset(license.Default)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(text, "#ifdef SKG_IMPL"), "guard opens once")
	assert.Equal(t, 1, strings.Count(text, "#endif // SKG_IMPL"), "guard closes once")
	assert.True(t, strings.HasSuffix(text, footer), "license footer is the last content")
	assert.NotContains(t, text, `#include "sk_gpu_dev.h"`)
	assert.NotContains(t, text, `#include "sk_gpu_dx12.h"`)
	assert.NotContains(t, text, `#include "sk_gpu_vk.h"`)
	assert.NotContains(t, text, `#include "sk_gpu_gl.h"`)
	assert.Contains(t, text, "#include <stdint.h>")
	assert.Contains(t, text, "struct skg_buffer_t { void *d3d; };")

	implStart := strings.Index(text, "#ifdef SKG_IMPL")
	assert.Greater(t, strings.Index(text, "void skg_dx11_init() {}"), implStart)
	assert.Greater(t, strings.Index(text, "void skg_gl_init() {}"), strings.Index(text, "void skg_dx11_init() {}"),
		"implementations follow reference order")
	assert.Greater(t, strings.Index(text, "void skg_log(const char *text) { (void)text; }"), strings.Index(text, "void skg_gl_init() {}"))
}

func TestBuildIsDeterministic(t *testing.T) {
	project := testutil.SetupTestProject(t)

	_, _, err := run(t, project, "--source-dir", "src")
	require.NoError(t, err, "bare invocation builds")
	first := readOutput(t, project)

	_, _, err = run(t, project, "build", "--source-dir", "src")
	require.NoError(t, err)
	assert.Equal(t, first, readOutput(t, project))
}

func TestBuildCommand_Stdout(t *testing.T) {
	project := testutil.SetupTestProject(t)

	stdout, _, err := run(t, project, "build", "--stdout", "--source-dir", "src")
	require.NoError(t, err)
	assert.Contains(t, stdout, "#ifdef SKG_IMPL")
	assert.NoFileExists(t, filepath.Join(project, "sk_gpu.h"))
}

func TestBuildCommand_MissingModuleKeepsPreviousOutput(t *testing.T) {
	project := testutil.SetupTestProject(t)
	testutil.WriteFile(t, filepath.Join(project, "sk_gpu.h"), "previous")
	require.NoError(t, os.Remove(filepath.Join(project, "src", "sk_gpu_gl.cpp")))

	_, stderr, err := run(t, project, "build", "--source-dir", "src")
	require.Error(t, err)
	assert.ErrorIs(t, err, amalgam.ErrMissingInputFile)
	assert.Contains(t, err.Error(), "sk_gpu_gl.cpp")
	assert.Contains(t, stderr, "amalgamation failed")
	assert.Equal(t, "previous", readOutput(t, project))
}

func TestBuildCommand_SkipFlag(t *testing.T) {
	project := testutil.SetupTestProject(t)
	require.NoError(t, os.Remove(filepath.Join(project, "src", "sk_gpu_gl.cpp")))

	_, _, err := run(t, project, "build", "--source-dir", "src", "--skip", "sk_gpu_gl")
	require.NoError(t, err)
	text := readOutput(t, project)
	assert.NotContains(t, text, "skg_gl_init")
	assert.NotContains(t, text, "unsigned int id")
}

func TestBuildCommand_JSONAndConfigFile(t *testing.T) {
	project := testutil.SetupTestProject(t)
	testutil.WriteFile(t, filepath.Join(project, "amalgam.yaml"), `source_dir: src
dest: ../dist/bundle.h
guard: BUNDLE_IMPL
license:
  preset: none
`)
	require.NoError(t, os.Mkdir(filepath.Join(project, "dist"), 0o755))

	stdout, _, err := run(t, project, "build", "-o", "json")
	require.NoError(t, err)

	var out commands.BuildOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.NotEmpty(t, out.BuildID)
	assert.Equal(t, 3, out.Included)
	assert.Equal(t, 2, out.Excluded)
	assert.Equal(t, "bundle.h", filepath.Base(out.Dest))

	data, err := os.ReadFile(filepath.Join(project, "dist", "bundle.h"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "#endif // BUNDLE_IMPL\n"), "no footer with the none preset")
}

func TestListCommandJSON(t *testing.T) {
	project := testutil.SetupTestProject(t)

	stdout, _, err := run(t, project, "list", "--source-dir", "src", "--output", "json")
	require.NoError(t, err)

	var out commands.ListOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))

	var names []string
	var statuses []amalgam.Status
	for _, m := range out.Modules {
		names = append(names, m.Name)
		statuses = append(statuses, m.Status)
	}
	assert.Equal(t, []string{"sk_gpu_dx11", "sk_gpu_dx12", "sk_gpu_vk", "sk_gpu_gl", "sk_gpu_common"}, names)
	assert.Equal(t, []amalgam.Status{
		amalgam.StatusIncluded, amalgam.StatusExcluded, amalgam.StatusExcluded,
		amalgam.StatusIncluded, amalgam.StatusIncluded,
	}, statuses)
	assert.Equal(t, "SKG_IMPL", out.Guard)
	assert.Equal(t, 5, out.Summary.Total)
}

func TestListCommandMarkdown(t *testing.T) {
	project := testutil.SetupTestProject(t)

	stdout, _, err := run(t, project, "list", "--source-dir", "src")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Modules in sk_gpu_dev.h (5 total)")
	assert.Contains(t, stdout, "| sk_gpu_vk |")
	testutil.AssertNoANSI(t, stdout)
}

func TestCheckCommand(t *testing.T) {
	project := testutil.SetupTestProject(t)

	stdout, _, err := run(t, project, "check", "--source-dir", "src", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ready to amalgamate")
	assert.NoFileExists(t, filepath.Join(project, "sk_gpu.h"), "check never writes")

	require.NoError(t, os.Remove(filepath.Join(project, "src", "sk_gpu_common.h")))
	stdout, _, err = run(t, project, "check", "--source-dir", "src", "-o", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, commands.ErrCheckFailed)

	var out commands.CheckOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.False(t, out.OK)
	require.Len(t, out.Problems, 1)
	assert.Equal(t, "sk_gpu_common", out.Problems[0].Name)
	assert.Equal(t, []string{"sk_gpu_common.h"}, out.Problems[0].Missing)
}

func TestInitThenConfig(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := run(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "amalgam initialized")
	assert.FileExists(t, filepath.Join(dir, "amalgam.yaml"))

	_, _, err = run(t, dir, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	stdout, _, err = run(t, dir, "config", "-o", "json")
	require.NoError(t, err)

	var out struct {
		ConfigFile string `json:"config_file"`
		Config     struct {
			Guard   string          `json:"guard"`
			Exclude map[string]bool `json:"exclude"`
			Watch   struct {
				Debounce string `json:"debounce"`
			} `json:"watch"`
		} `json:"config"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.NotEmpty(t, out.ConfigFile)
	assert.Equal(t, "SKG_IMPL", out.Config.Guard)
	assert.Equal(t, map[string]bool{"sk_gpu_dx12": true, "sk_gpu_vk": true}, out.Config.Exclude)
	assert.Equal(t, "200ms", out.Config.Watch.Debounce)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "config", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestMissingSourceDir(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "build", "--source-dir", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source directory does not exist")
}

func TestMissingRootDocument(t *testing.T) {
	project := testutil.SetupTestProject(t)

	_, _, err := run(t, project, "build", "--source-dir", "src", "--root", "nope.h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root document does not exist")
	assert.NoFileExists(t, filepath.Join(project, "sk_gpu.h"))
}
