// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

// Fixture sources, modelled on a small graphics backend library.
const (
	RootDoc = `#pragma once
#include <stdint.h>

typedef struct skg_buffer_t skg_buffer_t;

#if defined(SKG_DIRECT3D11)
#include "sk_gpu_dx11.h"
#elif defined(SKG_DIRECT3D12)
#include "sk_gpu_dx12.h"
#elif defined(SKG_VULKAN)
#include "sk_gpu_vk.h"
#else
#include "sk_gpu_gl.h"
#endif

#include "sk_gpu_common.h"
`
	DX11Decl = "#pragma once\n#include \"sk_gpu_dev.h\"\nstruct skg_buffer_t { void *d3d; };\n"
	DX11Impl = "#include \"sk_gpu_dev.h\"\n#ifdef SKG_DIRECT3D11\nvoid skg_dx11_init() {}\n#endif\n"
	GLDecl   = "#pragma once\n#include \"sk_gpu_dev.h\"\nstruct skg_buffer_t { unsigned int id; };\n"
	GLImpl   = "#include \"sk_gpu_dev.h\"\n#ifdef SKG_OPENGL\nvoid skg_gl_init() {}\n#endif\n"
	CommDecl = "#pragma once\nvoid skg_log(const char *text);\n"
	CommImpl = "#include \"sk_gpu_dev.h\"\nvoid skg_log(const char *text) { (void)text; }\n"
)

// SetupTestProject creates a temporary project: sources in <dir>/src, no
// files for the dx12 and vk backends, and no config file. It returns the
// project directory; the default output path is <dir>/sk_gpu.h.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatalf("failed to create directory %s: %v", src, err)
	}

	files := map[string]string{
		"sk_gpu_dev.h":      RootDoc,
		"sk_gpu_dx11.h":     DX11Decl,
		"sk_gpu_dx11.cpp":   DX11Impl,
		"sk_gpu_gl.h":       GLDecl,
		"sk_gpu_gl.cpp":     GLImpl,
		"sk_gpu_common.h":   CommDecl,
		"sk_gpu_common.cpp": CommImpl,
	}
	for name, content := range files {
		WriteFile(t, filepath.Join(src, name), content)
	}

	return tmpDir
}

// WriteFile writes content to path, failing the test on error.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, mode, isTTY),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and basic structure.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#include") &&
			strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
