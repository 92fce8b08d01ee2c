package amalgam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Declaration(t *testing.T) {
	n := Normalizer{Root: "sk_gpu_dev.h", OnceGuards: DefaultOnceGuards}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "guard and self marker lines dropped",
			input: "#pragma once\n#include \"sk_gpu_dev.h\"\n\ntypedef int skg_x;\n",
			want:  "\ntypedef int skg_x;\n",
		},
		{
			name:  "indented guard",
			input: "  #pragma once  \r\nint a;\n",
			want:  "int a;\n",
		},
		{
			name:  "guard text inside a line is kept",
			input: "// no #pragma once here\n",
			want:  "// no #pragma once here\n",
		},
		{
			name:  "self marker sharing a line keeps the rest",
			input: "int a; #include \"sk_gpu_dev.h\"\n",
			want:  "int a; \n",
		},
		{
			name:  "other markers untouched",
			input: "#include \"sk_gpu_gl.h\"\n#include <stdint.h>\n",
			want:  "#include \"sk_gpu_gl.h\"\n#include <stdint.h>\n",
		},
		{
			name:  "self marker at eof without newline",
			input: "int a;\n#include \"sk_gpu_dev.h\"",
			want:  "int a;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Declaration(tt.input))
		})
	}
}

func TestNormalizer_Implementation(t *testing.T) {
	n := Normalizer{Root: "sk_gpu_dev.h", OnceGuards: DefaultOnceGuards}

	input := "#include \"sk_gpu_dev.h\"\n#pragma once\nvoid f() {}\n#include \"sk_gpu_dev.h\"\n"
	assert.Equal(t, "#pragma once\nvoid f() {}\n", n.Implementation(input),
		"implementations keep guard lines; only self markers go")
}

func TestNormalizer_ModuleDirectory(t *testing.T) {
	n := Normalizer{Root: "lib/dev.h", Dir: "lib/x"}

	input := "#include \"../dev.h\"\n#include \"dev.h\"\nint a;\n"
	assert.Equal(t, "#include \"dev.h\"\nint a;\n", n.Implementation(input),
		"markers resolve against the module's directory")
}

func TestNormalizer_NoGuards(t *testing.T) {
	n := Normalizer{Root: "root.h"}
	assert.Equal(t, "#pragma once\n", n.Declaration("#pragma once\n"))
}

func TestRootDocument_Splice(t *testing.T) {
	doc := NewRootDocument("root.h", "a #include \"x.h\" b #include \"y.h\" c #include \"x.h\"")

	got := doc.Splice(map[string]string{`#include "x.h"`: "X"})
	assert.Equal(t, "a X b #include \"y.h\" c X", got)

	assert.Equal(t, doc.Text, doc.Splice(nil))
}
