package cpp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessor_SimpleFile(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	result, err := pp.PreprocessString("int x = 42;\n", "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "int x = 42;")
}

func TestPreprocessor_DefineExpansion(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := `#define VALUE 123
int x = VALUE;
`
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "int x = 123;")
}

func TestPreprocessor_ConditionalCompilation(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := `#define FEATURE 1
#if FEATURE
int feature_enabled;
#else
int feature_disabled;
#endif
`
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "feature_enabled")
	assert.NotContains(t, result, "feature_disabled")
}

func TestPreprocessor_IncludeQuoted(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := `#ifndef HEADER_H
#define HEADER_H
int from_header;
#endif
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "header.h"), []byte(headerContent), 0644))

	mainContent := `#include "header.h"
int main_code;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "from_header")
	assert.Contains(t, result, "main_code")
}

func TestPreprocessor_IncludeAngled(t *testing.T) {
	tmpDir := t.TempDir()
	includeDir := filepath.Join(tmpDir, "include")
	require.NoError(t, os.MkdirAll(includeDir, 0755))

	headerContent := "int system_header_content;\n"
	require.NoError(t, os.WriteFile(filepath.Join(includeDir, "sysheader.h"), []byte(headerContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{
		IncludePaths: []string{includeDir},
	})

	source := `#include <sysheader.h>
int main_code;
`
	result, err := pp.PreprocessString(source, filepath.Join(tmpDir, "main.c"))
	require.NoError(t, err)
	assert.Contains(t, result, "system_header_content")
}

func TestPreprocessor_IncludeGuard(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := `#ifndef MYHEADER_H
#define MYHEADER_H
int guarded_content;
#endif
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "myheader.h"), []byte(headerContent), 0644))

	mainContent := `#include "myheader.h"
#include "myheader.h"
int after_includes;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(result, "guarded_content"))
}

func TestPreprocessor_PragmaOnce(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := `#pragma once
int pragma_once_content;
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "onceheader.h"), []byte(headerContent), 0644))

	mainContent := `#include "onceheader.h"
#include "onceheader.h"
int after_includes;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(result, "pragma_once_content"))
}

// TestPreprocessor_PragmaOperatorOnce pins _Pragma("once") (§4.5) going
// through the same pragmaOutput path as a literal #pragma once directive:
// a second textual include of the same file must be suppressed.
func TestPreprocessor_PragmaOperatorOnce(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := `_Pragma("once")
int pragma_operator_once_content;
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "onceheader2.h"), []byte(headerContent), 0644))

	mainContent := `#include "onceheader2.h"
#include "onceheader2.h"
int after_includes;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(result, "pragma_operator_once_content"))
}

// TestPreprocessor_PragmaOperatorEmitsPragmaLine pins that an unrecognized
// _Pragma(...) still surfaces as a #pragma line in the output, exactly as
// if it had been written as its own directive.
func TestPreprocessor_PragmaOperatorEmitsPragmaLine(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := `_Pragma("GCC diagnostic push")
int x;
`
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "#pragma GCC diagnostic push")
	assert.Contains(t, result, "int x;")
}

func TestPreprocessor_NestedIncludes(t *testing.T) {
	tmpDir := t.TempDir()

	header3 := "int level3;\n"
	header2 := "#include \"header3.h\"\nint level2;\n"
	header1 := "#include \"header2.h\"\nint level1;\n"

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "header3.h"), []byte(header3), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "header2.h"), []byte(header2), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "header1.h"), []byte(header1), 0644))

	mainContent := `#include "header1.h"
int level0;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	for _, level := range []string{"level0", "level1", "level2", "level3"} {
		assert.Contains(t, result, level)
	}
}

func TestPreprocessor_CircularInclude(t *testing.T) {
	tmpDir := t.TempDir()

	headerA := "#include \"headerb.h\"\nint from_a;\n"
	headerB := "#include \"headera.h\"\nint from_b;\n"

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "headera.h"), []byte(headerA), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "headerb.h"), []byte(headerB), 0644))

	mainContent := `#include "headera.h"
int main_code;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	_, err := pp.PreprocessFile(mainFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular")
}

func TestPreprocessor_IncludeNotFound(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := `#include "nonexistent.h"
int main;
`
	_, err := pp.PreprocessString(source, "test.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent.h")
}

func TestPreprocessor_IncludeDepthStartsAtZero(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})
	assert.Equal(t, 0, pp.resolver.IncludeDepth())
}

func TestPreprocessor_DeepIncludeChainWarnsButSucceeds(t *testing.T) {
	// Past MinSpecIncludeDepth, nesting is still honored (only diagnosed),
	// so a chain past the threshold must still preprocess successfully.
	tmpDir := t.TempDir()

	depth := MinSpecIncludeDepth + 3
	for i := depth; i >= 0; i-- {
		name := filepath.Join(tmpDir, headerName(i))
		var content string
		if i == depth {
			content = "int leaf_value;\n"
		} else {
			content = "#include \"" + headerName(i+1) + "\"\n"
		}
		require.NoError(t, os.WriteFile(name, []byte(content), 0644))
	}

	mainContent := "#include \"" + headerName(0) + "\"\n"
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	var sink DiagnosticSink
	pp := NewPreprocessorWithDiagnostics(PreprocessorOptions{}, &sink)
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "leaf_value")

	found := false
	for _, d := range sink.All() {
		if d.Kind == DiagInclusionDepthExceeded {
			found = true
		}
	}
	assert.True(t, found, "expected an inclusion-depth-exceeded diagnostic")
}

func headerName(i int) string {
	return "depth" + itoa(i) + ".h"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestPreprocessor_LineMarkers(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := "int header_var;\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "header.h"), []byte(headerContent), 0644))

	mainContent := `#include "header.h"
int main_var;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{
		LineMarkers: true,
	})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "# 1 \"")
}

func TestPreprocessor_ErrorDirective(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := `#error This is an error
int after_error;
`
	_, err := pp.PreprocessString(source, "test.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "This is an error")
}

func TestPreprocessor_CmdlineDefines(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{
		Defines: []string{"FOO=42", "BAR"},
	})

	source := `int x = FOO;
#ifdef BAR
int bar_defined;
#endif
`
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "int x = 42;")
	assert.Contains(t, result, "bar_defined")
}

func TestPreprocessor_CmdlineUndefines(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{
		Defines:   []string{"FOO=1"},
		Undefines: []string{"FOO"},
	})

	source := `#ifdef FOO
int foo_defined;
#else
int foo_undefined;
#endif
`
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.NotContains(t, result, "foo_defined")
	assert.Contains(t, result, "foo_undefined")
}

func TestPreprocessor_FunctionMacroExpansion(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := `#define MAX(a,b) ((a)>(b)?(a):(b))
int x = MAX(1, 2);
`
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "((1)>(2)?(1):(2))")
}

func TestPreprocessor_MacroDefinedInInclude(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := `#define HEADER_VALUE 100
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "defs.h"), []byte(headerContent), 0644))

	mainContent := `#include "defs.h"
int x = HEADER_VALUE;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "int x = 100;")
}

func TestPreprocessor_ConditionalInInclude(t *testing.T) {
	tmpDir := t.TempDir()

	headerContent := `#ifdef ENABLE_FEATURE
int feature_enabled;
#endif
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "conditional.h"), []byte(headerContent), 0644))

	mainContent := `#define ENABLE_FEATURE 1
#include "conditional.h"
int main_code;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "feature_enabled")
}

func TestPreprocessor_EmptyInclude(t *testing.T) {
	tmpDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "empty.h"), []byte(""), 0644))

	mainContent := `#include "empty.h"
int after_empty;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "after_empty")
}

func TestPreprocessor_SubdirectoryInclude(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	headerContent := "int subdir_content;\n"
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sub.h"), []byte(headerContent), 0644))

	mainContent := `#include "subdir/sub.h"
int main_code;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{
		IncludePaths: []string{tmpDir},
	})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "subdir_content")
}

func TestPreprocessor_IncludeRelativeToIncluder(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "headers")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	siblingContent := "int sibling_content;\n"
	baseContent := "#include \"sibling.h\"\nint base_content;\n"

	require.NoError(t, os.WriteFile(filepath.Join(subDir, "sibling.h"), []byte(siblingContent), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "base.h"), []byte(baseContent), 0644))

	mainContent := `#include "headers/base.h"
int main_code;
`
	mainFile := filepath.Join(tmpDir, "main.c")
	require.NoError(t, os.WriteFile(mainFile, []byte(mainContent), 0644))

	pp := NewPreprocessor(PreprocessorOptions{})
	result, err := pp.PreprocessFile(mainFile)
	require.NoError(t, err)
	assert.Contains(t, result, "sibling_content")
}

func TestPreprocessor_TrigraphsOptIn(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{Trigraphs: true})

	source := "??=define FOO 1\nint x = FOO;\n"
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "int x = 1;")
}

func TestPreprocessor_TrigraphsOffByDefault(t *testing.T) {
	pp := NewPreprocessor(PreprocessorOptions{})

	source := "??=define FOO 1\nint x = 2;\n"
	result, err := pp.PreprocessString(source, "test.c")
	require.NoError(t, err)
	assert.Contains(t, result, "??=define FOO 1")
}
