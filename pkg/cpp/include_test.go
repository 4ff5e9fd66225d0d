package cpp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncludeResolver_Resolve_QuotedInCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.h")
	require.NoError(t, os.WriteFile(testFile, []byte("// test"), 0644))

	r := NewIncludeResolver()
	r.SetCurrentFile(filepath.Join(tmpDir, "main.c"))

	path, err := r.Resolve("test.h", IncludeQuoted)
	require.NoError(t, err)
	assert.Equal(t, "test.h", filepath.Base(path))
}

func TestIncludeResolver_Resolve_AngledNotInCurrentDir(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.h")
	require.NoError(t, os.WriteFile(testFile, []byte("// test"), 0644))

	r := NewIncludeResolver()
	r.SetCurrentFile(filepath.Join(tmpDir, "main.c"))

	_, err := r.Resolve("test.h", IncludeAngled)
	assert.Error(t, err)
}

func TestIncludeResolver_Resolve_UserPath(t *testing.T) {
	userIncDir := t.TempDir()
	testFile := filepath.Join(userIncDir, "myheader.h")
	require.NoError(t, os.WriteFile(testFile, []byte("// user header"), 0644))

	r := NewIncludeResolver()
	r.AddUserPath(userIncDir)

	for _, kind := range []IncludeKind{IncludeQuoted, IncludeAngled} {
		path, err := r.Resolve("myheader.h", kind)
		require.NoError(t, err, "kind %v", kind)
		assert.Equal(t, "myheader.h", filepath.Base(path), "kind %v", kind)
	}
}

func TestIncludeResolver_Resolve_SystemPath(t *testing.T) {
	sysIncDir := t.TempDir()
	testFile := filepath.Join(sysIncDir, "sysheader.h")
	require.NoError(t, os.WriteFile(testFile, []byte("// system header"), 0644))

	r := NewIncludeResolver()
	r.systemDetected = true
	r.AddSystemPath(sysIncDir)

	path, err := r.Resolve("sysheader.h", IncludeAngled)
	require.NoError(t, err)
	assert.Equal(t, "sysheader.h", filepath.Base(path))
}

func TestIncludeResolver_Resolve_SearchOrder(t *testing.T) {
	currentDir := t.TempDir()
	userDir := t.TempDir()
	systemDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(currentDir, "test.h"), []byte("current"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "test.h"), []byte("user"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(systemDir, "test.h"), []byte("system"), 0644))

	r := NewIncludeResolver()
	r.systemDetected = true
	r.SetCurrentFile(filepath.Join(currentDir, "main.c"))
	r.AddUserPath(userDir)
	r.AddSystemPath(systemDir)

	path, err := r.Resolve("test.h", IncludeQuoted)
	require.NoError(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "current", string(content), "quoted include should find current dir first")

	path, err = r.Resolve("test.h", IncludeAngled)
	require.NoError(t, err)
	content, _ = os.ReadFile(path)
	assert.Equal(t, "user", string(content), "angled include should skip current dir")
}

func TestIncludeResolver_CircularInclude(t *testing.T) {
	r := NewIncludeResolver()

	require.NoError(t, r.PushFile("/a.h"))
	require.NoError(t, r.PushFile("/b.h"))
	require.NoError(t, r.PushFile("/c.h"))

	err := r.PushFile("/a.h")
	require.Error(t, err)
	assert.IsType(t, &CircularIncludeError{}, err)
}

func TestIncludeResolver_PragmaOnce(t *testing.T) {
	r := NewIncludeResolver()

	assert.False(t, r.IsAlreadyIncluded("/test.h"))
	r.MarkPragmaOnce("/test.h")
	assert.True(t, r.IsAlreadyIncluded("/test.h"))
}

func TestIncludeResolver_PragmaOnceNormalizesRelativePaths(t *testing.T) {
	// abs() backs both MarkPragmaOnce and IsAlreadyIncluded, so a relative
	// and absolute spelling of the same file must agree.
	r := NewIncludeResolver()
	rel := "test.h"
	abs, err := filepath.Abs(rel)
	require.NoError(t, err)

	r.MarkPragmaOnce(rel)
	assert.True(t, r.IsAlreadyIncluded(abs))
}

func TestIncludeResolver_IncludeDepth(t *testing.T) {
	r := NewIncludeResolver()

	assert.Equal(t, 0, r.IncludeDepth())

	require.NoError(t, r.PushFile("/a.h"))
	assert.Equal(t, 1, r.IncludeDepth())

	require.NoError(t, r.PushFile("/b.h"))
	assert.Equal(t, 2, r.IncludeDepth())

	r.PopFile()
	assert.Equal(t, 1, r.IncludeDepth())

	r.PopFile()
	assert.Equal(t, 0, r.IncludeDepth())
}

func TestIncludeResolver_DeepNestingWarnsOnceAtThreshold(t *testing.T) {
	var sink DiagnosticSink
	r := NewIncludeResolverWithDiagnostics(&sink)

	for i := 0; i < MinSpecIncludeDepth+5; i++ {
		path := filepath.Join("/", string(rune('a'+i))+".h")
		require.NoError(t, r.PushFile(path))
	}

	diags := sink.All()
	if assert.Len(t, diags, 1) {
		assert.Equal(t, DiagInclusionDepthExceeded, diags[0].Kind)
		assert.Equal(t, LevelInfo, diags[0].Level)
	}
}

func TestIncludeResolver_DetectSystemPaths(t *testing.T) {
	r := NewIncludeResolver()
	r.DetectSystemPaths()

	originalLen := len(r.SystemPaths)
	r.DetectSystemPaths()
	assert.Equal(t, originalLen, len(r.SystemPaths), "DetectSystemPaths should only run once")
}

func TestIncludeResolver_Resolve_NotFound(t *testing.T) {
	r := NewIncludeResolver()
	r.systemDetected = true

	_, err := r.Resolve("nonexistent.h", IncludeQuoted)
	require.Error(t, err)

	incErr, ok := err.(*IncludeError)
	require.True(t, ok)
	assert.Equal(t, "nonexistent.h", incErr.Filename)
}

func TestIncludeResolver_Resolve_Subdirectory(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	testFile := filepath.Join(subDir, "nested.h")
	require.NoError(t, os.WriteFile(testFile, []byte("// nested"), 0644))

	r := NewIncludeResolver()
	r.AddUserPath(tmpDir)

	path, err := r.Resolve("subdir/nested.h", IncludeQuoted)
	require.NoError(t, err)
	assert.Equal(t, "nested.h", filepath.Base(path))
}

func TestParseCompilerOutput(t *testing.T) {
	tmpDir := t.TempDir()
	existingPath1 := filepath.Join(tmpDir, "include1")
	existingPath2 := filepath.Join(tmpDir, "include2")
	require.NoError(t, os.MkdirAll(existingPath1, 0755))
	require.NoError(t, os.MkdirAll(existingPath2, 0755))

	output := `Using built-in specs.
COLLECT_GCC=gcc
Target: aarch64-linux-gnu
#include "..." search starts here:
#include <...> search starts here:
 ` + existingPath1 + `
 ` + existingPath2 + `
 /nonexistent/path/that/should/be/filtered
End of search list.
`

	paths := parseCompilerOutput(output)
	assert.ElementsMatch(t, []string{existingPath1, existingPath2}, paths)
}

func TestIncludeError(t *testing.T) {
	err := &IncludeError{Filename: "test.h", Kind: IncludeQuoted}
	assert.Contains(t, err.Error(), "test.h")
	assert.Contains(t, err.Error(), "quoted")

	err2 := &IncludeError{Filename: "sys.h", Kind: IncludeAngled}
	assert.Contains(t, err2.Error(), "angled")
}

func TestCircularIncludeError(t *testing.T) {
	err := &CircularIncludeError{
		Path:  "/c.h",
		Stack: []string{"/a.h", "/b.h"},
	}
	msg := err.Error()
	assert.Contains(t, msg, "circular")
	assert.Contains(t, msg, "c.h")
}
