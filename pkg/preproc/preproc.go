// Package preproc wraps the system C preprocessor (cc -E / gcc -E / clang -E)
// as an alternative to pkg/cpp's internal implementation, for differential
// testing: running the same input through both should produce equivalent
// macro expansion.
package preproc

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/raymyers/ralph-cc-pp/pkg/cpp"
)

// PreprocessExternal runs filename through the system preprocessor, applying
// the same -I/-D/-U options cpp.PreprocessorOptions would apply internally.
func PreprocessExternal(filename string, opts cpp.PreprocessorOptions) (string, error) {
	cppCmd := findPreprocessor()
	if cppCmd == "" {
		return "", fmt.Errorf("no C preprocessor found (tried: cc, gcc, clang)")
	}

	args := []string{"-E"}
	for _, path := range opts.IncludePaths {
		args = append(args, "-I"+path)
	}
	for _, path := range opts.SystemPaths {
		args = append(args, "-isystem", path)
	}
	for _, d := range opts.Defines {
		args = append(args, "-D"+d)
	}
	for _, u := range opts.Undefines {
		args = append(args, "-U"+u)
	}
	if opts.Trigraphs {
		args = append(args, "-trigraphs")
	}
	args = append(args, filename)

	cmd := exec.Command(cppCmd, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = filepath.Dir(filename)

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("external preprocessing failed: %v\n%s", err, stderr.String())
	}
	return stdout.String(), nil
}

// PreprocessExternalString writes source to a temporary file and runs
// PreprocessExternal against it, mirroring cpp.Preprocessor.PreprocessString.
func PreprocessExternalString(source, filename string, opts cpp.PreprocessorOptions) (string, error) {
	tmpDir := os.TempDir()
	baseName := filepath.Base(filename)
	if baseName == "" {
		baseName = "source.c"
	}
	tmpFile := filepath.Join(tmpDir, "ralph-cc-pp-"+baseName)

	if err := os.WriteFile(tmpFile, []byte(source), 0644); err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile)

	return PreprocessExternal(tmpFile, opts)
}

// NeedsPreprocessing returns true unless filename already carries a
// preprocessed-output extension (.i or .p, the CompCert convention this
// module's teacher followed).
func NeedsPreprocessing(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext != ".i" && ext != ".p"
}

func findPreprocessor() string {
	candidates := []string{"cc", "gcc", "clang"}
	for _, cmd := range candidates {
		if path, err := exec.LookPath(cmd); err == nil {
			return path
		}
	}
	return ""
}
