package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raymyers/ralph-cc-pp/pkg/cpp"
	"github.com/raymyers/ralph-cc-pp/pkg/preproc"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	includePaths []string
	defineFlags  []string
	undefFlags   []string
	outputPath   string
	errorPath    string
	trigraphs    bool
	configPath   string
	externalCPP  bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	args := os.Args[1:]
	// pflag parses multi-letter flags only after a double dash; rewrite the
	// single-dash spellings of the long-only flags to that form.
	for i, a := range args {
		for _, name := range []string{"trigraphs", "config", "external-cpp"} {
			if a == "-"+name || strings.HasPrefix(a, "-"+name+"=") {
				args[i] = "-" + a
			}
		}
	}
	rootCmd.SetArgs(args)

	// The spec requires -h to print usage and exit nonzero, unlike cobra's
	// default help flag (which exits 0).
	for _, a := range args {
		if a == "-h" || a == "--help" {
			rootCmd.Help()
			return 1
		}
	}

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "pp [options] input",
		Short:   "pp is a standalone ISO C preprocessor",
		Version: version,
		Args:    cobra.ExactArgs(1),

		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doPreprocess(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringArrayVarP(&includePaths, "include", "I", nil, "Append to include search path")
	rootCmd.Flags().StringArrayVarP(&defineFlags, "define", "D", nil, "Define macro (NAME or NAME=VALUE)")
	rootCmd.Flags().StringArrayVarP(&undefFlags, "undef", "U", nil, "Undefine macro (applied after -D)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path (default: stdout)")
	rootCmd.Flags().StringVarP(&errorPath, "error-log", "e", "", "Error/log output path (default: stderr)")
	rootCmd.Flags().BoolVar(&trigraphs, "trigraphs", false, "Enable trigraph substitution")
	rootCmd.Flags().StringVar(&configPath, "config", "", "Load default -I/-D/-U lists from a YAML config file")
	rootCmd.Flags().BoolVar(&externalCPP, "external-cpp", false, "Use the system C preprocessor (cc -E) instead of the internal one")

	return rootCmd
}

// buildOptions turns the parsed flags (and an optional -config file) into a
// cpp.PreprocessorOptions, with command-line flags taking precedence over
// whatever the config file supplies.
func buildOptions() (cpp.PreprocessorOptions, error) {
	opts := cpp.PreprocessorOptions{
		IncludePaths: includePaths,
		Defines:      defineFlags,
		Undefines:    undefFlags,
		LineMarkers:  true,
		Trigraphs:    trigraphs,
	}

	if configPath != "" {
		cfg, err := cpp.LoadConfig(configPath)
		if err != nil {
			return opts, err
		}
		cfg.ApplyTo(&opts)
	}

	return opts, nil
}

func openErrorLog(errOut io.Writer) (io.Writer, func(), error) {
	if errorPath == "" {
		return errOut, func() {}, nil
	}
	f, err := os.Create(errorPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func doPreprocess(filename string, out, errOut io.Writer) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	logWriter, closeLog, err := openErrorLog(errOut)
	if err != nil {
		return err
	}
	defer closeLog()

	sink := cpp.NewDiagnosticSink(logWriter)

	var content string
	if externalCPP {
		if filename == "-" {
			return fmt.Errorf("-external-cpp does not support reading from stdin")
		}
		content, err = preproc.PreprocessExternal(filename, opts)
	} else {
		pp := cpp.NewPreprocessorWithDiagnostics(opts, sink)
		if filename == "-" {
			data, rerr := io.ReadAll(os.Stdin)
			if rerr != nil {
				return rerr
			}
			content, err = pp.PreprocessString(string(data), "<stdin>")
		} else {
			content, err = pp.PreprocessFile(filename)
		}
	}

	outWriter, closeOut, werr := openOutput(out)
	if werr != nil {
		return werr
	}
	defer closeOut()

	io.WriteString(outWriter, content)

	if err != nil {
		return err
	}
	if sink.HasErrors() {
		return errFatalDiagnostics
	}
	return nil
}

func openOutput(out io.Writer) (io.Writer, func(), error) {
	if outputPath == "" {
		return out, func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

var errFatalDiagnostics = &diagnosticError{}

type diagnosticError struct{}

func (e *diagnosticError) Error() string { return "preprocessing reported errors" }
