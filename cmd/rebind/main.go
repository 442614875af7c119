// Command rebind rewrites sequential variables in Erlang-style source.
//
// Usage:
//
//	rebind [options] <input.erl>
//	cat input.erl | rebind [options]
//
// Options:
//
//	-o <file>           Write output to file (default: stdout)
//	--config <file>     Use specific config file
//	--no-config         Ignore config files
//	--disable           Pass input through without rewriting
//	--indent <unit>     Indentation unit for output
//	--annotate          Print the versioned-name listing to stderr
//	--annotate-fn f/1   Print the listing for one function and exit
//	--at line[:col]     Print the function (and variable) at a position and exit
//	--repl              Start an interactive session
//	--version           Print version and exit
//	--help              Print help and exit
//
// Config file:
//
//	rebind looks for rebind.yaml or .rebindrc in the current directory
//	and parent directories. Config file options are overridden by
//	REBIND_* environment variables and then by CLI flags.
//
// Example rebind.yaml:
//
//	enabled: true
//	indent: "    "
//	annotate: false
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/varmark/rebind/internal/config"
	"github.com/varmark/rebind/pkg/api"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	var (
		outputFile  string
		configFile  string
		noConfig    bool
		disable     bool
		indent      string
		annotate    bool
		annotateFn  string
		atPos       string
		startRepl   bool
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&outputFile, "o", "", "Write output to `file`")
	flag.StringVar(&configFile, "config", "", "Use specific config `file`")
	flag.BoolVar(&noConfig, "no-config", false, "Ignore config files")
	flag.BoolVar(&disable, "disable", false, "Pass input through without rewriting")
	flag.StringVar(&indent, "indent", "", "Indentation `unit` for output")
	flag.BoolVar(&annotate, "annotate", false, "Print the versioned-name listing to stderr")
	flag.StringVar(&annotateFn, "annotate-fn", "", "Print the listing for one `function` (name/arity) and exit")
	flag.StringVar(&atPos, "at", "", "Print the function (and variable) at `line[:col]` and exit")
	flag.BoolVar(&startRepl, "repl", false, "Start an interactive session")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&showHelp, "help", false, "Print help and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "rebind - sequential variable rewriter v%s\n\n", version)
		fmt.Fprintf(os.Stderr, "Usage: rebind [options] <input.erl>\n")
		fmt.Fprintf(os.Stderr, "       cat input.erl | rebind [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nConfig file:\n")
		fmt.Fprintf(os.Stderr, "  Searches for rebind.yaml or .rebindrc in current and parent directories.\n")
		fmt.Fprintf(os.Stderr, "  REBIND_* environment variables and CLI flags override config settings.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  rebind module.erl -o module.out.erl\n")
		fmt.Fprintf(os.Stderr, "  cat module.erl | rebind > module.out.erl\n")
		fmt.Fprintf(os.Stderr, "  rebind --annotate-fn handle/1 module.erl\n")
		fmt.Fprintf(os.Stderr, "  rebind --at 14:9 module.erl\n")
		fmt.Fprintf(os.Stderr, "  rebind --repl\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		return nil
	}

	if showVersion {
		fmt.Printf("rebind v%s (%s)\n", version, commit)
		return nil
	}

	cfg, err := loadConfig(configFile, noConfig)
	if err != nil {
		return err
	}

	// Build CLI overrides, only for flags explicitly given.
	cli := config.MergeOptions{}
	if disable {
		enabled := false
		cli.Enabled = &enabled
	}
	if indent != "" {
		cli.Indent = &indent
	}
	if annotate {
		cli.Annotate = &annotate
	}
	opts := cfg.Merge(cli)

	if startRepl {
		return repl(cfg, opts)
	}

	source, sourcePath, err := readInput()
	if err != nil {
		return err
	}
	opts.SourcePath = sourcePath

	if atPos != "" {
		return lookupAt(string(source), atPos)
	}

	if annotateFn != "" {
		name, arity, err := parseFuncSpec(annotateFn)
		if err != nil {
			return err
		}
		listing, err := api.AnnotateFunction(string(source), name, arity)
		if err != nil {
			return err
		}
		fmt.Print(listing)
		return nil
	}

	result := api.RewriteWithOptions(string(source), opts)
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "%s", e)
		}
		return fmt.Errorf("rewrite failed with %d error(s)", len(result.Errors))
	}

	var output io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if _, err := io.WriteString(output, result.Code); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if result.Annotated != "" {
		fmt.Fprint(os.Stderr, result.Annotated)
	}

	return nil
}

// loadConfig resolves the effective configuration: file (explicit flag,
// REBIND_CONFIG, or walk-up search), then environment overrides.
func loadConfig(configFile string, noConfig bool) (*config.Config, error) {
	cfg := &config.Config{}
	if !noConfig {
		if configFile == "" {
			configFile = env.Str("REBIND_CONFIG")
		}
		if configFile != "" {
			loaded, err := config.LoadFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("loading config file %s: %w", configFile, err)
			}
			cfg = loaded
		} else {
			startDir, _ := os.Getwd()
			if flag.NArg() > 0 {
				startDir = filepath.Dir(flag.Arg(0))
			}
			loaded, _, err := config.Load(startDir)
			if err != nil {
				return nil, fmt.Errorf("loading config: %w", err)
			}
			if loaded != nil {
				cfg = loaded
			}
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func readInput() ([]byte, string, error) {
	if flag.NArg() > 0 {
		source, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			return nil, "", fmt.Errorf("reading input: %w", err)
		}
		return source, flag.Arg(0), nil
	}

	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		flag.Usage()
		return nil, "", fmt.Errorf("no input file specified")
	}
	source, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, "", fmt.Errorf("reading stdin: %w", err)
	}
	return source, "", nil
}

// lookupAt resolves a line[:col] position against the rewritten unit and
// prints the enclosing function; with a column, also the versioned
// variable sitting there.
func lookupAt(source, spec string) error {
	lk, err := api.NewLookup(source)
	if err != nil {
		return err
	}

	linePart, colPart, hasCol := strings.Cut(spec, ":")
	line, err := strconv.Atoi(linePart)
	if err != nil || line < 1 {
		return fmt.Errorf("invalid position %q, want line[:col]", spec)
	}

	if !hasCol {
		fn, ok := lk.FunctionOnLine(line)
		if !ok {
			return fmt.Errorf("no function on line %d", line)
		}
		fmt.Println(fn)
		return nil
	}

	col, err := strconv.Atoi(colPart)
	if err != nil || col < 1 {
		return fmt.Errorf("invalid column in %q", spec)
	}
	offset := lk.Offset(line, col)
	fn, ok := lk.FunctionAt(offset)
	if !ok {
		return fmt.Errorf("no function at %s", spec)
	}
	fmt.Println(fn)
	if v, ok := lk.VariableAt(offset); ok {
		fmt.Printf("%s = %s, version %d\n", v.Versioned, v.Base, v.Counter)
	}
	return nil
}

// parseFuncSpec splits "name/arity".
func parseFuncSpec(spec string) (string, int, error) {
	slash := strings.LastIndexByte(spec, '/')
	if slash <= 0 || slash == len(spec)-1 {
		return "", 0, fmt.Errorf("invalid function spec %q, want name/arity", spec)
	}
	arity, err := strconv.Atoi(spec[slash+1:])
	if err != nil || arity < 0 {
		return "", 0, fmt.Errorf("invalid arity in %q", spec)
	}
	return spec[:slash], arity, nil
}
