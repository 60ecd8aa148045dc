package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version information - set via ldflags during build
var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

type globalOptions struct {
	configPath string
	logLevel   string
	args       []string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(raw []string) int {
	opts, err := parseGlobalOptions(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if len(opts.args) == 0 {
		printHelp()
		return 2
	}

	handler, ok := subcommands[opts.args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", opts.args[0])
		printHelp()
		return 2
	}
	return runCommand(handler, opts, opts.args[1:])
}

func parseGlobalOptions(raw []string) (*globalOptions, error) {
	opts := &globalOptions{}
	fs := flag.NewFlagSet("dashcore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults to ~/.dashcore/config.yaml then ./.dashcore/config.yaml)")
	fs.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	if err := fs.Parse(raw); err != nil {
		return nil, err
	}
	opts.args = fs.Args()
	return opts, nil
}

type commandFunc func(opts *globalOptions, args []string) error

var subcommands map[string]commandFunc

func init() {
	subcommands = map[string]commandFunc{
		"version":      func(*globalOptions, []string) error { printVersion(); return nil },
		"help":         func(*globalOptions, []string) error { printHelp(); return nil },
		"revive":       runReviveCommand,
		"put":          runPutCommand,
		"get":          runGetCommand,
		"delete":       runDeleteCommand,
		"keys":         runKeysCommand,
		"import":       runImportCommand,
		"watch-config": runWatchConfigCommand,
		"serve":        runServeCommand,
	}
}

func runCommand(handler commandFunc, opts *globalOptions, args []string) int {
	if err := handler(opts, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeForError(err)
	}
	return 0
}

func printVersion() {
	fmt.Fprintf(stdout, "dashcore %s (commit %s, built %s)\n", version, commit, buildDate)
}

func printHelp() {
	lines := []string{
		"dashcore - typed values, events and documents",
		"",
		"USAGE:",
		"  dashcore [-config FILE] [-log-level LEVEL] COMMAND [ARGS]",
		"",
		"COMMANDS:",
		"  revive [FILE]          Parse tagged JSON (stdin when FILE is - or absent) and print the revived values",
		"  put KEY [FILE]         Store the JSON document in FILE under KEY",
		"  get [-raw] KEY         Print the document stored under KEY",
		"  delete KEY             Remove KEY",
		"  keys [-prefix P] [-l]  List stored keys",
		"  import [FILE]          Store every entry of a JSON object in batches",
		"  watch-config           Log configuration changes until interrupted",
		"  serve                  Apply changes relayed over the bus and serve metrics",
		"  version                Print version information",
	}
	fmt.Fprintln(stdout, strings.Join(lines, "\n"))
}
