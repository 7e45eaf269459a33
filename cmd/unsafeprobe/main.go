// Package main implements the unsafeprobe CLI tool.
//
// unsafeprobe instruments LLVM-style IR for a single compilation unit: it
// parses textual IR, runs the marker/counter/tracker pass pipeline over
// it, and writes the instrumented IR back out for the rest of the build
// to pick up. It works by:
//
//  1. Parsing .ll input with github.com/llir/llvm (internal/llvmbridge)
//  2. Running the instrumentation pipeline over the lifted module
//  3. Rendering the instrumented module back to text
//
// Usage:
//
//	unsafeprobe instrument input.ll -o output.ll   # instrument one module
//	unsafeprobe link-runtime ../unsaferuntime       # validate the runtime module
//
// This is the CLI entry point for the standalone instrumentation tool.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

const version = "0.1.0"

// log is the CLI's structured diagnostic logger. It never carries the
// command's actual output - that always goes through fmt to stdout, the
// way a pipe or a redirected build log expects - it only carries the
// anomalies and lifecycle events an operator would grep for.
var log *zap.Logger

func main() {
	l, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log = l
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "instrument":
		instrumentCommand(os.Args[2:])
	case "link-runtime":
		linkRuntimeCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("unsafeprobe version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`unsafeprobe - unsafe-region instrumentation for LLVM IR

USAGE:
    unsafeprobe <command> [arguments]

COMMANDS:
    instrument     Instrument a .ll module with the unsafe-region pipeline
    link-runtime   Validate a companion runtime module before linking
    version        Show version information
    help           Show this help message

EXAMPLES:
    # Instrument a module, writing the result to a new file
    unsafeprobe instrument input.ll -o output.ll

    # Instrument a module and print its report, discarding the IR
    unsafeprobe instrument input.ll -v -o /dev/null

    # Skip a pass via .unsafeprobe.yml (or -c path/to/config.yml)
    unsafeprobe instrument input.ll -c .unsafeprobe.yml -o output.ll

    # Check that a runtime module's go.mod will resolve
    unsafeprobe link-runtime ../unsaferuntime

ABOUT:
    unsafeprobe plants coverage and performance-counter markers around
    unsafe regions in LLVM IR, tallies per-block instruction categories,
    and wraps external calls and heap accesses with calls into a
    separately built runtime. The pipeline never links that runtime
    itself; link-runtime only checks that the module describing it is
    well-formed before a real build attempts to use it.

FOR MORE INFORMATION:
    Repository: https://github.com/kolkov/unsafeprobe
    Issues: https://github.com/kolkov/unsafeprobe/issues

`)
}
