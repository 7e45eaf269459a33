// instrument_cmd.go implements the 'unsafeprobe instrument' command.
package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kolkov/unsafeprobe/internal/config"
	"github.com/kolkov/unsafeprobe/internal/llvmbridge"
	"github.com/kolkov/unsafeprobe/internal/passselect"
	"github.com/kolkov/unsafeprobe/internal/pipeline"
)

// instrumentConfig holds the parsed arguments for 'unsafeprobe instrument'.
type instrumentConfig struct {
	inputFile  string
	outputFile string
	selectFile string
	verbose    bool
}

// instrumentCommand implements the 'unsafeprobe instrument' command.
//
// Flow:
//  1. Parse arguments (input file, output file, verbosity)
//  2. Parse the input .ll file into the pipeline's IR
//  3. Run the instrumentation pipeline, gated by CARGO_PRIMARY_PACKAGE
//  4. Render the (possibly unchanged) module back to text
//  5. Write the result to the output file, or stdout if none given
//
// Example:
//
//	unsafeprobe instrument lib.ll -o lib.instrumented.ll
//	unsafeprobe instrument lib.ll -v -o -
func instrumentCommand(args []string) {
	cfg, err := parseInstrumentArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mod, err := llvmbridge.Parse(cfg.inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	sel, err := passselect.Load(cfg.selectFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report := pipeline.RunSelective(mod, config.Load(), sel)
	log.Info("pipeline run complete",
		zap.String("input", cfg.inputFile),
		zap.Bool("primary", report.Primary),
		zap.Int("functions_marked", report.FunctionsMarked),
		zap.Int("cycles_measured", report.CyclesMeasured),
		zap.Int("anomalies", len(report.Anomalies)),
	)

	out := llvmbridge.Emit(mod)
	if err := writeOutput(cfg.outputFile, out); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}

	if cfg.verbose {
		printReport(report)
	}

	for _, a := range report.Anomalies {
		log.Warn("instrumentation anomaly",
			zap.String("pass", a.Pass),
			zap.String("function", a.Function),
			zap.String("site", a.Site),
			zap.String("message", a.Message),
		)
	}
}

// parseInstrumentArgs parses command-line arguments for
// 'unsafeprobe instrument'.
//
//	unsafeprobe instrument file.ll [-o output.ll] [-v]
//
// A missing -o prints the instrumented module to stdout.
func parseInstrumentArgs(args []string) (*instrumentConfig, error) {
	cfg := &instrumentConfig{}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "-o" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-o flag requires an argument")
			}
			i++
			cfg.outputFile = args[i]
			continue
		}
		if strings.HasPrefix(arg, "-o=") {
			cfg.outputFile = strings.TrimPrefix(arg, "-o=")
			continue
		}
		if arg == "-v" || arg == "-verbose" {
			cfg.verbose = true
			continue
		}
		if arg == "-c" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("-c flag requires an argument")
			}
			i++
			cfg.selectFile = args[i]
			continue
		}
		if strings.HasPrefix(arg, "-c=") {
			cfg.selectFile = strings.TrimPrefix(arg, "-c=")
			continue
		}
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("unrecognized flag: %s", arg)
		}

		if cfg.inputFile != "" {
			return nil, fmt.Errorf("unsafeprobe instrument takes exactly one input file, got a second: %s", arg)
		}
		cfg.inputFile = arg
	}

	if cfg.inputFile == "" {
		return nil, fmt.Errorf("no input .ll file specified")
	}
	return cfg, nil
}

// writeOutput writes content to path, or to stdout when path is empty or
// "-".
func writeOutput(path, content string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprint(os.Stdout, content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// printReport prints a human-readable summary of one pipeline run.
func printReport(r pipeline.Report) {
	if !r.Primary {
		fmt.Println("build is not the primary package; instrumentation skipped")
		return
	}
	fmt.Printf("functions marked:        %d\n", r.FunctionsMarked)
	fmt.Printf("regions planted:         %d\n", r.RegionsPlanted)
	fmt.Printf("phis reordered:          %d\n", r.PhisReordered)
	fmt.Printf("locations anchored:      %d\n", r.LocationsAnchored)
	fmt.Printf("functions tracked:       %d\n", r.FunctionsTracked)
	fmt.Printf("blocks counted:          %d\n", r.BlocksCounted)
	fmt.Printf("lines registered:        %d\n", r.LinesRegistered)
	fmt.Printf("line sites instrumented: %d\n", r.LineSitesInstrumented)
	fmt.Printf("external calls wrapped:  %d\n", r.ExternalCallsWrapped)
	fmt.Printf("heap accesses (generic): %d\n", r.HeapAccessesGeneric)
	fmt.Printf("heap accesses (unsafe):  %d\n", r.HeapAccessesUnsafe)
	fmt.Printf("cycle measurements:      %d\n", r.CyclesMeasured)
	if len(r.Anomalies) > 0 {
		fmt.Printf("anomalies:               %d\n", len(r.Anomalies))
	}
}
