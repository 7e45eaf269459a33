package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestParseInstrumentArgs_InputOnly tests parsing with no flags.
func TestParseInstrumentArgs_InputOnly(t *testing.T) {
	cfg, err := parseInstrumentArgs([]string{"lib.ll"})
	if err != nil {
		t.Fatalf("parseInstrumentArgs() error: %v", err)
	}
	if cfg.inputFile != "lib.ll" {
		t.Errorf("Expected input lib.ll, got %s", cfg.inputFile)
	}
	if cfg.outputFile != "" {
		t.Errorf("Expected no output file, got %s", cfg.outputFile)
	}
	if cfg.verbose {
		t.Errorf("Expected verbose=false by default")
	}
}

// TestParseInstrumentArgs_OutputFlag tests -o flag parsing in both forms.
func TestParseInstrumentArgs_OutputFlag(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		output string
	}{
		{name: "dash o space", args: []string{"lib.ll", "-o", "out.ll"}, output: "out.ll"},
		{name: "dash o equals", args: []string{"lib.ll", "-o=out.ll"}, output: "out.ll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseInstrumentArgs(tt.args)
			if err != nil {
				t.Fatalf("parseInstrumentArgs() error: %v", err)
			}
			if cfg.outputFile != tt.output {
				t.Errorf("Expected output %q, got %q", tt.output, cfg.outputFile)
			}
		})
	}
}

// TestParseInstrumentArgs_VerboseFlag checks -v is recognized.
func TestParseInstrumentArgs_VerboseFlag(t *testing.T) {
	cfg, err := parseInstrumentArgs([]string{"-v", "lib.ll"})
	if err != nil {
		t.Fatalf("parseInstrumentArgs() error: %v", err)
	}
	if !cfg.verbose {
		t.Errorf("Expected verbose=true")
	}
}

// TestParseInstrumentArgs_NoInput checks the missing-input error.
func TestParseInstrumentArgs_NoInput(t *testing.T) {
	if _, err := parseInstrumentArgs(nil); err == nil {
		t.Fatalf("Expected error with no input file")
	}
}

// TestParseInstrumentArgs_SecondPositionalRejected checks a second bare
// argument is rejected rather than silently ignored.
func TestParseInstrumentArgs_SecondPositionalRejected(t *testing.T) {
	if _, err := parseInstrumentArgs([]string{"a.ll", "b.ll"}); err == nil {
		t.Fatalf("Expected error with two input files")
	}
}

// TestParseInstrumentArgs_UnknownFlagRejected checks an unrecognized flag
// is reported rather than swallowed.
func TestParseInstrumentArgs_UnknownFlagRejected(t *testing.T) {
	if _, err := parseInstrumentArgs([]string{"-bogus", "a.ll"}); err == nil {
		t.Fatalf("Expected error with unrecognized flag")
	}
}

// TestWriteOutput_File checks writing to a named file.
func TestWriteOutput_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ll")

	if err := writeOutput(path, "; ModuleID = 'm'\n"); err != nil {
		t.Fatalf("writeOutput() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(data) != "; ModuleID = 'm'\n" {
		t.Errorf("unexpected file content: %q", data)
	}
}
