// Package config computes the pipeline's on/off switch once, at
// construction time, instead of letting every pass read the process
// environment independently.
//
// The specification's selector is process-global and mutable
// (CARGO_PRIMARY_PACKAGE), which is awkward to reason about from inside a
// pass: nothing stops one goroutine's test from changing it out from under
// another. Lifting the read into an immutable Config, built once by the
// pipeline driver and passed by reference to every pass, keeps the
// environment variable as the only external knob while giving the passes
// themselves a plain, race-free value to branch on.
package config

import "os"

// primaryPackageEnv is the selector the upstream build system sets to mark
// the object file currently being compiled as the primary compilation
// unit. Any other value, including unset, means "not primary".
const primaryPackageEnv = "CARGO_PRIMARY_PACKAGE"

// Config is the immutable, process-wide configuration snapshot every pass
// receives. Construct it once via Load and share the pointer.
type Config struct {
	// Primary is true when instrumentation should run at all. When false,
	// every pass must report "no change" and leave the IR untouched.
	Primary bool
}

// Load reads the environment once and returns the resulting Config. Call
// this exactly once per pipeline invocation.
func Load() *Config {
	return &Config{Primary: os.Getenv(primaryPackageEnv) == "1"}
}

// Disabled returns a Config equivalent to the selector being unset, useful
// for tests that want to exercise the "no modification" path without
// touching the real environment.
func Disabled() *Config {
	return &Config{Primary: false}
}

// Enabled returns a Config equivalent to CARGO_PRIMARY_PACKAGE=1, useful
// for tests that want to exercise the instrumenting path without touching
// the real environment.
func Enabled() *Config {
	return &Config{Primary: true}
}
