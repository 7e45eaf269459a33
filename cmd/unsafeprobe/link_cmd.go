// link_cmd.go implements the 'unsafeprobe link-runtime' command.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/kolkov/unsafeprobe/cmd/unsafeprobe/runtimelink"
)

// linkRuntimeCommand implements the 'unsafeprobe link-runtime' command.
//
// It validates the companion runtime module at the given path (or the
// current directory, if none is given) and prints what it found. It never
// invokes the Go toolchain itself; a failed validation here is meant to
// surface a broken go.mod before a real build spends time on it.
//
// Example:
//
//	unsafeprobe link-runtime ../unsaferuntime
func linkRuntimeCommand(args []string) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	mod, err := runtimelink.Validate(path)
	if err != nil {
		log.Error("runtime module validation failed", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("runtime module: %s\n", mod.ModulePath)
	fmt.Printf("located at:     %s\n", mod.Path)
	if len(mod.Replaces) == 0 {
		fmt.Println("replace directives: none")
		return
	}
	fmt.Println("replace directives:")
	for _, r := range mod.Replaces {
		fmt.Printf("  %s\n", r)
	}
}
