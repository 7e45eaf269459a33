// Package runtimelink validates the companion runtime module the
// instrumented object links against.
//
// The pipeline plants calls to a fixed set of external symbols (see
// internal/runtimeabi) but never emits a definition for any of them - that
// is the companion runtime's job. This package answers one question
// before a build is attempted: does the runtime module at the given path
// look like something that can actually provide those symbols, and will
// its own go.mod resolve once the instrumented object's toolchain tries to
// link against it.
package runtimelink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// goModMarker is the file that must exist at the root of a runtime module.
const goModMarker = "go.mod"

// Module describes a validated companion runtime module.
type Module struct {
	Path       string   // directory containing go.mod
	ModulePath string   // the module's own declared path, e.g. "example.com/unsaferuntime"
	Replaces   []string // replace directives found in its go.mod, rendered for display
}

// Validate walks path looking for a go.mod, parses it, and reports whether
// it resolves to a usable runtime module. It does not check that the
// module actually exports the ABI symbols in internal/runtimeabi; Go has
// no static way to ask that of an arbitrary module without building it,
// so that check is left to the instrumented build itself.
func Validate(path string) (*Module, error) {
	goModPath, err := FindGoMod(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("runtimelink: reading %s: %w", goModPath, err)
	}

	mf, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("runtimelink: parsing %s: %w", goModPath, err)
	}
	if mf.Module == nil {
		return nil, fmt.Errorf("runtimelink: %s has no module directive", goModPath)
	}

	return &Module{
		Path:       filepath.Dir(goModPath),
		ModulePath: mf.Module.Mod.Path,
		Replaces:   renderReplaces(mf, filepath.Dir(goModPath)),
	}, nil
}

// FindGoMod walks up from startDir looking for a go.mod file, the same
// way the Go tool itself locates a module root.
func FindGoMod(startDir string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, goModMarker)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("runtimelink: no go.mod found above %s", startDir)
		}
		dir = parent
	}
}

// renderReplaces formats a go.mod's replace directives for display,
// resolving any local filesystem target to an absolute path so the
// output stays meaningful regardless of the caller's working directory.
func renderReplaces(mf *modfile.File, goModDir string) []string {
	var out []string
	for _, rep := range mf.Replace {
		target := rep.New.Path
		if rep.New.Version == "" && isLocalPath(target) && !filepath.IsAbs(target) {
			if abs, err := filepath.Abs(filepath.Join(goModDir, target)); err == nil {
				target = abs
			}
		}
		if rep.New.Version != "" {
			out = append(out, fmt.Sprintf("%s => %s %s", rep.Old.Path, target, rep.New.Version))
		} else {
			out = append(out, fmt.Sprintf("%s => %s", rep.Old.Path, target))
		}
	}
	return out
}

// isLocalPath reports whether path looks like a filesystem path rather
// than a module path: relative (./, ../), absolute, or a Windows drive.
func isLocalPath(path string) bool {
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") {
		return true
	}
	if filepath.IsAbs(path) {
		return true
	}
	return len(path) >= 2 && path[1] == ':'
}
