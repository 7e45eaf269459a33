// Package passselect loads an optional per-project pass-selection file,
// letting a project opt individual passes out of the pipeline without
// touching CARGO_PRIMARY_PACKAGE (which gates the whole pipeline at once).
//
// This has no equivalent in the specification; it exists because a real
// project integrating the pipeline will eventually want to disable one
// expensive pass (CycleCounter's fences are the usual suspect) while
// keeping the rest, and there is no other knob for that.
package passselect

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileName is the config file the CLI looks for when -c isn't given
// explicitly.
const fileName = ".unsafeprobe.yml"

// Selection lists the passes a project has opted out of, by the pass's
// package name as pipeline.RunSelective checks it (e.g. "cyclecounter",
// "heaptracker").
type Selection struct {
	Skip map[string]bool
}

// file is the on-disk shape: a plain list under "skip". Kept separate
// from Selection so the zero-allocation map lookup stays in the type
// everything else uses.
type file struct {
	Skip []string `yaml:"skip"`
}

// Load reads the pass-selection file at path, or .unsafeprobe.yml in the
// working directory when path is empty. An empty Selection (nothing
// skipped) is returned, with no error, if that file does not exist: the
// config file is opt-in, not required.
func Load(path string) (*Selection, error) {
	if path == "" {
		path = fileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Selection{Skip: map[string]bool{}}, nil
		}
		return nil, fmt.Errorf("passselect: reading %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("passselect: parsing %s: %w", path, err)
	}

	skip := make(map[string]bool, len(f.Skip))
	for _, name := range f.Skip {
		skip[name] = true
	}
	return &Selection{Skip: skip}, nil
}

// Skips reports whether the named pass has been opted out.
func (s *Selection) Skips(name string) bool {
	return s != nil && s.Skip[name]
}
