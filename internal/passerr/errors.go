// Package passerr defines the pipeline's structural-anomaly error type.
//
// Per the specification's error-handling design, none of these ever abort
// a build: every anomaly is recorded against the site it occurred at and
// the affected site is skipped, while the rest of the module is still
// instrumented. Passes collect these as they go and surface them through
// their Result rather than returning a Go error from the pass entry point.
package passerr

import "fmt"

// Anomaly is a single recoverable structural anomaly: an unpaired marker,
// a missing unsafe_count.func_id attachment, a call with no following
// instruction, and so on.
type Anomaly struct {
	Pass     string // pass that detected the anomaly, e.g. "CycleCounter"
	Function string // enclosing function name, if known
	Site     string // human-readable description of where, e.g. "block entry, inst 4"
	Message  string
	Location string // "file:line" when a debug location was available, else ""
}

func (a *Anomaly) Error() string {
	where := a.Function
	if a.Site != "" {
		where += " (" + a.Site + ")"
	}
	if a.Location != "" {
		return fmt.Sprintf("%s: %s: %s [%s]", a.Pass, where, a.Message, a.Location)
	}
	return fmt.Sprintf("%s: %s: %s", a.Pass, where, a.Message)
}

// New builds an Anomaly without a known source location.
func New(pass, function, site, message string) *Anomaly {
	return &Anomaly{Pass: pass, Function: function, Site: site, Message: message}
}

// WithLocation builds an Anomaly annotated with a "file:line" location.
func WithLocation(pass, function, site, message, location string) *Anomaly {
	a := New(pass, function, site, message)
	a.Location = location
	return a
}
