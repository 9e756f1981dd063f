package scribec

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Severity classifies a Diagnostic. Warnings never block a successful
// compile; Errors accumulate until Diagnostics.maxErrors is reached.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one structured message the core emits. Loc is absent
// for diagnostics that have no sensible source position (e.g. a
// misconfigured CLI option).
type Diagnostic struct {
	Loc      *ModuleLoc
	Severity Severity
	Message  string
}

// Format renders one diagnostic line in the format mandated by
// spec.md §6: "<path>:<line>:<col>: error|warning: <text>".
func (d Diagnostic) Format(reg *ModuleLocRegistry) string {
	if d.Loc == nil {
		return fmt.Sprintf("<unknown>: %s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", reg.Format(*d.Loc), d.Severity, d.Message)
}

// Diagnostics accumulates Diagnostic entries for an entire compiler
// run and aborts collection (but not the host process) once maxErrors
// error-severity diagnostics have been recorded.
type Diagnostics struct {
	reg       *ModuleLocRegistry
	entries   []Diagnostic
	maxErrors int
	errCount  int
	aborted   bool
}

// NewDiagnostics returns a Diagnostics bounded by maxErrors. A
// maxErrors <= 0 means unbounded.
func NewDiagnostics(reg *ModuleLocRegistry, maxErrors int) *Diagnostics {
	return &Diagnostics{reg: reg, maxErrors: maxErrors}
}

// Error records an error-severity diagnostic at loc. Returns false
// once the run has aborted, so callers can short-circuit further work
// in the same subtree.
func (d *Diagnostics) Error(loc ModuleLoc, format string, args ...any) bool {
	return d.add(SeverityError, &loc, format, args...)
}

// ErrorNoLoc records an error-severity diagnostic with no source
// position (configuration/IO failures discovered before any module is
// loaded).
func (d *Diagnostics) ErrorNoLoc(format string, args ...any) bool {
	return d.add(SeverityError, nil, format, args...)
}

// Warning records a warning-severity diagnostic. Warnings never cause
// abort and never affect the exit code.
func (d *Diagnostics) Warning(loc ModuleLoc, format string, args ...any) {
	d.add(SeverityWarning, &loc, format, args...)
}

func (d *Diagnostics) add(sev Severity, loc *ModuleLoc, format string, args ...any) bool {
	if d.aborted {
		return false
	}
	d.entries = append(d.entries, Diagnostic{Loc: loc, Severity: sev, Message: fmt.Sprintf(format, args...)})
	if sev == SeverityError {
		d.errCount++
		if d.maxErrors > 0 && d.errCount >= d.maxErrors {
			d.aborted = true
			return false
		}
	}
	return true
}

// HasErrors reports whether any error-severity diagnostic was
// recorded. A pass checks this after visiting a subtree to decide
// whether to skip the next pass (spec.md §7 propagation policy).
func (d *Diagnostics) HasErrors() bool { return d.errCount > 0 }

// Aborted reports whether maxErrors was reached.
func (d *Diagnostics) Aborted() bool { return d.aborted }

// Entries returns all recorded diagnostics in emission order.
func (d *Diagnostics) Entries() []Diagnostic { return d.entries }

// Render writes every diagnostic, one per line, in the CLI's
// "<path>:<line>:<col>: error|warning: <text>" format.
func (d *Diagnostics) Render() string {
	var sb strings.Builder
	for _, e := range d.entries {
		sb.WriteString(e.Format(d.reg))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ICE is an internal-compiler-error: a violated invariant rather than
// a user mistake (spec.md §7). It wraps its cause with a stack trace
// via github.com/pkg/errors so the panic recovery path at the top of
// the orchestrator can print something actionable instead of a bare
// Go panic.
type ICE struct {
	Loc     ModuleLoc
	Wrapped error
}

func (e *ICE) Error() string { return e.Wrapped.Error() }
func (e *ICE) Unwrap() error { return e.Wrapped }

// NewICE builds an ICE, attaching a stack trace to msg.
func NewICE(loc ModuleLoc, format string, args ...any) *ICE {
	return &ICE{Loc: loc, Wrapped: errors.Errorf("internal compiler error: "+format, args...)}
}

// PanicICE panics with an ICE; recovered at Orchestrator.Run's
// top-level defer.
func PanicICE(loc ModuleLoc, format string, args ...any) {
	panic(NewICE(loc, format, args...))
}
