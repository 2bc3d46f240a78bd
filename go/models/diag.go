package models

import (
	"fmt"
	"strings"
)

type Severity int

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warn"
	case SevError:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// DiagKind classifies the non-fatal conditions a load can report.
type DiagKind int

const (
	DiagNote DiagKind = iota
	RegionConflict
	SymbolConflict
	OverlayConflict
)

func (k DiagKind) String() string {
	switch k {
	case DiagNote:
		return "note"
	case RegionConflict:
		return "region conflict"
	case SymbolConflict:
		return "symbol conflict"
	case OverlayConflict:
		return "overlay conflict"
	}
	return fmt.Sprintf("DiagKind(%d)", int(k))
}

type Diagnostic struct {
	Severity Severity
	Kind     DiagKind
	Message  string
	Err      error
}

func (d Diagnostic) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s: %s: %v", d.Kind, d.Message, d.Err)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

type Diagnostics []Diagnostic

func (d *Diagnostics) Add(sev Severity, kind DiagKind, err error, format string, args ...interface{}) {
	*d = append(*d, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	})
}

func (d Diagnostics) Kind(kind DiagKind) Diagnostics {
	var ret Diagnostics
	for _, v := range d {
		if v.Kind == kind {
			ret = append(ret, v)
		}
	}
	return ret
}

// Count returns the number of diagnostics at or above sev.
func (d Diagnostics) Count(sev Severity) int {
	n := 0
	for _, v := range d {
		if v.Severity >= sev {
			n++
		}
	}
	return n
}

func (d Diagnostics) String() string {
	s := make([]string, len(d))
	for i, v := range d {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}

// DiagSink receives diagnostics as they are produced.
type DiagSink interface {
	Diag(sev Severity, msg string)
}
