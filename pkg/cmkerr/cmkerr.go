// Package cmkerr defines the resolution failures cmk reports and the
// process exit code assigned to each of them.
//
// Every failure that happens before a subprocess is dispatched is an *Error
// carrying a Kind. Kinds map to exit codes in the 200 block so that they can
// be told apart from the exit status of compilers, linkers and the programs
// cmk runs on behalf of the user.
package cmkerr

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure.
type Kind int

const (
	KindUnknown Kind = iota
	NoProjectRoot
	NoBuildDirectory
	UnsupportedGenerator
	ConfigParseError
	UndefinedVariable
	VariableCycle
	CompileDBMissing
	CompileDBMalformed
	SourceNotFound
	SelectorUnavailable
	SelectionAborted
	SubprocessLaunchFailed
	InvalidJobCount
	TargetNotFound
)

// exitBase is the first exit code used for resolution failures.
const exitBase = 200

var kindNames = map[Kind]string{
	KindUnknown:            "Unknown",
	NoProjectRoot:          "NoProjectRoot",
	NoBuildDirectory:       "NoBuildDirectory",
	UnsupportedGenerator:   "UnsupportedGenerator",
	ConfigParseError:       "ConfigParseError",
	UndefinedVariable:      "UndefinedVariable",
	VariableCycle:          "VariableCycle",
	CompileDBMissing:       "CompileDBMissing",
	CompileDBMalformed:     "CompileDBMalformed",
	SourceNotFound:         "SourceNotFound",
	SelectorUnavailable:    "SelectorUnavailable",
	SelectionAborted:       "SelectionAborted",
	SubprocessLaunchFailed: "SubprocessLaunchFailed",
	InvalidJobCount:        "InvalidJobCount",
	TargetNotFound:         "TargetNotFound",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ExitCode returns the process exit code for k. Unknown kinds exit 1.
func (k Kind) ExitCode() int {
	if k <= KindUnknown || k > TargetNotFound {
		return 1
	}
	return exitBase + int(k) - 1
}

// Error implements error so a Kind can be used as an errors.Is target:
//
//	if errors.Is(err, cmkerr.SourceNotFound) { ... }
func (k Kind) Error() string {
	return k.String()
}

// Error is a resolution failure.
type Error struct {
	Kind Kind
	// Subject is the offending path, variable, target or program.
	Subject string
	// Detail is a human readable explanation, possibly with a suggestion.
	Detail string
	// Err is the underlying cause, if any.
	Err error
}

// New returns an *Error of the given kind.
func New(kind Kind, subject, detail string) *Error {
	return &Error{Kind: kind, Subject: subject, Detail: detail}
}

// Wrap returns an *Error of the given kind caused by err.
func Wrap(kind Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Newf is New with a formatted detail.
func Newf(kind Kind, subject, format string, args ...any) *Error {
	return New(kind, subject, fmt.Sprintf(format, args...))
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Subject != "" {
		msg += ": " + e.Subject
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode returns the exit code for err: 0 for nil, the kind's code for a
// resolution failure, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
