// Package errs defines the flat error-kind taxonomy shared by every layer
// of the evaluator, plus a typed error that captures the source location
// where a failure originates.
package errs

import (
	"fmt"
	"runtime"
)

// Kind is the flat enumeration of failure categories. The numeric values
// are stable: they are written into CSV artifacts as unsigned integers.
type Kind uint16

const (
	Ok Kind = iota
	InvalidInput
	InvalidGeometry
	InvalidEnvironment
	InvalidOperatingPoint
	InvalidConfig
	MissingPolarData
	PolarOutOfRange
	OutOfRange
	DomainError
	NonConverged
	NumericalFailure
	IOError
	ParseError
)

var kindNames = map[Kind]string{
	Ok:                    "Ok",
	InvalidInput:          "InvalidInput",
	InvalidGeometry:       "InvalidGeometry",
	InvalidEnvironment:    "InvalidEnvironment",
	InvalidOperatingPoint: "InvalidOperatingPoint",
	InvalidConfig:         "InvalidConfig",
	MissingPolarData:      "MissingPolarData",
	PolarOutOfRange:       "PolarOutOfRange",
	OutOfRange:            "OutOfRange",
	DomainError:           "DomainError",
	NonConverged:          "NonConverged",
	NumericalFailure:      "NumericalFailure",
	IOError:               "IOError",
	ParseError:            "ParseError",
}

// String returns the human name of the kind, used in JSON artifacts.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint16(k))
}

// Code returns the stable unsigned value written into CSV cells.
func (k Kind) Code() uint16 {
	return uint16(k)
}

// Error is the typed failure carried across package boundaries. It records
// the kind, a message, and the file/line where it was created.
type Error struct {
	Kind Kind
	Msg  string
	File string
	Line int
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s (%s:%d)", e.Kind, e.Msg, e.File, e.Line)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New creates an Error of the given kind, capturing the caller's location.
func New(kind Kind, msg string) *Error {
	e := &Error{Kind: kind, Msg: msg}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = file
		e.Line = line
	}
	return e
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	e := &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	if _, file, line, ok := runtime.Caller(1); ok {
		e.File = file
		e.Line = line
	}
	return e
}

// KindOf extracts the Kind from err, or Ok for nil and NumericalFailure
// for foreign error types.
func KindOf(err error) Kind {
	if err == nil {
		return Ok
	}
	if te, ok := err.(*Error); ok {
		return te.Kind
	}
	return NumericalFailure
}
