package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes of a run.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrParse        = errors.New("parse error")
	ErrColumn       = errors.New("column error")
	ErrIO           = errors.New("io error")
	ErrConfig       = errors.New("invalid configuration")
)

// ParseError reports a malformed sample file.
type ParseError struct {
	Path   string
	Line   int // 1-based, 0 when not tied to a line
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %s", e.Path, e.Line, msg)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, msg)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func (e *ParseError) Unwrap() error { return e.Err }

// ColumnError reports a requested column absent from a sample table.
type ColumnError struct {
	ElmNo  ElmNo
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("ElmNo=%d: column %q not found", e.ElmNo, e.Column)
}

func (e *ColumnError) Is(target error) bool { return target == ErrColumn }

// IOError reports a failed read or write of an artifact.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Is(target error) bool { return target == ErrIO }

func (e *IOError) Unwrap() error { return e.Err }
