// tandem: a tool for predicting mapping qualities of short-read alignments.
// Copyright (c) 2021 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/tandem/blob/master/LICENSE.txt>.

package sam

import "fmt"

// ErrorKind classifies the fatal conditions that can abort a pass
// over a SAM file.
type ErrorKind int

// The error taxonomy. Malformed covers missing columns, inconsistent
// CIGAR/MD:Z encodings, and flag protocol violations. MissingSignal
// means a mapped record has neither an extended CIGAR nor an MD:Z
// field, so no edit transcript can be derived. IO and PartialWrite
// cover unreadable inputs and short writes to the binary outputs.
const (
	Malformed ErrorKind = iota
	MissingSignal
	IO
	PartialWrite
)

func (kind ErrorKind) String() string {
	switch kind {
	case Malformed:
		return "malformed input"
	case MissingSignal:
		return "missing signal"
	case IO:
		return "i/o failure"
	case PartialWrite:
		return "partial write"
	default:
		return "unknown error"
	}
}

// An Error is a fatal condition encountered while processing a SAM
// file. Line is the 1-based input line number, or 0 when no line can
// be attributed.
type Error struct {
	Kind ErrorKind
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%v at line %v: %v", e.Kind, e.Line, e.Msg)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Msg)
}

// NewError creates an Error of the given kind for the given input
// line.
func NewError(kind ErrorKind, line int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)}
}
