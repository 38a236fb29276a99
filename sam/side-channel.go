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

// The operation kinds of the MD:Z side channel.
const (
	sideMatch = iota
	sideMismatch
	sideDeletion
)

// A sideChannelOp is one parsed unit of the MD:Z side channel: a run
// of matching, mismatching, or deleted reference bases. Mismatch and
// deletion runs index into the alignment's flat buffer of literal
// reference characters.
type sideChannelOp struct {
	op     int
	run    int
	offset int
}

// parseMDZ scans the MD:Z value into the alignment's side-channel op
// list. A digit run describes matching bases, a letter run describes
// the reference bases at mismatches, and '^' introduces the deleted
// reference bases of a deletion.
func (aln *Alignment) parseMDZ() error {
	mdz := aln.mdz
	for i := 0; i < len(mdz); {
		switch c := mdz[i]; {
		case isDigit(c):
			run := 0
			for i < len(mdz) && isDigit(mdz[i]) {
				run = run*10 + int(mdz[i]-'0')
				i++
			}
			if run > 0 {
				aln.mdzOps = append(aln.mdzOps, sideChannelOp{sideMatch, run, -1})
			}
		case isAlpha(c):
			run := 0
			for i < len(mdz) && isAlpha(mdz[i]) {
				aln.mdzChar = append(aln.mdzChar, mdz[i])
				run++
				i++
			}
			aln.mdzOps = append(aln.mdzOps, sideChannelOp{sideMismatch, run, len(aln.mdzChar) - run})
		case c == '^':
			i++
			run := 0
			for i < len(mdz) && isAlpha(mdz[i]) {
				aln.mdzChar = append(aln.mdzChar, mdz[i])
				run++
				i++
			}
			aln.mdzOps = append(aln.mdzOps, sideChannelOp{sideDeletion, run, len(aln.mdzChar) - run})
		default:
			return NewError(Malformed, aln.Line, "unexpected character at position %v of MD:Z string %v", i, mdz)
		}
	}
	return nil
}

func isAlpha(char byte) bool {
	return (('A' <= char) && (char <= 'Z')) || (('a' <= char) && (char <= 'z'))
}
