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

import "unicode"

// CigarOperations contains all valid CIGAR operations.
const CigarOperations = "MmIiDdNnSsHhPpXx="

var cigarOperationsTable = make(map[byte]byte, len(CigarOperations))

func init() {
	for _, c := range CigarOperations {
		cigarOperationsTable[byte(c)] = byte(unicode.ToUpper(rune(c)))
	}
}

func isDigit(char byte) bool { return ('0' <= char) && (char <= '9') }

type cigarOperation struct {
	length    int
	operation byte
}

// parseCigar scans the CIGAR column into the alignment's operation
// list, records the left/right soft-clip lengths, and detects whether
// the extended =/X match operators are used. When they are, the edit
// transcript is derived immediately, without the MD:Z side channel.
func (aln *Alignment) parseCigar() error {
	cigar := aln.CIGAR
	for i := 0; i < len(cigar); {
		if !isDigit(cigar[i]) {
			return NewError(Malformed, aln.Line, "missing run length in CIGAR string %v", cigar)
		}
		run := 0
		for i < len(cigar) && isDigit(cigar[i]) {
			run = run*10 + int(cigar[i]-'0')
			i++
		}
		if i >= len(cigar) {
			return NewError(Malformed, aln.Line, "truncated CIGAR string %v", cigar)
		}
		operation := cigarOperationsTable[cigar[i]]
		if operation == 0 {
			return NewError(Malformed, aln.Line, "invalid CIGAR operation %c in %v", cigar[i], cigar)
		}
		if len(aln.cigarOps) == 0 && operation == 'S' {
			aln.LeftClip = run
		} else if i+1 >= len(cigar) && operation == 'S' {
			aln.RightClip = run
		}
		if operation == 'X' || operation == '=' {
			aln.cigarEqualX = true
		}
		aln.cigarOps = append(aln.cigarOps, cigarOperation{run, operation})
		i++
	}
	if aln.cigarEqualX {
		return aln.cigarToEditXscript()
	}
	return nil
}
