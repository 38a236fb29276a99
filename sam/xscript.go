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

// The edit transcript describes how a read aligns to the reference,
// one character per operation: '=' match, 'X' mismatch, 'I'
// insertion, 'D' deletion, 'N' reference skip, 'S' soft clip. Hard
// clips consume nothing and emit nothing.
//
// It is derived in one of two ways: directly from a CIGAR string that
// already uses the extended =/X operators, or by reconciling a plain
// CIGAR string with the MD:Z side channel.

// cigarToEditXscript expands an extended CIGAR string into the edit
// transcript. The plain M operator must not occur alongside =/X.
func (aln *Alignment) cigarToEditXscript() error {
	for _, cop := range aln.cigarOps {
		switch cop.operation {
		case 'M', 'P':
			return NewError(Malformed, aln.Line, "CIGAR operation %c not allowed in extended CIGAR string %v", cop.operation, aln.CIGAR)
		}
		for j := 0; j < cop.length; j++ {
			aln.EditXscript = append(aln.EditXscript, cop.operation)
		}
	}
	return nil
}

// cigarAndMDZToEditXscript reconciles a plain CIGAR string with the
// MD:Z side channel into the edit transcript. Match runs are
// subdivided against the side channel's match/mismatch runs, taking
// min(remaining run, remaining side-channel run) bases at a time;
// deletion runs must align exactly with a pending side-channel
// deletion run. On completion the side channel must be exhausted,
// otherwise the two encodings disagree about the alignment length.
func (aln *Alignment) cigarAndMDZToEditXscript() error {
	// Partially consumed side-channel runs retain their remainder, so
	// work on a scratch copy and leave the parsed ops intact.
	aln.scratchOps = append(aln.scratchOps[:0], aln.mdzOps...)
	ops := aln.scratchOps
	mdo := 0
	for _, cop := range aln.cigarOps {
		switch cop.operation {
		case 'M':
			runleft := cop.length
			for runleft > 0 && mdo < len(ops) {
				opM := ops[mdo].op
				runM := ops[mdo].run
				runComb := runleft
				if runM < runComb {
					runComb = runM
				}
				runleft -= runComb
				switch opM {
				case sideMatch:
					for j := 0; j < runComb; j++ {
						aln.EditXscript = append(aln.EditXscript, '=')
					}
				case sideMismatch:
					if runM != runComb {
						return NewError(Malformed, aln.Line, "MD:Z mismatch run extends beyond CIGAR match segment in %v/%v", aln.CIGAR, aln.mdz)
					}
					for j := 0; j < runM; j++ {
						aln.EditXscript = append(aln.EditXscript, 'X')
					}
				default:
					return NewError(Malformed, aln.Line, "MD:Z deletion inside CIGAR match segment in %v/%v", aln.CIGAR, aln.mdz)
				}
				if runComb < runM {
					ops[mdo].run -= runComb
				} else {
					mdo++
				}
			}
			if runleft > 0 {
				return NewError(Malformed, aln.Line, "MD:Z string %v too short for CIGAR string %v", aln.mdz, aln.CIGAR)
			}
		case 'I', 'N', 'S':
			for j := 0; j < cop.length; j++ {
				aln.EditXscript = append(aln.EditXscript, cop.operation)
			}
		case 'D':
			if mdo >= len(ops) || ops[mdo].op != sideDeletion || ops[mdo].run != cop.length {
				return NewError(Malformed, aln.Line, "CIGAR deletion does not match MD:Z deletion in %v/%v", aln.CIGAR, aln.mdz)
			}
			mdo++
			for j := 0; j < cop.length; j++ {
				aln.EditXscript = append(aln.EditXscript, 'D')
			}
		case 'H':
			// consumes nothing, emits nothing
		default:
			return NewError(Malformed, aln.Line, "unexpected CIGAR operation %c when reconciling with MD:Z", cop.operation)
		}
	}
	if mdo != len(ops) {
		return NewError(Malformed, aln.Line, "MD:Z string %v not exhausted by CIGAR string %v", aln.mdz, aln.CIGAR)
	}
	return nil
}

// StackedAlignment renders the read and the reference on top of each
// other, with '-' for gaps, by walking the plain CIGAR string and the
// MD:Z side channel. It requires the side channel, since the literal
// reference bases at mismatches and deletions only occur there.
func (aln *Alignment) StackedAlignment() (read, ref string, err error) {
	if aln.mdz == "" {
		return "", "", NewError(MissingSignal, aln.Line, "stacked alignment for %v requires an MD:Z field", aln.QNAME)
	}
	ops := make([]sideChannelOp, len(aln.mdzOps))
	copy(ops, aln.mdzOps)
	var rd, rf []byte
	mdo := 0
	rdoff := 0
	for _, cop := range aln.cigarOps {
		switch cop.operation {
		case 'M':
			runleft := cop.length
			for runleft > 0 && mdo < len(ops) {
				opM := ops[mdo].op
				runM := ops[mdo].run
				stM := ops[mdo].offset
				runComb := runleft
				if runM < runComb {
					runComb = runM
				}
				runleft -= runComb
				if opM != sideMatch && opM != sideMismatch {
					return "", "", NewError(Malformed, aln.Line, "MD:Z deletion inside CIGAR match segment in %v/%v", aln.CIGAR, aln.mdz)
				}
				rd = append(rd, aln.SEQ[rdoff:rdoff+runComb]...)
				if opM == sideMatch {
					rf = append(rf, aln.SEQ[rdoff:rdoff+runComb]...)
				} else {
					if runM != runComb {
						return "", "", NewError(Malformed, aln.Line, "MD:Z mismatch run extends beyond CIGAR match segment in %v/%v", aln.CIGAR, aln.mdz)
					}
					rf = append(rf, aln.mdzChar[stM:stM+runM]...)
				}
				rdoff += runComb
				if runComb < runM {
					ops[mdo].run -= runComb
				} else {
					mdo++
				}
			}
		case 'I':
			for j := 0; j < cop.length; j++ {
				rd = append(rd, aln.SEQ[rdoff])
				rf = append(rf, '-')
				rdoff++
			}
		case 'D':
			if mdo >= len(ops) || ops[mdo].op != sideDeletion || ops[mdo].run != cop.length {
				return "", "", NewError(Malformed, aln.Line, "CIGAR deletion does not match MD:Z deletion in %v/%v", aln.CIGAR, aln.mdz)
			}
			stM := ops[mdo].offset
			mdo++
			for j := 0; j < cop.length; j++ {
				rd = append(rd, '-')
				rf = append(rf, aln.mdzChar[stM+j])
			}
		case 'N':
			for j := 0; j < cop.length; j++ {
				rd = append(rd, '-')
				rf = append(rf, '-')
			}
		case 'S':
			rdoff += cop.length
		case 'H':
			// pass
		default:
			return "", "", NewError(Malformed, aln.Line, "unexpected CIGAR operation %c when reconciling with MD:Z", cop.operation)
		}
	}
	if mdo != len(ops) {
		return "", "", NewError(Malformed, aln.Line, "MD:Z string %v not exhausted by CIGAR string %v", aln.mdz, aln.CIGAR)
	}
	return string(rd), string(rf), nil
}
