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

import (
	"github.com/exascience/tandem/utils"
)

// An Alignment is a single record from the alignment section of a SAM
// file, together with the values this tool derives from it.
//
// Records are parsed in two stages: the identifier and flag columns
// first, so that the caller can classify and pair records before
// committing to a full parse, and the remaining columns on demand via
// ParseFromRNameOn. The unparsed remainder of the line is kept so
// that records that end up discarded never pay for a full parse.
type Alignment struct {
	QNAME string
	FLAG  uint16
	RNAME string
	POS   int32
	MAPQ  byte
	CIGAR string
	RNEXT string
	PNEXT int32
	SEQ   string
	QUAL  string
	TAGS  utils.SmallMap

	// Line is the 1-based input line number, used as a stable row
	// identifier in the feature matrices.
	Line int

	// Derived by ParseFromRNameOn.
	LeftClip       int
	RightClip      int
	TotClippedQual int
	TotAlignedQual int
	AvgClippedQual float64
	AvgAlignedQual float64

	// BestScore is the first field of the ZT:Z tag.
	BestScore int

	// Correct is the ground-truth label: -1 unknown, 0 incorrect, 1
	// correct.
	Correct int

	// Typ is the category hint embedded in a synthetic identifier;
	// HasTyp tells whether the identifier carries one at all.
	Typ    string
	HasTyp bool

	// EditXscript is the canonical per-base edit transcript, one
	// character per operation. It is built exactly once per record.
	EditXscript []byte

	cigarOps    []cigarOperation
	cigarEqualX bool

	// mdz is the working copy of the MD tag in TAGS.
	mdz        string
	mdzOps     []sideChannelOp
	mdzChar    []byte
	scratchOps []sideChannelOp

	rest string
}

// Reset clears the alignment for reuse, retaining the capacity of the
// internal buffers.
func (aln *Alignment) Reset() {
	aln.QNAME = ""
	aln.FLAG = 0
	aln.RNAME = ""
	aln.POS = 0
	aln.MAPQ = 0
	aln.CIGAR = ""
	aln.RNEXT = ""
	aln.PNEXT = 0
	aln.SEQ = ""
	aln.QUAL = ""
	aln.TAGS = aln.TAGS[:0]
	aln.Line = 0
	aln.LeftClip = 0
	aln.RightClip = 0
	aln.TotClippedQual = 0
	aln.TotAlignedQual = 0
	aln.AvgClippedQual = 0
	aln.AvgAlignedQual = 0
	aln.BestScore = 0
	aln.Correct = -1
	aln.Typ = ""
	aln.HasTyp = false
	aln.EditXscript = aln.EditXscript[:0]
	aln.cigarOps = aln.cigarOps[:0]
	aln.cigarEqualX = false
	aln.mdz = ""
	aln.mdzOps = aln.mdzOps[:0]
	aln.mdzChar = aln.mdzChar[:0]
	aln.scratchOps = aln.scratchOps[:0]
	aln.rest = ""
}

// The FLAG bits defined by the SAM format.
const (
	Multiple      = 0x1
	Proper        = 0x2
	Unmapped      = 0x4
	NextUnmapped  = 0x8
	Reversed      = 0x10
	NextReversed  = 0x20
	First         = 0x40
	Last          = 0x80
	Secondary     = 0x100
	QCFailed      = 0x200
	Duplicate     = 0x400
	Supplementary = 0x800
)

func (aln *Alignment) IsMultiple() bool      { return (aln.FLAG & Multiple) != 0 }
func (aln *Alignment) IsProper() bool        { return (aln.FLAG & Proper) != 0 }
func (aln *Alignment) IsUnmapped() bool      { return (aln.FLAG & Unmapped) != 0 }
func (aln *Alignment) IsReversed() bool      { return (aln.FLAG & Reversed) != 0 }
func (aln *Alignment) IsFirst() bool         { return (aln.FLAG & First) != 0 }
func (aln *Alignment) IsLast() bool          { return (aln.FLAG & Last) != 0 }
func (aln *Alignment) IsSecondary() bool     { return (aln.FLAG & Secondary) != 0 }
func (aln *Alignment) IsSupplementary() bool { return (aln.FLAG & Supplementary) != 0 }

// IsAligned tells whether the record is mapped to the reference.
func (aln *Alignment) IsAligned() bool { return (aln.FLAG & Unmapped) == 0 }

// IsForward tells whether the record aligns to the forward strand.
func (aln *Alignment) IsForward() bool { return (aln.FLAG & Reversed) == 0 }

// MateFlag returns '1' for mate 1, '2' for mate 2, and '0' for an
// unpaired record. Bits 0x40 and 0x80 are mutually exclusive.
func (aln *Alignment) MateFlag() byte {
	if (aln.FLAG & First) != 0 {
		return '1'
	}
	if (aln.FLAG & Last) != 0 {
		return '2'
	}
	return '0'
}

// FwFlag returns 'T' for a forward-strand record and 'F' otherwise,
// as used in the template files.
func (aln *Alignment) FwFlag() byte {
	if aln.IsForward() {
		return 'T'
	}
	return 'F'
}

// Len returns the read length.
func (aln *Alignment) Len() int { return len(aln.SEQ) }

// LeftPos returns the leftmost reference position involved in the
// alignment, considering soft-clipped bases as part of the alignment.
func (aln *Alignment) LeftPos() int {
	return int(aln.POS) - aln.LeftClip
}

// RightPos returns the rightmost reference position involved in the
// alignment, considering soft-clipped bases as part of the alignment.
// It walks the edit transcript the same way the reference aligner
// tooling does, skipping the leading soft clips plus the first
// aligned operation and then counting every reference-consuming
// operation.
func (aln *Alignment) RightPos() int {
	xs := aln.EditXscript
	i := 0
	for i < len(xs) && xs[i] == 'S' {
		i++
	}
	i++
	mv := 0
	for ; i < len(xs); i++ {
		switch xs[i] {
		case 'S', 'D', 'X', '=':
			mv++
		}
	}
	return int(aln.POS) + mv - 1
}

// FragmentLength returns the fragment length of a mate pair, as
// inferred from the positions and edit transcripts. TLEN is not used,
// because of the ambiguity in how it treats soft clipping.
func FragmentLength(aln1, aln2 *Alignment) int {
	up, dn := aln2, aln1
	if aln1.POS < aln2.POS {
		up, dn = aln1, aln2
	}
	return dn.RightPos() - up.LeftPos() + 1
}
