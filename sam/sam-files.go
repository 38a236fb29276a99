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
	"errors"
	"strconv"
	"strings"

	"github.com/exascience/tandem/utils"
)

// Symbols for the optional fields this tool consumes: the aligner's
// ZT:Z scoring tag and the MD:Z mismatch/deletion side channel.
var (
	ZT = utils.Intern("ZT")
	MD = utils.Intern("MD")
)

func (sc *StringScanner) doString() string {
	if sc.err != nil {
		return ""
	}
	value, ok := sc.readUntil('\t')
	if !ok {
		sc.setErr(errors.New("missing tabulator in SAM alignment line"))
		return ""
	}
	return value
}

func (sc *StringScanner) doInt32() int32 {
	if sc.err != nil {
		return 0
	}
	value, err := strconv.ParseInt(sc.doString(), 10, 32)
	if err != nil {
		sc.setErr(err)
	}
	return int32(value)
}

func (sc *StringScanner) doUint(bitSize int) uint64 {
	if sc.err != nil {
		return 0
	}
	value, err := strconv.ParseUint(sc.doString(), 10, bitSize)
	if err != nil {
		sc.setErr(err)
	}
	return value
}

func (aln *Alignment) scanError(sc *StringScanner) error {
	if err := sc.Err(); err != nil {
		return NewError(Malformed, aln.Line, "%v in SAM record %v", err, aln.QNAME)
	}
	return nil
}

// ParseStart resets the alignment and splits off the identifier and
// flag columns of the given line. The remaining columns are kept
// unparsed until ParseFromRNameOn is called, so that records that are
// classified away never pay for a full parse.
func (aln *Alignment) ParseStart(sc *StringScanner, line string, lineNumber int) error {
	aln.Reset()
	sc.Reset(line)
	aln.Line = lineNumber
	aln.QNAME = sc.doString()
	aln.FLAG = uint16(sc.doUint(16))
	aln.rest = sc.Remaining()
	return aln.scanError(sc)
}

// ParseFromRNameOn parses the remaining mandatory columns: reference
// name, position, mapping quality, CIGAR, mate reference name and
// position, the (ignored) insert-size column, sequence, and quality.
// It immediately derives the soft-clip lengths and the clipped and
// aligned quality sums and averages.
func (aln *Alignment) ParseFromRNameOn(sc *StringScanner) error {
	sc.Reset(aln.rest)
	aln.RNAME = sc.doString()
	aln.POS = sc.doInt32()
	mapq := sc.doUint(16)
	if err := aln.scanError(sc); err != nil {
		return err
	}
	if mapq >= 256 {
		return NewError(Malformed, aln.Line, "mapping quality %v out of range in SAM record %v", mapq, aln.QNAME)
	}
	aln.MAPQ = byte(mapq)
	aln.CIGAR = sc.doString()
	if err := aln.scanError(sc); err != nil {
		return err
	}
	if err := aln.parseCigar(); err != nil {
		return err
	}
	aln.RNEXT = sc.doString()
	aln.PNEXT = sc.doInt32()
	sc.doString() // insert size, unused
	aln.SEQ = sc.doString()
	aln.QUAL, _ = sc.readUntil('\t')
	if err := aln.scanError(sc); err != nil {
		return err
	}
	aln.rest = sc.Remaining()
	return aln.calcQualAverages()
}

// perfectQual is the sentinel average for records with at most one
// clipped base; clipping that small is noise-dominated, so the clip
// lengths are reset as well.
const perfectQual = 100.0

func (aln *Alignment) calcQualAverages() error {
	length := len(aln.SEQ)
	if length == 0 || len(aln.QUAL) != length {
		return NewError(Malformed, aln.Line, "sequence and quality lengths disagree in SAM record %v", aln.QNAME)
	}
	nclipped := aln.LeftClip + aln.RightClip
	if nclipped >= length {
		return NewError(Malformed, aln.Line, "all %v bases soft-clipped in SAM record %v", length, aln.QNAME)
	}
	for i := 0; i < length; i++ {
		if i < aln.LeftClip || i >= length-1-aln.RightClip {
			aln.TotClippedQual += int(aln.QUAL[i]) - 33
		} else {
			aln.TotAlignedQual += int(aln.QUAL[i]) - 33
		}
	}
	aln.AvgAlignedQual = float64(aln.TotAlignedQual) / float64(length-nclipped)
	if nclipped > 1 {
		aln.AvgClippedQual = float64(aln.TotClippedQual) / float64(nclipped)
	} else {
		aln.AvgClippedQual = perfectQual
		aln.TotClippedQual = 0
		aln.LeftClip = 0
		aln.RightClip = 0
	}
	return nil
}

// ParseExtra scans the optional fields into the TAGS map and returns
// the ZT:Z value. The reconciler and the covariate decoder consume the
// tags from there, so tags supplied out-of-band by the caller work
// just as well as tags scanned from the line. When the CIGAR string
// does not use the extended =/X operators, the MD:Z side channel is
// reconciled with it into the edit transcript; a mapped record without
// either encoding has no derivable transcript, which is a fatal
// missing-signal error.
func (aln *Alignment) ParseExtra(sc *StringScanner) (ztz string, err error) {
	sc.Reset(aln.rest)
	for sc.Len() > 0 {
		field, _ := sc.readUntil('\t')
		switch {
		case strings.HasPrefix(field, "ZT:Z:"):
			aln.TAGS.Set(ZT, field[5:])
		case strings.HasPrefix(field, "MD:Z:"):
			aln.TAGS.Set(MD, field[5:])
		}
	}
	if value, ok := aln.TAGS.Get(MD); ok {
		aln.mdz = value.(string)
		if err := aln.parseMDZ(); err != nil {
			return "", err
		}
		if !aln.cigarEqualX && len(aln.cigarOps) > 0 {
			if err := aln.cigarAndMDZToEditXscript(); err != nil {
				return "", err
			}
		}
	}
	value, ok := aln.TAGS.Get(ZT)
	if !ok {
		return "", NewError(Malformed, aln.Line,
			"no ZT:Z field in SAM record %v; run an aligner version that produces the scoring tag", aln.QNAME)
	}
	ztz = value.(string)
	if len(aln.EditXscript) == 0 {
		return "", NewError(MissingSignal, aln.Line,
			"SAM record %v has neither an extended CIGAR string (= and X instead of M) nor an MD:Z field", aln.QNAME)
	}
	return ztz, nil
}

// RawReadLength scans the unparsed remainder of the record for the
// sequence column and returns its length. This avoids a full parse
// for records that contribute nothing but their read length, such as
// the unmapped mate of a bad-end pair.
func (aln *Alignment) RawReadLength() int {
	tabs := 0
	for i := 0; i < len(aln.rest); i++ {
		if aln.rest[i] == '\t' {
			if tabs++; tabs == 7 {
				length := 0
				for j := i + 1; j < len(aln.rest) && aln.rest[j] != '\t'; j++ {
					length++
				}
				return length
			}
		}
	}
	return 0
}

// RawZTZCount counts the comma-delimited fields of the ZT:Z tag in
// the unparsed remainder of the record. It returns 1 when the tag is
// absent.
func (aln *Alignment) RawZTZCount() int {
	rest := aln.rest
	n := 1
	for i := 0; i+5 <= len(rest); i++ {
		if (i == 0 || rest[i-1] == '\t') && rest[i:i+5] == "ZT:Z:" {
			for j := i + 5; j < len(rest) && rest[j] != '\t'; j++ {
				if rest[j] == ',' {
					n++
				}
			}
			break
		}
	}
	return n
}
