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

import "strings"

// Synthetic reads generated by the tandem pipeline carry their true
// origin in the read identifier: the marker prefix, then
// separator-delimited fields for the reference name, strand, 0-based
// reference offset, and alignment score of mate 1, then either the
// terminal 'u' for an unpaired read or the same group of fields for
// mate 2 followed by the category character.
const (
	simPrefix = "!h!"
	simSep    = '!'
)

// ParseSyntheticHint returns the category hint after the last
// separator of a synthetic read identifier. The second return value is
// false when the identifier does not carry the synthetic marker.
func ParseSyntheticHint(qname string) (string, bool) {
	if !strings.HasPrefix(qname, simPrefix) {
		return "", false
	}
	return qname[strings.LastIndexByte(qname, simSep)+1:], true
}

// A qnameCursor walks the fields of a read identifier.
type qnameCursor struct {
	s string
	i int
}

func (c *qnameCursor) expectSep() bool {
	if c.i >= len(c.s) || c.s[c.i] != simSep {
		return false
	}
	c.i++
	return true
}

func (c *qnameCursor) skipPrefix(prefix string) bool {
	if !strings.HasPrefix(c.s[c.i:], prefix) {
		return false
	}
	c.i += len(prefix)
	return true
}

func (c *qnameCursor) uint() int {
	value := 0
	for c.i < len(c.s) && isDigit(c.s[c.i]) {
		value = value*10 + int(c.s[c.i]-'0')
		c.i++
	}
	return value
}

func (c *qnameCursor) int() int {
	if c.i < len(c.s) && c.s[c.i] == '-' {
		c.i++
		return -c.uint()
	}
	return c.uint()
}

// SetCorrectness sets the Correct field of an aligned record from its
// read identifier: 1 when the record aligns within wiggle positions of
// where the read was simulated from, 0 when it does not, and -1 when
// the identifier carries no recognizable ground truth. Two identifier
// forms are recognized: the marker form produced by the tandem
// simulator, and the wgsim-style form used when the input reads
// themselves were simulated.
func (aln *Alignment) SetCorrectness(wiggle int) {
	if strings.HasPrefix(aln.QNAME, simPrefix) {
		aln.Correct = 0
		if aln.markerCorrect(wiggle) {
			aln.Correct = 1
		}
	} else {
		aln.wgsimCorrectness(wiggle)
	}
}

func withinWiggle(refoff, pos, wiggle int) bool {
	diff := refoff - pos
	if diff < 0 {
		diff = -diff
	}
	return diff < wiggle
}

// markerCorrect checks the marker form. The mate-1 field group is
// verified against the record unless the record is mate 2, in which
// case the cursor merely walks past it and the mate-2 group is
// verified instead.
func (aln *Alignment) markerCorrect(wiggle int) bool {
	c := qnameCursor{s: aln.QNAME, i: len(simPrefix)}
	mate2 := aln.MateFlag() == '2'
	if !c.expectSep() {
		return false
	}
	if mate2 {
		c.i += len(aln.RNAME)
	} else if !c.skipPrefix(aln.RNAME) {
		return false
	}
	if !c.expectSep() {
		return false
	}
	if !mate2 {
		if c.i >= len(c.s) || c.s[c.i] != strandChar(aln.IsForward()) {
			return false
		}
	}
	c.i++
	if !c.expectSep() {
		return false
	}
	refoff := c.uint()
	if !mate2 && !withinWiggle(refoff, int(aln.POS)-1, wiggle) {
		return false
	}
	if !c.expectSep() {
		return false
	}
	c.int() // score of mate 1
	if !c.expectSep() {
		return false
	}
	if c.i < len(c.s) && c.s[c.i] == 'u' && c.i+1 >= len(c.s) {
		return true // unpaired and correct
	}
	if !mate2 {
		return true // paired-end, mate 1, and correct
	}
	// Remaining case: mate 2, verified against its own field group.
	if !c.skipPrefix(aln.RNAME) {
		return false
	}
	if !c.expectSep() {
		return false
	}
	if c.i >= len(c.s) || c.s[c.i] != strandChar(aln.IsForward()) {
		return false
	}
	c.i++
	if !c.expectSep() {
		return false
	}
	refoff = c.uint()
	if !withinWiggle(refoff, int(aln.POS)-1, wiggle) {
		return false
	}
	if !c.expectSep() {
		return false
	}
	c.int() // score of mate 2
	return c.expectSep()
}

func strandChar(forward bool) byte {
	if forward {
		return '+'
	}
	return '-'
}

// wgsimCorrectness checks the wgsim-style identifier form:
//
//	11_25006153_25006410_0:0:0_0:0:0_100_100_1_1/1
//	 ^ refid    ^ frag end (1-based) ^ len1  ^ flip
//	   ^ frag start (1-based)            ^ len2
//
// recognized by its at least 8 underscores and exactly 4 colons after
// the third underscore. The expected position of a mate is the
// fragment start for the left end of the fragment and frag end - read
// length + 1 for the right end, with flip telling which mate is which.
func (aln *Alignment) wgsimCorrectness(wiggle int) {
	qname := aln.QNAME
	nund, ncolon := 0, 0
	for i := 0; i < len(qname); i++ {
		if qname[i] == '_' {
			nund++
		} else if qname[i] == ':' && nund >= 3 {
			ncolon++
		}
	}
	if nund < 8 || ncolon != 4 {
		return
	}
	aln.Correct = 0
	c := qnameCursor{s: qname}
	if !c.skipPrefix(aln.RNAME) {
		return
	}
	if c.i >= len(c.s) || c.s[c.i] != '_' {
		return
	}
	c.i++
	fragStart := c.uint()
	if c.i >= len(c.s) || c.s[c.i] != '_' {
		return
	}
	c.i++
	fragEnd := c.uint()
	if c.i >= len(c.s) || c.s[c.i] != '_' {
		return
	}
	c.i++
	for n := ncolon; n > 0; {
		if c.i >= len(c.s) {
			return
		}
		if c.s[c.i] == ':' {
			n--
		}
		c.i++
	}
	c.uint() // number after the last colon
	c.i++    // and its trailing underscore
	len1 := c.uint()
	if c.i >= len(c.s) || c.s[c.i] != '_' {
		return
	}
	c.i++
	len2 := c.uint()
	if c.i >= len(c.s) || c.s[c.i] != '_' {
		return
	}
	c.i++
	if c.i >= len(c.s) {
		return
	}
	flip := c.s[c.i] == '1'
	mate1 := aln.MateFlag() != '2'
	length := len1
	if !mate1 {
		length = len2
	}
	expected := fragStart
	if mate1 == flip {
		expected = fragEnd - length + 1
	}
	if withinWiggle(int(aln.POS), expected, wiggle) {
		aln.Correct = 1
	}
}
