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

// Package model collects simulation templates: the per-read shape
// information (score, length, strand, quality string, edit transcript)
// the simulator needs to generate new reads that look like the input.
// Templates are collected into bounded reservoir samples so that
// memory use stays constant regardless of input size.
package model

// A TemplateUnpaired is the simulation template of a single read: an
// unpaired read, or the aligned end of a pair whose opposite end
// failed to align.
type TemplateUnpaired struct {
	BestScore   int
	Len         int
	FwFlag      byte
	MateFlag    byte
	OppLen      int
	Qual        string
	EditXscript string
}

// Fill sets all fields of the template. The quality string and edit
// transcript are copied, since the source buffers are reused per
// record.
func (t *TemplateUnpaired) Fill(bestScore, length int, fwFlag, mateFlag byte, oppLen int, qual string, editXscript []byte) {
	t.BestScore = bestScore
	t.Len = length
	t.FwFlag = fwFlag
	t.MateFlag = mateFlag
	t.OppLen = oppLen
	t.Qual = qual
	t.EditXscript = string(editXscript)
}

// Append appends the template as a CSV line, including the trailing
// newline.
func (t *TemplateUnpaired) Append(buf []byte) []byte {
	buf = appendInt(buf, t.BestScore)
	buf = append(buf, ',', t.FwFlag, ',')
	buf = append(buf, t.Qual...)
	buf = append(buf, ',')
	buf = appendInt(buf, t.Len)
	buf = append(buf, ',', t.MateFlag, ',')
	buf = appendInt(buf, t.OppLen)
	buf = append(buf, ',')
	buf = append(buf, t.EditXscript...)
	return append(buf, '\n')
}

// A TemplatePaired is the simulation template of a concordantly or
// discordantly aligned mate pair, with mate 1 being the mate that
// occurred first in the input.
type TemplatePaired struct {
	ScoreSum     int
	BestScore1   int
	Len1         int
	FwFlag1      byte
	Qual1        string
	EditXscript1 string
	BestScore2   int
	Len2         int
	FwFlag2      byte
	Qual2        string
	EditXscript2 string
	Upstream1    bool
	FragLen      int
}

// Fill sets all fields of the template, copying the quality strings
// and edit transcripts.
func (t *TemplatePaired) Fill(
	scoreSum, bestScore1, len1 int, fwFlag1 byte, qual1 string, editXscript1 []byte,
	bestScore2, len2 int, fwFlag2 byte, qual2 string, editXscript2 []byte,
	upstream1 bool, fragLen int) {
	t.ScoreSum = scoreSum
	t.BestScore1 = bestScore1
	t.Len1 = len1
	t.FwFlag1 = fwFlag1
	t.Qual1 = qual1
	t.EditXscript1 = string(editXscript1)
	t.BestScore2 = bestScore2
	t.Len2 = len2
	t.FwFlag2 = fwFlag2
	t.Qual2 = qual2
	t.EditXscript2 = string(editXscript2)
	t.Upstream1 = upstream1
	t.FragLen = fragLen
}

// Append appends the template as a CSV line, including the trailing
// newline.
func (t *TemplatePaired) Append(buf []byte) []byte {
	buf = appendInt(buf, t.ScoreSum)
	buf = append(buf, ',', t.FwFlag1, ',')
	buf = append(buf, t.Qual1...)
	buf = append(buf, ',')
	buf = appendInt(buf, t.BestScore1)
	buf = append(buf, ',')
	buf = appendInt(buf, t.Len1)
	buf = append(buf, ',')
	buf = append(buf, t.EditXscript1...)
	buf = append(buf, ',', t.FwFlag2, ',')
	buf = append(buf, t.Qual2...)
	buf = append(buf, ',')
	buf = appendInt(buf, t.BestScore2)
	buf = append(buf, ',')
	buf = appendInt(buf, t.Len2)
	buf = append(buf, ',')
	buf = append(buf, t.EditXscript2...)
	upstream := byte('F')
	if t.Upstream1 {
		upstream = 'T'
	}
	buf = append(buf, ',', upstream, ',')
	buf = appendInt(buf, t.FragLen)
	return append(buf, '\n')
}

func appendInt(buf []byte, value int) []byte {
	if value < 0 {
		buf = append(buf, '-')
		value = -value
	}
	if value >= 10 {
		buf = appendInt(buf, value/10)
	}
	return append(buf, byte(value%10)+'0')
}
