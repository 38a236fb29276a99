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

package features

import (
	"github.com/exascience/tandem/model"
	"github.com/exascience/tandem/sam"
)

// emitUnpaired fully parses an aligned record, labels it, and writes
// its feature row and simulation template. It serves both the
// unpaired category, with oppLen 0, and the bad-end category, where
// oppLen is the read length of the unaligned opposite end.
//
// The feature row is
//
//	id, len, clip, alqual, clipqual, olen, ztz..., mapq, correct
func (ex *Extractor) emitUnpaired(aln *sam.Alignment, sc *sam.StringScanner, oppLen int, out *categoryOut, sample *model.UnpairedSample) error {
	if err := aln.ParseFromRNameOn(sc); err != nil {
		return err
	}
	aln.SetCorrectness(ex.config.Wiggle)
	ztz, err := aln.ParseExtra(sc)
	if err != nil {
		return err
	}
	aln.BestScore = bestScore(ztz)
	fwFlag := aln.FwFlag()

	if out.mod != nil {
		var tmpl model.TemplateUnpaired
		tmpl.Fill(aln.BestScore, aln.Len(), fwFlag, aln.MateFlag(), oppLen, aln.QUAL, aln.EditXscript)
		if err := out.mod.writeLine(tmpl.Append(out.mod.buf[:0])); err != nil {
			return err
		}
	}

	if sample != nil {
		if slot := sample.Offer(); slot != nil {
			slot.Fill(aln.BestScore, aln.Len(), fwFlag, aln.MateFlag(), oppLen, aln.QUAL, aln.EditXscript)
		}
	}

	if out.rec != nil {
		row := append(ex.rowBuf[:0],
			float64(aln.Line),
			float64(aln.Len()),
			float64(aln.LeftClip+aln.RightClip),
			float64(aln.TotAlignedQual),
			float64(aln.TotClippedQual),
			float64(oppLen))
		row, err = decodeZTZ(ztz, row, aln.Line)
		ex.rowBuf = row
		if err != nil {
			return err
		}
		row = append(row, float64(aln.MAPQ), float64(aln.Correct))
		ex.rowBuf = row
		if err := out.rec.writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

// emitPaired fully parses both mates of an aligned pair, labels them,
// and writes one feature row per mate plus one simulation template
// per pair. The mate that occurred first in the input is treated as
// mate 1 throughout.
//
// Each mate's feature row leads with its own columns and carries the
// opposite mate's columns and the fragment length as context:
//
//	id, len, clip, alqual, clipqual, ztz...,
//	olen, oclip, oalqual, oclipqual, fraglen, oztz...,
//	mapq, correct
func (ex *Extractor) emitPaired(aln1, aln2 *sam.Alignment, sc *sam.StringScanner, out *categoryOut, sample *model.PairedSample) error {
	if aln2.Line < aln1.Line {
		aln1, aln2 = aln2, aln1
	}
	if err := aln1.ParseFromRNameOn(sc); err != nil {
		return err
	}
	if err := aln2.ParseFromRNameOn(sc); err != nil {
		return err
	}
	aln1.SetCorrectness(ex.config.Wiggle)
	aln2.SetCorrectness(ex.config.Wiggle)
	ztz1, err := aln1.ParseExtra(sc)
	if err != nil {
		return err
	}
	ztz2, err := aln2.ParseExtra(sc)
	if err != nil {
		return err
	}
	fragLen := sam.FragmentLength(aln1, aln2)
	if fragLen > ex.config.MaxFragLen {
		fragLen = ex.config.MaxFragLen
	}
	upstream1 := aln1.POS < aln2.POS
	aln1.BestScore = bestScore(ztz1)
	aln2.BestScore = bestScore(ztz2)
	fwFlag1 := aln1.FwFlag()
	fwFlag2 := aln2.FwFlag()

	if out.rec != nil {
		if ex.ztz1Buf, err = decodeZTZ(ztz1, ex.ztz1Buf[:0], aln1.Line); err != nil {
			return err
		}
		if ex.ztz2Buf, err = decodeZTZ(ztz2, ex.ztz2Buf[:0], aln2.Line); err != nil {
			return err
		}
		len1 := float64(aln1.Len())
		clip1 := float64(aln1.LeftClip + aln1.RightClip)
		alqual1 := float64(aln1.TotAlignedQual)
		clipqual1 := float64(aln1.TotClippedQual)
		len2 := float64(aln2.Len())
		clip2 := float64(aln2.LeftClip + aln2.RightClip)
		alqual2 := float64(aln2.TotAlignedQual)
		clipqual2 := float64(aln2.TotClippedQual)
		fragLenF := float64(fragLen)

		row := append(ex.rowBuf[:0], float64(aln1.Line), len1, clip1, alqual1, clipqual1)
		row = append(row, ex.ztz1Buf...)
		row = append(row, len2, clip2, alqual2, clipqual2, fragLenF)
		row = append(row, ex.ztz2Buf...)
		row = append(row, float64(aln1.MAPQ), float64(aln1.Correct))
		ex.rowBuf = row
		if err := out.rec.writeRow(row); err != nil {
			return err
		}

		row = append(ex.rowBuf[:0], float64(aln2.Line), len2, clip2, alqual2, clipqual2)
		row = append(row, ex.ztz2Buf...)
		row = append(row, len1, clip1, alqual1, clipqual1, fragLenF)
		row = append(row, ex.ztz1Buf...)
		row = append(row, float64(aln2.MAPQ), float64(aln2.Correct))
		ex.rowBuf = row
		if err := out.rec.writeRow(row); err != nil {
			return err
		}
	}

	if out.mod != nil {
		var tmpl model.TemplatePaired
		tmpl.Fill(
			aln1.BestScore+aln2.BestScore,
			aln1.BestScore, aln1.Len(), fwFlag1, aln1.QUAL, aln1.EditXscript,
			aln2.BestScore, aln2.Len(), fwFlag2, aln2.QUAL, aln2.EditXscript,
			upstream1, fragLen)
		if err := out.mod.writeLine(tmpl.Append(out.mod.buf[:0])); err != nil {
			return err
		}
	}

	if sample != nil {
		if slot := sample.Offer(); slot != nil {
			slot.Fill(
				aln1.BestScore+aln2.BestScore,
				aln1.BestScore, aln1.Len(), fwFlag1, aln1.QUAL, aln1.EditXscript,
				aln2.BestScore, aln2.Len(), fwFlag2, aln2.QUAL, aln2.EditXscript,
				upstream1, fragLen)
		}
	}
	return nil
}
