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

/*
Package features turns a SAM file into training data for a mapping
quality model. Every primary record is routed to one of four
categories: unpaired (u), bad-end (b, one aligned end of a pair whose
opposite end failed to align), concordant pair (c), and discordant
pair (d). Per category, it writes feature rows as flat binary float64
matrices with column headers and row counts in accompanying meta
files, and collects reservoir-sampled simulation templates.

Mates of a pair must be adjacent in the input, as produced by the
supported aligners. The pass is strictly sequential and single-pass,
so arbitrarily large inputs are processed in constant memory.
*/
package features

import (
	"bufio"
	"io"
	"log"
	"strings"

	"github.com/exascience/tandem/internal"
	"github.com/exascience/tandem/model"
	"github.com/exascience/tandem/sam"
)

// A Config controls a feature extraction run.
type Config struct {
	// Wiggle is the maximum distance between reported and true
	// position for an alignment to count as correct.
	Wiggle int

	// InputModelSize bounds the number of simulation templates kept in
	// memory per category.
	InputModelSize int

	// MaxFragLen caps the inferred fragment length of a pair.
	MaxFragLen int

	// Seed seeds the reservoir sampling.
	Seed int64

	// Features enables the binary feature matrix outputs, InputModel
	// the template CSV outputs, and KeepTemplates the in-memory
	// template reservoirs.
	Features      bool
	InputModel    bool
	KeepTemplates bool

	// Prefix and ModPrefix are the output path prefixes for the
	// feature matrices and the template CSV files.
	Prefix    string
	ModPrefix string
}

// DefaultWiggle, DefaultMaxFragLen, and DefaultInputModelSize are the
// Config defaults.
const (
	DefaultWiggle         = 30
	DefaultMaxFragLen     = 50000
	DefaultInputModelSize = 1 << 30
)

// Stats are the per-file record counts of a pass.
type Stats struct {
	NLine, NHead, NSec, NSupp   int
	NTypMismatch                int
	NUnp                        int
	NUnpAligned, NUnpUnaligned  int
	NPair                       int
	NPairConc, NPairDisc        int
	NPairBadEnd, NPairUnaligned int
}

// Log reports the counts the way they appear in the tool's log
// output, nested by record kind.
func (s *Stats) Log() {
	log.Printf("  %v lines", s.NLine)
	log.Printf("  %v header lines", s.NHead)
	log.Printf("  %v secondary alignments ignored", s.NSec)
	log.Printf("  %v supplementary alignments ignored", s.NSupp)
	log.Printf("  %v alignment type didn't match simulated type", s.NTypMismatch)
	log.Printf("  %v unpaired", s.NUnp)
	if s.NUnp > 0 {
		log.Printf("    %v aligned", s.NUnpAligned)
		log.Printf("    %v unaligned", s.NUnpUnaligned)
	}
	log.Printf("  %v paired-end", s.NPair)
	if s.NPair > 0 {
		log.Printf("    %v concordant", s.NPairConc)
		log.Printf("    %v discordant", s.NPairDisc)
		log.Printf("    %v bad-end", s.NPairBadEnd)
		log.Printf("    %v unaligned", s.NPairUnaligned)
	}
}

// A categoryOut bundles the output files of one category. Each writer
// is nil when its output is not requested.
type categoryOut struct {
	rec  *recWriter
	meta *metaFile
	mod  *modWriter
}

// An Extractor owns the output files and template reservoirs of a
// feature extraction run, across all input files.
type Extractor struct {
	config                 Config
	u, b, c, d             categoryOut
	uTemplates, bTemplates *model.UnpairedSample
	cTemplates, dTemplates *model.PairedSample
	rowBuf                 []float64
	ztz1Buf, ztz2Buf       []float64
}

// NewExtractor creates the output files named by the Config and the
// template reservoirs when requested.
func NewExtractor(config Config) *Extractor {
	ex := &Extractor{config: config}
	if config.Features {
		for _, cat := range []struct {
			out *categoryOut
			tag string
		}{{&ex.u, "u"}, {&ex.b, "b"}, {&ex.c, "c"}, {&ex.d, "d"}} {
			cat.out.rec = newRecWriter(config.Prefix + "_rec_" + cat.tag + ".npy")
			cat.out.meta = newMetaFile(config.Prefix + "_rec_" + cat.tag + ".meta")
		}
	}
	if config.InputModel {
		ex.u.mod = newModWriter(config.ModPrefix + "_mod_u.csv")
		ex.b.mod = newModWriter(config.ModPrefix + "_mod_b.csv")
		ex.c.mod = newModWriter(config.ModPrefix + "_mod_c.csv")
		ex.d.mod = newModWriter(config.ModPrefix + "_mod_d.csv")
	}
	if config.KeepTemplates {
		rng := internal.NewRand(config.Seed)
		ex.uTemplates = model.NewUnpairedSample(config.InputModelSize, rng)
		ex.bTemplates = model.NewUnpairedSample(config.InputModelSize, rng)
		ex.cTemplates = model.NewPairedSample(config.InputModelSize, rng)
		ex.dTemplates = model.NewPairedSample(config.InputModelSize, rng)
	}
	return ex
}

// Close flushes and closes all output files, returning the first
// error encountered.
func (ex *Extractor) Close() error {
	var err error
	for _, out := range []*categoryOut{&ex.u, &ex.b, &ex.c, &ex.d} {
		if out.rec != nil {
			if cerr := out.rec.close(); err == nil {
				err = cerr
			}
		}
		if out.meta != nil {
			out.meta.close()
		}
		if out.mod != nil {
			if cerr := out.mod.close(); err == nil {
				err = cerr
			}
		}
	}
	return err
}

// LogTemplates reports how many simulation templates were sampled per
// category, out of how many offered.
func (ex *Extractor) LogTemplates() {
	if ex.uTemplates == nil {
		return
	}
	log.Println("Input model in memory:")
	if ex.uTemplates.Offered() > 0 {
		log.Printf("  Saved %v unpaired templates (out of %v)", len(ex.uTemplates.Templates()), ex.uTemplates.Offered())
	}
	if ex.bTemplates.Offered() > 0 {
		log.Printf("  Saved %v bad-end templates (out of %v)", len(ex.bTemplates.Templates()), ex.bTemplates.Offered())
	}
	if ex.cTemplates.Offered() > 0 {
		log.Printf("  Saved %v concordant pair templates (out of %v)", len(ex.cTemplates.Templates()), ex.cTemplates.Offered())
	}
	if ex.dTemplates.Offered() > 0 {
		log.Printf("  Saved %v discordant pair templates (out of %v)", len(ex.dTemplates.Templates()), ex.dTemplates.Offered())
	}
}

// Pass reads one SAM file and routes every primary record to its
// category. Mates are matched by adjacency: a paired record is held
// until the next primary record, which must be its opposite end;
// paired records from different templates in adjacent positions are a
// protocol violation. Per-file meta lines are written at the end of
// the pass, since only then are the row counts known.
func (ex *Extractor) Pass(reader io.Reader) (*Stats, error) {
	stats := new(Stats)
	var sc sam.StringScanner
	var alns [2]sam.Alignment
	var valid [2]bool
	cur := 0
	var uHead, bHead, cHead, dHead bool
	var uNztz, bNztz, cNztz, dNztz int
	in := bufio.NewReader(reader)
	for {
		line, readErr := in.ReadString('\n')
		if len(line) == 0 {
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				return stats, sam.NewError(sam.IO, stats.NLine, "could not read SAM line: %v", readErr)
			}
			continue
		}
		if readErr != nil && readErr != io.EOF {
			return stats, sam.NewError(sam.IO, stats.NLine, "could not read SAM line: %v", readErr)
		}
		stats.NLine++
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if line[0] == '@' {
			stats.NHead++
			continue
		}
		slot := cur
		aln := &alns[slot]
		if err := aln.ParseStart(&sc, line, stats.NLine); err != nil {
			return stats, err
		}
		if aln.IsSecondary() {
			stats.NSec++
			continue
		}
		if aln.IsSupplementary() {
			stats.NSupp++
			continue
		}
		valid[slot] = false
		cur ^= 1
		prevSlot := slot ^ 1
		prev := &alns[prevSlot]
		if hint, ok := sam.ParseSyntheticHint(aln.QNAME); ok {
			aln.Typ = hint
			aln.HasTyp = true
		}
		var mate1, mate2 *sam.Alignment
		if aln.MateFlag() != '0' && valid[prevSlot] {
			switch {
			case aln.MateFlag() == '1' && prev.MateFlag() == '2':
				mate1, mate2 = aln, prev
			case aln.MateFlag() == '2' && prev.MateFlag() == '1':
				mate1, mate2 = prev, aln
			default:
				return stats, sam.NewError(sam.Malformed, stats.NLine,
					"consecutive records %v and %v are both paired-end but not from opposite ends",
					prev.QNAME, aln.QNAME)
			}
			valid[prevSlot] = false
			stats.NPair++
		}

		if aln.MateFlag() == '0' {
			stats.NUnp++
			switch {
			case !aln.IsAligned():
				stats.NUnpUnaligned++
			case !aln.HasTyp || strings.HasPrefix(aln.Typ, "u"):
				if stats.NUnpAligned == 0 && ex.u.rec != nil {
					uHead = true
					uNztz = aln.RawZTZCount()
				}
				stats.NUnpAligned++
				if err := ex.emitUnpaired(aln, &sc, 0, &ex.u, ex.uTemplates); err != nil {
					return stats, err
				}
			default:
				stats.NTypMismatch++
			}
		} else if mate1 != nil {
			switch {
			case !mate1.IsAligned() && !mate2.IsAligned():
				stats.NPairUnaligned++
			case mate1.IsAligned() != mate2.IsAligned():
				alm, opp := mate1, mate2
				if !alm.IsAligned() {
					alm, opp = mate2, mate1
				}
				if !alm.HasTyp || (len(alm.Typ) >= 2 && alm.Typ[0] == 'b' && alm.Typ[1] == alm.MateFlag()) {
					if stats.NPairBadEnd == 0 && ex.b.rec != nil {
						bHead = true
						bNztz = alm.RawZTZCount()
					}
					stats.NPairBadEnd++
					if err := ex.emitUnpaired(alm, &sc, opp.RawReadLength(), &ex.b, ex.bTemplates); err != nil {
						return stats, err
					}
				} else {
					stats.NTypMismatch++
				}
			default:
				if mate1.IsProper() != mate2.IsProper() {
					return stats, sam.NewError(sam.Malformed, stats.NLine,
						"mates of %v disagree about proper pairing", mate1.QNAME)
				}
				if mate1.IsProper() {
					if !mate1.HasTyp || strings.HasPrefix(mate1.Typ, "c") {
						if stats.NPairConc == 0 && ex.c.rec != nil {
							cHead = true
							cNztz = mate1.RawZTZCount()
						}
						stats.NPairConc++
						if err := ex.emitPaired(mate1, mate2, &sc, &ex.c, ex.cTemplates); err != nil {
							return stats, err
						}
					} else {
						stats.NTypMismatch++
					}
				} else {
					if !mate1.HasTyp || strings.HasPrefix(mate1.Typ, "d") {
						if stats.NPairDisc == 0 && ex.d.rec != nil {
							dHead = true
							dNztz = mate1.RawZTZCount()
						}
						stats.NPairDisc++
						if err := ex.emitPaired(mate1, mate2, &sc, &ex.d, ex.dTemplates); err != nil {
							return stats, err
						}
					} else {
						stats.NTypMismatch++
					}
				}
			}
		} else {
			valid[slot] = true
		}
	}

	var err error
	if uHead {
		err = writeUnpairedMeta(ex.u.meta, uNztz, stats.NUnpAligned)
	}
	if bHead && err == nil {
		err = writeUnpairedMeta(ex.b.meta, bNztz, stats.NPairBadEnd)
	}
	if cHead && err == nil {
		err = writePairedMeta(ex.c.meta, cNztz, 2*stats.NPairConc)
	}
	if dHead && err == nil {
		err = writePairedMeta(ex.d.meta, dNztz, 2*stats.NPairDisc)
	}
	stats.Log()
	return stats, err
}
