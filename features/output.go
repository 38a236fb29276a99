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
	"bufio"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/exascience/tandem/internal"
	"github.com/exascience/tandem/sam"
	"github.com/willf/bitset"
)

// A recWriter writes feature rows as flat little-endian float64
// matrices. It tracks which columns ever held a NaN covariate, so
// that the model training stage can be warned about them.
type recWriter struct {
	name   string
	file   *os.File
	writer *bufio.Writer
	buf    []byte
	naCols *bitset.BitSet
	nCols  int
	drift  bool
}

func newRecWriter(name string) *recWriter {
	file := internal.FileCreate(name)
	return &recWriter{
		name:   name,
		file:   file,
		writer: bufio.NewWriter(file),
		naCols: bitset.New(64),
	}
}

func (w *recWriter) writeRow(row []float64) error {
	// The column count of the first row becomes the header of the
	// matrix; later rows are trusted to match, as the aligner emits a
	// fixed ZT:Z layout. Warn once when they do not.
	if w.nCols == 0 {
		w.nCols = len(row)
	} else if len(row) != w.nCols && !w.drift {
		w.drift = true
		log.Printf("Warning: record file %v: row with %v columns after a first row with %v; the ZT:Z layout changed mid-file", w.name, len(row), w.nCols)
	}
	buf := w.buf[:0]
	var scratch [8]byte
	for i, value := range row {
		if math.IsNaN(value) {
			w.naCols.Set(uint(i))
		}
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(value))
		buf = append(buf, scratch[:]...)
	}
	w.buf = buf
	n, err := w.writer.Write(buf)
	if err != nil {
		if n < len(buf) {
			return sam.NewError(sam.PartialWrite, 0, "could not write all %v doubles to record file %v: %v", len(row), w.name, err)
		}
		return sam.NewError(sam.IO, 0, "could not write to record file %v: %v", w.name, err)
	}
	return nil
}

func (w *recWriter) close() error {
	var err error
	if flushErr := w.writer.Flush(); flushErr != nil {
		err = sam.NewError(sam.IO, 0, "could not flush record file %v: %v", w.name, flushErr)
	}
	internal.Close(w.file)
	if count := w.naCols.Count(); count > 0 {
		log.Println(w.name, "has", count, "feature columns with NA values")
	}
	return err
}

// A modWriter writes simulation templates as CSV lines.
type modWriter struct {
	name   string
	file   *os.File
	writer *bufio.Writer
	buf    []byte
}

func newModWriter(name string) *modWriter {
	file := internal.FileCreate(name)
	return &modWriter{
		name:   name,
		file:   file,
		writer: bufio.NewWriter(file),
	}
}

func (w *modWriter) writeLine(buf []byte) error {
	w.buf = buf
	if _, err := w.writer.Write(buf); err != nil {
		return sam.NewError(sam.IO, 0, "could not write to template file %v: %v", w.name, err)
	}
	return nil
}

func (w *modWriter) close() error {
	var err error
	if flushErr := w.writer.Flush(); flushErr != nil {
		err = sam.NewError(sam.IO, 0, "could not flush template file %v: %v", w.name, flushErr)
	}
	internal.Close(w.file)
	return err
}

// A metaFile holds the column headers and row counts of a feature
// matrix, one line per input SAM file.
type metaFile struct {
	name string
	file *os.File
}

func newMetaFile(name string) *metaFile {
	return &metaFile{name: name, file: internal.FileCreate(name)}
}

func (f *metaFile) close() {
	internal.Close(f.file)
}

func (f *metaFile) writeLine(buf []byte) error {
	if _, err := f.file.Write(buf); err != nil {
		return sam.NewError(sam.IO, 0, "could not write to meta file %v: %v", f.name, err)
	}
	return nil
}

// writeUnpairedMeta appends the column header line for an unpaired
// feature matrix, ending in the row count.
func writeUnpairedMeta(meta *metaFile, nztz, nrow int) error {
	buf := internal.ReserveByteBuffer()
	defer func() { internal.ReleaseByteBuffer(buf) }()
	buf = append(buf, "id,len,clip,alqual,clipqual,olen"...)
	for i := 0; i < nztz; i++ {
		buf = append(buf, fmt.Sprintf(",ztz%d", i)...)
	}
	buf = append(buf, fmt.Sprintf(",mapq,correct,%d\n", nrow)...)
	return meta.writeLine(buf)
}

// writePairedMeta appends the column header line for a paired feature
// matrix, ending in the row count. Each mate contributes a row, so
// the count is twice the number of pairs.
func writePairedMeta(meta *metaFile, nztz, nrow int) error {
	buf := internal.ReserveByteBuffer()
	defer func() { internal.ReleaseByteBuffer(buf) }()
	buf = append(buf, "id,len,clip,alqual,clipqual"...)
	for i := 0; i < nztz; i++ {
		buf = append(buf, fmt.Sprintf(",ztz_%d", i)...)
	}
	buf = append(buf, ",olen,oclip,oalqual,oclipqual,fraglen"...)
	for i := 0; i < nztz; i++ {
		buf = append(buf, fmt.Sprintf(",oztz_%d", i)...)
	}
	buf = append(buf, fmt.Sprintf(",mapq,correct,%d\n", nrow)...)
	return meta.writeLine(buf)
}
