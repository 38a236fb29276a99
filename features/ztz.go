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
	"math"
	"strconv"
	"strings"

	"github.com/exascience/tandem/sam"
)

// decodeZTZ appends the comma-delimited fields of a ZT:Z value to row
// as float64 covariates. The "NA" marker becomes NaN, and plain
// integers take a fast path that avoids the float parser.
func decodeZTZ(ztz string, row []float64, line int) ([]float64, error) {
	for {
		comma := strings.IndexByte(ztz, ',')
		token := ztz
		if comma >= 0 {
			token = ztz[:comma]
		}
		if strings.HasPrefix(token, "NA") {
			row = append(row, math.NaN())
		} else {
			value := 0
			neg := false
			i := 0
			if i < len(token) && token[i] == '-' {
				neg = true
				i++
			}
			float := false
			for ; i < len(token); i++ {
				c := token[i]
				if c >= '0' && c <= '9' {
					value = value*10 + int(c-'0')
				} else if c == '.' {
					float = true
					break
				} else {
					return row, sam.NewError(sam.Malformed, line, "unexpected character in ZT:Z field %v", ztz)
				}
			}
			if float {
				d, err := strconv.ParseFloat(token, 64)
				if err != nil {
					return row, sam.NewError(sam.Malformed, line, "invalid number in ZT:Z field %v", ztz)
				}
				row = append(row, d)
			} else if neg {
				row = append(row, float64(-value))
			} else {
				row = append(row, float64(value))
			}
		}
		if comma < 0 {
			return row, nil
		}
		ztz = ztz[comma+1:]
	}
}

// bestScore parses the leading integer of a ZT:Z value, which is the
// aligner's best alignment score for the read.
func bestScore(ztz string) int {
	value := 0
	neg := false
	i := 0
	if i < len(ztz) && ztz[i] == '-' {
		neg = true
		i++
	}
	for ; i < len(ztz); i++ {
		c := ztz[i]
		if c < '0' || c > '9' {
			break
		}
		value = value*10 + int(c-'0')
	}
	if neg {
		return -value
	}
	return value
}
