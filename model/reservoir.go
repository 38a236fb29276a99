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

package model

import (
	"github.com/exascience/tandem/internal"
)

// A reservoir keeps a uniform sample of at most k offered items, per
// Vitter's algorithm R. The zero value is not usable; a reservoir is
// always embedded in a typed sample below.
type reservoir struct {
	k   int
	n   int
	rng *internal.Rand
}

// offer accounts for one more item and returns the slot index it
// should occupy, which is >= k when the item is not sampled.
func (r *reservoir) offer() int {
	r.n++
	if r.n <= r.k {
		return r.n - 1
	}
	return r.rng.Intn(r.n)
}

// Offered returns the total number of items offered so far, sampled
// or not.
func (r *reservoir) Offered() int { return r.n }

// An UnpairedSample is a reservoir of unpaired simulation templates.
type UnpairedSample struct {
	reservoir
	templates []TemplateUnpaired
}

// NewUnpairedSample returns a sample of at most k templates.
func NewUnpairedSample(k int, rng *internal.Rand) *UnpairedSample {
	return &UnpairedSample{reservoir: reservoir{k: k, rng: rng}}
}

// Offer accounts for one more template and returns the slot the
// caller should fill, or nil when the template is not sampled.
func (s *UnpairedSample) Offer() *TemplateUnpaired {
	slot := s.offer()
	if slot >= s.k {
		return nil
	}
	if slot == len(s.templates) {
		s.templates = append(s.templates, TemplateUnpaired{})
	}
	return &s.templates[slot]
}

// Templates returns the sampled templates.
func (s *UnpairedSample) Templates() []TemplateUnpaired { return s.templates }

// A PairedSample is a reservoir of paired simulation templates.
type PairedSample struct {
	reservoir
	templates []TemplatePaired
}

// NewPairedSample returns a sample of at most k templates.
func NewPairedSample(k int, rng *internal.Rand) *PairedSample {
	return &PairedSample{reservoir: reservoir{k: k, rng: rng}}
}

// Offer accounts for one more template and returns the slot the
// caller should fill, or nil when the template is not sampled.
func (s *PairedSample) Offer() *TemplatePaired {
	slot := s.offer()
	if slot >= s.k {
		return nil
	}
	if slot == len(s.templates) {
		s.templates = append(s.templates, TemplatePaired{})
	}
	return &s.templates[slot]
}

// Templates returns the sampled templates.
func (s *PairedSample) Templates() []TemplatePaired { return s.templates }
