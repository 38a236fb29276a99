package model

import (
	"testing"

	"github.com/exascience/tandem/internal"
)

func TestSampleBelowCapacity(t *testing.T) {
	sample := NewUnpairedSample(4, internal.NewRand(1))
	for i := 1; i <= 3; i++ {
		slot := sample.Offer()
		if slot == nil {
			t.Fatalf("template %v not sampled below capacity", i)
		}
		slot.BestScore = i
	}
	if sample.Offered() != 3 {
		t.Errorf("offered: got %v", sample.Offered())
	}
	templates := sample.Templates()
	if len(templates) != 3 {
		t.Fatalf("sampled: got %v", len(templates))
	}
	for i, tmpl := range templates {
		if tmpl.BestScore != i+1 {
			t.Errorf("template %v: got score %v", i, tmpl.BestScore)
		}
	}
}

func TestSampleAboveCapacity(t *testing.T) {
	sample := NewPairedSample(2, internal.NewRand(1))
	for i := 1; i <= 10; i++ {
		if slot := sample.Offer(); slot != nil {
			slot.ScoreSum = i
		}
	}
	if sample.Offered() != 10 {
		t.Errorf("offered: got %v", sample.Offered())
	}
	if len(sample.Templates()) != 2 {
		t.Errorf("sampled: got %v", len(sample.Templates()))
	}
}

// Every offered item must be retained with probability k/n, no matter
// where in the stream it occurs. Each trial offers a fresh shuffle of
// n distinguishable items to a reservoir of k slots; per item, the
// retention count over all trials is binomial with mean trials*k/n and
// standard deviation about 13, so the bounds leave ample room.
func TestSampleUniform(t *testing.T) {
	const k, n, trials = 10, 100, 2000
	rng := internal.NewRand(1)
	counts := make([]int, n)
	for trial := 0; trial < trials; trial++ {
		sample := NewUnpairedSample(k, rng)
		for _, value := range rng.Perm(n) {
			if slot := sample.Offer(); slot != nil {
				slot.BestScore = value
			}
		}
		if sample.Offered() != n {
			t.Fatalf("offered: got %v", sample.Offered())
		}
		templates := sample.Templates()
		if len(templates) != k {
			t.Fatalf("sampled: got %v", len(templates))
		}
		for _, tmpl := range templates {
			counts[tmpl.BestScore]++
		}
	}
	for value, count := range counts {
		if count < 120 || count > 280 {
			t.Errorf("item %v retained %v times out of %v trials", value, count, trials)
		}
	}
}

func TestTemplateUnpairedAppend(t *testing.T) {
	var tmpl TemplateUnpaired
	tmpl.Fill(60, 5, 'T', '1', 8, "IIIII", []byte("==X=="))
	want := "60,T,IIIII,5,1,8,==X==\n"
	if got := string(tmpl.Append(nil)); got != want {
		t.Errorf("unpaired template line: got %q, want %q", got, want)
	}
}

func TestTemplatePairedAppend(t *testing.T) {
	var tmpl TemplatePaired
	tmpl.Fill(
		95,
		-5, 5, 'T', "IIIII", []byte("====="),
		100, 4, 'F', "JJJJ", []byte("=X=="),
		true, 249)
	want := "95,T,IIIII,-5,5,=====,F,JJJJ,100,4,=X==,T,249\n"
	if got := string(tmpl.Append(nil)); got != want {
		t.Errorf("paired template line: got %q, want %q", got, want)
	}
}
