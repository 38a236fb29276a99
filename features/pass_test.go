package features

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

const ztz14 = "60,1,5,8,0,0,50,1,1,0,500,500,1000,1000"

var (
	seq50  = strings.Repeat("A", 50)
	qual50 = strings.Repeat("I", 50)
)

func record(fields ...string) string {
	return strings.Join(fields, "\t")
}

// exampleInput exercises every category once: a header line, an
// unpaired aligned read, a secondary and a supplementary alignment, an
// unpaired unaligned read, a concordant pair, a fully unaligned pair,
// a pair with one unaligned end, and an unpaired read whose simulated
// type contradicts how it aligned.
func exampleInput() string {
	lines := []string{
		record("@HD", "VN:1.6", "SO:queryname"),
		record("u1", "0", "chr1", "1000", "60", "50M", "*", "0", "0", seq50, qual50, "NM:i:1", "MD:Z:20A29", "ZT:Z:"+ztz14),
		record("s1", "256", "chr1", "1000", "60", "50M", "*", "0", "0", seq50, qual50, "MD:Z:50", "ZT:Z:60"),
		record("s2", "2048", "chr1", "1000", "60", "50M", "*", "0", "0", seq50, qual50, "MD:Z:50", "ZT:Z:60"),
		record("u2", "4", "*", "0", "0", "*", "*", "0", "0", "ACGTACGT", "IIIIIIII"),
		record("c1", "99", "chr1", "1000", "60", "50M", "=", "1200", "250", seq50, qual50, "MD:Z:50", "ZT:Z:60,1,2"),
		record("c1", "147", "chr1", "1200", "60", "50M", "=", "1000", "-250", seq50, qual50, "MD:Z:50", "ZT:Z:60,1,2"),
		record("p1", "77", "*", "0", "0", "*", "*", "0", "0", "ACGTACGT", "IIIIIIII"),
		record("p1", "141", "*", "0", "0", "*", "*", "0", "0", "ACGTACGT", "IIIIIIII"),
		record("b1", "73", "chr1", "1000", "60", "50M", "*", "0", "0", seq50, qual50, "MD:Z:50", "ZT:Z:70,2"),
		record("b1", "133", "*", "0", "0", "*", "*", "0", "0", "ACGTACGT", "IIIIIIII"),
		record("!h!!chr1!+!999!55!c", "0", "chr1", "1000", "60", "50M", "*", "0", "0", seq50, qual50, "MD:Z:50", "ZT:Z:60"),
	}
	return strings.Join(lines, "\n") + "\n"
}

func readDoubles(t *testing.T, name string) []float64 {
	t.Helper()
	contents, err := ioutil.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if len(contents)%8 != 0 {
		t.Fatalf("%v: length %v is not a multiple of 8", name, len(contents))
	}
	doubles := make([]float64, len(contents)/8)
	for i := range doubles {
		doubles[i] = math.Float64frombits(binary.LittleEndian.Uint64(contents[8*i:]))
	}
	return doubles
}

func readText(t *testing.T, name string) string {
	t.Helper()
	contents, err := ioutil.ReadFile(name)
	if err != nil {
		t.Fatal(err)
	}
	return string(contents)
}

func checkDoubles(t *testing.T, name string, got, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("%v: got %v values, want %v", name, len(got), len(want))
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%v: value %v: got %v, want %v", name, i, got[i], want[i])
		}
	}
}

func TestPass(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "test")
	ex := NewExtractor(Config{
		Wiggle:         DefaultWiggle,
		InputModelSize: 100,
		MaxFragLen:     DefaultMaxFragLen,
		Seed:           1,
		Features:       true,
		InputModel:     true,
		KeepTemplates:  true,
		Prefix:         prefix,
		ModPrefix:      prefix,
	})
	stats, err := ex.Pass(strings.NewReader(exampleInput()))
	if err != nil {
		t.Fatal(err)
	}
	if err := ex.Close(); err != nil {
		t.Fatal(err)
	}

	want := Stats{
		NLine: 12, NHead: 1, NSec: 1, NSupp: 1,
		NTypMismatch: 1,
		NUnp:         3, NUnpAligned: 1, NUnpUnaligned: 1,
		NPair: 3, NPairConc: 1, NPairBadEnd: 1, NPairUnaligned: 1,
	}
	if *stats != want {
		t.Errorf("stats: got %+v, want %+v", *stats, want)
	}

	uRow := append([]float64{2, 50, 0, 1960, 0, 0},
		60, 1, 5, 8, 0, 0, 50, 1, 1, 0, 500, 500, 1000, 1000, 60, -1)
	checkDoubles(t, "rec_u", readDoubles(t, prefix+"_rec_u.npy"), uRow)

	bRow := []float64{10, 50, 0, 1960, 0, 8, 70, 2, 60, -1}
	checkDoubles(t, "rec_b", readDoubles(t, prefix+"_rec_b.npy"), bRow)

	cRows := append(
		[]float64{6, 50, 0, 1960, 0, 60, 1, 2, 50, 0, 1960, 0, 249, 60, 1, 2, 60, -1},
		7, 50, 0, 1960, 0, 60, 1, 2, 50, 0, 1960, 0, 249, 60, 1, 2, 60, -1)
	checkDoubles(t, "rec_c", readDoubles(t, prefix+"_rec_c.npy"), cRows)

	if doubles := readDoubles(t, prefix+"_rec_d.npy"); len(doubles) != 0 {
		t.Errorf("rec_d: got %v values, want none", len(doubles))
	}

	uMeta := "id,len,clip,alqual,clipqual,olen"
	for i := 0; i < 14; i++ {
		uMeta += fmt.Sprintf(",ztz%d", i)
	}
	uMeta += ",mapq,correct,1\n"
	if got := readText(t, prefix+"_rec_u.meta"); got != uMeta {
		t.Errorf("u meta: got %q, want %q", got, uMeta)
	}
	bMeta := "id,len,clip,alqual,clipqual,olen,ztz0,ztz1,mapq,correct,1\n"
	if got := readText(t, prefix+"_rec_b.meta"); got != bMeta {
		t.Errorf("b meta: got %q, want %q", got, bMeta)
	}
	cMeta := "id,len,clip,alqual,clipqual,ztz_0,ztz_1,ztz_2" +
		",olen,oclip,oalqual,oclipqual,fraglen,oztz_0,oztz_1,oztz_2,mapq,correct,2\n"
	if got := readText(t, prefix+"_rec_c.meta"); got != cMeta {
		t.Errorf("c meta: got %q, want %q", got, cMeta)
	}
	if got := readText(t, prefix+"_rec_d.meta"); got != "" {
		t.Errorf("d meta: got %q, want empty", got)
	}

	xscriptU := strings.Repeat("=", 20) + "X" + strings.Repeat("=", 29)
	uMod := "60,T," + qual50 + ",50,0,0," + xscriptU + "\n"
	if got := readText(t, prefix+"_mod_u.csv"); got != uMod {
		t.Errorf("u templates: got %q, want %q", got, uMod)
	}
	xscript50 := strings.Repeat("=", 50)
	bMod := "70,T," + qual50 + ",50,1,8," + xscript50 + "\n"
	if got := readText(t, prefix+"_mod_b.csv"); got != bMod {
		t.Errorf("b templates: got %q, want %q", got, bMod)
	}
	cMod := "120,T," + qual50 + ",60,50," + xscript50 +
		",F," + qual50 + ",60,50," + xscript50 + ",T,249\n"
	if got := readText(t, prefix+"_mod_c.csv"); got != cMod {
		t.Errorf("c templates: got %q, want %q", got, cMod)
	}
	if got := readText(t, prefix+"_mod_d.csv"); got != "" {
		t.Errorf("d templates: got %q, want empty", got)
	}

	if n := len(ex.uTemplates.Templates()); n != 1 {
		t.Errorf("unpaired templates in memory: got %v", n)
	}
	if n := len(ex.bTemplates.Templates()); n != 1 {
		t.Errorf("bad-end templates in memory: got %v", n)
	}
	if n := len(ex.cTemplates.Templates()); n != 1 {
		t.Errorf("concordant pair templates in memory: got %v", n)
	}
	if n := len(ex.dTemplates.Templates()); n != 0 {
		t.Errorf("discordant pair templates in memory: got %v", n)
	}
	if tmpl := ex.cTemplates.Templates()[0]; tmpl.ScoreSum != 120 || !tmpl.Upstream1 || tmpl.FragLen != 249 {
		t.Errorf("concordant pair template: got %+v", tmpl)
	}
}

// Pairing must work no matter which mate comes first; the mate on the
// earlier input line leads the pair in the outputs.
func TestPassMateOrderReversed(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "test")
	input := record("c1", "147", "chr1", "1200", "60", "50M", "=", "1000", "-250", seq50, qual50, "MD:Z:50", "ZT:Z:60,1,2") + "\n" +
		record("c1", "99", "chr1", "1000", "60", "50M", "=", "1200", "250", seq50, qual50, "MD:Z:50", "ZT:Z:60,1,2") + "\n"
	ex := NewExtractor(Config{
		Wiggle:         DefaultWiggle,
		InputModelSize: 100,
		MaxFragLen:     DefaultMaxFragLen,
		Features:       true,
		InputModel:     true,
		Prefix:         prefix,
		ModPrefix:      prefix,
	})
	stats, err := ex.Pass(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if err := ex.Close(); err != nil {
		t.Fatal(err)
	}
	if stats.NPair != 1 || stats.NPairConc != 1 {
		t.Errorf("stats: got %+v", *stats)
	}
	cRows := append(
		[]float64{1, 50, 0, 1960, 0, 60, 1, 2, 50, 0, 1960, 0, 249, 60, 1, 2, 60, -1},
		2, 50, 0, 1960, 0, 60, 1, 2, 50, 0, 1960, 0, 249, 60, 1, 2, 60, -1)
	checkDoubles(t, "rec_c", readDoubles(t, prefix+"_rec_c.npy"), cRows)
	xscript50 := strings.Repeat("=", 50)
	cMod := "120,F," + qual50 + ",60,50," + xscript50 +
		",T," + qual50 + ",60,50," + xscript50 + ",F,249\n"
	if got := readText(t, prefix+"_mod_c.csv"); got != cMod {
		t.Errorf("c templates: got %q, want %q", got, cMod)
	}
}

func TestPassAdjacencyViolation(t *testing.T) {
	input := record("x1", "73", "chr1", "1000", "60", "50M", "*", "0", "0", seq50, qual50, "MD:Z:50", "ZT:Z:60") + "\n" +
		record("x2", "73", "chr1", "2000", "60", "50M", "*", "0", "0", seq50, qual50, "MD:Z:50", "ZT:Z:60") + "\n"
	ex := NewExtractor(Config{Wiggle: DefaultWiggle, MaxFragLen: DefaultMaxFragLen})
	if _, err := ex.Pass(strings.NewReader(input)); err == nil {
		t.Error("expected an error for adjacent paired records from the same end")
	}
}

func TestPassProperDisagreement(t *testing.T) {
	input := record("y1", "67", "chr1", "1000", "60", "50M", "=", "1200", "250", seq50, qual50, "MD:Z:50", "ZT:Z:60") + "\n" +
		record("y1", "129", "chr1", "1200", "60", "50M", "=", "1000", "-250", seq50, qual50, "MD:Z:50", "ZT:Z:60") + "\n"
	ex := NewExtractor(Config{Wiggle: DefaultWiggle, MaxFragLen: DefaultMaxFragLen})
	if _, err := ex.Pass(strings.NewReader(input)); err == nil {
		t.Error("expected an error for mates that disagree about proper pairing")
	}
}
