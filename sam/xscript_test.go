package sam

import (
	"testing"
)

func parseAlignment(t *testing.T, cigar, mdz string) *Alignment {
	t.Helper()
	aln := &Alignment{CIGAR: cigar, mdz: mdz, Line: 1}
	if err := aln.parseCigar(); err != nil {
		t.Fatal(err)
	}
	if mdz != "" {
		if err := aln.parseMDZ(); err != nil {
			t.Fatal(err)
		}
		if !aln.cigarEqualX {
			if err := aln.cigarAndMDZToEditXscript(); err != nil {
				t.Fatal(err)
			}
		}
	}
	return aln
}

func TestEditXscriptDirect(t *testing.T) {
	aln := parseAlignment(t, "5S10=1X2I3=1D5=3S", "")
	want := "SSSSS==========XII===D=====SSS"
	if got := string(aln.EditXscript); got != want {
		t.Errorf("direct edit transcript: got %v, want %v", got, want)
	}
	if aln.LeftClip != 5 || aln.RightClip != 3 {
		t.Errorf("clips: got %v/%v, want 5/3", aln.LeftClip, aln.RightClip)
	}
}

func TestEditXscriptCombined(t *testing.T) {
	aln := parseAlignment(t, "5S11M2I3M1D5M3S", "10A3^G5")
	want := "SSSSS==========XII===D=====SSS"
	if got := string(aln.EditXscript); got != want {
		t.Errorf("combined edit transcript: got %v, want %v", got, want)
	}
}

func TestEditXscriptPathsAgree(t *testing.T) {
	direct := parseAlignment(t, "2S20=1X29=", "")
	combined := parseAlignment(t, "2S50M", "20A29")
	if string(direct.EditXscript) != string(combined.EditXscript) {
		t.Errorf("paths disagree: %v vs %v", string(direct.EditXscript), string(combined.EditXscript))
	}
}

func TestEditXscriptErrors(t *testing.T) {
	cases := []struct {
		name  string
		cigar string
		mdz   string
	}{
		{"M in extended CIGAR", "5=5M", ""},
		{"MD too short", "10M", "5"},
		{"MD not exhausted", "5M", "10"},
		{"deletion length mismatch", "5M1D5M", "5^AA5"},
		{"deletion inside match segment", "10M", "5^A4"},
		{"mismatch run beyond match segment", "1M2I1M", "0AA0"},
	}
	for _, c := range cases {
		aln := &Alignment{CIGAR: c.cigar, mdz: c.mdz, Line: 1}
		err := aln.parseCigar()
		if err == nil && c.mdz != "" {
			if err = aln.parseMDZ(); err != nil {
				t.Fatalf("%v: unexpected MD:Z parse error %v", c.name, err)
			}
			err = aln.cigarAndMDZToEditXscript()
		}
		if err == nil {
			t.Errorf("%v: expected an error", c.name)
			continue
		}
		if samErr, ok := err.(*Error); !ok || samErr.Kind != Malformed {
			t.Errorf("%v: expected a malformed input error, got %v", c.name, err)
		}
	}
}

func TestMDZMalformedCharacter(t *testing.T) {
	aln := &Alignment{CIGAR: "10M", mdz: "5*4", Line: 1}
	if err := aln.parseCigar(); err != nil {
		t.Fatal(err)
	}
	err := aln.parseMDZ()
	if err == nil {
		t.Fatal("expected an error for invalid MD:Z character")
	}
	if samErr, ok := err.(*Error); !ok || samErr.Kind != Malformed {
		t.Errorf("expected a malformed input error, got %v", err)
	}
}

func TestStackedAlignment(t *testing.T) {
	aln := parseAlignment(t, "2S3M2D2M2I3M", "1A1^GG0CC1C1")
	aln.SEQ = "CCAGTTTAAGAG"
	read, ref, err := aln.StackedAlignment()
	if err != nil {
		t.Fatal(err)
	}
	if read != "AGT--TTAAGAG" {
		t.Errorf("stacked read: got %v", read)
	}
	if ref != "AATGGCC--GCG" {
		t.Errorf("stacked ref: got %v", ref)
	}
}

// The reconciler subdivides side-channel runs; a second derivation
// from the same record must see them unconsumed.
func TestSideChannelReusable(t *testing.T) {
	aln := parseAlignment(t, "11M", "5A5")
	aln.SEQ = "AAAAAGAAAAA"
	first := string(aln.EditXscript)
	read1, ref1, err := aln.StackedAlignment()
	if err != nil {
		t.Fatal(err)
	}
	read2, ref2, err := aln.StackedAlignment()
	if err != nil {
		t.Fatal(err)
	}
	if read1 != read2 || ref1 != ref2 {
		t.Errorf("stacked alignment not reproducible: %v/%v vs %v/%v", read1, ref1, read2, ref2)
	}
	if first != "=====X=====" {
		t.Errorf("edit transcript: got %v", first)
	}
	if ref1 != "AAAAAAAAAAA" {
		t.Errorf("stacked ref: got %v", ref1)
	}
}

func TestStackedAlignmentRequiresMDZ(t *testing.T) {
	aln := parseAlignment(t, "5=", "")
	aln.SEQ = "ACGTA"
	if _, _, err := aln.StackedAlignment(); err == nil {
		t.Error("expected a missing signal error")
	} else if samErr, ok := err.(*Error); !ok || samErr.Kind != MissingSignal {
		t.Errorf("expected a missing signal error, got %v", err)
	}
}
