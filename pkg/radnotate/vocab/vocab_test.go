package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
)

func testDictionary() Dictionary {
	return Dictionary{
		Synonyms: map[string][]string{
			"pulmonary": {"lung", "pneumonic", "pulmonic"},
			"nodule":    {"lesion", "mass", "growth", "tumor"},
		},
		Abbreviations: map[string]string{
			"ct":  "computed tomography",
			"ggo": "ground glass opacity",
		},
		MultiWordTerms: []string{
			"ground glass opacity",
			"ground glass",
			"computed tomography",
		},
		Stopwords: []string{"the", "of", "with"},
	}
}

func TestNormalize(t *testing.T) {
	n := New(testDictionary())

	tests := []struct {
		input string
		want  string
	}{
		{"lung", "pulmonary"},
		{"LUNG", "pulmonary"},
		{"  lung  ", "pulmonary"},
		{"pulmonary", "pulmonary"},
		{"CT", "computed tomography"},
		{"lesion", "nodule"},
		{"unknown term", "unknown term"},
	}

	for _, tt := range tests {
		if got := n.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(testDictionary())

	for _, term := range []string{"lung", "CT", "nodule", "something else", "GGO"} {
		once := n.Normalize(term)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", term, once, twice)
		}
	}
}

func TestNormalizeLiteralSkipsAbbreviations(t *testing.T) {
	n := New(testDictionary())

	if got := n.NormalizeLiteral("CT"); got != "ct" {
		t.Errorf("NormalizeLiteral('CT') = %q, want 'ct'", got)
	}
	if got := n.Normalize("CT"); got != "computed tomography" {
		t.Errorf("Normalize('CT') = %q, want 'computed tomography'", got)
	}
}

func TestAllForms(t *testing.T) {
	n := New(testDictionary())

	forms := n.AllForms("lung")
	want := map[string]bool{"pulmonary": false, "lung": false, "pneumonic": false, "pulmonic": false}
	if len(forms) != len(want) {
		t.Fatalf("AllForms('lung') returned %d forms, want %d: %v", len(forms), len(want), forms)
	}
	for _, f := range forms {
		if _, ok := want[f]; !ok {
			t.Errorf("AllForms('lung') contains unexpected form %q", f)
		}
		want[f] = true
	}
	for f, found := range want {
		if !found {
			t.Errorf("AllForms('lung') missing form %q", f)
		}
	}
}

func TestAllFormsContainsNormalized(t *testing.T) {
	n := New(testDictionary())

	for _, term := range []string{"lung", "tumor", "novel", "CT"} {
		normalized := n.Normalize(term)
		found := false
		for _, f := range n.AllForms(term) {
			if f == normalized {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("AllForms(%q) does not contain Normalize(%q) = %q", term, term, normalized)
		}
	}
}

func TestAllFormsUnknownTerm(t *testing.T) {
	n := New(testDictionary())

	forms := n.AllForms("zebra")
	if len(forms) != 1 || forms[0] != "zebra" {
		t.Errorf("AllForms('zebra') = %v, want ['zebra']", forms)
	}
}

func TestDetectMultiWordTerms(t *testing.T) {
	n := New(testDictionary())

	matches := n.DetectMultiWordTerms("patient has ground glass opacity")
	var hits []TermMatch
	for _, m := range matches {
		if m.Term == "ground glass opacity" {
			hits = append(hits, m)
		}
	}
	if len(hits) != 1 {
		t.Fatalf("expected exactly 1 'ground glass opacity' hit, got %d (%v)", len(hits), matches)
	}
	if hits[0].Start != 12 || hits[0].End != 32 {
		t.Errorf("hit at [%d,%d), want [12,32)", hits[0].Start, hits[0].End)
	}
}

func TestDetectMultiWordTermsBoundaries(t *testing.T) {
	n := New(testDictionary())

	// Left boundary violated: "subground" runs into the phrase.
	for _, m := range n.DetectMultiWordTerms("subground glass opacity") {
		if m.Term == "ground glass opacity" {
			t.Errorf("unexpected match for %q at %d", m.Term, m.Start)
		}
	}

	// Right boundary violated.
	for _, m := range n.DetectMultiWordTerms("a computed tomography5 scan") {
		if m.Term == "computed tomography" {
			t.Errorf("unexpected match for %q at %d", m.Term, m.Start)
		}
	}

	// Punctuation is a valid boundary.
	matches := n.DetectMultiWordTerms("findings: ground glass opacity, stable")
	found := false
	for _, m := range matches {
		if m.Term == "ground glass opacity" {
			found = true
		}
	}
	if !found {
		t.Error("expected match with punctuation boundaries")
	}
}

func TestDetectMultiWordTermsOverlap(t *testing.T) {
	n := New(testDictionary())

	// "ground glass" is a sub-phrase of "ground glass opacity". Both terms
	// are scanned independently, so spans from distinct terms may overlap:
	// the standalone occurrence matches once, and inside "ground glass
	// opacity" the word boundary after "glass" is a space, so the sub-phrase
	// matches there too.
	matches := n.DetectMultiWordTerms("ground glass seen near ground glass opacity")
	counts := map[string]int{}
	for _, m := range matches {
		counts[m.Term]++
	}
	if counts["ground glass opacity"] != 1 {
		t.Errorf("'ground glass opacity' matched %d times, want 1", counts["ground glass opacity"])
	}
	if counts["ground glass"] != 2 {
		t.Errorf("'ground glass' matched %d times, want 2", counts["ground glass"])
	}

	// Results sorted by start offset.
	for i := 1; i < len(matches); i++ {
		if matches[i].Start < matches[i-1].Start {
			t.Errorf("matches not sorted by start offset: %v", matches)
		}
	}
}

func TestStopwords(t *testing.T) {
	n := New(testDictionary())

	if !n.IsStopword("the") || !n.IsStopword("THE") {
		t.Error("expected 'the' to be a stopword")
	}
	if n.IsStopword("lung") {
		t.Error("'lung' should not be a stopword")
	}

	filtered := n.FilterStopwords([]string{"the", "lung", "of", "nodule"})
	if len(filtered) != 2 || filtered[0] != "lung" || filtered[1] != "nodule" {
		t.Errorf("FilterStopwords = %v, want [lung nodule]", filtered)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	n, err := Load(filepath.Join(t.TempDir(), "no-such-file.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	// Degraded but functional: identity normalization.
	if got := n.Normalize("Lung "); got != "lung" {
		t.Errorf("Normalize('Lung ') = %q, want 'lung'", got)
	}
	if stats := n.Stats(); stats.SynonymMappings != 0 {
		t.Errorf("empty normalizer has %d synonym mappings, want 0", stats.SynonymMappings)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("synonyms: [not: a: map"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed dictionary")
	}
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	content := `
synonyms:
  pulmonary: [lung, pneumonic]
abbreviations:
  ct: computed tomography
multi_word_terms:
  - ground glass opacity
stopwords: [the]
`
	path := filepath.Join(t.TempDir(), "terms.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := n.Normalize("lung"); got != "pulmonary" {
		t.Errorf("Normalize('lung') = %q, want 'pulmonary'", got)
	}
	if got := n.Normalize("CT"); got != "computed tomography" {
		t.Errorf("Normalize('CT') = %q, want 'computed tomography'", got)
	}
	if !n.IsMultiWordTerm("Ground Glass Opacity") {
		t.Error("expected multi-word term lookup to be case-insensitive")
	}
}
