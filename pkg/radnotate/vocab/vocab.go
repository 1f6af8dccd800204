package vocab

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
)

// Dictionary is the on-disk vocabulary format: synonym groups keyed by their
// canonical term, abbreviation expansions, fixed multi-word phrases, and
// stopwords.
//
// Expected YAML layout:
//
//	synonyms:
//	  pulmonary: [lung, pneumonic, pulmonic]
//	  nodule: [lesion, mass, growth, tumor]
//	abbreviations:
//	  ct: computed tomography
//	  ggo: ground glass opacity
//	multi_word_terms:
//	  - ground glass opacity
//	  - computed tomography
//	stopwords: [the, of, with]
type Dictionary struct {
	Synonyms       map[string][]string `yaml:"synonyms"`
	Abbreviations  map[string]string   `yaml:"abbreviations"`
	MultiWordTerms []string            `yaml:"multi_word_terms"`
	Stopwords      []string            `yaml:"stopwords"`
}

// Normalizer maps surface forms of medical terms to canonical forms.
//
// All lookup structures are built once at construction and never mutated, so
// a Normalizer is safe for concurrent readers.
type Normalizer struct {
	// surface form (lowercased, canonical included) -> canonical form
	synonymMap map[string]string

	// canonical form -> all surface forms (canonical first)
	groups map[string][]string

	// abbreviation -> expansion, both lowercased
	abbreviations map[string]string

	multiWordSet map[string]struct{}
	// multi-word phrases sorted by descending length so that longer phrases
	// win over their sub-phrases during detection
	multiWordByLen []string

	stopwords map[string]struct{}
}

// New builds a Normalizer from an in-memory dictionary.
func New(dict Dictionary) *Normalizer {
	n := &Normalizer{
		synonymMap:    make(map[string]string),
		groups:        make(map[string][]string),
		abbreviations: make(map[string]string, len(dict.Abbreviations)),
		multiWordSet:  make(map[string]struct{}, len(dict.MultiWordTerms)),
		stopwords:     make(map[string]struct{}, len(dict.Stopwords)),
	}

	for canonical, surfaces := range dict.Synonyms {
		canonical = strings.ToLower(canonical)
		group := []string{canonical}
		n.synonymMap[canonical] = canonical
		seen := map[string]bool{canonical: true}
		for _, s := range surfaces {
			s = strings.ToLower(s)
			n.synonymMap[s] = canonical
			if !seen[s] {
				group = append(group, s)
				seen[s] = true
			}
		}
		n.groups[canonical] = group
	}

	for abbr, full := range dict.Abbreviations {
		n.abbreviations[strings.ToLower(abbr)] = strings.ToLower(full)
	}

	for _, term := range dict.MultiWordTerms {
		term = strings.ToLower(term)
		if _, ok := n.multiWordSet[term]; ok {
			continue
		}
		n.multiWordSet[term] = struct{}{}
		n.multiWordByLen = append(n.multiWordByLen, term)
	}
	sort.Slice(n.multiWordByLen, func(i, j int) bool {
		a, b := n.multiWordByLen[i], n.multiWordByLen[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	for _, w := range dict.Stopwords {
		n.stopwords[strings.ToLower(w)] = struct{}{}
	}

	return n
}

// Load reads a YAML dictionary file and builds a Normalizer.
//
// A missing file is not an error: the normalizer falls back to all-empty
// structures and every term normalizes to itself. An unparsable file is a
// construction failure.
func Load(path string) (*Normalizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(Dictionary{}), nil
		}
		return nil, err
	}

	var dict Dictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}

	return New(dict), nil
}

// Normalize returns the canonical form of a term: lowercase, trim, expand a
// known abbreviation, then resolve through the synonym map. Unknown terms
// pass through lowercased and trimmed.
//
// Examples:
//   - Normalize("lung") -> "pulmonary"
//   - Normalize("CT") -> "computed tomography"
//   - Normalize("unknown") -> "unknown"
func (n *Normalizer) Normalize(term string) string {
	return n.normalize(term, true)
}

// NormalizeLiteral normalizes without abbreviation expansion.
func (n *Normalizer) NormalizeLiteral(term string) string {
	return n.normalize(term, false)
}

func (n *Normalizer) normalize(term string, expandAbbreviations bool) string {
	term = strings.ToLower(strings.TrimSpace(term))

	if expandAbbreviations {
		if full, ok := n.abbreviations[term]; ok {
			term = full
		}
	}

	if canonical, ok := n.synonymMap[term]; ok {
		return canonical
	}

	return term
}

// AllForms returns the canonical form of a term plus every surface form in
// its synonym group, as an unordered set. A term outside the dictionary
// yields a singleton containing only its normalized form.
func (n *Normalizer) AllForms(term string) []string {
	canonical := n.Normalize(term)
	if group, ok := n.groups[canonical]; ok {
		forms := make([]string, len(group))
		copy(forms, group)
		return forms
	}
	return []string{canonical}
}

// HasSynonyms reports whether the term belongs to any synonym group.
func (n *Normalizer) HasSynonyms(term string) bool {
	_, ok := n.synonymMap[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// IsStopword reports whether a word is in the stopword set.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[strings.ToLower(word)]
	return ok
}

// FilterStopwords removes stopwords from a token list.
func (n *Normalizer) FilterStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !n.IsStopword(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// IsMultiWordTerm reports whether text matches a known multi-word phrase.
func (n *Normalizer) IsMultiWordTerm(text string) bool {
	_, ok := n.multiWordSet[strings.ToLower(text)]
	return ok
}

// TermMatch is a multi-word phrase occurrence. Offsets are byte positions
// into the scanned text.
type TermMatch struct {
	Term  string
	Start int
	End   int
}

// DetectMultiWordTerms scans text for every known multi-word phrase,
// case-insensitively, longest phrase first. A match is accepted only on word
// boundaries: the rune before the match (or start of text) and the rune after
// it (or end of text) must not be alphanumeric.
//
// Matches from distinct phrases may overlap; no cross-term deduplication is
// performed. Results are ordered by ascending start offset.
func (n *Normalizer) DetectMultiWordTerms(text string) []TermMatch {
	lower := strings.ToLower(text)
	var matches []TermMatch

	for _, term := range n.multiWordByLen {
		start := 0
		for {
			pos := strings.Index(lower[start:], term)
			if pos < 0 {
				break
			}
			pos += start
			end := pos + len(term)

			if boundaryBefore(lower, pos) && boundaryAfter(lower, end) {
				matches = append(matches, TermMatch{Term: term, Start: pos, End: end})
			}
			start = pos + 1
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})
	return matches
}

func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:pos])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, end int) bool {
	if end >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[end:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Stats reports the size of the loaded vocabulary.
type Stats struct {
	SynonymMappings int // surface forms in the synonym map
	SynonymGroups   int
	Abbreviations   int
	MultiWordTerms  int
	Stopwords       int
}

// Stats returns counts describing the loaded dictionary.
func (n *Normalizer) Stats() Stats {
	return Stats{
		SynonymMappings: len(n.synonymMap),
		SynonymGroups:   len(n.groups),
		Abbreviations:   len(n.abbreviations),
		MultiWordTerms:  len(n.multiWordSet),
		Stopwords:       len(n.stopwords),
	}
}
