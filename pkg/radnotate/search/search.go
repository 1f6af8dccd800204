// Package search answers boolean keyword queries over an index of normalized
// keywords, with optional synonym expansion and relevance scoring.
package search

import (
	"regexp"
	"sort"
	"strings"

	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

// Operator is the boolean mode of a parsed query.
type Operator string

const (
	OperatorAnd    Operator = "AND"
	OperatorOr     Operator = "OR"
	OperatorSingle Operator = "SINGLE"
)

// ParsedQuery is the structured form of a query string.
type ParsedQuery struct {
	Operator Operator
	Terms    []string
}

var (
	andPattern = regexp.MustCompile(`(?i)\s+AND\s+`)
	orPattern  = regexp.MustCompile(`(?i)\s+OR\s+`)
)

// Parser splits boolean queries on AND/OR connectives.
//
// AND is checked before OR: a query containing both connectives is treated
// as AND throughout, and the OR branch never sees it. Parenthesized or
// nested expressions are not supported.
type Parser struct{}

// NewParser creates a query parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse converts a raw query string into operator and lowercased terms.
// Multiple bare words separated by whitespace are an implicit AND; a single
// token parses as SINGLE.
func (p *Parser) Parse(query string) ParsedQuery {
	query = strings.TrimSpace(query)

	if andPattern.MatchString(query) {
		return ParsedQuery{Operator: OperatorAnd, Terms: splitTerms(andPattern, query)}
	}
	if orPattern.MatchString(query) {
		return ParsedQuery{Operator: OperatorOr, Terms: splitTerms(orPattern, query)}
	}
	if fields := strings.Fields(query); len(fields) > 1 {
		terms := make([]string, len(fields))
		for i, f := range fields {
			terms[i] = strings.ToLower(f)
		}
		return ParsedQuery{Operator: OperatorAnd, Terms: terms}
	}
	return ParsedQuery{Operator: OperatorSingle, Terms: []string{strings.ToLower(query)}}
}

func splitTerms(pattern *regexp.Regexp, query string) []string {
	var terms []string
	for _, part := range pattern.Split(query, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			terms = append(terms, strings.ToLower(part))
		}
	}
	return terms
}

// Entry is one keyword to index: its surface text plus the category and
// context it was extracted with.
type Entry struct {
	Text     string
	Category string
	Context  string
}

// Result is a single search hit: one indexed surface form with the relevance
// of its canonical entry.
type Result struct {
	KeywordText    string
	NormalizedForm string
	Category       string
	Relevance      float64
	MatchedTerms   []string
}

// Response carries results plus query metadata.
type Response struct {
	Query         string
	TotalResults  int
	Results       []Result
	ExpandedTerms []string
}

// indexEntry is the set of surface forms observed for one canonical key,
// each remembering the category it was first indexed under.
type indexEntry struct {
	categoryByForm map[string]string
}

// Engine indexes keywords under their canonical form and answers boolean
// queries. Indexing is additive; Search never mutates the index, so an
// engine is safe for concurrent searches once indexing is done.
type Engine struct {
	normalizer *vocab.Normalizer
	parser     *Parser
	index      map[string]*indexEntry
	order      []string
}

// NewEngine creates a search engine backed by the given normalizer.
func NewEngine(normalizer *vocab.Normalizer) *Engine {
	if normalizer == nil {
		normalizer = vocab.New(vocab.Dictionary{})
	}
	return &Engine{
		normalizer: normalizer,
		parser:     NewParser(),
		index:      make(map[string]*indexEntry),
	}
}

// Index adds entries to the index, keying each surface text under its
// canonical form. Re-indexing the same entries is a no-op.
func (e *Engine) Index(entries []Entry) {
	for _, entry := range entries {
		canonical := e.normalizer.Normalize(entry.Text)
		ie, ok := e.index[canonical]
		if !ok {
			ie = &indexEntry{categoryByForm: make(map[string]string)}
			e.index[canonical] = ie
			e.order = append(e.order, canonical)
		}
		if _, seen := ie.categoryByForm[entry.Text]; !seen {
			ie.categoryByForm[entry.Text] = entry.Category
		}
	}
}

// Reset drops the entire index.
func (e *Engine) Reset() {
	e.index = make(map[string]*indexEntry)
	e.order = nil
}

// Size reports the number of canonical entries in the index.
func (e *Engine) Size() int {
	return len(e.index)
}

// Search runs a boolean query against the index.
//
// Matching is substring-based: a term matches a canonical entry if it occurs
// in the canonical key or in any stored surface form. Under AND every
// expanded term must match; under OR and SINGLE, scanning stops at the first
// matching term, so relevance reflects only that first match. Relevance is
// matched terms over the expanded term set size.
//
// Results are sorted by descending relevance; ties keep indexing order, and
// surface forms within one canonical entry are emitted lexicographically.
func (e *Engine) Search(query string, expandSynonyms bool, minRelevance float64) Response {
	parsed := e.parser.Parse(query)
	expanded := e.expandTerms(parsed.Terms, expandSynonyms)

	var results []Result
	for _, canonical := range e.order {
		ie := e.index[canonical]
		matched := matchEntry(parsed.Operator, expanded, canonical, ie)
		if len(matched) == 0 {
			continue
		}

		relevance := float64(len(matched)) / float64(max(len(expanded), 1))
		if relevance < minRelevance {
			continue
		}

		forms := make([]string, 0, len(ie.categoryByForm))
		for form := range ie.categoryByForm {
			forms = append(forms, form)
		}
		sort.Strings(forms)
		for _, form := range forms {
			results = append(results, Result{
				KeywordText:    form,
				NormalizedForm: canonical,
				Category:       ie.categoryByForm[form],
				Relevance:      relevance,
				MatchedTerms:   matched,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})

	return Response{
		Query:         query,
		TotalResults:  len(results),
		Results:       results,
		ExpandedTerms: expanded,
	}
}

// expandTerms dedupes query terms and, when enabled, appends every synonym
// form of each term. Insertion order is preserved so relevance and match
// reporting stay deterministic.
func (e *Engine) expandTerms(terms []string, expandSynonyms bool) []string {
	var expanded []string
	seen := make(map[string]struct{})
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		expanded = append(expanded, term)
	}

	for _, term := range terms {
		add(term)
		if expandSynonyms {
			for _, form := range e.normalizer.AllForms(term) {
				add(strings.ToLower(form))
			}
		}
	}
	return expanded
}

func matchEntry(op Operator, expanded []string, canonical string, ie *indexEntry) []string {
	switch op {
	case OperatorAnd:
		for _, term := range expanded {
			if !termMatches(term, canonical, ie) {
				return nil
			}
		}
		matched := make([]string, len(expanded))
		copy(matched, expanded)
		return matched
	default: // OR and SINGLE take the first matching term.
		for _, term := range expanded {
			if termMatches(term, canonical, ie) {
				return []string{term}
			}
		}
		return nil
	}
}

func termMatches(term, canonical string, ie *indexEntry) bool {
	if strings.Contains(canonical, term) {
		return true
	}
	for form := range ie.categoryByForm {
		if strings.Contains(form, term) {
			return true
		}
	}
	return false
}
