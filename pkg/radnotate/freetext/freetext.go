// Package freetext extracts keywords from narrative report text: findings
// sections, impressions, and HTML-formatted report bodies. Unlike the
// structured extractor it works on unsegmented prose, so it leans on the
// vocabulary's multi-word phrase detection and stopword filtering.
package freetext

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"

	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

// Keyword is one term found in free text, with a context window around the
// occurrence and an occurrence count after consolidation.
type Keyword struct {
	Text      string
	Canonical string
	Context   string
	Frequency int
}

// contextWindow is how many bytes of surrounding text each keyword keeps.
const contextWindow = 50

// Extractor pulls vocabulary terms out of narrative text.
type Extractor struct {
	normalizer *vocab.Normalizer
}

// NewExtractor creates a free-text extractor backed by the given normalizer.
func NewExtractor(normalizer *vocab.Normalizer) *Extractor {
	if normalizer == nil {
		normalizer = vocab.New(vocab.Dictionary{})
	}
	return &Extractor{normalizer: normalizer}
}

// Extract finds multi-word vocabulary phrases and known single-word terms in
// text. Phrases are matched as units; remaining single tokens count only if
// the vocabulary knows them (synonym or multi-word entry), so arbitrary
// prose words do not become keywords. Duplicates are consolidated with
// summed frequencies, first occurrence order preserved.
func (e *Extractor) Extract(text string) []Keyword {
	var raw []Keyword

	for _, m := range e.normalizer.DetectMultiWordTerms(text) {
		raw = append(raw, Keyword{
			Text:      m.Term,
			Canonical: e.normalizer.Normalize(m.Term),
			Context:   contextAround(text, m.Start, m.End),
			Frequency: 1,
		})
	}

	for _, tok := range tokenize(text) {
		if e.normalizer.IsStopword(tok) || !e.normalizer.HasSynonyms(tok) {
			continue
		}
		raw = append(raw, Keyword{
			Text:      tok,
			Canonical: e.normalizer.Normalize(tok),
			Frequency: 1,
		})
	}

	return consolidate(raw)
}

// ExtractHTML strips markup first, then extracts from the remaining text.
func (e *Extractor) ExtractHTML(markup string) []Keyword {
	return e.Extract(StripHTML(markup))
}

// StripHTML returns the text content of an HTML fragment. Unparseable input
// falls back to the raw string.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}

// tokenize splits text into lowercased word tokens. Hyphens stay inside
// tokens so terms like "ground-glass" survive as one word.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func contextAround(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// consolidate merges keywords sharing a lowercased text, summing frequencies
// and keeping the first occurrence's context.
func consolidate(keywords []Keyword) []Keyword {
	index := make(map[string]int)
	var out []Keyword
	for _, kw := range keywords {
		key := strings.ToLower(kw.Text)
		if i, ok := index[key]; ok {
			out[i].Frequency += kw.Frequency
			continue
		}
		index[key] = len(out)
		out = append(out, kw)
	}
	return out
}
