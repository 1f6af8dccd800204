// radnotate-search indexes a keyword corpus (JSONL, as produced by
// radnotate-analyze --keywords) and answers boolean queries against it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/radnotate/radnotate/internal/keywordio"
	"github.com/radnotate/radnotate/pkg/radnotate/search"
	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

type responseJSON struct {
	Query         string       `json:"query"`
	TotalResults  int          `json:"total_results"`
	ExpandedTerms []string     `json:"expanded_terms"`
	Results       []resultJSON `json:"results"`
}

type resultJSON struct {
	KeywordText    string   `json:"keyword_text"`
	NormalizedForm string   `json:"normalized_form"`
	Category       string   `json:"category"`
	Relevance      float64  `json:"relevance_score"`
	MatchedTerms   []string `json:"matched_query_terms"`
}

func main() {
	var (
		input        = flag.String("input", "", "Keyword JSONL file (required)")
		vocabCfg     = flag.String("vocab", "", "Optional: vocabulary dictionary YAML")
		noExpand     = flag.Bool("no-expand", false, "Disable synonym expansion")
		minRelevance = flag.Float64("min-relevance", 0.0, "Minimum relevance score")
		limit        = flag.Int("limit", 20, "Maximum results to print")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("--input required")
	}
	query := strings.Join(flag.Args(), " ")
	if query == "" {
		log.Fatal("usage: radnotate-search --input keywords.jsonl QUERY")
	}

	normalizer, err := loadNormalizer(*vocabCfg)
	if err != nil {
		log.Fatalf("load vocabulary: %v", err)
	}

	entries, err := keywordio.LoadFromJSONL(*input)
	if err != nil {
		log.Fatalf("load keywords: %v", err)
	}

	eng := search.NewEngine(normalizer)
	indexEntries := make([]search.Entry, len(entries))
	for i, e := range entries {
		indexEntries[i] = search.Entry{Text: e.Text, Category: e.Category, Context: e.Context}
	}
	eng.Index(indexEntries)
	log.Printf("indexed %d keywords (%d canonical entries)", len(entries), eng.Size())

	resp := eng.Search(query, !*noExpand, *minRelevance)
	if len(resp.Results) > *limit {
		resp.Results = resp.Results[:*limit]
	}

	out := responseJSON{
		Query:         resp.Query,
		TotalResults:  resp.TotalResults,
		ExpandedTerms: resp.ExpandedTerms,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, resultJSON{
			KeywordText:    r.KeywordText,
			NormalizedForm: r.NormalizedForm,
			Category:       r.Category,
			Relevance:      r.Relevance,
			MatchedTerms:   r.MatchedTerms,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encode response: %v", err)
	}
	fmt.Println(string(data))
}

func loadNormalizer(path string) (*vocab.Normalizer, error) {
	if path == "" {
		return vocab.New(vocab.Dictionary{}), nil
	}
	return vocab.Load(path)
}
