package keywords

import "sort"

// TermCount pairs a keyword text with its occurrence count.
type TermCount struct {
	Text  string
	Count int
}

// Stats summarizes a keyword collection.
type Stats struct {
	Total      int
	Unique     int
	ByCategory map[string]int
	Top        []TermCount // up to ten most frequent texts
}

// Statistics computes summary counts for a keyword collection. Top entries
// are ordered by descending count, then lexicographic text for determinism.
func Statistics(kws []Keyword) Stats {
	stats := Stats{
		Total:      len(kws),
		ByCategory: make(map[string]int),
	}

	counts := make(map[string]int)
	for _, kw := range kws {
		stats.ByCategory[kw.Category]++
		counts[kw.Text]++
	}
	stats.Unique = len(counts)

	top := make([]TermCount, 0, len(counts))
	for text, count := range counts {
		top = append(top, TermCount{Text: text, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Text < top[j].Text
	})
	if len(top) > 10 {
		top = top[:10]
	}
	stats.Top = top

	return stats
}
