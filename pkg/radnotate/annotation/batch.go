package annotation

import (
	"path/filepath"
	"strings"
)

// ParseMany extracts a set of documents sequentially, keyed by file stem
// (base name without extension). A failed document is recorded in the error
// map and skipped; earlier successes are never invalidated by a later
// failure.
func ParseMany(paths []string) (map[string]Result, map[string]error) {
	results := make(map[string]Result, len(paths))
	failures := make(map[string]error)

	for _, path := range paths {
		res, err := ParseFile(path)
		if err != nil {
			failures[path] = err
			continue
		}
		results[fileStem(path)] = res
	}

	return results, failures
}

func fileStem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		return base[:i]
	}
	return base
}

// Stats summarizes a batch of extraction results.
type Stats struct {
	TotalFiles     int
	TotalRecords   int
	RecordsPerFile map[string]int
	EmptyFiles     []string
}

// Summarize computes batch statistics over extraction results.
func Summarize(results map[string]Result) Stats {
	stats := Stats{
		TotalFiles:     len(results),
		RecordsPerFile: make(map[string]int, len(results)),
	}

	for id, res := range results {
		count := len(res.Nodules)
		stats.TotalRecords += count
		stats.RecordsPerFile[id] = count
		if count == 0 {
			stats.EmptyFiles = append(stats.EmptyFiles, id)
		}
	}

	return stats
}
