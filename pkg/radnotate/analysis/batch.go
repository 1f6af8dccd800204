package analysis

// ProgressFunc reports batch progress between items. index is 1-based and
// the callback runs synchronously on the calling goroutine.
type ProgressFunc func(index, total int, path string)

// AnalyzeBatch analyzes each path, collecting failures instead of aborting.
// The returned documents are keyed by input path; failures map path to the
// error that excluded it. progress may be nil.
func (a *Analyzer) AnalyzeBatch(paths []string, populateEntities bool, progress ProgressFunc) (map[string]CanonicalDocument, map[string]error) {
	docs := make(map[string]CanonicalDocument)
	failures := make(map[string]error)
	for i, path := range paths {
		if progress != nil {
			progress(i+1, len(paths), path)
		}
		doc, err := a.AnalyzeDocument(path, populateEntities)
		if err != nil {
			failures[path] = err
			continue
		}
		docs[path] = doc
	}
	return docs, failures
}

// Summary aggregates a set of canonical documents.
type Summary struct {
	TotalDocuments  int
	TotalNodules    int
	TotalEntities   int
	EntitiesByType  map[string]int
	ModalityCounts  map[string]int
	ScoredDocuments int
	MeanConfidence  float64
}

// Summarize aggregates entity and nodule counts across documents.
// MeanConfidence averages only documents that carry a confidence score;
// ScoredDocuments reports how many did.
func Summarize(docs map[string]CanonicalDocument) Summary {
	s := Summary{
		TotalDocuments: len(docs),
		EntitiesByType: make(map[string]int),
		ModalityCounts: make(map[string]int),
	}

	confidenceSum := 0.0
	for _, doc := range docs {
		s.TotalNodules += len(doc.Nodules)
		if doc.Modality != "" {
			s.ModalityCounts[doc.Modality]++
		}
		for name, list := range doc.Entities.ByType() {
			if len(list) > 0 {
				s.EntitiesByType[name] += len(list)
			}
			s.TotalEntities += len(list)
		}
		if doc.Extraction.OverallConfidence != nil {
			s.ScoredDocuments++
			confidenceSum += *doc.Extraction.OverallConfidence
		}
	}

	if s.ScoredDocuments > 0 {
		s.MeanConfidence = round2(confidenceSum / float64(s.ScoredDocuments))
	}
	return s
}
