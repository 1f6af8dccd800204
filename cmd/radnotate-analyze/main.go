// radnotate-analyze runs the auto-analysis pipeline over a set of annotation
// XML files and writes a JSON report: one canonical document per input plus
// aggregate statistics. Failed files are reported, not fatal.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/radnotate/radnotate/internal/keywordio"
	"github.com/radnotate/radnotate/pkg/radnotate"
	"github.com/radnotate/radnotate/pkg/radnotate/analysis"
	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

type report struct {
	Documents []documentJSON `json:"documents"`
	Failures  []failureJSON  `json:"failures"`
	Summary   summaryJSON    `json:"summary"`
}

type documentJSON struct {
	Path          string                     `json:"path"`
	ID            string                     `json:"id"`
	Title         string                     `json:"title"`
	StudyUID      string                     `json:"study_instance_uid"`
	SeriesUID     string                     `json:"series_instance_uid"`
	TotalEntities int                        `json:"total_entities"`
	Nodules       int                        `json:"nodules"`
	Confidence    *float64                   `json:"confidence,omitempty"`
	Document      analysis.CanonicalDocument `json:"document"`
}

type failureJSON struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type summaryJSON struct {
	TotalDocuments int            `json:"total_documents"`
	TotalNodules   int            `json:"total_nodules"`
	TotalEntities  int            `json:"total_entities"`
	EntitiesByType map[string]int `json:"entities_by_type"`
	ModalityCounts map[string]int `json:"modality_counts"`
	MeanConfidence float64        `json:"mean_confidence"`
}

func main() {
	var (
		inputDir = flag.String("input", "", "Directory of annotation XML files (required)")
		vocabCfg = flag.String("vocab", "", "Optional: vocabulary dictionary YAML")
		output   = flag.String("output", "", "Output JSON path (default stdout)")
		kwOut    = flag.String("keywords", "", "Optional: write extracted keywords as JSONL for radnotate-search")
		quiet    = flag.Bool("quiet", false, "Suppress per-file progress logging")
	)
	flag.Parse()

	if *inputDir == "" {
		log.Fatal("--input required")
	}

	normalizer, err := loadNormalizer(*vocabCfg)
	if err != nil {
		log.Fatalf("load vocabulary: %v", err)
	}

	paths, err := filepath.Glob(filepath.Join(*inputDir, "*.xml"))
	if err != nil {
		log.Fatalf("list input: %v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("no XML files under %s", *inputDir)
	}
	sort.Strings(paths)

	eng := radnotate.New(radnotate.Options{Normalizer: normalizer})
	defer eng.Close()

	if !*quiet {
		log.Printf("analyzing %d files", len(paths))
	}

	docs := make(map[string]analysis.CanonicalDocument)
	failures := make(map[string]error)
	for i, path := range paths {
		if !*quiet {
			log.Printf("[%d/%d] %s", i+1, len(paths), filepath.Base(path))
		}
		doc, err := eng.Analyze(path)
		if err != nil {
			failures[path] = err
			continue
		}
		docs[path] = doc
	}

	if *kwOut != "" {
		if err := writeKeywords(eng, paths, failures, *kwOut); err != nil {
			log.Fatalf("write keywords: %v", err)
		}
	}

	rep := buildReport(paths, docs, failures)

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		log.Fatalf("encode report: %v", err)
	}
	if *output == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("write report: %v", err)
	}

	if len(failures) > 0 {
		log.Printf("%d of %d files failed", len(failures), len(paths))
	}
}

func loadNormalizer(path string) (*vocab.Normalizer, error) {
	if path == "" {
		return vocab.New(vocab.Dictionary{}), nil
	}
	return vocab.Load(path)
}

func writeKeywords(eng *radnotate.Engine, paths []string, failures map[string]error, out string) error {
	var entries []keywordio.Entry
	for _, path := range paths {
		if _, failed := failures[path]; failed {
			continue
		}
		kws, err := eng.Keywords(path)
		if err != nil {
			return err
		}
		for _, kw := range kws {
			entries = append(entries, keywordio.Entry{
				Text:       kw.Text,
				Category:   kw.Category,
				Context:    kw.Context,
				SourceFile: kw.SourceFile,
				NoduleID:   kw.NoduleID,
			})
		}
	}
	return keywordio.SaveToJSONL(out, entries)
}

func buildReport(paths []string, docs map[string]analysis.CanonicalDocument, failures map[string]error) report {
	var rep report
	for _, path := range paths {
		if err, ok := failures[path]; ok {
			rep.Failures = append(rep.Failures, failureJSON{Path: path, Error: err.Error()})
			continue
		}
		doc := docs[path]
		rep.Documents = append(rep.Documents, documentJSON{
			Path:          path,
			ID:            doc.ID,
			Title:         doc.Metadata.Title,
			StudyUID:      doc.StudyInstanceUID,
			SeriesUID:     doc.SeriesInstanceUID,
			TotalEntities: doc.Entities.Total(),
			Nodules:       len(doc.Nodules),
			Confidence:    doc.Extraction.OverallConfidence,
			Document:      doc,
		})
	}

	s := analysis.Summarize(docs)
	rep.Summary = summaryJSON{
		TotalDocuments: s.TotalDocuments,
		TotalNodules:   s.TotalNodules,
		TotalEntities:  s.TotalEntities,
		EntitiesByType: s.EntitiesByType,
		ModalityCounts: s.ModalityCounts,
		MeanConfidence: s.MeanConfidence,
	}
	return rep
}
