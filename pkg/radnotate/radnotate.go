// Package radnotate is the annotation analysis engine facade. It wires the
// vocabulary normalizer, structure classifier, field and keyword extractors,
// auto-analyzer, and search engine behind one object, with every dependency
// injected through Options. There is no global state; construct one Engine
// per vocabulary and share it.
package radnotate

import (
	"context"
	"fmt"

	"github.com/radnotate/radnotate/pkg/radnotate/analysis"
	"github.com/radnotate/radnotate/pkg/radnotate/annotation"
	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
	"github.com/radnotate/radnotate/pkg/radnotate/keywords"
	"github.com/radnotate/radnotate/pkg/radnotate/scandb"
	"github.com/radnotate/radnotate/pkg/radnotate/search"
	"github.com/radnotate/radnotate/pkg/radnotate/structure"
	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

// Options configures an Engine. A nil Normalizer means an empty vocabulary;
// a nil ScanSource means the scan-database capability is absent (check
// HasScanSource before calling scan methods).
type Options struct {
	Normalizer     *vocab.Normalizer
	KeywordOptions *keywords.Options
	ScanSource     scandb.Source
}

// Engine bundles the full analysis pipeline.
type Engine struct {
	normalizer *vocab.Normalizer
	extractor  *keywords.Extractor
	analyzer   *analysis.Analyzer
	searcher   *search.Engine
	scans      scandb.Source
}

// New creates an Engine with the given dependencies.
func New(opts Options) *Engine {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = vocab.New(vocab.Dictionary{})
	}

	var extractor *keywords.Extractor
	if opts.KeywordOptions != nil {
		extractor = keywords.NewExtractorWithOptions(normalizer, *opts.KeywordOptions)
	} else {
		extractor = keywords.NewExtractor(normalizer)
	}

	return &Engine{
		normalizer: normalizer,
		extractor:  extractor,
		analyzer:   analysis.New(analysis.Options{Normalizer: normalizer, Extractor: extractor}),
		searcher:   search.NewEngine(normalizer),
		scans:      opts.ScanSource,
	}
}

// Close releases the scan source, if any.
func (e *Engine) Close() error {
	if e.scans == nil {
		return nil
	}
	return e.scans.Close()
}

// Normalizer exposes the shared vocabulary normalizer.
func (e *Engine) Normalizer() *vocab.Normalizer {
	return e.normalizer
}

// Classify reports a document's parse case.
func (e *Engine) Classify(path string) (structure.ParseCase, error) {
	return structure.ClassifyFile(path)
}

// Extract parses a document into header fields and nodule records.
func (e *Engine) Extract(path string) (annotation.Result, error) {
	return annotation.ParseFile(path)
}

// Keywords extracts categorized keywords from a document.
func (e *Engine) Keywords(path string) ([]keywords.Keyword, error) {
	return e.extractor.ExtractFromFile(path)
}

// Analyze runs the full pipeline on one document and returns its canonical
// form with entities populated.
func (e *Engine) Analyze(path string) (analysis.CanonicalDocument, error) {
	return e.analyzer.Analyze(path)
}

// AnalyzeBatch analyzes many documents, collecting per-file failures.
// progress may be nil.
func (e *Engine) AnalyzeBatch(paths []string, progress analysis.ProgressFunc) (map[string]analysis.CanonicalDocument, map[string]error) {
	return e.analyzer.AnalyzeBatch(paths, true, progress)
}

// IndexKeywords adds extracted keywords to the search index.
func (e *Engine) IndexKeywords(kws []keywords.Keyword) {
	entries := make([]search.Entry, len(kws))
	for i, kw := range kws {
		entries[i] = search.Entry{Text: kw.Text, Category: kw.Category, Context: kw.Context}
	}
	e.searcher.Index(entries)
}

// Search queries the keyword index with synonym expansion.
func (e *Engine) Search(query string, expandSynonyms bool, minRelevance float64) search.Response {
	return e.searcher.Search(query, expandSynonyms, minRelevance)
}

// HasScanSource reports whether the optional scan-database capability is
// wired in. Scan methods fail with ErrStoreUnavailable when it is not.
func (e *Engine) HasScanSource() bool {
	return e.scans != nil
}

// ScanDocuments converts scans from the scan database into canonical
// documents.
func (e *Engine) ScanDocuments(ctx context.Context, f scandb.Filter) ([]analysis.CanonicalDocument, map[string]error, error) {
	if e.scans == nil {
		return nil, nil, fmt.Errorf("scan database: %w", internalerr.ErrStoreUnavailable)
	}
	return scandb.ConvertBatch(ctx, e.scans, f, nil)
}
