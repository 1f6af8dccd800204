// Package analysis orchestrates extraction into canonical documents: it runs
// field and keyword extraction, derives typed entities, and scores overall
// extraction confidence.
package analysis

import (
	"crypto/rand"
	"fmt"
	"math"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/radnotate/radnotate/pkg/radnotate/annotation"
	"github.com/radnotate/radnotate/pkg/radnotate/internalerr"
	"github.com/radnotate/radnotate/pkg/radnotate/keywords"
	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

// ParserVersion stamps every canonical document produced by this analyzer.
const ParserVersion = "0.5.0"

// autoProfileName tags documents produced by the automatic pipeline, as
// opposed to documents mapped through a user profile.
const autoProfileName = "xml_auto_extraction"

// EntityType classifies an extracted entity.
type EntityType string

const (
	EntityDate         EntityType = "DATE"
	EntityIdentifier   EntityType = "IDENTIFIER"
	EntityMedicalTerm  EntityType = "MEDICAL_TERM"
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
)

// Fixed per-type extraction confidences.
const (
	dateConfidence        = 0.99
	identifierConfidence  = 1.0
	medicalTermConfidence = 0.85
)

// Entity is a typed, confidence-scored fact extracted from a document.
type Entity struct {
	Type            EntityType
	Value           string
	NormalizedValue string
	Confidence      float64
	SourceField     string
	Metadata        map[string]string
}

// ExtractedEntities groups entities into the five fixed lists a canonical
// document carries. People and organizations are always empty for annotation
// input but are part of the document shape.
type ExtractedEntities struct {
	Dates         []Entity
	Identifiers   []Entity
	MedicalTerms  []Entity
	People        []Entity
	Organizations []Entity
}

// ByType returns the five fixed entity lists keyed by their summary names.
func (e *ExtractedEntities) ByType() map[string][]Entity {
	return map[string][]Entity{
		"dates":         e.Dates,
		"identifiers":   e.Identifiers,
		"medical_terms": e.MedicalTerms,
		"people":        e.People,
		"organizations": e.Organizations,
	}
}

// Total counts entities across all five lists.
func (e *ExtractedEntities) Total() int {
	total := 0
	for _, list := range e.ByType() {
		total += len(list)
	}
	return total
}

// NoduleData is one nodule entry on a canonical document.
type NoduleData struct {
	NoduleID        string
	Characteristics map[string]string
	ROICoords       []annotation.ROI
	ROICount        int
}

// DocumentMetadata describes the source document.
type DocumentMetadata struct {
	DocumentType string
	Title        string
	Date         string
}

// ExtractionMetadata stamps how and when a canonical document was produced.
// OverallConfidence is nil for producers that do not score extraction (the
// scan-database path); such documents are excluded from confidence averages.
type ExtractionMetadata struct {
	Timestamp         time.Time
	ProfileName       string
	ParserVersion     string
	OverallConfidence *float64
}

// CanonicalDocument is the normalized output of analysis: header metadata,
// nodules, entities, and an extraction-confidence score. It is built in full
// or not at all; a failed analysis returns no partial document.
type CanonicalDocument struct {
	ID                string
	Metadata          DocumentMetadata
	StudyInstanceUID  string
	SeriesInstanceUID string
	Modality          string
	Nodules           []NoduleData
	Entities          ExtractedEntities
	Extraction        ExtractionMetadata

	// Fields holds profile-specific passthrough values; the core never
	// interprets them.
	Fields map[string]string
}

// Analyzer runs the auto-analysis pipeline. Construct once and share; all
// state is read-only after construction.
type Analyzer struct {
	normalizer *vocab.Normalizer
	extractor  *keywords.Extractor
	entropy    *ulid.MonotonicEntropy
}

// Options configures an Analyzer. A nil Extractor gets a default one built
// from the normalizer.
type Options struct {
	Normalizer *vocab.Normalizer
	Extractor  *keywords.Extractor
}

// New creates an Analyzer with the given dependencies.
func New(opts Options) *Analyzer {
	normalizer := opts.Normalizer
	if normalizer == nil {
		normalizer = vocab.New(vocab.Dictionary{})
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = keywords.NewExtractor(normalizer)
	}
	return &Analyzer{
		normalizer: normalizer,
		extractor:  extractor,
		entropy:    ulid.Monotonic(rand.Reader, 0),
	}
}

// Analyze runs AnalyzeDocument with entity population enabled.
func (a *Analyzer) Analyze(path string) (CanonicalDocument, error) {
	return a.AnalyzeDocument(path, true)
}

// AnalyzeDocument extracts a document and assembles its canonical form.
//
// A document producing zero nodule records fails with ErrEmptyResult: unlike
// raw extraction, analysis requires something to analyze.
func (a *Analyzer) AnalyzeDocument(path string, populateEntities bool) (CanonicalDocument, error) {
	res, err := annotation.ParseFile(path)
	if err != nil {
		return CanonicalDocument{}, err
	}
	if len(res.Nodules) == 0 {
		return CanonicalDocument{}, fmt.Errorf("%s: %w", path, internalerr.ErrEmptyResult)
	}

	header := res.Header
	doc := CanonicalDocument{
		ID: ulid.MustNew(ulid.Now(), a.entropy).String(),
		Metadata: DocumentMetadata{
			DocumentType: "radiology_report",
			Title:        fmt.Sprintf("Radiology Scan - %s...", truncate(headerOr(header, "StudyInstanceUID", "Unknown"), 20)),
			Date:         headerOr(header, "DateService", ""),
		},
		StudyInstanceUID:  headerOr(header, "StudyInstanceUID", ""),
		SeriesInstanceUID: headerOr(header, "SeriesInstanceUID", ""),
		Modality:          headerOr(header, "Modality", ""),
	}

	kws := a.extractor.Extract(res, path)

	if populateEntities {
		doc.Entities = deriveEntities(kws, header)
	}

	for _, nod := range res.Nodules {
		doc.Nodules = append(doc.Nodules, NoduleData{
			NoduleID:        nod.NoduleID,
			Characteristics: nod.Characteristics,
			ROICoords:       nod.ROIs,
			ROICount:        nod.ROICount,
		})
	}

	confidence := computeConfidence(kws)
	doc.Extraction = ExtractionMetadata{
		Timestamp:         time.Now().UTC(),
		ProfileName:       autoProfileName,
		ParserVersion:     ParserVersion,
		OverallConfidence: &confidence,
	}

	return doc, nil
}

// deriveEntities builds the fixed entity lists from header fields and
// keywords: one DATE for a present service date, one IDENTIFIER each for the
// study and series UIDs, and one MEDICAL_TERM per characteristic or semantic
// keyword. Confidence values are fixed per type.
func deriveEntities(kws []keywords.Keyword, header annotation.HeaderFields) ExtractedEntities {
	var ents ExtractedEntities

	if date := headerOr(header, "DateService", ""); date != "" {
		ents.Dates = append(ents.Dates, Entity{
			Type:            EntityDate,
			Value:           date,
			NormalizedValue: date,
			Confidence:      dateConfidence,
			SourceField:     "DateService",
		})
	}

	if uid := headerOr(header, "StudyInstanceUID", ""); uid != "" {
		ents.Identifiers = append(ents.Identifiers, Entity{
			Type:            EntityIdentifier,
			Value:           uid,
			NormalizedValue: "study_uid",
			Confidence:      identifierConfidence,
			SourceField:     "StudyInstanceUID",
			Metadata:        map[string]string{"type": "DICOM_StudyUID"},
		})
	}
	if uid := headerOr(header, "SeriesInstanceUID", ""); uid != "" {
		ents.Identifiers = append(ents.Identifiers, Entity{
			Type:            EntityIdentifier,
			Value:           uid,
			NormalizedValue: "series_uid",
			Confidence:      identifierConfidence,
			SourceField:     "SeriesInstanceUID",
			Metadata:        map[string]string{"type": "DICOM_SeriesUID"},
		})
	}

	for _, kw := range kws {
		if kw.Category != keywords.CategoryCharacteristic && kw.Category != keywords.CategoryCharacteristicSemantic {
			continue
		}
		normalized := kw.NormalizedForm
		if normalized == "" {
			normalized = kw.Text
		}
		ents.MedicalTerms = append(ents.MedicalTerms, Entity{
			Type:            EntityMedicalTerm,
			Value:           kw.Text,
			NormalizedValue: normalized,
			Confidence:      medicalTermConfidence,
			SourceField:     "characteristics",
			Metadata: map[string]string{
				"category":  kw.Category,
				"nodule_id": kw.NoduleID,
			},
		})
	}

	return ents
}

// computeConfidence scores extraction quality from the keyword set:
// 40% keyword-category coverage (out of five possible categories) and 60%
// normalization coverage, rounded to 2 decimals. An empty keyword set scores
// a fixed 0.5 — deliberately non-zero: nothing was extracted, but nothing
// contradicted either.
func computeConfidence(kws []keywords.Keyword) float64 {
	if len(kws) == 0 {
		return 0.5
	}

	categories := make(map[string]struct{})
	normalized := 0
	for _, kw := range kws {
		categories[kw.Category] = struct{}{}
		if kw.NormalizedForm != "" {
			normalized++
		}
	}

	categoryScore := math.Min(float64(len(categories))/5.0, 1.0)
	normalizationScore := float64(normalized) / float64(len(kws))

	return round2(0.4*categoryScore + 0.6*normalizationScore)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func headerOr(header annotation.HeaderFields, field, fallback string) string {
	v, ok := header[field]
	if !ok || v == annotation.Missing || v == "" {
		return fallback
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
