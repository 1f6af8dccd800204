// Package keywords turns extracted annotation fields into categorized,
// normalized keywords, including semantic descriptors derived from
// characteristic value codes.
package keywords

import (
	"fmt"
	"strings"

	"github.com/radnotate/radnotate/pkg/radnotate/annotation"
	"github.com/radnotate/radnotate/pkg/radnotate/vocab"
)

// Keyword categories.
const (
	CategoryHeader                 = "header"
	CategoryCharacteristic         = "characteristic"
	CategoryCharacteristicSemantic = "characteristic_semantic"
	CategoryROI                    = "roi"
)

// Keyword is one extracted keyword with source tracking. NormalizedForm is
// always populated before the keyword leaves the extractor.
type Keyword struct {
	Text           string
	Category       string
	SourceFile     string
	NoduleID       string
	Context        string
	NormalizedForm string
	Metadata       map[string]string
}

// descriptorTables maps characteristic name -> value code -> semantic
// descriptors. Codes without a mapping simply produce no semantic keywords.
// internalStructure is the one characteristic without a descriptor table.
var descriptorTables = map[string]map[string][]string{
	"subtlety": {
		"1": {"extremely_subtle", "barely_visible"},
		"2": {"moderately_subtle", "faint"},
		"3": {"fairly_subtle", "visible"},
		"4": {"moderately_obvious", "clear"},
		"5": {"obvious", "very_clear"},
	},
	"malignancy": {
		"1": {"highly_unlikely_malignant", "benign"},
		"2": {"moderately_unlikely_malignant", "probably_benign"},
		"3": {"indeterminate", "uncertain"},
		"4": {"moderately_suspicious", "possibly_malignant"},
		"5": {"highly_suspicious", "likely_malignant"},
	},
	"calcification": {
		"1": {"popcorn", "benign_calcification"},
		"2": {"laminated", "concentric"},
		"3": {"solid", "dense"},
		"4": {"non_central", "eccentric"},
		"5": {"central", "centrally_located"},
		"6": {"absent", "no_calcification"},
	},
	"sphericity": {
		"1": {"linear", "elongated"},
		"3": {"ovoid", "oval"},
		"5": {"round", "spherical"},
	},
	"margin": {
		"1": {"poorly_defined", "indistinct"},
		"2": {"near_poorly_defined", "somewhat_indistinct"},
		"3": {"medium_margin", "moderate"},
		"4": {"near_sharp", "relatively_sharp"},
		"5": {"sharp", "well_defined"},
	},
	"lobulation": {
		"1": {"marked_lobulation", "highly_lobulated"},
		"2": {"near_marked", "moderately_lobulated"},
		"3": {"medium_lobulation", "some_lobulation"},
		"4": {"near_none", "minimal_lobulation"},
		"5": {"no_lobulation", "smooth"},
	},
	"spiculation": {
		"1": {"marked_spiculation", "highly_spiculated"},
		"2": {"near_marked", "moderately_spiculated"},
		"3": {"medium_spiculation", "some_spiculation"},
		"4": {"near_none", "minimal_spiculation"},
		"5": {"no_spiculation", "smooth_border"},
	},
	"texture": {
		"1": {"non_solid", "ground_glass"},
		"2": {"near_non_solid", "mostly_ground_glass"},
		"3": {"part_solid", "mixed"},
		"4": {"near_solid", "mostly_solid"},
		"5": {"solid", "completely_solid"},
	},
}

// SemanticDescriptors returns the descriptors mapped to one characteristic
// value code, or nil when the characteristic or code has no mapping.
func SemanticDescriptors(characteristic, value string) []string {
	table, ok := descriptorTables[strings.ToLower(characteristic)]
	if !ok {
		return nil
	}
	return table[value]
}

// Options selects which keyword families the extractor emits. ROI keywords
// are opt-in; everything else is on by default via DefaultOptions.
type Options struct {
	Header          bool
	Characteristics bool
	ROI             bool
}

// DefaultOptions matches the standard pipeline configuration.
func DefaultOptions() Options {
	return Options{Header: true, Characteristics: true, ROI: false}
}

// Extractor converts extraction results into keywords, normalizing each one
// through the vocabulary.
type Extractor struct {
	normalizer *vocab.Normalizer
	opts       Options
}

// NewExtractor creates an extractor with default options.
func NewExtractor(normalizer *vocab.Normalizer) *Extractor {
	return NewExtractorWithOptions(normalizer, DefaultOptions())
}

// NewExtractorWithOptions creates an extractor with explicit keyword-family
// selection.
func NewExtractorWithOptions(normalizer *vocab.Normalizer, opts Options) *Extractor {
	return &Extractor{normalizer: normalizer, opts: opts}
}

// Extract converts one document's extraction result into keywords. sourceID
// identifies the originating document in each keyword's SourceFile.
func (e *Extractor) Extract(res annotation.Result, sourceID string) []Keyword {
	var kws []Keyword

	if e.opts.Header {
		kws = append(kws, e.headerKeywords(res.Header, sourceID)...)
	}
	if e.opts.Characteristics {
		kws = append(kws, e.characteristicKeywords(res.Nodules, sourceID)...)
	}
	if e.opts.ROI {
		kws = append(kws, e.roiKeywords(res.Nodules, sourceID)...)
	}

	for i := range kws {
		kws[i].NormalizedForm = e.normalizer.Normalize(kws[i].Text)
	}

	return kws
}

// ExtractFromFile parses a document and extracts its keywords.
func (e *Extractor) ExtractFromFile(path string) ([]Keyword, error) {
	res, err := annotation.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(res, path), nil
}

func (e *Extractor) headerKeywords(header annotation.HeaderFields, sourceID string) []Keyword {
	var kws []Keyword

	if modality := headerValue(header, "Modality"); modality != "" {
		kws = append(kws, Keyword{
			Text:       strings.ToLower(modality),
			Category:   CategoryHeader,
			SourceFile: sourceID,
			Context:    "imaging_modality",
			Metadata:   map[string]string{"field": "Modality"},
		})
	}

	if uid := headerValue(header, "StudyInstanceUID"); uid != "" {
		parts := strings.Split(uid, ".")
		kws = append(kws, Keyword{
			Text:       "study_" + parts[len(parts)-1],
			Category:   CategoryHeader,
			SourceFile: sourceID,
			Context:    "study_identifier",
			Metadata:   map[string]string{"field": "StudyInstanceUID"},
		})
	}

	return kws
}

func (e *Extractor) characteristicKeywords(nodules []annotation.NoduleRecord, sourceID string) []Keyword {
	var kws []Keyword

	for _, nod := range nodules {
		for _, name := range annotation.CharacteristicNames {
			value, ok := nod.Characteristics[name]
			if !ok {
				continue
			}
			context := fmt.Sprintf("%s=%s", name, value)

			kws = append(kws, Keyword{
				Text:       strings.ToLower(name),
				Category:   CategoryCharacteristic,
				SourceFile: sourceID,
				NoduleID:   nod.NoduleID,
				Context:    context,
				Metadata:   map[string]string{"characteristic": name, "value": value},
			})

			for _, descriptor := range SemanticDescriptors(name, value) {
				kws = append(kws, Keyword{
					Text:       descriptor,
					Category:   CategoryCharacteristicSemantic,
					SourceFile: sourceID,
					NoduleID:   nod.NoduleID,
					Context:    context,
					Metadata: map[string]string{
						"characteristic": name,
						"value":          value,
						"descriptor":     descriptor,
					},
				})
			}
		}
	}

	return kws
}

func (e *Extractor) roiKeywords(nodules []annotation.NoduleRecord, sourceID string) []Keyword {
	var kws []Keyword

	for _, nod := range nodules {
		if nod.ROICount == 0 {
			continue
		}
		kws = append(kws, Keyword{
			Text:       fmt.Sprintf("roi_size_%d_points", nod.ROICount),
			Category:   CategoryROI,
			SourceFile: sourceID,
			NoduleID:   nod.NoduleID,
			Context:    fmt.Sprintf("ROI with %d coordinate points", nod.ROICount),
			Metadata:   map[string]string{"roi_point_count": fmt.Sprintf("%d", nod.ROICount)},
		})
	}

	return kws
}

// headerValue resolves a header field, treating the MISSING sentinel as
// absent.
func headerValue(header annotation.HeaderFields, field string) string {
	v := header[field]
	if v == annotation.Missing {
		return ""
	}
	return v
}

// ProgressFunc reports batch progress. It is invoked synchronously with the
// 1-based item index, the total item count, and the item's source id, after
// processing of the item has started.
type ProgressFunc func(index, total int, sourceID string)

// ExtractBatch processes many documents sequentially. Failures are recorded
// per path and excluded from the result mapping; processing continues with
// the remaining items.
func (e *Extractor) ExtractBatch(paths []string, progress ProgressFunc) (map[string][]Keyword, map[string]error) {
	results := make(map[string][]Keyword, len(paths))
	failures := make(map[string]error)
	total := len(paths)

	for i, path := range paths {
		if progress != nil {
			progress(i+1, total, path)
		}

		kws, err := e.ExtractFromFile(path)
		if err != nil {
			failures[path] = err
			continue
		}
		results[path] = kws
	}

	return results, failures
}
