// Package structure classifies the structural shape of medical-imaging
// annotation documents and exposes the per-shape attribute schema that field
// extraction expects.
package structure

import (
	"fmt"
	"strings"
)

// ParseCase tags a document's structural shape. LIDC multi-session cases are
// generated dynamically from the session count, so a ParseCase is not limited
// to the fixed constants below.
type ParseCase string

const (
	CaseCompleteAttributes ParseCase = "Complete_Attributes"
	CaseCoreAttributesOnly ParseCase = "Core_Attributes_Only"
	CaseWithReasonPartial  ParseCase = "With_Reason_Partial"
	CaseUnknown            ParseCase = "Unknown"
	CaseLIDCSingleSession  ParseCase = "LIDC_Single_Session"
)

const lidcMultiSessionPrefix = "LIDC_Multi_Session_"

// lidcRootTag is the root local name identifying LIDC read messages.
const lidcRootTag = "LidcReadMessage"

// LIDCMultiSession builds the dynamic multi-session case for a session count.
func LIDCMultiSession(count int) ParseCase {
	return ParseCase(fmt.Sprintf("%s%d", lidcMultiSessionPrefix, count))
}

// IsLIDCMultiSession reports whether a case is any LIDC multi-session variant.
func (c ParseCase) IsLIDCMultiSession() bool {
	return strings.HasPrefix(string(c), lidcMultiSessionPrefix)
}

// Classify determines the parse case of a loaded document.
//
// LIDC documents (root local name "LidcReadMessage") are classified by the
// number of readingSession elements found anywhere under the root: exactly
// one is LIDC_Single_Session, any other count (including zero) yields the
// dynamic LIDC_Multi_Session_<count> case.
//
// Other documents are classified by their ResponseHeader: absent header is
// Unknown; Modality and DateService both present is Complete_Attributes; only
// DateService is Core_Attributes_Only; everything else (including Modality
// without DateService) is With_Reason_Partial.
func Classify(doc *Document) ParseCase {
	if doc.RootLocal() == lidcRootTag {
		sessions := len(doc.Descendants(doc.Root, "readingSession"))
		if sessions == 1 {
			return CaseLIDCSingleSession
		}
		return LIDCMultiSession(sessions)
	}

	header := doc.Find(doc.Root, "ResponseHeader")
	if header == nil {
		return CaseUnknown
	}

	hasModality := doc.Find(header, "Modality") != nil
	hasDate := doc.Find(header, "DateService") != nil

	switch {
	case hasModality && hasDate:
		return CaseCompleteAttributes
	case hasDate:
		return CaseCoreAttributesOnly
	default:
		return CaseWithReasonPartial
	}
}

// ClassifyFile loads a document from disk and classifies it.
func ClassifyFile(path string) (ParseCase, error) {
	doc, err := Load(path)
	if err != nil {
		return "", err
	}
	return Classify(doc), nil
}

// ExpectedAttributeSet lists, per category, the field names a parse case is
// expected to carry. Instances are looked up read-only from fixed tables.
type ExpectedAttributeSet struct {
	Header          []string
	Characteristics []string
	ROI             []string
	Nodule          []string
}

// All LIDC session cases, single or multi, share one attribute set.
var lidcSessionAttributes = ExpectedAttributeSet{
	Header:          []string{"StudyInstanceUID", "SeriesInstanceUID", "DateService", "TimeService"},
	Characteristics: []string{"subtlety"},
	ROI:             []string{"imageSOP_UID", "xCoord", "yCoord"},
	Nodule:          []string{"noduleID"},
}

var expectedByCase = map[ParseCase]ExpectedAttributeSet{
	CaseCompleteAttributes: {
		Header: []string{"StudyInstanceUID", "SeriesInstanceUID", "Modality", "DateService", "TimeService"},
		Characteristics: []string{
			"subtlety", "internalStructure", "calcification", "sphericity",
			"margin", "lobulation", "spiculation", "texture", "malignancy",
		},
		ROI:    []string{"imageSOP_UID", "xCoord", "yCoord"},
		Nodule: []string{"noduleID"},
	},
	CaseCoreAttributesOnly: {
		Header:          []string{"StudyInstanceUID", "SeriesInstanceUID", "DateService"},
		Characteristics: []string{"subtlety", "malignancy"},
		ROI:             []string{"imageSOP_UID", "xCoord", "yCoord"},
		Nodule:          []string{"noduleID"},
	},
	CaseWithReasonPartial: {
		Header:          []string{"StudyInstanceUID", "SeriesInstanceUID"},
		Characteristics: []string{"subtlety"},
		ROI:             []string{"imageSOP_UID"},
		Nodule:          []string{"noduleID"},
	},
	CaseLIDCSingleSession: lidcSessionAttributes,
}

// Minimal fallback for unrecognized cases. Unknown cases are not an error.
var defaultAttributes = ExpectedAttributeSet{
	Header: []string{"StudyInstanceUID", "SeriesInstanceUID"},
	ROI:    []string{"imageSOP_UID"},
	Nodule: []string{"noduleID"},
}

// ExpectedAttributes returns the attribute schema for a parse case. Dynamic
// LIDC multi-session cases all map to the shared LIDC session set; anything
// unrecognized falls back to a minimal default.
func ExpectedAttributes(c ParseCase) ExpectedAttributeSet {
	if c.IsLIDCMultiSession() {
		return lidcSessionAttributes
	}
	if attrs, ok := expectedByCase[c]; ok {
		return attrs
	}
	return defaultAttributes
}
