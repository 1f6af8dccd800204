// Package annotation extracts header and per-nodule fields from annotation
// documents, driven by the attribute schema of the document's parse case.
package annotation

import (
	"github.com/radnotate/radnotate/pkg/radnotate/structure"
)

// Missing is the sentinel stored for an expected header field that was absent
// or empty.
const Missing = "MISSING"

// CharacteristicNames is the fixed list of nodule characteristic fields an
// annotation may carry. Absent characteristics are omitted from records; no
// sentinel is stored.
var CharacteristicNames = []string{
	"subtlety", "internalStructure", "calcification", "sphericity",
	"margin", "lobulation", "spiculation", "texture", "malignancy",
}

// HeaderFields maps expected header field names to their extracted values,
// with Missing standing in for absent ones.
type HeaderFields map[string]string

// ROI is one region-of-interest entry under a nodule.
type ROI struct {
	ImageSOPUID string
	XCoord      string
	YCoord      string
}

// NoduleRecord is one extracted unblindedReadNodule: denormalized header
// fields, the nodule id, only the characteristics that were present, and the
// region-of-interest entries. Records are immutable after extraction.
type NoduleRecord struct {
	Header          HeaderFields
	NoduleID        string
	Characteristics map[string]string
	ROIs            []ROI
	ROICount        int
}

// Result is the outcome of extracting one document. MissingFields lists the
// expected header fields that were absent; this is a non-fatal warning
// signal, not an error. Zero nodules is likewise not an error at this layer.
type Result struct {
	Case          structure.ParseCase
	Header        HeaderFields
	Nodules       []NoduleRecord
	MissingFields []string
}

// ParseFile loads, classifies, and extracts a document in one call.
func ParseFile(path string) (Result, error) {
	doc, err := structure.Load(path)
	if err != nil {
		return Result{}, err
	}
	return Extract(doc), nil
}

// Extract pulls header and nodule fields from a loaded document using the
// attribute schema of its parse case. All element lookups are namespace-aware
// (the root's namespace, or unqualified when the root had none).
func Extract(doc *structure.Document) Result {
	parseCase := structure.Classify(doc)
	expected := structure.ExpectedAttributes(parseCase)

	res := Result{
		Case:   parseCase,
		Header: make(HeaderFields, len(expected.Header)),
	}

	header := doc.Find(doc.Root, "ResponseHeader")
	if header != nil {
		for _, field := range expected.Header {
			if value := doc.Text(header, field); value != "" {
				res.Header[field] = value
			} else {
				res.Header[field] = Missing
				res.MissingFields = append(res.MissingFields, field)
			}
		}
	}

	for _, noduleElem := range doc.Descendants(doc.Root, "unblindedReadNodule") {
		res.Nodules = append(res.Nodules, extractNodule(doc, noduleElem, res.Header))
	}

	return res
}

func extractNodule(doc *structure.Document, elem *structure.Element, header HeaderFields) NoduleRecord {
	rec := NoduleRecord{
		Header:          make(HeaderFields, len(header)),
		Characteristics: make(map[string]string),
	}
	for k, v := range header {
		rec.Header[k] = v
	}

	rec.NoduleID = doc.Text(elem, "noduleID")

	if chars := doc.Find(elem, "characteristics"); chars != nil {
		for _, name := range CharacteristicNames {
			if value := doc.Text(chars, name); value != "" {
				rec.Characteristics[name] = value
			}
		}
	}

	for _, roi := range doc.FindAll(elem, "roi") {
		rec.ROIs = append(rec.ROIs, ROI{
			ImageSOPUID: doc.Text(roi, "imageSOP_UID"),
			XCoord:      doc.Text(roi, "xCoord"),
			YCoord:      doc.Text(roi, "yCoord"),
		})
	}
	rec.ROICount = len(rec.ROIs)

	return rec
}

// ReadingSession holds the per-session metadata extracted from LIDC
// documents. It is extracted but not consumed by the analysis pipeline.
type ReadingSession struct {
	RadiologistID     string
	AnnotationVersion string
}

// ReadingSessions extracts all readingSession elements found anywhere under
// the root.
func ReadingSessions(doc *structure.Document) []ReadingSession {
	var sessions []ReadingSession
	for _, elem := range doc.Descendants(doc.Root, "readingSession") {
		sessions = append(sessions, ReadingSession{
			RadiologistID:     doc.Text(elem, "servicingRadiologistID"),
			AnnotationVersion: doc.Text(elem, "annotationVersion"),
		})
	}
	return sessions
}
