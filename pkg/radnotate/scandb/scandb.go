// Package scandb integrates an external scan database as an optional input
// source. The core never talks to a database directly; it consumes the
// Source interface, and callers that have a scan database wire in an adapter
// (see the sqlite subpackage). Callers without one simply never construct a
// Source.
package scandb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/radnotate/radnotate/pkg/radnotate/analysis"
)

// CharacteristicNames lists the nine rated characteristics a reading can
// carry, in canonical order.
var CharacteristicNames = []string{
	"subtlety", "internalStructure", "calcification", "sphericity",
	"margin", "lobulation", "spiculation", "texture", "malignancy",
}

// Scan is one imaging series in the scan database.
type Scan struct {
	PatientID         string
	StudyInstanceUID  string
	SeriesInstanceUID string
	SliceThickness    float64
	PixelSpacing      float64
	ContrastUsed      bool
	NumSlices         int
}

// Centroid is an annotation's center of mass in voxel coordinates.
type Centroid struct {
	X, Y, Z float64
}

// Annotation is one radiologist's reading of one nodule. Characteristics
// holds only the rated values; a characteristic a radiologist did not rate
// is absent from the map.
type Annotation struct {
	Characteristics map[string]int
	Diameter        float64
	SurfaceArea     float64
	Volume          float64
	Centroid        Centroid
}

// Filter narrows a scan listing. Zero values mean no restriction.
type Filter struct {
	PatientIDs []string
	MaxScans   int
}

// Source is the pluggable scan-database capability. ClusterAnnotations
// groups a series' readings into per-nodule clusters; AnnotationFields
// returns the flat, unclustered readings.
type Source interface {
	ListScans(ctx context.Context, f Filter) ([]Scan, error)
	ClusterAnnotations(ctx context.Context, seriesUID string) ([][]Annotation, error)
	AnnotationFields(ctx context.Context, seriesUID string) ([]Annotation, error)
	Close() error
}

// Consensus aggregates multiple readings of one nodule. Keys are
// "<characteristic>_mean", "<characteristic>_median", and (for two or more
// rated values) "<characteristic>_stdev", plus "diameter_mean". Means and
// standard deviations are rounded to 2 decimals.
type Consensus map[string]float64

// BuildConsensus computes consensus metrics over a cluster of readings.
// Characteristics nobody rated produce no keys.
func BuildConsensus(readings []Annotation) Consensus {
	c := make(Consensus)

	for _, name := range CharacteristicNames {
		var values []float64
		for _, r := range readings {
			if v, ok := r.Characteristics[name]; ok {
				values = append(values, float64(v))
			}
		}
		if len(values) == 0 {
			continue
		}
		c[name+"_mean"] = round2(mean(values))
		c[name+"_median"] = median(values)
		if len(values) > 1 {
			c[name+"_stdev"] = round2(stdev(values))
		}
	}

	diameters := make([]float64, len(readings))
	for i, r := range readings {
		diameters[i] = r.Diameter
	}
	if len(diameters) > 0 {
		c["diameter_mean"] = round2(mean(diameters))
	}
	return c
}

// Nodule is one clustered nodule: every radiologist's reading plus, when
// more than one radiologist read it, the consensus metrics.
type Nodule struct {
	ID        string
	Readings  []Annotation
	Consensus Consensus
}

// ClusterNodules converts raw annotation clusters into nodules with
// 1-based string IDs matching their cluster order.
func ClusterNodules(clusters [][]Annotation) []Nodule {
	nodules := make([]Nodule, 0, len(clusters))
	for i, cluster := range clusters {
		n := Nodule{
			ID:       strconv.Itoa(i + 1),
			Readings: cluster,
		}
		if len(cluster) > 1 {
			n.Consensus = BuildConsensus(cluster)
		}
		nodules = append(nodules, n)
	}
	return nodules
}

// scanProfileName stamps documents converted from a scan database.
const scanProfileName = "scan_database_adapter"

// ToCanonical converts one scan into a canonical document. Nodule
// characteristics carry the cluster's median rating per characteristic
// (single-reader clusters carry that reader's ratings). The extraction
// confidence is left undefined: nothing was extracted, only converted, so
// summaries exclude these documents from confidence averages.
func ToCanonical(ctx context.Context, src Source, scan Scan) (analysis.CanonicalDocument, error) {
	clusters, err := src.ClusterAnnotations(ctx, scan.SeriesInstanceUID)
	if err != nil {
		return analysis.CanonicalDocument{}, fmt.Errorf("cluster annotations for %s: %w", scan.SeriesInstanceUID, err)
	}

	doc := analysis.CanonicalDocument{
		ID: scan.SeriesInstanceUID,
		Metadata: analysis.DocumentMetadata{
			DocumentType: "radiology_report",
			Title:        fmt.Sprintf("LIDC Scan: %s", scan.PatientID),
			Date:         time.Now().UTC().Format("2006-01-02"),
		},
		StudyInstanceUID:  scan.StudyInstanceUID,
		SeriesInstanceUID: scan.SeriesInstanceUID,
		Modality:          "CT",
		Extraction: analysis.ExtractionMetadata{
			Timestamp:     time.Now().UTC(),
			ProfileName:   scanProfileName,
			ParserVersion: "1.0.0",
		},
		Fields: map[string]string{
			"patient_id":      scan.PatientID,
			"slice_thickness": strconv.FormatFloat(scan.SliceThickness, 'f', -1, 64),
			"pixel_spacing":   strconv.FormatFloat(scan.PixelSpacing, 'f', -1, 64),
			"contrast_used":   strconv.FormatBool(scan.ContrastUsed),
			"num_slices":      strconv.Itoa(scan.NumSlices),
		},
	}

	for _, nod := range ClusterNodules(clusters) {
		doc.Nodules = append(doc.Nodules, analysis.NoduleData{
			NoduleID:        nod.ID,
			Characteristics: medianCharacteristics(nod),
			ROICount:        len(nod.Readings),
		})
	}

	return doc, nil
}

// medianCharacteristics flattens a nodule's readings into one characteristic
// map using the per-characteristic median.
func medianCharacteristics(nod Nodule) map[string]string {
	out := make(map[string]string)
	for _, name := range CharacteristicNames {
		var values []float64
		for _, r := range nod.Readings {
			if v, ok := r.Characteristics[name]; ok {
				values = append(values, float64(v))
			}
		}
		if len(values) == 0 {
			continue
		}
		out[name] = strconv.FormatFloat(median(values), 'f', -1, 64)
	}
	return out
}

// ProgressFunc reports batch progress. index is 1-based.
type ProgressFunc func(index, total int, patientID string)

// ConvertBatch lists scans matching the filter and converts each to a
// canonical document, collecting per-scan failures instead of aborting.
// Failures are keyed by series UID.
func ConvertBatch(ctx context.Context, src Source, f Filter, progress ProgressFunc) ([]analysis.CanonicalDocument, map[string]error, error) {
	scans, err := src.ListScans(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	var docs []analysis.CanonicalDocument
	failures := make(map[string]error)
	for i, scan := range scans {
		if progress != nil {
			progress(i+1, len(scans), scan.PatientID)
		}
		doc, err := ToCanonical(ctx, src, scan)
		if err != nil {
			failures[scan.SeriesInstanceUID] = err
			continue
		}
		docs = append(docs, doc)
	}
	return docs, failures, nil
}

// ScanStats summarizes one converted scan document.
type ScanStats struct {
	PatientID     string
	NumNodules    int
	TotalReadings int
	Modality      string
}

// Statistics derives summary counts from a converted document.
func Statistics(doc analysis.CanonicalDocument) ScanStats {
	s := ScanStats{
		PatientID:  doc.Fields["patient_id"],
		NumNodules: len(doc.Nodules),
		Modality:   doc.Modality,
	}
	for _, nod := range doc.Nodules {
		s.TotalReadings += nod.ROICount
	}
	return s
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdev is the sample standard deviation; callers guarantee len >= 2.
func stdev(values []float64) float64 {
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
