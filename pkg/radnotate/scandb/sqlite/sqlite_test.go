package sqlite

import (
	"context"
	"testing"

	"github.com/radnotate/radnotate/pkg/radnotate/scandb"
)

func openTestSource(t *testing.T) *Source {
	t.Helper()
	src, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { src.Close() })
	return src
}

func seedScan(t *testing.T, src *Source, patientID, seriesUID string) {
	t.Helper()
	err := src.InsertScan(context.Background(), scandb.Scan{
		PatientID:         patientID,
		StudyInstanceUID:  "study-" + patientID,
		SeriesInstanceUID: seriesUID,
		SliceThickness:    2.5,
		PixelSpacing:      0.7,
		ContrastUsed:      true,
		NumSlices:         100,
	})
	if err != nil {
		t.Fatalf("InsertScan: %v", err)
	}
}

func TestListScans(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)
	seedScan(t, src, "p1", "s1")
	seedScan(t, src, "p2", "s2")
	seedScan(t, src, "p3", "s3")

	scans, err := src.ListScans(ctx, scandb.Filter{})
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(scans) != 3 {
		t.Fatalf("len = %d, want 3", len(scans))
	}
	if scans[0].PatientID != "p1" || !scans[0].ContrastUsed || scans[0].NumSlices != 100 {
		t.Errorf("scans[0] = %+v", scans[0])
	}

	scans, err = src.ListScans(ctx, scandb.Filter{PatientIDs: []string{"p2"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 1 || scans[0].SeriesInstanceUID != "s2" {
		t.Errorf("filtered scans = %+v", scans)
	}

	scans, err = src.ListScans(ctx, scandb.Filter{MaxScans: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 {
		t.Errorf("limited len = %d, want 2", len(scans))
	}
}

func TestClusterAnnotations(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)
	seedScan(t, src, "p1", "s1")

	anns := []struct {
		cluster int
		ann     scandb.Annotation
	}{
		{1, scandb.Annotation{Characteristics: map[string]int{"subtlety": 4, "malignancy": 3}, Diameter: 4.2}},
		{1, scandb.Annotation{Characteristics: map[string]int{"subtlety": 5}, Diameter: 4.8}},
		{2, scandb.Annotation{Characteristics: map[string]int{"texture": 1}, Diameter: 2.0}},
	}
	for _, a := range anns {
		if err := src.InsertAnnotation(ctx, "s1", a.cluster, a.ann); err != nil {
			t.Fatalf("InsertAnnotation: %v", err)
		}
	}

	clusters, err := src.ClusterAnnotations(ctx, "s1")
	if err != nil {
		t.Fatalf("ClusterAnnotations: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("len(clusters) = %d, want 2", len(clusters))
	}
	if len(clusters[0]) != 2 || len(clusters[1]) != 1 {
		t.Errorf("cluster sizes = %d, %d", len(clusters[0]), len(clusters[1]))
	}

	first := clusters[0][0]
	if first.Characteristics["subtlety"] != 4 || first.Diameter != 4.2 {
		t.Errorf("first reading = %+v", first)
	}
	// Unrated characteristics stay absent rather than zero.
	if _, ok := first.Characteristics["texture"]; ok {
		t.Error("texture present on a reading that never rated it")
	}

	flat, err := src.AnnotationFields(ctx, "s1")
	if err != nil {
		t.Fatalf("AnnotationFields: %v", err)
	}
	if len(flat) != 3 {
		t.Errorf("len(flat) = %d, want 3", len(flat))
	}
}

func TestClusterAnnotationsEmptySeries(t *testing.T) {
	src := openTestSource(t)
	seedScan(t, src, "p1", "s1")

	clusters, err := src.ClusterAnnotations(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ClusterAnnotations: %v", err)
	}
	if len(clusters) != 0 {
		t.Errorf("len = %d, want 0", len(clusters))
	}
}

func TestEndToEndConversion(t *testing.T) {
	ctx := context.Background()
	src := openTestSource(t)
	seedScan(t, src, "LIDC-IDRI-0001", "s1")
	for _, subtlety := range []int{4, 5, 3} {
		err := src.InsertAnnotation(ctx, "s1", 1, scandb.Annotation{
			Characteristics: map[string]int{"subtlety": subtlety},
			Diameter:        5.0,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	docs, failures, err := scandb.ConvertBatch(ctx, src, scandb.Filter{}, nil)
	if err != nil {
		t.Fatalf("ConvertBatch: %v", err)
	}
	if len(failures) != 0 {
		t.Fatalf("failures = %v", failures)
	}
	if len(docs) != 1 {
		t.Fatalf("len(docs) = %d, want 1", len(docs))
	}
	doc := docs[0]
	if doc.Nodules[0].Characteristics["subtlety"] != "4" {
		t.Errorf("subtlety median = %q, want 4", doc.Nodules[0].Characteristics["subtlety"])
	}
	if doc.Nodules[0].ROICount != 3 {
		t.Errorf("ROICount = %d, want 3", doc.Nodules[0].ROICount)
	}
}
