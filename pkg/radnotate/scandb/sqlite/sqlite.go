// Package sqlite is the SQLite-backed scan-database adapter. It implements
// scandb.Source over a local database of scans and radiologist annotations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/radnotate/radnotate/pkg/radnotate/scandb"
)

// Source is the concrete SQLite adapter. It implements scandb.Source and
// additionally exposes insert helpers for loading data.
type Source struct {
	db *sql.DB
}

var _ scandb.Source = (*Source)(nil)

// Open opens a SQLite scan database with WAL mode enabled, creating the
// schema if needed. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*Source, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Source{db: db}, nil
}

func (s *Source) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS scans (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id TEXT NOT NULL,
	study_uid TEXT NOT NULL,
	series_uid TEXT UNIQUE NOT NULL,
	slice_thickness REAL DEFAULT 0,
	pixel_spacing REAL DEFAULT 0,
	contrast_used INTEGER DEFAULT 0,
	num_slices INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS annotations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	series_uid TEXT NOT NULL,
	cluster INTEGER NOT NULL,
	subtlety INTEGER,
	internal_structure INTEGER,
	calcification INTEGER,
	sphericity INTEGER,
	margin INTEGER,
	lobulation INTEGER,
	spiculation INTEGER,
	texture INTEGER,
	malignancy INTEGER,
	diameter REAL DEFAULT 0,
	surface_area REAL DEFAULT 0,
	volume REAL DEFAULT 0,
	cx REAL DEFAULT 0,
	cy REAL DEFAULT 0,
	cz REAL DEFAULT 0,
	FOREIGN KEY(series_uid) REFERENCES scans(series_uid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_annotations_series ON annotations(series_uid, cluster);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// InsertScan adds one scan row. The series UID must be unique.
func (s *Source) InsertScan(ctx context.Context, scan scandb.Scan) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (patient_id, study_uid, series_uid, slice_thickness, pixel_spacing, contrast_used, num_slices)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		scan.PatientID, scan.StudyInstanceUID, scan.SeriesInstanceUID,
		scan.SliceThickness, scan.PixelSpacing, boolToInt(scan.ContrastUsed), scan.NumSlices)
	return err
}

// InsertAnnotation adds one reading under a series and nodule cluster.
func (s *Source) InsertAnnotation(ctx context.Context, seriesUID string, cluster int, ann scandb.Annotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations (series_uid, cluster,
			subtlety, internal_structure, calcification, sphericity, margin,
			lobulation, spiculation, texture, malignancy,
			diameter, surface_area, volume, cx, cy, cz)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seriesUID, cluster,
		charValue(ann, "subtlety"), charValue(ann, "internalStructure"),
		charValue(ann, "calcification"), charValue(ann, "sphericity"),
		charValue(ann, "margin"), charValue(ann, "lobulation"),
		charValue(ann, "spiculation"), charValue(ann, "texture"),
		charValue(ann, "malignancy"),
		ann.Diameter, ann.SurfaceArea, ann.Volume,
		ann.Centroid.X, ann.Centroid.Y, ann.Centroid.Z)
	return err
}

func (s *Source) ListScans(ctx context.Context, f scandb.Filter) ([]scandb.Scan, error) {
	query := `SELECT patient_id, study_uid, series_uid, slice_thickness, pixel_spacing, contrast_used, num_slices FROM scans`
	var args []any

	if len(f.PatientIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.PatientIDs)), ",")
		query += fmt.Sprintf(" WHERE patient_id IN (%s)", placeholders)
		for _, id := range f.PatientIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY id"
	if f.MaxScans > 0 {
		query += " LIMIT ?"
		args = append(args, f.MaxScans)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scans []scandb.Scan
	for rows.Next() {
		var sc scandb.Scan
		var contrast int
		if err := rows.Scan(&sc.PatientID, &sc.StudyInstanceUID, &sc.SeriesInstanceUID,
			&sc.SliceThickness, &sc.PixelSpacing, &contrast, &sc.NumSlices); err != nil {
			return nil, err
		}
		sc.ContrastUsed = contrast != 0
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

func (s *Source) ClusterAnnotations(ctx context.Context, seriesUID string) ([][]scandb.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, annotationSelect+` WHERE series_uid = ? ORDER BY cluster, id`, seriesUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clusters [][]scandb.Annotation
	var current []scandb.Annotation
	lastCluster := -1
	for rows.Next() {
		cluster, ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		if cluster != lastCluster && lastCluster != -1 {
			clusters = append(clusters, current)
			current = nil
		}
		lastCluster = cluster
		current = append(current, ann)
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters, rows.Err()
}

func (s *Source) AnnotationFields(ctx context.Context, seriesUID string) ([]scandb.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, annotationSelect+` WHERE series_uid = ? ORDER BY id`, seriesUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anns []scandb.Annotation
	for rows.Next() {
		_, ann, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		anns = append(anns, ann)
	}
	return anns, rows.Err()
}

const annotationSelect = `SELECT cluster,
	subtlety, internal_structure, calcification, sphericity, margin,
	lobulation, spiculation, texture, malignancy,
	diameter, surface_area, volume, cx, cy, cz
FROM annotations`

func scanAnnotation(rows *sql.Rows) (int, scandb.Annotation, error) {
	var cluster int
	vals := make([]sql.NullInt64, 9)
	ann := scandb.Annotation{Characteristics: make(map[string]int)}

	if err := rows.Scan(&cluster,
		&vals[0], &vals[1], &vals[2], &vals[3], &vals[4],
		&vals[5], &vals[6], &vals[7], &vals[8],
		&ann.Diameter, &ann.SurfaceArea, &ann.Volume,
		&ann.Centroid.X, &ann.Centroid.Y, &ann.Centroid.Z); err != nil {
		return 0, scandb.Annotation{}, err
	}

	for i, name := range scandb.CharacteristicNames {
		if vals[i].Valid {
			ann.Characteristics[name] = int(vals[i].Int64)
		}
	}
	return cluster, ann, nil
}

// charValue returns a nullable column value for one characteristic.
func charValue(ann scandb.Annotation, name string) any {
	if v, ok := ann.Characteristics[name]; ok {
		return v
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
