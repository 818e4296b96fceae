package domain

import "github.com/google/uuid"

type DatasetFormat string

const (
	FormatCOCO DatasetFormat = "coco"
	FormatYOLO DatasetFormat = "yolo"
)

// Category is a class entry discovered during import. ID is the index or
// id the source format used to reference the class.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// AnnotationRecord is a format-agnostic annotation produced by an import.
// Geometry is always absolute pixel coordinates.
type AnnotationRecord struct {
	Type       AnnotationType `json:"type"`
	ClassIndex int            `json:"category_id"`
	ClassName  string         `json:"category_name"`
	Data       AnnotationData `json:"data"`
}

type ImportedImage struct {
	ExternalID  int64              `json:"id,omitempty"`
	FileName    string             `json:"file_name"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Annotations []AnnotationRecord `json:"annotations"`
}

// ImportResult is the full outcome of one import call. Every ClassIndex in
// the annotations resolves to an entry in Categories; missing classes are
// backfilled with placeholder names rather than dropped.
type ImportResult struct {
	Images     []ImportedImage `json:"images"`
	Categories []Category      `json:"categories"`
	ImagesDir  string          `json:"images_dir"`
	LabelsDir  string          `json:"labels_dir,omitempty"`
}

// SnapshotAnnotation is one annotation joined with its class name, as the
// exporter consumes it.
type SnapshotAnnotation struct {
	Type      AnnotationType
	ClassName string
	Data      AnnotationData
}

type SnapshotImage struct {
	ID          uuid.UUID
	Filename    string
	Path        string
	Width       int
	Height      int
	Annotations []SnapshotAnnotation
}

// ProjectSnapshot is the in-memory view of a project handed to the
// exporter: images, classes and per-image annotations at one point in time.
type ProjectSnapshot struct {
	ProjectID uuid.UUID
	Name      string
	Classes   []AnnotationClass
	Images    []SnapshotImage
}

type ExportManifest struct {
	ImageCount int `json:"images_count"`
	TrainCount int `json:"train_count"`
	ValCount   int `json:"val_count"`
	ClassCount int `json:"classes_count"`
}
