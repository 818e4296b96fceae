package domain

import (
	"time"

	"github.com/google/uuid"
)

type ImageStatus string

const (
	ImageStatusUnlabeled ImageStatus = "UNLABELED"
	ImageStatusLabeled   ImageStatus = "LABELED"
)

type Project struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Image is the durable record of one stored image file. Path is relative
// to the project directory under the datasets root (e.g. "raw/cam01.jpg").
type Image struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Filename  string
	Path      string
	Width     int
	Height    int
	Status    ImageStatus
	Source    string
	CreatedAt time.Time
}

type AnnotationClass struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	Name        string
	Color       string
	ShortcutKey string
}

type AnnotationType string

const (
	AnnotationBBox     AnnotationType = "bbox"
	AnnotationPolygon  AnnotationType = "polygon"
	AnnotationKeypoint AnnotationType = "keypoint"
)

// BBox is the canonical annotation geometry: absolute pixel corners.
// Every codec converges on this shape internally regardless of how the
// source format stores boxes on the wire.
type BBox struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// AnnotationData carries the geometry of one annotation. BBox fields are
// set for bbox annotations; Points for polygon and keypoint annotations.
type AnnotationData struct {
	BBox
	Points [][]float64 `json:"points,omitempty"`
}

type Annotation struct {
	ID        uuid.UUID
	ImageID   uuid.UUID
	ClassID   uuid.UUID
	Type      AnnotationType
	Data      AnnotationData
	CreatedAt time.Time
}
