package ports

import "github.com/google/uuid"

// ImageStore owns raw image files under the datasets root. Save must place
// the bytes under a name that did not previously exist in the project's
// raw directory and report the final name it settled on.
type ImageStore interface {
	Save(projectID uuid.UUID, desiredName string, data []byte) (filename string, relPath string, err error)
	Remove(projectID uuid.UUID, relPath string) error
	Exists(projectID uuid.UUID, relPath string) bool
	Abs(projectID uuid.UUID, relPath string) string
}
