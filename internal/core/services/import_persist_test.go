package services

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	"github.com/camthink-ai/AIToolStack/internal/testutil"
)

func TestImportIntoProject(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "cat.png"), 100, 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.txt"), []byte("cat\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels", "cat.txt"),
		[]byte("0 0.5 0.5 0.5 0.5\n"), 0o644))

	projectID := uuid.New()
	projects := new(testutil.MockProjectRepo)
	images := new(testutil.MockImageRepo)
	classes := new(testutil.MockClassRepo)
	annotations := new(testutil.MockAnnotationRepo)
	store := new(testutil.MockImageStore)
	svc := NewImportService(projects, images, classes, annotations, store)

	projects.On("Exists", mock.Anything, projectID).Return(true, nil)
	classes.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.AnnotationClass{}, nil)
	images.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.Image{}, nil)
	classes.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.AnnotationClass) bool {
		return c.Name == "cat" && c.ProjectID == projectID && c.Color != ""
	})).Return(nil)
	store.On("Save", projectID, "cat.png", mock.Anything).
		Return("cat.png", "raw/cat.png", nil)
	images.On("Create", mock.Anything, mock.MatchedBy(func(img *domain.Image) bool {
		return img.Filename == "cat.png" && img.Status == domain.ImageStatusLabeled
	})).Return(nil)
	annotations.On("Create", mock.Anything, mock.MatchedBy(func(ann *domain.Annotation) bool {
		return ann.Type == domain.AnnotationBBox
	})).Return(nil)

	summary, err := svc.ImportIntoProject(context.Background(), projectID, dir, domain.FormatYOLO)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ImagesImported)
	assert.Equal(t, 1, summary.ClassesCreated)
	assert.Equal(t, 1, summary.AnnotationsCreated)
	classes.AssertExpectations(t)
	images.AssertExpectations(t)
	annotations.AssertExpectations(t)
}

func TestImportIntoProject_ExistingClassNotRecreated(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "cat.png"), 50, 50)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.txt"), []byte("cat\n"), 0o644))

	projectID := uuid.New()
	existingClassID := uuid.New()
	projects := new(testutil.MockProjectRepo)
	images := new(testutil.MockImageRepo)
	classes := new(testutil.MockClassRepo)
	annotations := new(testutil.MockAnnotationRepo)
	store := new(testutil.MockImageStore)
	svc := NewImportService(projects, images, classes, annotations, store)

	projects.On("Exists", mock.Anything, projectID).Return(true, nil)
	classes.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.AnnotationClass{
			{ID: existingClassID, ProjectID: projectID, Name: "cat"},
		}, nil)
	images.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.Image{}, nil)
	store.On("Save", projectID, "cat.png", mock.Anything).
		Return("cat.png", "raw/cat.png", nil)
	images.On("Create", mock.Anything, mock.MatchedBy(func(img *domain.Image) bool {
		return img.Status == domain.ImageStatusUnlabeled
	})).Return(nil)

	summary, err := svc.ImportIntoProject(context.Background(), projectID, dir, domain.FormatYOLO)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.ClassesCreated)
	classes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestImportIntoProject_ZipArchive(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "img.png"), 40, 40)

	zipPath := filepath.Join(t.TempDir(), "dataset.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	raw, err := os.ReadFile(filepath.Join(src, "img.png"))
	require.NoError(t, err)
	w, err := zw.Create("dataset/images/img.png")
	require.NoError(t, err)
	_, err = w.Write(raw)
	require.NoError(t, err)
	w, err = zw.Create("dataset/labels/img.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("0 0.5 0.5 0.5 0.5\n"))
	require.NoError(t, err)
	w, err = zw.Create("dataset/classes.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("thing\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	projectID := uuid.New()
	projects := new(testutil.MockProjectRepo)
	images := new(testutil.MockImageRepo)
	classes := new(testutil.MockClassRepo)
	annotations := new(testutil.MockAnnotationRepo)
	store := new(testutil.MockImageStore)
	svc := NewImportService(projects, images, classes, annotations, store)

	projects.On("Exists", mock.Anything, projectID).Return(true, nil)
	classes.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.AnnotationClass{}, nil)
	classes.On("Create", mock.Anything, mock.Anything).Return(nil)
	images.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.Image{}, nil)
	store.On("Save", projectID, "img.png", raw).
		Return("img.png", "raw/img.png", nil)
	images.On("Create", mock.Anything, mock.Anything).Return(nil)
	annotations.On("Create", mock.Anything, mock.Anything).Return(nil)

	summary, err := svc.ImportIntoProject(context.Background(), projectID, zipPath, domain.FormatYOLO)
	require.NoError(t, err)

	// The extracted files must survive long enough to be copied into the
	// store; nothing may be silently dropped.
	assert.Equal(t, 1, summary.ImagesImported)
	assert.Equal(t, 1, summary.AnnotationsCreated)
	store.AssertExpectations(t)
	annotations.AssertExpectations(t)
}

func TestImportIntoProject_ReimportReplacesAnnotations(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "cat.png"), 100, 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.txt"), []byte("cat\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels", "cat.txt"),
		[]byte("0 0.5 0.5 0.5 0.5\n"), 0o644))

	projectID := uuid.New()
	existingImageID := uuid.New()
	existingClassID := uuid.New()
	projects := new(testutil.MockProjectRepo)
	images := new(testutil.MockImageRepo)
	classes := new(testutil.MockClassRepo)
	annotations := new(testutil.MockAnnotationRepo)
	store := new(testutil.MockImageStore)
	svc := NewImportService(projects, images, classes, annotations, store)

	projects.On("Exists", mock.Anything, projectID).Return(true, nil)
	classes.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.AnnotationClass{
			{ID: existingClassID, ProjectID: projectID, Name: "cat"},
		}, nil)
	images.On("ListByProject", mock.Anything, projectID).
		Return([]*domain.Image{
			{ID: existingImageID, ProjectID: projectID, Filename: "cat.png", Path: "raw/cat.png"},
		}, nil)
	annotations.On("DeleteByImage", mock.Anything, existingImageID).Return(nil)
	annotations.On("Create", mock.Anything, mock.MatchedBy(func(ann *domain.Annotation) bool {
		return ann.ImageID == existingImageID && ann.ClassID == existingClassID
	})).Return(nil)

	summary, err := svc.ImportIntoProject(context.Background(), projectID, dir, domain.FormatYOLO)
	require.NoError(t, err)

	// The known file is not duplicated; its annotations are refreshed.
	assert.Equal(t, 0, summary.ImagesImported)
	assert.Equal(t, 1, summary.AnnotationsCreated)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	images.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	annotations.AssertExpectations(t)
}

func TestImportIntoProject_UnknownProject(t *testing.T) {
	projectID := uuid.New()
	projects := new(testutil.MockProjectRepo)
	svc := NewImportService(projects, nil, nil, nil, nil)

	projects.On("Exists", mock.Anything, projectID).Return(false, nil)

	_, err := svc.ImportIntoProject(context.Background(), projectID, t.TempDir(), domain.FormatYOLO)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}
