package services

import (
	"archive/zip"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

func writePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, width, height))))
}

func newImporter() *ImportService {
	// Import itself reads only the filesystem; persistence is exercised
	// separately through ImportIntoProject.
	return NewImportService(nil, nil, nil, nil, nil)
}

func TestImport_UnsupportedFormat(t *testing.T) {
	_, _, err := newImporter().Import(context.Background(), t.TempDir(), domain.DatasetFormat("pascal"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestImportCOCO(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "a.png"), 100, 80)
	writePNG(t, filepath.Join(dir, "images", "b.png"), 50, 50)

	doc := `{
		"images": [
			{"id": 1, "file_name": "a.png", "width": 100, "height": 80},
			{"id": 2, "file_name": "b.png", "width": 0, "height": 0}
		],
		"annotations": [
			{"id": 10, "image_id": 1, "category_id": 7, "bbox": [10, 20, 30, 40]},
			{"id": 11, "image_id": 1, "category_id": 99, "bbox": [1, 1, 2, 2]}
		],
		"categories": [{"id": 7, "name": "door", "supercategory": "structure"}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "annotations.json"), []byte(doc), 0o644))

	result, cleanup, err := newImporter().Import(context.Background(), dir, domain.FormatCOCO)
	require.NoError(t, err)
	defer cleanup()

	require.Len(t, result.Categories, 1)
	assert.Equal(t, "door", result.Categories[0].Name)

	require.Len(t, result.Images, 2)
	a := result.Images[0]
	assert.Equal(t, 100, a.Width)
	// The unknown category 99 is dropped, keeping the resolvable annotation.
	require.Len(t, a.Annotations, 1)
	bbox := a.Annotations[0].Data.BBox
	assert.InDelta(t, 10.0, bbox.XMin, 1e-9)
	assert.InDelta(t, 20.0, bbox.YMin, 1e-9)
	assert.InDelta(t, 40.0, bbox.XMax, 1e-9)
	assert.InDelta(t, 60.0, bbox.YMax, 1e-9)

	// Dimensions missing from the document are read from the file.
	b := result.Images[1]
	assert.Equal(t, 50, b.Width)
	assert.Equal(t, 50, b.Height)
}

func TestImportCOCO_MissingDocument(t *testing.T) {
	_, _, err := newImporter().Import(context.Background(), t.TempDir(), domain.FormatCOCO)
	assert.ErrorIs(t, err, domain.ErrAnnotationsMissing)
}

func TestImportYOLO(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "cat.png"), 200, 100)
	writePNG(t, filepath.Join(dir, "images", "empty.png"), 64, 64)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.txt"), []byte("cat\ndog\n"), 0o644))

	labels := "0 0.5 0.5 0.25 0.5\nmalformed line\n1 1.5 0.5 0.1 0.1\n"
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels", "cat.txt"), []byte(labels), 0o644))

	result, cleanup, err := newImporter().Import(context.Background(), dir, domain.FormatYOLO)
	require.NoError(t, err)
	defer cleanup()

	require.Len(t, result.Images, 2)
	var cat, empty domain.ImportedImage
	for _, img := range result.Images {
		switch img.FileName {
		case "cat.png":
			cat = img
		case "empty.png":
			empty = img
		}
	}

	// The malformed line and the out-of-range line are skipped; the valid
	// line survives with denormalized pixel corners.
	require.Len(t, cat.Annotations, 1)
	assert.Equal(t, "cat", cat.Annotations[0].ClassName)
	bbox := cat.Annotations[0].Data.BBox
	assert.InDelta(t, 75.0, bbox.XMin, 1e-6)
	assert.InDelta(t, 25.0, bbox.YMin, 1e-6)
	assert.InDelta(t, 125.0, bbox.XMax, 1e-6)
	assert.InDelta(t, 75.0, bbox.YMax, 1e-6)

	assert.Empty(t, empty.Annotations)

	require.Len(t, result.Categories, 2)
	assert.Equal(t, "cat", result.Categories[0].Name)
	assert.Equal(t, "dog", result.Categories[1].Name)
}

func TestImportYOLO_ClassBackfill(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "images", "x.png"), 100, 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.txt"), []byte("a\nb\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "labels"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels", "x.txt"),
		[]byte("5 0.5 0.5 0.2 0.2\n"), 0o644))

	result, cleanup, err := newImporter().Import(context.Background(), dir, domain.FormatYOLO)
	require.NoError(t, err)
	defer cleanup()

	// Index 5 with two known names forces placeholders up to class_5.
	require.Len(t, result.Categories, 6)
	assert.Equal(t, "a", result.Categories[0].Name)
	assert.Equal(t, "b", result.Categories[1].Name)
	assert.Equal(t, "class_2", result.Categories[2].Name)
	assert.Equal(t, "class_5", result.Categories[5].Name)

	require.Len(t, result.Images[0].Annotations, 1)
	assert.Equal(t, "class_5", result.Images[0].Annotations[0].ClassName)
}

func TestImportYOLO_Zip(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "img.png"), 40, 40)

	zipPath := filepath.Join(t.TempDir(), "dataset.zip")
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	addZipFile := func(name, srcPath string) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		raw, err := os.ReadFile(srcPath)
		require.NoError(t, err)
		_, err = w.Write(raw)
		require.NoError(t, err)
	}
	addZipFile("dataset/images/img.png", filepath.Join(src, "img.png"))
	wc, err := zw.Create("dataset/labels/img.txt")
	require.NoError(t, err)
	_, err = wc.Write([]byte("0 0.5 0.5 0.5 0.5\n"))
	require.NoError(t, err)
	wc, err = zw.Create("dataset/classes.txt")
	require.NoError(t, err)
	_, err = wc.Write([]byte("thing\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())

	result, cleanup, err := newImporter().Import(context.Background(), zipPath, domain.FormatYOLO)
	require.NoError(t, err)

	// The single top-level directory inside the archive is unwrapped.
	require.Len(t, result.Images, 1)
	assert.Equal(t, "img.png", result.Images[0].FileName)
	require.Len(t, result.Images[0].Annotations, 1)
	assert.Equal(t, "thing", result.Images[0].Annotations[0].ClassName)

	// The extracted files stay readable until the caller releases them.
	extracted := filepath.Join(result.ImagesDir, "img.png")
	_, err = os.Stat(extracted)
	assert.NoError(t, err)
	cleanup()
	_, err = os.Stat(extracted)
	assert.True(t, os.IsNotExist(err))
}
