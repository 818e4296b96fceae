package services

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/camthink-ai/AIToolStack/internal/core/codec"
	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".bmp": true, ".gif": true, ".webp": true,
}

// ImportService reads external datasets into the normalized annotation
// model. Per-line and per-file problems are skipped with a warning; only
// structural problems (missing document, unreadable archive) fail the
// whole call.
type ImportService struct {
	projects    ports.ProjectRepository
	images      ports.ImageRepository
	classes     ports.ClassRepository
	annotations ports.AnnotationRepository
	store       ports.ImageStore
}

func NewImportService(
	projects ports.ProjectRepository,
	images ports.ImageRepository,
	classes ports.ClassRepository,
	annotations ports.AnnotationRepository,
	store ports.ImageStore,
) *ImportService {
	return &ImportService{
		projects:    projects,
		images:      images,
		classes:     classes,
		annotations: annotations,
		store:       store,
	}
}

// Import parses a dataset without persisting anything. The returned cleanup
// releases the temporary extraction directory backing result.ImagesDir when
// the source was an archive; callers must invoke it only after they are done
// reading the image files.
func (s *ImportService) Import(ctx context.Context, sourcePath string, format domain.DatasetFormat) (*domain.ImportResult, func(), error) {
	cleanup := func() {}
	if format == domain.FormatYOLO && strings.EqualFold(filepath.Ext(sourcePath), ".zip") {
		root, release, err := extractArchive(sourcePath)
		if err != nil {
			return nil, nil, err
		}
		cleanup = release
		sourcePath = root
	}

	var result *domain.ImportResult
	var err error
	switch format {
	case domain.FormatCOCO:
		result, err = s.importCOCO(sourcePath)
	case domain.FormatYOLO:
		result, err = s.importYOLO(sourcePath)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return result, cleanup, nil
}

// ---------------------------------------------------------------------------
// COCO: one JSON document with global images/annotations/categories arrays.

type cocoDocument struct {
	Images      []cocoImage      `json:"images"`
	Annotations []cocoAnnotation `json:"annotations"`
	Categories  []cocoCategory   `json:"categories"`
}

type cocoImage struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoAnnotation struct {
	ID         int64     `json:"id"`
	ImageID    int64     `json:"image_id"`
	CategoryID int       `json:"category_id"`
	BBox       []float64 `json:"bbox"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

func (s *ImportService) importCOCO(sourcePath string) (*domain.ImportResult, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("stat dataset path: %w", err)
	}

	var docPath, imagesDir string
	if !info.IsDir() {
		docPath = sourcePath
		imagesDir = filepath.Dir(sourcePath)
	} else {
		for _, name := range []string{"annotations.json", "instances_default.json"} {
			candidate := filepath.Join(sourcePath, name)
			if _, err := os.Stat(candidate); err == nil {
				docPath = candidate
				break
			}
		}
		if docPath == "" {
			return nil, domain.ErrAnnotationsMissing
		}
		imagesDir = filepath.Join(sourcePath, "images")
		if _, err := os.Stat(imagesDir); err != nil {
			imagesDir = sourcePath
		}
	}

	raw, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read annotations document: %w", err)
	}
	var doc cocoDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse annotations document: %w", err)
	}

	categories := make(map[int]cocoCategory, len(doc.Categories))
	result := &domain.ImportResult{ImagesDir: imagesDir}
	for _, cat := range doc.Categories {
		categories[cat.ID] = cat
		result.Categories = append(result.Categories, domain.Category{
			ID:            cat.ID,
			Name:          cat.Name,
			Supercategory: cat.Supercategory,
		})
	}

	byImage := make(map[int64][]cocoAnnotation)
	for _, ann := range doc.Annotations {
		byImage[ann.ImageID] = append(byImage[ann.ImageID], ann)
	}

	for _, img := range doc.Images {
		width, height := img.Width, img.Height
		if width <= 0 || height <= 0 {
			width, height, err = codec.ImageFileDimensions(filepath.Join(imagesDir, img.FileName))
			if err != nil {
				log.Warnf("skipping unreadable image %s: %v", img.FileName, err)
				continue
			}
		}

		imported := domain.ImportedImage{
			ExternalID:  img.ID,
			FileName:    img.FileName,
			Width:       width,
			Height:      height,
			Annotations: []domain.AnnotationRecord{},
		}

		for _, ann := range byImage[img.ID] {
			cat, ok := categories[ann.CategoryID]
			if !ok {
				// The category cannot be resolved, so the annotation is not
				// actionable.
				continue
			}
			if len(ann.BBox) != 4 {
				continue
			}
			x, y, w, h := ann.BBox[0], ann.BBox[1], ann.BBox[2], ann.BBox[3]
			imported.Annotations = append(imported.Annotations, domain.AnnotationRecord{
				Type:       domain.AnnotationBBox,
				ClassIndex: ann.CategoryID,
				ClassName:  cat.Name,
				Data: domain.AnnotationData{
					BBox: domain.BBox{XMin: x, YMin: y, XMax: x + w, YMax: y + h},
				},
			})
		}

		result.Images = append(result.Images, imported)
	}

	return result, nil
}

// ---------------------------------------------------------------------------
// YOLO: images/ + labels/ directories with normalized center-extent lines.

func (s *ImportService) importYOLO(sourcePath string) (*domain.ImportResult, error) {
	imagesDir := discoverDir(sourcePath, "images")
	labelsDir := discoverDir(sourcePath, "labels")
	if imagesDir == "" {
		// Fall back to treating the dataset root as the image directory.
		imagesDir = sourcePath
	}

	classes := readClassList(sourcePath)

	entries, err := os.ReadDir(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("read images directory: %w", err)
	}

	result := &domain.ImportResult{ImagesDir: imagesDir, LabelsDir: labelsDir}
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}

		imgPath := filepath.Join(imagesDir, entry.Name())
		width, height, err := codec.ImageFileDimensions(imgPath)
		if err != nil {
			log.Warnf("skipping unreadable image %s: %v", entry.Name(), err)
			continue
		}

		imported := domain.ImportedImage{
			FileName:    entry.Name(),
			Width:       width,
			Height:      height,
			Annotations: []domain.AnnotationRecord{},
		}

		if labelsDir != "" {
			stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			labelPath := filepath.Join(labelsDir, stem+".txt")
			if raw, err := os.ReadFile(labelPath); err == nil {
				imported.Annotations = parseLabelLines(string(raw), width, height, &classes, labelPath)
			}
		}

		result.Images = append(result.Images, imported)
	}

	for idx, name := range classes {
		result.Categories = append(result.Categories, domain.Category{ID: idx, Name: name})
	}

	return result, nil
}

// parseLabelLines parses "classIndex cx cy w h" lines. A malformed line is
// skipped with a warning; a class index beyond the known list extends the
// list with placeholder names so the annotation is retained.
func parseLabelLines(content string, width, height int, classes *[]string, labelPath string) []domain.AnnotationRecord {
	var records []domain.AnnotationRecord
	for _, line := range strings.Split(content, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 5 {
			log.Warnf("skipping malformed label line in %s: %q", labelPath, line)
			continue
		}

		classIdx, err := strconv.Atoi(fields[0])
		if err != nil || classIdx < 0 {
			log.Warnf("skipping label line with bad class index in %s: %q", labelPath, line)
			continue
		}
		vals := make([]float64, 4)
		ok := true
		for i := 0; i < 4; i++ {
			vals[i], err = strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			log.Warnf("skipping label line with non-numeric field in %s: %q", labelPath, line)
			continue
		}

		bbox, err := codec.DenormalizeBBox(vals[0], vals[1], vals[2], vals[3], width, height)
		if err != nil {
			log.Warnf("skipping label line in %s: %v", labelPath, err)
			continue
		}

		for len(*classes) <= classIdx {
			*classes = append(*classes, fmt.Sprintf("class_%d", len(*classes)))
		}

		records = append(records, domain.AnnotationRecord{
			Type:       domain.AnnotationBBox,
			ClassIndex: classIdx,
			ClassName:  (*classes)[classIdx],
			Data:       domain.AnnotationData{BBox: bbox},
		})
	}
	return records
}

// discoverDir finds a dataset subdirectory, trying the root first, then
// the conventional train/val/test split layouts.
func discoverDir(root, name string) string {
	direct := filepath.Join(root, name)
	if isDir(direct) {
		return direct
	}
	for _, split := range []string{"train", "val", "test"} {
		candidate := filepath.Join(root, split, name)
		if isDir(candidate) {
			return candidate
		}
	}
	return ""
}

func readClassList(root string) []string {
	for _, candidate := range []string{
		filepath.Join(root, "classes.txt"),
		filepath.Join(root, "names.txt"),
		filepath.Join(filepath.Dir(root), "classes.txt"),
	} {
		raw, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		var classes []string
		for _, line := range strings.Split(string(raw), "\n") {
			if name := strings.TrimSpace(line); name != "" {
				classes = append(classes, name)
			}
		}
		return classes
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// extractArchive unpacks a zip archive into a temporary directory and
// returns the dataset root inside it. When the archive wraps everything in
// a single top-level directory, that directory is the root.
func extractArchive(zipPath string) (root string, cleanup func(), err error) {
	tempDir, err := os.MkdirTemp("", "dataset-import-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup = func() { os.RemoveAll(tempDir) }

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target := filepath.Join(tempDir, filepath.Clean(file.Name))
		if !strings.HasPrefix(target, tempDir+string(os.PathSeparator)) {
			continue
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				cleanup()
				return "", nil, fmt.Errorf("extract archive: %w", err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("extract archive: %w", err)
		}
		if err := extractFile(file, target); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("extract archive: %w", err)
		}
	}

	root = tempDir
	entries, err := os.ReadDir(tempDir)
	if err == nil && len(entries) == 1 && entries[0].IsDir() {
		root = filepath.Join(tempDir, entries[0].Name())
	}
	return root, cleanup, nil
}

func extractFile(file *zip.File, target string) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
