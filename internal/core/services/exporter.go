package services

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/camthink-ai/AIToolStack/internal/core/codec"
	"github.com/camthink-ai/AIToolStack/internal/core/domain"
	ports "github.com/camthink-ai/AIToolStack/internal/core/ports/output"
)

// shuffleSeed is fixed so repeated exports of an unchanged project produce
// an identical train/val split. Downstream training pipelines rely on
// export stability across re-runs.
const shuffleSeed = 42

// datasetDescriptor is the machine-readable data.yaml at the export root,
// in the layout Ultralytics-style tooling consumes.
type datasetDescriptor struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names"`
}

// ExportService writes a project snapshot out as a train/val split dataset
// with normalized center-extent label files.
type ExportService struct {
	store ports.ImageStore
}

func NewExportService(store ports.ImageStore) *ExportService {
	return &ExportService{store: store}
}

func (s *ExportService) Export(ctx context.Context, snap *domain.ProjectSnapshot, outputDir string) (*domain.ExportManifest, error) {
	// Recreate from empty so no stale files from a previous export leak in.
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, fmt.Errorf("clean output directory: %w", err)
	}
	for _, sub := range []string{
		filepath.Join("images", "train"), filepath.Join("images", "val"),
		filepath.Join("labels", "train"), filepath.Join("labels", "val"),
	} {
		if err := os.MkdirAll(filepath.Join(outputDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	classMap := make(map[string]int, len(snap.Classes))
	classNames := make([]string, 0, len(snap.Classes))
	for idx, class := range snap.Classes {
		classMap[class.Name] = idx
		classNames = append(classNames, class.Name)
	}

	// An image record whose backing file is gone is excluded, not an error:
	// the export observes a point-in-time view of which files exist.
	valid := make([]domain.SnapshotImage, 0, len(snap.Images))
	for _, img := range snap.Images {
		if s.store.Exists(snap.ProjectID, img.Path) {
			valid = append(valid, img)
		} else {
			log.Warnf("excluding image %s from export: file missing", img.Filename)
		}
	}
	if len(valid) == 0 {
		return nil, domain.ErrNoValidImages
	}

	trainRatio := 0.8
	if len(valid) < 10 {
		trainRatio = 0.5
	}
	trainCount := int(math.Round(float64(len(valid)) * trainRatio))
	if trainCount < 1 {
		trainCount = 1
	}
	if trainCount > len(valid) {
		trainCount = len(valid)
	}

	rng := rand.New(rand.NewSource(shuffleSeed))
	shuffled := make([]domain.SnapshotImage, len(valid))
	copy(shuffled, valid)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	trainCopied, err := s.writePartition(snap, shuffled[:trainCount], outputDir, "train", classMap)
	if err != nil {
		return nil, err
	}
	valCopied, err := s.writePartition(snap, shuffled[trainCount:], outputDir, "val", classMap)
	if err != nil {
		return nil, err
	}

	if err := s.writeDescriptor(outputDir, classNames); err != nil {
		return nil, err
	}

	return &domain.ExportManifest{
		ImageCount: len(valid),
		TrainCount: trainCopied,
		ValCount:   valCopied,
		ClassCount: len(snap.Classes),
	}, nil
}

func (s *ExportService) writePartition(snap *domain.ProjectSnapshot, images []domain.SnapshotImage, outputDir, partition string, classMap map[string]int) (int, error) {
	imagesDir := filepath.Join(outputDir, "images", partition)
	labelsDir := filepath.Join(outputDir, "labels", partition)

	copied := 0
	for _, img := range images {
		src := s.store.Abs(snap.ProjectID, img.Path)
		if err := copyFile(src, filepath.Join(imagesDir, img.Filename)); err != nil {
			return copied, fmt.Errorf("copy %s: %w", img.Filename, err)
		}
		copied++

		lines := exportLines(img, classMap)
		if len(lines) == 0 {
			// No label file for images without annotations: "no objects"
			// stays distinguishable from "not yet exported".
			continue
		}
		stem := strings.TrimSuffix(img.Filename, filepath.Ext(img.Filename))
		labelPath := filepath.Join(labelsDir, stem+".txt")
		if err := os.WriteFile(labelPath, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return copied, fmt.Errorf("write labels for %s: %w", img.Filename, err)
		}
	}
	return copied, nil
}

// exportLines renders one label line per annotation. An unknown class or
// unsupported type skips that line only, never the whole export.
func exportLines(img domain.SnapshotImage, classMap map[string]int) []string {
	var lines []string
	for _, ann := range img.Annotations {
		classID, ok := classMap[ann.ClassName]
		if !ok {
			continue
		}

		switch ann.Type {
		case domain.AnnotationBBox:
			cx, cy, w, h := codec.NormalizeBBox(ann.Data.BBox, img.Width, img.Height)
			lines = append(lines, fmt.Sprintf("%d %s %s %s %s",
				classID, formatCoord(cx), formatCoord(cy), formatCoord(w), formatCoord(h)))
		case domain.AnnotationPolygon, domain.AnnotationKeypoint:
			points := codec.NormalizePoints(ann.Data.Points, img.Width, img.Height)
			if len(points) == 0 {
				continue
			}
			parts := make([]string, 0, len(points)+1)
			parts = append(parts, strconv.Itoa(classID))
			for _, p := range points {
				parts = append(parts, formatCoord(p))
			}
			lines = append(lines, strings.Join(parts, " "))
		default:
			log.Warnf("skipping annotation with unsupported type %q on %s", ann.Type, img.Filename)
		}
	}
	return lines
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *ExportService) writeDescriptor(outputDir string, classNames []string) error {
	absRoot, err := filepath.Abs(outputDir)
	if err != nil {
		absRoot = outputDir
	}
	descriptor := datasetDescriptor{
		Path:  absRoot,
		Train: "images/train",
		Val:   "images/val",
		NC:    len(classNames),
		Names: classNames,
	}
	raw, err := yaml.Marshal(descriptor)
	if err != nil {
		return fmt.Errorf("marshal dataset descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "data.yaml"), raw, 0o644); err != nil {
		return fmt.Errorf("write dataset descriptor: %w", err)
	}

	// Legacy plain-text class list for older tooling.
	var sb strings.Builder
	for _, name := range classNames {
		sb.WriteString(name)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(outputDir, "classes.txt"), []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write class list: %w", err)
	}
	return nil
}

// Archive packages an export directory into a zip file for download.
func Archive(exportDir, zipPath string) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	return filepath.Walk(exportDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(exportDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
