// Package codec holds the pure conversion logic shared by the ingestion
// path and the dataset importer/exporter: wire payload decoding and
// coordinate transforms between absolute pixel corners and the normalized
// center-extent representation used by label files.
package codec

import (
	"math"

	"github.com/camthink-ai/AIToolStack/internal/core/domain"
)

// round6 keeps label files stable across runs: 6 decimal places, matching
// the precision downstream training tools expect.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// NormalizeBBox converts absolute pixel corners to normalized center-extent
// coordinates in [0,1], rounded to 6 decimal places.
func NormalizeBBox(b domain.BBox, imgWidth, imgHeight int) (cx, cy, w, h float64) {
	boxW := b.XMax - b.XMin
	boxH := b.YMax - b.YMin

	cx = round6((b.XMin + boxW/2) / float64(imgWidth))
	cy = round6((b.YMin + boxH/2) / float64(imgHeight))
	w = round6(boxW / float64(imgWidth))
	h = round6(boxH / float64(imgHeight))
	return cx, cy, w, h
}

// DenormalizeBBox converts normalized center-extent coordinates back to
// absolute pixel corners. Inputs outside [0,1] indicate a malformed label
// line and are rejected with ErrCoordOutOfRange.
func DenormalizeBBox(cx, cy, w, h float64, imgWidth, imgHeight int) (domain.BBox, error) {
	for _, v := range []float64{cx, cy, w, h} {
		if v < 0 || v > 1 {
			return domain.BBox{}, domain.ErrCoordOutOfRange
		}
	}

	fw := float64(imgWidth)
	fh := float64(imgHeight)
	return domain.BBox{
		XMin: (cx - w/2) * fw,
		YMin: (cy - h/2) * fh,
		XMax: (cx + w/2) * fw,
		YMax: (cy + h/2) * fh,
	}, nil
}

// NormalizePoints flattens a polygon or keypoint path into normalized
// [x1 y1 x2 y2 ...] order for label lines.
func NormalizePoints(points [][]float64, imgWidth, imgHeight int) []float64 {
	out := make([]float64, 0, len(points)*2)
	for _, p := range points {
		if len(p) < 2 {
			continue
		}
		out = append(out, round6(p[0]/float64(imgWidth)), round6(p[1]/float64(imgHeight)))
	}
	return out
}
