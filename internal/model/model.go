package model

import (
	"context"
	"image"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// Stack define a interface para o conjunto de modelos de reconhecimento
// facial consumido pelo pipeline. Detection, landmarks, alignment,
// feature extraction and matching are opaque capabilities; the worker
// never sees model internals.
type Stack interface {
	// DetectFaces returns zero or more face bounding boxes found in the
	// RGB frame. Zero boxes is a valid outcome, not an error.
	DetectFaces(ctx context.Context, rgb domain.Frame) ([]image.Rectangle, error)

	// FindLandmarks computes facial keypoints inside one bounding box,
	// in full-frame coordinates.
	FindLandmarks(ctx context.Context, rgb domain.Frame, box image.Rectangle) ([]image.Point, error)

	// CropAligned derives the normalized aligned face crop from landmarks.
	CropAligned(ctx context.Context, rgb domain.Frame, landmarks []image.Point) (domain.Frame, error)

	// ExtractFeatures embeds all crops of one frame in a single batched
	// invocation and returns one vector per crop, in submission order.
	ExtractFeatures(ctx context.Context, crops []domain.Frame) ([][]float64, error)

	// MatchFaces scores the embedding against every gallery candidate and
	// returns all of them ordered by descending score, ties broken by
	// gallery insertion order.
	MatchFaces(ctx context.Context, features []float64, gallery []domain.StoredFace) ([]domain.Match, error)
}
