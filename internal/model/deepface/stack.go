package deepface

import (
	"context"
	"fmt"
	"image"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model"
)

// Stack implements model.Stack against a DeepFace-style HTTP server.
// Detection and feature extraction go over the wire; alignment geometry
// and gallery matching run locally on the returned landmarks/embeddings.
type Stack struct {
	client *Client
}

// NewStack creates a DeepFace-backed model stack.
func NewStack(config Config) *Stack {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.Detector == "" {
		config.Detector = DefaultConfig().Detector
	}

	return &Stack{client: NewClient(config)}
}

func (s *Stack) DetectFaces(ctx context.Context, rgb domain.Frame) ([]image.Rectangle, error) {
	payload, err := encodeFrame(rgb)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Analyze(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("analyze frame: %w", err)
	}

	boxes := make([]image.Rectangle, 0, len(resp.Results))
	for _, r := range resp.Results {
		boxes = append(boxes, image.Rect(r.Region.X, r.Region.Y, r.Region.X+r.Region.W, r.Region.Y+r.Region.H))
	}
	return boxes, nil
}

// FindLandmarks analyzes the box region and maps the detector's eye
// coordinates back into full-frame space.
func (s *Stack) FindLandmarks(ctx context.Context, rgb domain.Frame, box image.Rectangle) ([]image.Point, error) {
	crop := rgb.Crop(box)
	if !crop.Valid() {
		return nil, ErrInvalidImageFormat
	}

	payload, err := encodeFrame(crop)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Analyze(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("analyze face region: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoFaceInResponse
	}

	region := resp.Results[0].Region
	if len(region.LeftEye) < 2 || len(region.RightEye) < 2 {
		return nil, ErrNoEyeLandmarks
	}

	origin := box.Intersect(rgb.Bounds()).Min
	return []image.Point{
		origin.Add(image.Pt(region.LeftEye[0], region.LeftEye[1])),
		origin.Add(image.Pt(region.RightEye[0], region.RightEye[1])),
	}, nil
}

// CropAligned derives the normalized crop box from the eye pair: the box
// is centered between the eyes, one eye-distance wide on each side and
// extends half above and one-and-a-half below the eye line.
func (s *Stack) CropAligned(ctx context.Context, rgb domain.Frame, landmarks []image.Point) (domain.Frame, error) {
	if len(landmarks) < 2 {
		return domain.Frame{}, ErrNoEyeLandmarks
	}

	left, right := landmarks[0], landmarks[1]
	dist := right.X - left.X
	if dist < 0 {
		dist = -dist
	}
	if dist == 0 {
		return domain.Frame{}, ErrNoEyeLandmarks
	}

	center := image.Pt((left.X+right.X)/2, (left.Y+right.Y)/2)
	box := image.Rect(center.X-dist, center.Y-dist/2, center.X+dist, center.Y+dist*3/2)

	crop := rgb.Crop(box)
	if !crop.Valid() {
		return domain.Frame{}, ErrInvalidImageFormat
	}
	return crop, nil
}

// ExtractFeatures embeds the batch and returns vectors in submission
// order. The /represent endpoint takes one image, so the batch fans out
// into one call per crop.
func (s *Stack) ExtractFeatures(ctx context.Context, crops []domain.Frame) ([][]float64, error) {
	features := make([][]float64, 0, len(crops))
	for _, crop := range crops {
		payload, err := encodeFrame(crop)
		if err != nil {
			return nil, err
		}

		resp, err := s.client.Represent(ctx, payload)
		if err != nil {
			return nil, fmt.Errorf("represent crop: %w", err)
		}
		if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
			return nil, ErrNoFaceInResponse
		}

		features = append(features, resp.Results[0].Embedding)
	}
	return features, nil
}

func (s *Stack) MatchFaces(ctx context.Context, features []float64, gallery []domain.StoredFace) ([]domain.Match, error) {
	return model.RankMatches(features, gallery), nil
}

var _ model.Stack = (*Stack)(nil)
