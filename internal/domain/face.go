package domain

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// Face is the per-detection working entity. It is mutated in place as it
// advances through the pipeline stages: detection sets BoundingBox and
// Thumbnail, alignment sets Landmarks and Crop (or AlignErr), extraction
// sets Features and matching sets Matches.
type Face struct {
	BoundingBox image.Rectangle `json:"bounding_box"`
	Thumbnail   Frame           `json:"-"`
	Landmarks   []image.Point   `json:"landmarks,omitempty"`
	Crop        Frame           `json:"-"`
	Features    []float64       `json:"-"`
	Matches     []Match         `json:"matches,omitempty"`

	// AlignErr marks a per-face alignment failure. A marked face is
	// excluded from extraction and matching but stays in the result so
	// siblings are unaffected.
	AlignErr error `json:"-"`
}

// Aligned reports whether the face survived the alignment stage.
func (f *Face) Aligned() bool {
	return f.AlignErr == nil && f.Crop.Valid()
}

// StoredFace is one enrolled gallery record. Immutable once created; the
// gallery only appends or bulk-trims.
type StoredFace struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Features  []float64 `json:"-"`
	Thumbnail Frame     `json:"-"`
}

// Match is one gallery candidate with its similarity score.
type Match struct {
	Face  StoredFace `json:"face"`
	Score float64    `json:"score"`
}
