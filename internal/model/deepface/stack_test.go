package deepface

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

func testStack(t *testing.T, handler http.HandlerFunc) *Stack {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewStack(Config{BaseURL: server.URL, RetryCount: 0})
}

func testFrame() domain.Frame {
	f := domain.NewFrame(64, 64)
	for i := range f.Pix {
		f.Pix[i] = byte(i)
	}
	return f
}

func TestStack_DetectFaces(t *testing.T) {
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)

		var req AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Img)

		_ = json.NewEncoder(w).Encode(AnalyzeResponse{
			Results: []AnalyzeResult{
				{Region: FacialArea{X: 4, Y: 8, W: 16, H: 20}},
				{Region: FacialArea{X: 30, Y: 30, W: 10, H: 10}},
			},
		})
	})

	boxes, err := stack.DetectFaces(context.Background(), testFrame())
	require.NoError(t, err)
	require.Len(t, boxes, 2)
	assert.Equal(t, image.Rect(4, 8, 20, 28), boxes[0])
	assert.Equal(t, image.Rect(30, 30, 40, 40), boxes[1])
}

func TestStack_DetectFaces_NoFaces(t *testing.T) {
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AnalyzeResponse{})
	})

	boxes, err := stack.DetectFaces(context.Background(), testFrame())
	require.NoError(t, err)
	assert.Empty(t, boxes)
}

func TestStack_DetectFaces_ServerError(t *testing.T) {
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := stack.DetectFaces(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrDeepFaceUnavailable)
}

func TestStack_FindLandmarks(t *testing.T) {
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AnalyzeResponse{
			Results: []AnalyzeResult{
				{Region: FacialArea{X: 0, Y: 0, W: 16, H: 16, LeftEye: []int{4, 6}, RightEye: []int{12, 6}}},
			},
		})
	})

	// eyes come back relative to the analyzed region, offset by box origin
	landmarks, err := stack.FindLandmarks(context.Background(), testFrame(), image.Rect(10, 20, 30, 40))
	require.NoError(t, err)
	require.Len(t, landmarks, 2)
	assert.Equal(t, image.Pt(14, 26), landmarks[0])
	assert.Equal(t, image.Pt(22, 26), landmarks[1])
}

func TestStack_FindLandmarks_NoEyes(t *testing.T) {
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(AnalyzeResponse{
			Results: []AnalyzeResult{{Region: FacialArea{X: 0, Y: 0, W: 16, H: 16}}},
		})
	})

	_, err := stack.FindLandmarks(context.Background(), testFrame(), image.Rect(0, 0, 16, 16))
	assert.ErrorIs(t, err, ErrNoEyeLandmarks)
}

func TestStack_CropAligned(t *testing.T) {
	stack := NewStack(Config{})
	rgb := testFrame()

	crop, err := stack.CropAligned(context.Background(), rgb, []image.Point{{X: 20, Y: 30}, {X: 40, Y: 30}})
	require.NoError(t, err)
	// eye distance 20: box (10,20)-(50,60)
	assert.Equal(t, 40, crop.Width)
	assert.Equal(t, 40, crop.Height)

	_, err = stack.CropAligned(context.Background(), rgb, []image.Point{{X: 20, Y: 30}})
	assert.ErrorIs(t, err, ErrNoEyeLandmarks)

	_, err = stack.CropAligned(context.Background(), rgb, []image.Point{{X: 20, Y: 30}, {X: 20, Y: 31}})
	assert.ErrorIs(t, err, ErrNoEyeLandmarks)
}

func TestStack_ExtractFeatures(t *testing.T) {
	var calls int
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/represent", r.URL.Path)
		calls++
		_ = json.NewEncoder(w).Encode(RepresentResponse{
			Results: []RepresentResult{{Embedding: []float64{float64(calls), 0, 0}}},
		})
	})

	crops := []domain.Frame{testFrame().Crop(image.Rect(0, 0, 16, 16)), testFrame().Crop(image.Rect(16, 16, 32, 32))}
	features, err := stack.ExtractFeatures(context.Background(), crops)
	require.NoError(t, err)
	require.Len(t, features, 2)
	assert.Equal(t, []float64{1, 0, 0}, features[0])
	assert.Equal(t, []float64{2, 0, 0}, features[1])
	assert.Equal(t, 2, calls)
}

func TestStack_ExtractFeatures_EmptyResponse(t *testing.T) {
	stack := testStack(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(RepresentResponse{})
	})

	_, err := stack.ExtractFeatures(context.Background(), []domain.Frame{testFrame()})
	assert.ErrorIs(t, err, ErrNoFaceInResponse)
}

func TestStack_MatchFaces(t *testing.T) {
	stack := NewStack(Config{})

	gallery := []domain.StoredFace{
		{Features: []float64{0, 1}},
		{Features: []float64{1, 0}},
	}

	matches, err := stack.MatchFaces(context.Background(), []float64{1, 0}, gallery)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}
