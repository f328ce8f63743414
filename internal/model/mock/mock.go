package mock

import (
	"context"
	"crypto/sha256"
	"image"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model"
)

const (
	embeddingDimension = 128

	// blockSize is the tile edge used by the fake detector.
	blockSize = 16

	// detectionThreshold is the mean tile brightness above which a tile
	// counts as a face.
	detectionThreshold = 128
)

// Stack implementa model.Stack para testes e desenvolvimento. Detection is
// a brightness threshold over fixed tiles, embeddings are deterministic
// hashes of the crop pixels, so the same frame always produces the same
// pipeline output.
type Stack struct{}

// New cria uma nova instância do mock Stack.
func New() *Stack {
	return &Stack{}
}

// DetectFaces marks every bright blockSize tile as one face.
func (s *Stack) DetectFaces(ctx context.Context, rgb domain.Frame) ([]image.Rectangle, error) {
	if !rgb.Valid() {
		return nil, domain.ErrInvalidFrame
	}

	var boxes []image.Rectangle
	for y := 0; y+blockSize <= rgb.Height; y += blockSize {
		for x := 0; x+blockSize <= rgb.Width; x += blockSize {
			box := image.Rect(x, y, x+blockSize, y+blockSize)
			if meanBrightness(rgb.Crop(box)) >= detectionThreshold {
				boxes = append(boxes, box)
			}
		}
	}

	return boxes, nil
}

// FindLandmarks derives five keypoints from the box geometry: two eyes,
// nose tip and two mouth corners.
func (s *Stack) FindLandmarks(ctx context.Context, rgb domain.Frame, box image.Rectangle) ([]image.Point, error) {
	box = box.Intersect(rgb.Bounds())
	if box.Empty() {
		return nil, domain.ErrInvalidFrame.WithError(nil)
	}

	w, h := box.Dx(), box.Dy()
	return []image.Point{
		{X: box.Min.X + w/4, Y: box.Min.Y + h/3},     // left eye
		{X: box.Min.X + 3*w/4, Y: box.Min.Y + h/3},   // right eye
		{X: box.Min.X + w/2, Y: box.Min.Y + h/2},     // nose
		{X: box.Min.X + w/3, Y: box.Min.Y + 3*h/4},   // mouth left
		{X: box.Min.X + 2*w/3, Y: box.Min.Y + 3*h/4}, // mouth right
	}, nil
}

// CropAligned crops the landmark hull expanded by a third on each side.
func (s *Stack) CropAligned(ctx context.Context, rgb domain.Frame, landmarks []image.Point) (domain.Frame, error) {
	if len(landmarks) == 0 {
		return domain.Frame{}, domain.ErrInvalidFrame
	}

	hull := image.Rectangle{Min: landmarks[0], Max: landmarks[0].Add(image.Pt(1, 1))}
	for _, p := range landmarks[1:] {
		hull = hull.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	hull = hull.Inset(-hull.Dx() / 3)

	crop := rgb.Crop(hull)
	if !crop.Valid() {
		return domain.Frame{}, domain.ErrInvalidFrame
	}
	return crop, nil
}

// ExtractFeatures gera embeddings determinísticos baseados no hash dos
// pixels de cada crop.
func (s *Stack) ExtractFeatures(ctx context.Context, crops []domain.Frame) ([][]float64, error) {
	features := make([][]float64, 0, len(crops))
	for _, crop := range crops {
		if !crop.Valid() {
			return nil, domain.ErrInvalidFrame
		}
		features = append(features, generateEmbedding(crop.Pix))
	}
	return features, nil
}

// MatchFaces ranks the whole gallery by cosine similarity.
func (s *Stack) MatchFaces(ctx context.Context, features []float64, gallery []domain.StoredFace) ([]domain.Match, error) {
	return model.RankMatches(features, gallery), nil
}

// generateEmbedding gera um vetor unitário determinístico a partir do hash
// dos pixels.
func generateEmbedding(pix []byte) []float64 {
	hash := sha256.Sum256(pix)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	return model.NormalizeEmbedding(embedding)
}

func meanBrightness(f domain.Frame) int {
	if len(f.Pix) == 0 {
		return 0
	}
	var sum int
	for _, b := range f.Pix {
		sum += int(b)
	}
	return sum / len(f.Pix)
}

var _ model.Stack = (*Stack)(nil)
