package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveface/internal/gallery"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model"
)

// DefaultNumMatches is the per-face match list length when none is
// configured.
const DefaultNumMatches = 5

// RecognitionWorker is the executor behind the supervisor: it owns
// exactly one gallery and one model stack and maps each task kind onto
// the pipeline stages. The stack is constructed on the first task so
// worker start stays cheap and model loading happens on the goroutine
// that uses it.
type RecognitionWorker struct {
	gallery    *gallery.Database
	logger     *slog.Logger
	numMatches int

	newStack func() (model.Stack, error)
	stack    model.Stack
}

func NewRecognitionWorker(db *gallery.Database, newStack func() (model.Stack, error), numMatches int, logger *slog.Logger) *RecognitionWorker {
	if numMatches <= 0 {
		numMatches = DefaultNumMatches
	}

	return &RecognitionWorker{
		gallery:    db,
		logger:     logger,
		numMatches: numMatches,
		newStack:   newStack,
	}
}

func (w *RecognitionWorker) ExecuteTask(ctx context.Context, task Task) (Result, error) {
	if w.stack == nil {
		stack, err := w.newStack()
		if err != nil {
			return nil, fmt.Errorf("init model stack: %w", err)
		}
		w.stack = stack
	}

	switch t := task.(type) {
	case RecognizeFaces:
		return w.recognize(ctx, t.Frame)

	case BackupFaceDatabase:
		if err := w.gallery.Persist(ctx); err != nil {
			return nil, err
		}
		return nil, nil

	case RegisterFaces:
		return w.register(t.Result), nil

	case UnregisterMostRecentFaces:
		return &UnregistrationResult{Persons: w.gallery.RemoveMostRecent()}, nil

	case Shutdown:
		// consumed by the supervisor, must never get here
		return nil, domain.ErrUnknownTask.WithError(fmt.Errorf("shutdown sentinel reached the dispatcher"))

	default:
		return nil, domain.ErrUnknownTask.WithError(fmt.Errorf("%T", task))
	}
}

func (w *RecognitionWorker) recognize(ctx context.Context, bgr domain.Frame) (Result, error) {
	if !bgr.Valid() {
		return nil, domain.ErrInvalidFrame
	}

	rgb := bgr.RGB()

	faces, err := w.detectFaces(ctx, rgb, bgr)
	if err != nil {
		return nil, err
	}

	if len(faces) > 0 {
		w.alignFaces(ctx, rgb, faces)
		if err := w.extractFeatures(ctx, faces); err != nil {
			return nil, err
		}
		if err := w.findMatches(ctx, faces); err != nil {
			return nil, err
		}
	}

	return &RecognitionResult{Faces: faces}, nil
}

// detectFaces builds one Face per bounding box: boxes come from the RGB
// inference image, thumbnails are cropped from the BGR original.
func (w *RecognitionWorker) detectFaces(ctx context.Context, rgb, bgr domain.Frame) ([]domain.Face, error) {
	defer w.timed("detect")()

	boxes, err := w.stack.DetectFaces(ctx, rgb)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]domain.Face, 0, len(boxes))
	for _, box := range boxes {
		faces = append(faces, domain.Face{
			BoundingBox: box,
			Thumbnail:   bgr.Crop(box),
		})
	}
	return faces, nil
}

// alignFaces computes landmarks and the normalized crop per face. A
// failure marks only that face; siblings in the same frame proceed.
func (w *RecognitionWorker) alignFaces(ctx context.Context, rgb domain.Frame, faces []domain.Face) {
	defer w.timed("align")()

	for i := range faces {
		landmarks, err := w.stack.FindLandmarks(ctx, rgb, faces[i].BoundingBox)
		if err != nil {
			faces[i].AlignErr = err
			w.logger.Warn("face alignment failed", "box", faces[i].BoundingBox, "error", err)
			continue
		}
		faces[i].Landmarks = landmarks

		crop, err := w.stack.CropAligned(ctx, rgb, landmarks)
		if err != nil {
			faces[i].AlignErr = err
			w.logger.Warn("face crop failed", "box", faces[i].BoundingBox, "error", err)
			continue
		}
		faces[i].Crop = crop
	}
}

// extractFeatures batches all aligned crops of the frame into a single
// model invocation and distributes the embeddings back in order.
func (w *RecognitionWorker) extractFeatures(ctx context.Context, faces []domain.Face) error {
	defer w.timed("extract")()

	aligned := make([]int, 0, len(faces))
	crops := make([]domain.Frame, 0, len(faces))
	for i := range faces {
		if faces[i].Aligned() {
			aligned = append(aligned, i)
			crops = append(crops, faces[i].Crop)
		}
	}
	if len(crops) == 0 {
		return nil
	}

	features, err := w.stack.ExtractFeatures(ctx, crops)
	if err != nil {
		return fmt.Errorf("extract features: %w", err)
	}
	if len(features) != len(crops) {
		return domain.ErrEmbeddingMismatch.WithError(fmt.Errorf("got %d for %d crops", len(features), len(crops)))
	}

	for n, i := range aligned {
		faces[i].Features = features[n]
	}
	return nil
}

// findMatches ranks the gallery per face and keeps the top numMatches.
// The gallery itself is never mutated here.
func (w *RecognitionWorker) findMatches(ctx context.Context, faces []domain.Face) error {
	defer w.timed("match")()

	for i := range faces {
		if faces[i].Features == nil {
			continue
		}

		matches, err := w.stack.MatchFaces(ctx, faces[i].Features, w.gallery.Faces())
		if err != nil {
			return fmt.Errorf("match faces: %w", err)
		}
		if len(matches) > w.numMatches {
			matches = matches[:w.numMatches]
		}
		faces[i].Matches = matches
	}
	return nil
}

func (w *RecognitionWorker) register(result *RecognitionResult) Result {
	if result == nil || len(result.Faces) == 0 {
		return &RegistrationResult{Persons: []domain.StoredFace{}}
	}

	// faces that never got features carry nothing worth matching later
	registrable := make([]domain.Face, 0, len(result.Faces))
	for _, face := range result.Faces {
		if face.Features != nil {
			registrable = append(registrable, face)
		}
	}
	if len(registrable) == 0 {
		return &RegistrationResult{Persons: []domain.StoredFace{}}
	}

	return &RegistrationResult{Persons: w.gallery.AddAll(registrable)}
}

// timed logs stage runtime at debug level.
func (w *RecognitionWorker) timed(stage string) func() {
	start := time.Now()
	return func() {
		w.logger.Debug("stage complete", "stage", stage, "duration", time.Since(start))
	}
}

var _ Executor = (*RecognitionWorker)(nil)
