package worker

import (
	"time"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// Task is one unit of work submitted to the recognition worker. The
// variant set is closed: the dispatcher matches exhaustively and treats
// anything else as a programming error.
type Task interface {
	isTask()
}

// RecognizeFaces runs the full detect, align, extract, match pipeline
// over one camera frame (BGR pixel buffer).
type RecognizeFaces struct {
	Frame domain.Frame
}

// BackupFaceDatabase trims the gallery to its cap and flushes it to
// storage. Produces no result.
type BackupFaceDatabase struct{}

// RegisterFaces enrolls every face of an earlier recognition result into
// the gallery as one batch.
type RegisterFaces struct {
	Result *RecognitionResult
}

// UnregisterMostRecentFaces removes the most recent registration batch.
type UnregisterMostRecentFaces struct{}

// Shutdown is the stop sentinel. The supervisor consumes it; it never
// reaches the dispatcher.
type Shutdown struct{}

func (RecognizeFaces) isTask()            {}
func (BackupFaceDatabase) isTask()        {}
func (RegisterFaces) isTask()             {}
func (UnregisterMostRecentFaces) isTask() {}
func (Shutdown) isTask()                  {}

// Result is one unit of output pushed onto the result channel, in the
// order the producing tasks executed.
type Result interface {
	isResult()
}

// RecognitionResult carries the faces produced for one frame. Zero faces
// is a valid result, not an error.
type RecognitionResult struct {
	Faces []domain.Face
}

// RegistrationResult lists the identities stored by one RegisterFaces.
type RegistrationResult struct {
	Persons []domain.StoredFace
}

// UnregistrationResult lists the identities removed by one
// UnregisterMostRecentFaces.
type UnregistrationResult struct {
	Persons []domain.StoredFace
}

func (*RecognitionResult) isResult()    {}
func (*RegistrationResult) isResult()   {}
func (*UnregistrationResult) isResult() {}

// Fatal signals that the worker terminated on an unhandled failure.
// Exactly one Fatal appears on the error channel per worker lifetime.
type Fatal struct {
	Message string
	Time    time.Time
}
