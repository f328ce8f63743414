package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// taggedFrame makes RecognizeFaces tasks distinguishable in assertions:
// the frame width doubles as the task tag.
func taggedFrame(tag int) domain.Frame {
	return domain.NewFrame(tag, 1)
}

// echoScript turns every RecognizeFaces task into a result carrying its
// tag, so ordering is observable on the result channel.
func echoScript(task Task) (Result, error) {
	if r, ok := task.(RecognizeFaces); ok {
		return &RecognitionResult{
			Faces: []domain.Face{{Features: []float64{float64(r.Frame.Width)}}},
		}, nil
	}
	return nil, nil
}

func resultTag(t *testing.T, result Result) int {
	t.Helper()
	recognition, ok := result.(*RecognitionResult)
	require.True(t, ok)
	require.Len(t, recognition.Faces, 1)
	return int(recognition.Faces[0].Features[0])
}

// runToCompletion starts the supervisor and collects everything from the
// result and error channels until the worker terminates.
func runToCompletion(s *Supervisor) ([]Result, []Fatal) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(context.Background())
	}()

	var results []Result
	for result := range s.Results() {
		results = append(results, result)
	}
	var fatals []Fatal
	for fatal := range s.Errors() {
		fatals = append(fatals, fatal)
	}
	<-done

	return results, fatals
}

func TestSupervisor_FIFOAndResultOrder(t *testing.T) {
	executor := &scriptedExecutor{script: echoScript}
	s := NewSupervisor(executor, 16, testLogger())

	s.Submit(RecognizeFaces{Frame: taggedFrame(1)})
	s.Submit(RecognizeFaces{Frame: taggedFrame(2)})
	s.Submit(RecognizeFaces{Frame: taggedFrame(3)})
	s.Submit(Shutdown{})

	results, fatals := runToCompletion(s)

	require.Len(t, results, 3)
	assert.Equal(t, 1, resultTag(t, results[0]))
	assert.Equal(t, 2, resultTag(t, results[1]))
	assert.Equal(t, 3, resultTag(t, results[2]))
	assert.Empty(t, fatals)
	assert.Len(t, executor.executed, 3)
}

func TestSupervisor_NilResultsProduceNothing(t *testing.T) {
	executor := &scriptedExecutor{}
	s := NewSupervisor(executor, 16, testLogger())

	s.Submit(BackupFaceDatabase{})
	s.Submit(UnregisterMostRecentFaces{})
	s.Submit(Shutdown{})

	results, fatals := runToCompletion(s)

	assert.Empty(t, results)
	assert.Empty(t, fatals)
	assert.Len(t, executor.executed, 2)
}

func TestSupervisor_ShutdownDrainsQueuedTasks(t *testing.T) {
	executor := &scriptedExecutor{script: echoScript}
	s := NewSupervisor(executor, 16, testLogger())

	s.Submit(RecognizeFaces{Frame: taggedFrame(1)})
	s.Submit(RecognizeFaces{Frame: taggedFrame(2)})
	s.Submit(Shutdown{})
	// enqueued behind the sentinel: discarded, never executed
	s.Submit(RecognizeFaces{Frame: taggedFrame(3)})

	results, fatals := runToCompletion(s)

	require.Len(t, results, 2)
	assert.Equal(t, 1, resultTag(t, results[0]))
	assert.Equal(t, 2, resultTag(t, results[1]))
	assert.Empty(t, fatals)

	require.Len(t, executor.executed, 2)
	assert.Equal(t, RecognizeFaces{Frame: taggedFrame(1)}, executor.executed[0])
	assert.Equal(t, RecognizeFaces{Frame: taggedFrame(2)}, executor.executed[1])
}

func TestSupervisor_ExecutorErrorIsFatal(t *testing.T) {
	boom := errors.New("model blew up")
	executor := &scriptedExecutor{
		script: func(task Task) (Result, error) {
			if r, ok := task.(RecognizeFaces); ok && r.Frame.Width == 2 {
				return nil, boom
			}
			return echoScript(task)
		},
	}
	s := NewSupervisor(executor, 16, testLogger())

	s.Submit(RecognizeFaces{Frame: taggedFrame(1)})
	s.Submit(RecognizeFaces{Frame: taggedFrame(2)})
	// already queued when the failure happens: must never execute
	s.Submit(RecognizeFaces{Frame: taggedFrame(3)})

	results, fatals := runToCompletion(s)

	require.Len(t, results, 1)
	assert.Equal(t, 1, resultTag(t, results[0]))

	require.Len(t, fatals, 1)
	assert.Contains(t, fatals[0].Message, "model blew up")
	assert.False(t, fatals[0].Time.IsZero())

	assert.Len(t, executor.executed, 2)
}

func TestSupervisor_PanicIsFatal(t *testing.T) {
	executor := &scriptedExecutor{
		script: func(task Task) (Result, error) {
			panic("index out of range in inference code")
		},
	}
	s := NewSupervisor(executor, 16, testLogger())

	s.Submit(RecognizeFaces{Frame: taggedFrame(1)})
	s.Submit(RecognizeFaces{Frame: taggedFrame(2)})

	results, fatals := runToCompletion(s)

	assert.Empty(t, results)
	require.Len(t, fatals, 1)
	assert.Contains(t, fatals[0].Message, "panic")
	assert.Len(t, executor.executed, 1)
}

func TestSupervisor_TrySubmitBackPressure(t *testing.T) {
	s := NewSupervisor(&scriptedExecutor{}, 2, testLogger())

	require.NoError(t, s.TrySubmit(BackupFaceDatabase{}))
	require.NoError(t, s.TrySubmit(BackupFaceDatabase{}))

	err := s.TrySubmit(BackupFaceDatabase{})
	require.Error(t, err)

	var appErr *domain.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, domain.ErrWorkerStopped.Code, appErr.Code)
}

// scriptedExecutor records execution order and runs a per-task script.
type scriptedExecutor struct {
	executed []Task
	script   func(task Task) (Result, error)
}

func (e *scriptedExecutor) ExecuteTask(ctx context.Context, task Task) (Result, error) {
	e.executed = append(e.executed, task)
	if e.script != nil {
		return e.script(task)
	}
	return nil, nil
}
