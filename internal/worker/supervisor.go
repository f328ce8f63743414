package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
)

// DefaultQueueCapacity is the task/result channel buffer when none is
// configured.
const DefaultQueueCapacity = 1024

// Executor runs one task to completion. A nil result means the task
// produces no output; any error is fatal for the worker.
type Executor interface {
	ExecuteTask(ctx context.Context, task Task) (Result, error)
}

// Supervisor runs an executor in an isolated goroutine connected to its
// caller by exactly three one-directional FIFO channels: tasks in,
// results and fatal errors out. No other state is shared.
//
// The loop blocks on the task channel until the Shutdown sentinel
// arrives, then drains (discards without executing) everything queued
// behind it before terminating. The first executor error or panic is
// converted into a single Fatal envelope and ends the worker immediately,
// without the drain.
type Supervisor struct {
	executor Executor
	logger   *slog.Logger

	tasks   chan Task
	results chan Result
	errs    chan Fatal
}

func NewSupervisor(executor Executor, queueCapacity int, logger *slog.Logger) *Supervisor {
	if queueCapacity <= 0 {
		queueCapacity = DefaultQueueCapacity
	}

	return &Supervisor{
		executor: executor,
		logger:   logger,
		tasks:    make(chan Task, queueCapacity),
		results:  make(chan Result, queueCapacity),
		errs:     make(chan Fatal, 1),
	}
}

// Submit enqueues a task, blocking while the queue is full. Tasks are
// executed in submission order.
func (s *Supervisor) Submit(task Task) {
	s.tasks <- task
}

// TrySubmit enqueues a task without blocking. It fails when the queue is
// full, which callers on a request path should surface as back-pressure.
func (s *Supervisor) TrySubmit(task Task) error {
	select {
	case s.tasks <- task:
		return nil
	default:
		return domain.ErrWorkerStopped.WithError(fmt.Errorf("task queue full (%d)", cap(s.tasks)))
	}
}

// Results is the ordered stream of task outputs. Closed when the worker
// terminates.
func (s *Supervisor) Results() <-chan Result {
	return s.results
}

// Errors carries at most one Fatal envelope. Closed when the worker
// terminates.
func (s *Supervisor) Errors() <-chan Fatal {
	return s.errs
}

// Run consumes tasks until Shutdown or a fatal failure. It owns the
// result and error channels and closes both on exit.
func (s *Supervisor) Run(ctx context.Context) {
	defer close(s.errs)
	defer close(s.results)

	s.logger.Info("worker started")

	if err := s.loop(ctx); err != nil {
		s.logger.Error("worker terminated", "error", err)
		s.errs <- Fatal{Message: err.Error(), Time: time.Now()}
		return
	}

	s.drain()
	s.logger.Info("worker stopped")
}

func (s *Supervisor) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during task execution: %v", r)
		}
	}()

	for task := range s.tasks {
		if _, ok := task.(Shutdown); ok {
			return nil
		}

		result, err := s.executor.ExecuteTask(ctx, task)
		if err != nil {
			return fmt.Errorf("execute %T: %w", task, err)
		}
		if result != nil {
			s.results <- result
		}
	}

	return nil
}

// drain empties the task queue after Shutdown, discarding every task so
// nothing enqueued concurrently with shutdown is left behind.
func (s *Supervisor) drain() {
	discarded := 0
	for {
		select {
		case <-s.tasks:
			discarded++
		default:
			if discarded > 0 {
				s.logger.Info("discarded queued tasks on shutdown", "count", discarded)
			}
			return
		}
	}
}
