package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/liveface/internal/domain"
	"github.com/saturnino-fabrica-de-software/liveface/internal/worker"
)

// TaskSubmitter enqueues tasks without blocking the request path.
type TaskSubmitter interface {
	TrySubmit(task worker.Task) error
}

// RecognitionSource exposes the most recent recognition result, which is
// what a register request enrolls.
type RecognitionSource interface {
	LatestRecognition() *worker.RecognitionResult
}

// TaskHandler translates control-plane requests into worker tasks. Every
// endpoint answers 202: execution happens on the worker goroutine and the
// outcome arrives over the event stream.
type TaskHandler struct {
	tasks        TaskSubmitter
	recognitions RecognitionSource
	logger       *slog.Logger
}

func NewTaskHandler(tasks TaskSubmitter, recognitions RecognitionSource, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:        tasks,
		recognitions: recognitions,
		logger:       logger,
	}
}

// RecognizeRequest carries one raw BGR frame. Pixels is base64 in JSON,
// interleaved 3 bytes per pixel, row-major.
type RecognizeRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

type TaskAcceptedResponse struct {
	Status string `json:"status"`
	Task   string `json:"task"`
}

// Recognize POST /v1/tasks/recognize - queue a frame for the pipeline
func (h *TaskHandler) Recognize(c *fiber.Ctx) error {
	var req RecognizeRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	frame := domain.Frame{Width: req.Width, Height: req.Height, Pix: req.Pixels}
	if !frame.Valid() {
		return domain.ErrInvalidFrame.WithError(
			errors.New("pixel buffer length must be width*height*3"))
	}

	return h.accept(c, worker.RecognizeFaces{Frame: frame}, "recognize")
}

// Register POST /v1/tasks/register - enroll the latest recognition result
func (h *TaskHandler) Register(c *fiber.Ctx) error {
	result := h.recognitions.LatestRecognition()
	if result == nil {
		return domain.ErrBadRequest.WithError(
			errors.New("no recognition result available to register"))
	}

	return h.accept(c, worker.RegisterFaces{Result: result}, "register")
}

// Unregister POST /v1/tasks/unregister - remove the latest registration batch
func (h *TaskHandler) Unregister(c *fiber.Ctx) error {
	return h.accept(c, worker.UnregisterMostRecentFaces{}, "unregister")
}

// Backup POST /v1/tasks/backup - flush the gallery to storage
func (h *TaskHandler) Backup(c *fiber.Ctx) error {
	return h.accept(c, worker.BackupFaceDatabase{}, "backup")
}

func (h *TaskHandler) accept(c *fiber.Ctx, task worker.Task, name string) error {
	if err := h.tasks.TrySubmit(task); err != nil {
		h.logger.Warn("task rejected", "task", name, "error", err)
		return err
	}

	h.logger.Debug("task accepted", "task", name)
	return c.Status(fiber.StatusAccepted).JSON(TaskAcceptedResponse{
		Status: "accepted",
		Task:   name,
	})
}
