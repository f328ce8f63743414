package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrInvalidFrame = &AppError{
		Code:       "INVALID_FRAME",
		Message:    "Frame buffer does not match its declared dimensions",
		StatusCode: 422,
	}

	ErrCorruptGallery = &AppError{
		Code:       "CORRUPT_GALLERY",
		Message:    "Gallery storage exists but cannot be decoded",
		StatusCode: 500,
	}

	ErrGalleryUnavailable = &AppError{
		Code:       "GALLERY_UNAVAILABLE",
		Message:    "Gallery storage cannot be reached",
		StatusCode: 503,
	}

	ErrUnknownTask = &AppError{
		Code:       "UNKNOWN_TASK",
		Message:    "Task kind is not handled by this worker",
		StatusCode: 500,
	}

	ErrEmbeddingMismatch = &AppError{
		Code:       "EMBEDDING_MISMATCH",
		Message:    "Embedding count does not match submitted crops",
		StatusCode: 500,
	}

	ErrWorkerStopped = &AppError{
		Code:       "WORKER_STOPPED",
		Message:    "Worker is no longer accepting tasks",
		StatusCode: 503,
	}
)
