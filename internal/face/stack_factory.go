package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/liveface/internal/config"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model/deepface"
	"github.com/saturnino-fabrica-de-software/liveface/internal/model/mock"
)

// StackType defines supported model stack types
type StackType string

const (
	// StackTypeMock is the deterministic in-process stack (dev/test)
	StackTypeMock StackType = "mock"
	// StackTypeDeepFace is the DeepFace HTTP stack (real models)
	StackTypeDeepFace StackType = "deepface"
)

// NewModelStack creates a model.Stack instance based on configuration.
//
// Environment variables:
//   - MODEL_STACK: "mock" or "deepface" (default: "mock")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
func NewModelStack(cfg *config.Config) (model.Stack, error) {
	stackType := StackType(cfg.ModelStack)

	switch stackType {
	case StackTypeDeepFace:
		return createDeepFaceStack(cfg), nil

	case StackTypeMock, "":
		// Default to the deterministic stack for dev/test environments
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown model stack type: %s (supported: %s, %s)",
			cfg.ModelStack, StackTypeMock, StackTypeDeepFace)
	}
}

// createDeepFaceStack creates a DeepFace stack instance
func createDeepFaceStack(cfg *config.Config) model.Stack {
	deepfaceConfig := deepface.Config{
		BaseURL: cfg.DeepFaceURL,
	}

	// Use defaults for other fields (timeout, model, detector, retry)
	if deepfaceConfig.BaseURL == "" {
		deepfaceConfig.BaseURL = deepface.DefaultConfig().BaseURL
	}

	return deepface.NewStack(deepfaceConfig)
}
