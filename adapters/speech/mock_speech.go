package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/xfyun-tts/domain/entities"
	"github.com/satriahrh/xfyun-tts/domain/repositories"
)

// MockTextToSpeech is an offline implementation for text-to-speech.
// It writes a deterministic byte pattern instead of calling a provider.
type MockTextToSpeech struct {
	storage repositories.AudioStorage
	logger  *zap.Logger
}

// Ensure MockTextToSpeech implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(storage repositories.AudioStorage, logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		storage: storage,
		logger:  logger,
	}
}

// Synthesize implements repositories.TextToSpeech
func (t *MockTextToSpeech) Synthesize(ctx context.Context, job entities.SynthesisJob) (entities.SynthesisResult, error) {
	started := time.Now()
	result := entities.SynthesisResult{
		JobID:     job.ID,
		TraceID:   uuid.NewString(),
		SessionID: "mock",
		StartedAt: started,
		State:     entities.SessionStateIdle,
	}

	if err := job.Validate(); err != nil {
		return result, err
	}

	t.logger.Info("Processing text-to-speech",
		zap.Int("jobID", job.ID),
		zap.Int("textLength", len(job.Text)))

	// Mock audio data - generate based on text length
	audio := make([]byte, len(job.Text)*100)
	for i := range audio {
		audio[i] = byte(i % 256)
	}

	path, err := t.storage.Save(ctx, fmt.Sprintf("%d.pcm", job.ID), audio)
	if err != nil {
		result.State = entities.SessionStateFailed
		return result, err
	}

	result.State = entities.SessionStateComplete
	result.Path = path
	result.Bytes = len(audio)
	result.Fragments = 1
	result.Duration = time.Since(started)
	return result, nil
}
