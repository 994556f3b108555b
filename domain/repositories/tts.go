package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/xfyun-tts/domain/entities"
)

// ErrNoAudio is returned by a TextToSpeech whose session completed without
// any audio. It is a soft outcome, not a failure of the provider.
var ErrNoAudio = errors.New("no audio data received")

// TextToSpeech abstracts a remote speech synthesis provider.
// Each call drives exactly one session against the provider.
type TextToSpeech interface {
	Synthesize(ctx context.Context, job entities.SynthesisJob) (entities.SynthesisResult, error)
}
