package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/satriahrh/xfyun-tts/domain/entities"
	"github.com/satriahrh/xfyun-tts/domain/repositories"
)

// JobOutcome pairs a job result with the error, if any, that ended it
type JobOutcome struct {
	Result entities.SynthesisResult
	Err    error
}

// Succeeded reports whether an audio file was produced
func (o JobOutcome) Succeeded() bool {
	return o.Err == nil && o.Result.HasAudio()
}

// SynthesisService orchestrates a batch of synthesis jobs, one session each
type SynthesisService struct {
	textToSpeech repositories.TextToSpeech
	logger       *zap.Logger
}

// NewSynthesisService creates a new synthesis service
func NewSynthesisService(tts repositories.TextToSpeech, logger *zap.Logger) *SynthesisService {
	return &SynthesisService{
		textToSpeech: tts,
		logger:       logger,
	}
}

// Run synthesizes jobs sequentially. A failed job never stops the batch;
// a cancelled ctx does.
func (s *SynthesisService) Run(ctx context.Context, jobs []entities.SynthesisJob) []JobOutcome {
	outcomes := make([]JobOutcome, 0, len(jobs))

	for _, job := range jobs {
		if ctx.Err() != nil {
			s.logger.Warn("Batch cancelled", zap.Int("remaining", len(jobs)-len(outcomes)))
			break
		}

		result, err := s.textToSpeech.Synthesize(ctx, job)
		outcomes = append(outcomes, JobOutcome{Result: result, Err: err})

		switch {
		case err == nil:
			s.logger.Info("Job finished",
				zap.Int("jobID", job.ID),
				zap.String("path", result.Path))
		case errors.Is(err, repositories.ErrNoAudio):
			s.logger.Warn("Job produced no audio", zap.Int("jobID", job.ID))
		default:
			s.logger.Error("Job failed", zap.Int("jobID", job.ID), zap.Error(err))
		}
	}

	return outcomes
}

// Locations maps each successful job id to its audio file
func Locations(outcomes []JobOutcome) map[int]string {
	locations := make(map[int]string, len(outcomes))
	for _, o := range outcomes {
		if o.Succeeded() {
			locations[o.Result.JobID] = o.Result.Path
		}
	}
	return locations
}
