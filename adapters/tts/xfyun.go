package tts

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/xfyun-tts/domain/entities"
	"github.com/satriahrh/xfyun-tts/domain/repositories"
)

// XfyunTTS implements TextToSpeech interface using the iFlytek streaming TTS API
type XfyunTTS struct {
	config  XfyunConfig
	signer  *RequestSigner
	dialer  *websocket.Dialer
	storage repositories.AudioStorage
	logger  *zap.Logger
}

// Ensure XfyunTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*XfyunTTS)(nil)

// NewXfyunTTS creates a new iFlytek TTS instance
func NewXfyunTTS(config XfyunConfig, storage repositories.AudioStorage, logger *zap.Logger) (*XfyunTTS, error) {
	if err := ValidateXfyunConfig(config); err != nil {
		return nil, err
	}

	if storage == nil {
		return nil, fmt.Errorf("audio storage is required")
	}

	config = config.withDefaults(logger)

	signer := NewRequestSigner(config.Credentials,
		WithEndpoint(config.Endpoint),
		WithSignedHost(config.SignedHost),
		WithRequestLine(config.RequestLine))

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.Timeout,
	}
	if config.TLSInsecure {
		logger.Warn("TLS certificate verification disabled")
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &XfyunTTS{
		config:  config,
		signer:  signer,
		dialer:  dialer,
		storage: storage,
		logger:  logger,
	}, nil
}

// NewSession creates a fresh, unstarted session for job. Sessions are never reused.
func (x *XfyunTTS) NewSession(job entities.SynthesisJob) *Session {
	return NewSession(job, x.config, SessionDeps{
		Signer:  x.signer,
		Dialer:  x.dialer,
		Storage: x.storage,
		Logger:  x.logger,
	})
}

// Synthesize converts the job's text to an audio file
func (x *XfyunTTS) Synthesize(ctx context.Context, job entities.SynthesisJob) (entities.SynthesisResult, error) {
	if err := job.Validate(); err != nil {
		return entities.SynthesisResult{JobID: job.ID, State: entities.SessionStateIdle}, err
	}

	x.logger.Info("Converting text to speech",
		zap.Int("jobID", job.ID),
		zap.String("voice", x.config.Business.Vcn),
		zap.String("encoding", x.config.Business.Aue))

	return x.NewSession(job).Run(ctx)
}

// Config returns the effective configuration, defaults applied
func (x *XfyunTTS) Config() XfyunConfig {
	return x.config
}
