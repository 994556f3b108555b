package speech

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/xfyun-tts/adapters/storage"
	"github.com/satriahrh/xfyun-tts/domain/entities"
)

func TestMockTextToSpeech_Synthesize(t *testing.T) {
	logger := zaptest.NewLogger(t)
	fs := afero.NewMemMapFs()
	tts := NewMockTextToSpeech(storage.NewAudioStorage(fs, "audio", logger), logger)

	result, err := tts.Synthesize(context.Background(), entities.SynthesisJob{ID: 2, Text: "abc"})
	require.NoError(t, err)
	require.Equal(t, entities.SessionStateComplete, result.State)
	require.Equal(t, 300, result.Bytes)

	data, err := afero.ReadFile(fs, result.Path)
	require.NoError(t, err)
	require.Len(t, data, 300)
	require.Equal(t, byte(255), data[255])
	require.Equal(t, byte(0), data[256])
}

func TestMockTextToSpeech_EmptyText(t *testing.T) {
	logger := zaptest.NewLogger(t)
	tts := NewMockTextToSpeech(storage.NewAudioStorage(afero.NewMemMapFs(), "audio", logger), logger)

	_, err := tts.Synthesize(context.Background(), entities.SynthesisJob{ID: 2, Text: ""})
	require.Error(t, err)
}
