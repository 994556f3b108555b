package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/satriahrh/xfyun-tts/domain/repositories"
)

// LocalAudioStorage writes audio files into a directory
type LocalAudioStorage struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// Ensure LocalAudioStorage implements the AudioStorage interface
var _ repositories.AudioStorage = (*LocalAudioStorage)(nil)

// NewLocalAudioStorage creates a storage rooted at dir on the OS filesystem
func NewLocalAudioStorage(dir string, logger *zap.Logger) *LocalAudioStorage {
	return NewAudioStorage(afero.NewOsFs(), dir, logger)
}

// NewAudioStorage creates a storage rooted at dir on fs
func NewAudioStorage(fs afero.Fs, dir string, logger *zap.Logger) *LocalAudioStorage {
	if strings.TrimSpace(dir) == "" {
		dir = "audio"
	}
	return &LocalAudioStorage{fs: fs, dir: dir, logger: logger}
}

// Save writes data to <dir>/<name> atomically and returns the file path.
// An existing file with the same name is replaced.
func (s *LocalAudioStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid audio file name %q", name)
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "audio-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer s.fs.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close audio file: %w", err)
	}

	path := filepath.Join(s.dir, name)
	if err := s.fs.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename audio file: %w", err)
	}

	s.logger.Debug("Audio file written", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
