package repositories

import "context"

// AudioStorage persists assembled audio artifacts
type AudioStorage interface {
	// Save writes data under name and returns the artifact location
	Save(ctx context.Context, name string, data []byte) (string, error)
}
