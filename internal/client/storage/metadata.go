package storage

import "context"

// MetadataStorage defines interface for storing replication checkpoints
type MetadataStorage interface {
	// SaveCheckpoint saves the last replicated sequence number for key
	SaveCheckpoint(ctx context.Context, key string, seq uint64) error

	// GetCheckpoint retrieves the checkpoint for key
	// Returns 0 if no replication has been performed yet
	GetCheckpoint(ctx context.Context, key string) (uint64, error)
}
