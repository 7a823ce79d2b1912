package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"
)

const checkpointPrefix = "checkpoint:"

// SaveCheckpoint saves the last replicated sequence number for key
func (s *Storage) SaveCheckpoint(ctx context.Context, key string, seq uint64) error {
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Конвертируем uint64 в bytes
		seqBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBytes, seq)

		if err := bucket.Put([]byte(checkpointPrefix+key), seqBytes); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", key, err)
	}
	return nil
}

// GetCheckpoint retrieves the checkpoint for key
// Returns 0 if no replication has been performed yet
func (s *Storage) GetCheckpoint(ctx context.Context, key string) (uint64, error) {
	var seq uint64

	err := s.view(ctx, func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		seqBytes := bucket.Get([]byte(checkpointPrefix + key))
		if seqBytes == nil {
			// Чекпоинта нет - первая синхронизация
			return nil
		}
		if len(seqBytes) != 8 {
			return fmt.Errorf("corrupted checkpoint value: %d bytes", len(seqBytes))
		}

		seq = binary.BigEndian.Uint64(seqBytes)
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to get checkpoint %q: %w", key, err)
	}

	return seq, nil
}
