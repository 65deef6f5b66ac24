package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("No value is stored at that path")

// Update is sent to listeners whenever a path is written. Value is the raw
// JSON now stored at Key.
type Update struct {
	Key   []byte
	Value []byte
}

// Store is a JSON document addressed by gjson/sjson paths.
type Store interface {
	Set(ctx context.Context, key []byte, value interface{}) error
	Get(ctx context.Context, key []byte) ([]byte, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
