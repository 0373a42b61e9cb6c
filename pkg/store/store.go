// Package store provides the backing store and the cache store of the lookup
// pipeline, either on SQLite or in process memory.
package store

import (
	"fmt"

	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/vmihailenco/msgpack/v5"
)

// Drivers selectable from configuration.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store serves both the items collection and the cache collection.
type Store interface {
	lookup.BackingStore
	lookup.CacheStore
	// PutItems inserts or replaces documents of kg.
	PutItems(kg string, docs ...lookup.Document) error
	Close() error
}

// Options select and size a store.
type Options struct {
	Driver string
	// Path of the SQLite database, ":memory:" for a private in-memory database.
	Path string
	// MaxEntries bounds the memory cache collection.
	MaxEntries int
}

// DriverOf returns the driver a configured name selects. An empty name means SQLite.
func DriverOf(name string) string {
	if name == "" {
		return DriverSQLite
	}
	return name
}

// New opens the store named by opts.Driver.
func New(opts Options) (Store, error) {
	switch DriverOf(opts.Driver) {
	case DriverSQLite:
		return OpenSQLite(opts.Path)
	case DriverMemory:
		return NewMemory(opts.MaxEntries)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func encodeCandidates(c []lookup.Candidate) ([]byte, error) {
	data, err := msgpack.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode candidates: %w", err)
	}
	return data, nil
}

func decodeCandidates(data []byte) ([]lookup.Candidate, error) {
	var c []lookup.Candidate
	if err := msgpack.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}
	if c == nil {
		c = []lookup.Candidate{}
	}
	return c, nil
}

func encodeLabels(labels map[string]string) ([]byte, error) {
	return msgpack.Marshal(labels)
}

func decodeLabels(data []byte) (map[string]string, error) {
	labels := make(map[string]string)
	if len(data) == 0 {
		return labels, nil
	}
	if err := msgpack.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	return labels, nil
}
