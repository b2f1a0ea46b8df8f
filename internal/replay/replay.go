// Package replay is an optional, additive raw-response store: a pebble
// database keyed by URL, holding zstd-compressed response bodies so a
// fetch run can be replayed offline without hitting the upstream service
// again. A nil *Store is valid everywhere it's used -- Run behaves
// identically with or without one.
package replay

import (
	"fmt"

	"github.com/cockroachdb/pebble/v2"
	"github.com/klauspost/compress/zstd"
)

// Store persists raw SummaryCards bodies, compressed, keyed by the URL
// that produced them.
type Store struct {
	db  *pebble.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (or creates) a replay store at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("replay: open pebble db: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("replay: new encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("replay: new decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the underlying database and codec resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

// Put compresses and stores rawBody under url, overwriting any prior entry.
func (s *Store) Put(url string, rawBody []byte) error {
	compressed := s.enc.EncodeAll(rawBody, nil)
	return s.db.Set([]byte(url), compressed, pebble.Sync)
}

// Get returns the decompressed body previously stored for url, if any.
func (s *Store) Get(url string) ([]byte, bool) {
	compressed, closer, err := s.db.Get([]byte(url))
	if err != nil {
		return nil, false
	}
	defer closer.Close()

	body, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, false
	}
	return body, true
}

// Has reports whether a body is already stored for url, without paying
// the decompression cost.
func (s *Store) Has(url string) bool {
	_, closer, err := s.db.Get([]byte(url))
	if err != nil {
		return false
	}
	closer.Close()
	return true
}
