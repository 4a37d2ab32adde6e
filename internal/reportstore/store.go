// Package reportstore persists inspection reports keyed by time-ordered IDs.
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/segmentio/ksuid"

	"github.com/samcharles93/fitskit/internal/inspect"
)

var (
	ErrNotFound = errors.New("reportstore: report not found")
	ErrClosed   = errors.New("reportstore: store is closed")
)

// Store keeps reports. Put assigns the report ID; List returns the newest
// reports first.
type Store interface {
	Put(ctx context.Context, r *inspect.Report) (string, error)
	Get(ctx context.Context, id string) (inspect.Report, error)
	List(ctx context.Context, limit int) ([]inspect.Report, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns a pebble store under dir, or an in-memory store when dir is
// empty.
func Open(dir string) (Store, error) {
	if dir == "" {
		return NewMemory(), nil
	}
	return NewPebble(dir)
}

// idSource hands out strictly increasing KSUIDs so that reports created in
// the same second still list in creation order.
type idSource struct {
	mu   sync.Mutex
	last ksuid.KSUID
}

func (s *idSource) next() ksuid.KSUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ksuid.New()
	if ksuid.Compare(id, s.last) <= 0 {
		id = s.last.Next()
	}
	s.last = id
	return id
}

func parseID(id string) (ksuid.KSUID, error) {
	k, err := ksuid.Parse(id)
	if err != nil {
		return ksuid.Nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return k, nil
}

func marshalReport(r inspect.Report) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

func unmarshalReport(data []byte) (inspect.Report, error) {
	var r inspect.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return inspect.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Pebble)(nil)
)
