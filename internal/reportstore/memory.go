package reportstore

import (
	"context"
	"slices"
	"sync"

	"github.com/samcharles93/fitskit/internal/inspect"
)

// Memory is a Store backed by a map. Reports are stored encoded so callers
// never share slices with the store.
type Memory struct {
	mu     sync.RWMutex
	ids    idSource
	data   map[string][]byte
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, r *inspect.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := m.ids.next().String()
	r.ID = id
	data, err := marshalReport(*r)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	m.data[id] = data
	return id, nil
}

func (m *Memory) Get(ctx context.Context, id string) (inspect.Report, error) {
	if err := ctx.Err(); err != nil {
		return inspect.Report{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return inspect.Report{}, ErrClosed
	}
	data, ok := m.data[id]
	if !ok {
		return inspect.Report{}, ErrNotFound
	}
	return unmarshalReport(data)
}

func (m *Memory) List(ctx context.Context, limit int) ([]inspect.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	// KSUID strings sort in creation order.
	slices.Sort(ids)
	slices.Reverse(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]inspect.Report, 0, len(ids))
	for _, id := range ids {
		r, err := unmarshalReport(m.data[id])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}
