package reportstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/samcharles93/fitskit/internal/inspect"
)

var reportPrefix = []byte("report/")

// Pebble is a Store persisted in a pebble database directory.
type Pebble struct {
	db  *pebble.DB
	ids idSource
}

func NewPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open report store %q: %w", dir, err)
	}
	return &Pebble{db: db}, nil
}

func reportKey(id []byte) []byte {
	key := make([]byte, 0, len(reportPrefix)+len(id))
	key = append(key, reportPrefix...)
	return append(key, id...)
}

func (p *Pebble) Put(ctx context.Context, r *inspect.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.db == nil {
		return "", ErrClosed
	}
	id := p.ids.next()
	r.ID = id.String()
	data, err := marshalReport(*r)
	if err != nil {
		return "", err
	}
	if err := p.db.Set(reportKey(id.Bytes()), data, pebble.Sync); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}
	return r.ID, nil
}

func (p *Pebble) Get(ctx context.Context, id string) (inspect.Report, error) {
	if err := ctx.Err(); err != nil {
		return inspect.Report{}, err
	}
	if p.db == nil {
		return inspect.Report{}, ErrClosed
	}
	k, err := parseID(id)
	if err != nil {
		return inspect.Report{}, err
	}
	data, closer, err := p.db.Get(reportKey(k.Bytes()))
	if errors.Is(err, pebble.ErrNotFound) {
		return inspect.Report{}, ErrNotFound
	}
	if err != nil {
		return inspect.Report{}, fmt.Errorf("read report: %w", err)
	}
	defer func() { _ = closer.Close() }()
	return unmarshalReport(data)
}

func (p *Pebble) List(ctx context.Context, limit int) ([]inspect.Report, error) {
	if p.db == nil {
		return nil, ErrClosed
	}
	upper := append([]byte(nil), reportPrefix...)
	upper[len(upper)-1]++
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: reportPrefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = iter.Close() }()

	var out []inspect.Report
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := unmarshalReport(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (p *Pebble) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.db == nil {
		return ErrClosed
	}
	k, err := parseID(id)
	if err != nil {
		return err
	}
	key := reportKey(k.Bytes())
	_, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	_ = closer.Close()
	return p.db.Delete(key, pebble.Sync)
}

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}
