package market

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/hypersdk/state"
)

var _ state.Mutable = (*txn)(nil)

type observation struct {
	value []byte
	found bool
}

type write struct {
	value   []byte
	deleted bool
}

// txn buffers the writes of one operation over a database and remembers the
// first value it observed for every key it read.
type txn struct {
	db     database.KeyValueReader
	reads  map[string]observation
	writes map[string]write
}

func newTxn(db database.KeyValueReader) *txn {
	return &txn{
		db:     db,
		reads:  make(map[string]observation),
		writes: make(map[string]write),
	}
}

func (t *txn) GetValue(_ context.Context, key []byte) ([]byte, error) {
	k := string(key)
	if w, ok := t.writes[k]; ok {
		if w.deleted {
			return nil, database.ErrNotFound
		}
		return slices.Clone(w.value), nil
	}
	if o, ok := t.reads[k]; ok {
		if !o.found {
			return nil, database.ErrNotFound
		}
		return slices.Clone(o.value), nil
	}
	v, err := t.db.Get(key)
	switch {
	case errors.Is(err, database.ErrNotFound):
		t.reads[k] = observation{}
		return nil, database.ErrNotFound
	case err != nil:
		return nil, err
	}
	t.reads[k] = observation{value: slices.Clone(v), found: true}
	return v, nil
}

func (t *txn) Insert(_ context.Context, key []byte, value []byte) error {
	t.writes[string(key)] = write{value: slices.Clone(value)}
	return nil
}

func (t *txn) Remove(_ context.Context, key []byte) error {
	t.writes[string(key)] = write{deleted: true}
	return nil
}

// validate fails with ErrConflict when any observed key no longer holds the
// value this txn read.
func (t *txn) validate(db database.KeyValueReader) error {
	for k, o := range t.reads {
		v, err := db.Get([]byte(k))
		switch {
		case errors.Is(err, database.ErrNotFound):
			if o.found {
				return fmt.Errorf("%w: key %x was removed", ErrConflict, k)
			}
		case err != nil:
			return err
		case !o.found || !bytes.Equal(v, o.value):
			return fmt.Errorf("%w: key %x was modified", ErrConflict, k)
		}
	}
	return nil
}

// flush writes every buffered change in a single batch.
func (t *txn) flush(db database.Database) error {
	if len(t.writes) == 0 {
		return nil
	}
	batch := db.NewBatch()
	for k, w := range t.writes {
		var err error
		if w.deleted {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), w.value)
		}
		if err != nil {
			return err
		}
	}
	return batch.Write()
}
