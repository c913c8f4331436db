package store

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Xausdorf/presentation-poll/internal/usecase"
)

// table keeps rows by primary key and remembers insertion order for scans.
// A committed table is never mutated; transactions write to clones.
type table[K comparable, V any] struct {
	rows  map[K]V
	order []K
}

func newTable[K comparable, V any]() *table[K, V] {
	return &table[K, V]{rows: make(map[K]V)}
}

func (t *table[K, V]) clone() *table[K, V] {
	return &table[K, V]{
		rows:  maps.Clone(t.rows),
		order: slices.Clone(t.order),
	}
}

func (t *table[K, V]) len() int {
	return len(t.rows)
}

func (t *table[K, V]) find(key K) (V, bool) {
	row, ok := t.rows[key]
	return row, ok
}

func (t *table[K, V]) insert(key K, row V) error {
	if _, ok := t.rows[key]; ok {
		return fmt.Errorf("%w: %v", usecase.ErrDuplicateKey, key)
	}
	t.rows[key] = row
	t.order = append(t.order, key)
	return nil
}

func (t *table[K, V]) update(key K, row V) error {
	if _, ok := t.rows[key]; !ok {
		return fmt.Errorf("%w: %v", usecase.ErrRowNotFound, key)
	}
	t.rows[key] = row
	return nil
}

// remove is only used by secondary indexes, tables never lose rows.
func (t *table[K, V]) remove(key K) {
	if _, ok := t.rows[key]; !ok {
		return
	}
	delete(t.rows, key)
	t.order = slices.DeleteFunc(t.order, func(k K) bool { return k == key })
}

func (t *table[K, V]) scan() []V {
	rows := make([]V, 0, len(t.order))
	for _, key := range t.order {
		rows = append(rows, t.rows[key])
	}
	return rows
}

// txTable is the view of one table inside a transaction. The committed
// table is cloned on the first write.
type txTable[K comparable, V any] struct {
	t       *table[K, V]
	owned   bool
	touched []K
	seen    map[K]struct{}
}

func (w *txTable[K, V]) writable() *table[K, V] {
	if !w.owned {
		w.t = w.t.clone()
		w.owned = true
	}
	return w.t
}

func (w *txTable[K, V]) touch(key K) {
	if w.seen == nil {
		w.seen = make(map[K]struct{})
	}
	if _, ok := w.seen[key]; ok {
		return
	}
	w.seen[key] = struct{}{}
	w.touched = append(w.touched, key)
}

func (w *txTable[K, V]) insert(key K, row V) error {
	if _, ok := w.t.find(key); ok {
		return fmt.Errorf("%w: %v", usecase.ErrDuplicateKey, key)
	}
	if err := w.writable().insert(key, row); err != nil {
		return err
	}
	w.touch(key)
	return nil
}

func (w *txTable[K, V]) update(key K, row V) error {
	if _, ok := w.t.find(key); !ok {
		return fmt.Errorf("%w: %v", usecase.ErrRowNotFound, key)
	}
	if err := w.writable().update(key, row); err != nil {
		return err
	}
	w.touch(key)
	return nil
}

// changed returns the final version of every touched row, in first-touch order.
func (w *txTable[K, V]) changed() []V {
	if len(w.touched) == 0 {
		return nil
	}
	rows := make([]V, 0, len(w.touched))
	for _, key := range w.touched {
		if row, ok := w.t.find(key); ok {
			rows = append(rows, row)
		}
	}
	return rows
}
