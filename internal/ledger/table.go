// internal/ledger/table.go
package ledger

// journal records undo steps for the operation being applied. All tables of a
// State share one journal.
type journal struct {
	undo   []func()
	active bool
}

func (j *journal) begin() {
	j.undo = j.undo[:0]
	j.active = true
}

func (j *journal) record(fn func()) {
	if j.active {
		j.undo = append(j.undo, fn)
	}
}

func (j *journal) commit() {
	j.undo = j.undo[:0]
	j.active = false
}

func (j *journal) rollback() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:0]
	j.active = false
}

// Table is a keyed record set. Rows are stored by value and Range visits them
// in insertion order. Records are superseded with Put and never deleted.
type Table[K comparable, V any] struct {
	rows  map[K]V
	order []K
	j     *journal
	clone func(V) V
}

func newTable[K comparable, V any](j *journal, clone func(V) V) *Table[K, V] {
	return &Table[K, V]{rows: make(map[K]V), j: j, clone: clone}
}

// Get returns a copy of the row.
func (t *Table[K, V]) Get(k K) (V, bool) {
	v, ok := t.rows[k]
	if ok && t.clone != nil {
		v = t.clone(v)
	}
	return v, ok
}

// Put inserts or replaces the row for k.
func (t *Table[K, V]) Put(k K, v V) {
	if t.clone != nil {
		v = t.clone(v)
	}
	prev, existed := t.rows[k]
	t.rows[k] = v
	if existed {
		t.j.record(func() { t.rows[k] = prev })
		return
	}
	t.order = append(t.order, k)
	t.j.record(func() {
		delete(t.rows, k)
		t.order = t.order[:len(t.order)-1]
	})
}

// Has reports whether a row exists for k.
func (t *Table[K, V]) Has(k K) bool {
	_, ok := t.rows[k]
	return ok
}

// Len returns the number of rows.
func (t *Table[K, V]) Len() int {
	return len(t.rows)
}

// Range calls fn for each row in insertion order until fn returns false.
func (t *Table[K, V]) Range(fn func(K, V) bool) {
	for _, k := range t.order {
		v := t.rows[k]
		if t.clone != nil {
			v = t.clone(v)
		}
		if !fn(k, v) {
			return
		}
	}
}
