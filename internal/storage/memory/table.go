package memory

import "sort"

// table is a committed keyed collection of entity pointers.
type table[V any] struct {
	rows  map[string]V
	clone func(V) V
}

func newTable[V any](clone func(V) V) *table[V] {
	return &table[V]{rows: make(map[string]V), clone: clone}
}

// staged buffers the writes of one unit of work over a table.
// Reads see the unit's own writes; nothing reaches the table until commit.
type staged[V any] struct {
	base    *table[V]
	writes  map[string]V
	deletes map[string]struct{}
}

func stage[V any](t *table[V]) *staged[V] {
	return &staged[V]{
		base:    t,
		writes:  make(map[string]V),
		deletes: make(map[string]struct{}),
	}
}

func (s *staged[V]) get(key string) (V, bool) {
	if v, ok := s.writes[key]; ok {
		return s.base.clone(v), true
	}
	var zero V
	if _, ok := s.deletes[key]; ok {
		return zero, false
	}
	v, ok := s.base.rows[key]
	if !ok {
		return zero, false
	}
	return s.base.clone(v), true
}

func (s *staged[V]) exists(key string) bool {
	_, ok := s.get(key)
	return ok
}

func (s *staged[V]) put(key string, v V) {
	delete(s.deletes, key)
	s.writes[key] = s.base.clone(v)
}

func (s *staged[V]) del(key string) {
	delete(s.writes, key)
	s.deletes[key] = struct{}{}
}

// list returns copies of all visible rows accepted by keep, ordered by key.
func (s *staged[V]) list(keep func(V) bool) []V {
	keys := make([]string, 0, len(s.base.rows)+len(s.writes))
	seen := make(map[string]struct{}, cap(keys))
	for k := range s.base.rows {
		keys = append(keys, k)
		seen[k] = struct{}{}
	}
	for k := range s.writes {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []V
	for _, k := range keys {
		v, ok := s.get(k)
		if !ok || !keep(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (s *staged[V]) commit() {
	for k := range s.deletes {
		delete(s.base.rows, k)
	}
	for k, v := range s.writes {
		s.base.rows[k] = v
	}
}
