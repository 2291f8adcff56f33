package schema

import (
	"github.com/paveg/lazystore/internal/table"
)

// matcher collects exact keys plus ids that match a row at any t
type matcher struct {
	exact table.KeySet
	ids   map[int64]struct{}
}

func newMatcher() *matcher {
	return &matcher{exact: table.NewKeySet(), ids: make(map[int64]struct{})}
}

// add records the target of id observed on a row at time t. fromTimed and
// toTimed describe the index of both frames: a timed row maps onto the same
// t of a timed frame and onto t=0 of an untimed one, and an untimed row maps
// onto every t of a timed frame.
func (m *matcher) add(id, t int64, fromTimed, toTimed bool) {
	switch {
	case fromTimed && toTimed:
		m.exact.Add(table.KT(id, t))
	case !fromTimed && toTimed:
		m.ids[id] = struct{}{}
	default:
		m.exact.Add(table.K(id))
	}
}

// resolve returns the matching keys of target in index order
func (m *matcher) resolve(target *table.Table) []table.Key {
	var out []table.Key
	for _, k := range target.Keys() {
		if m.exact.Has(k) {
			out = append(out, k)
			continue
		}
		if _, ok := m.ids[k.ID]; ok {
			out = append(out, k)
		}
	}
	return out
}

func linkedID(t *table.Table, k table.Key, column string) (int64, bool) {
	v, ok := t.Get(k, column)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// Side pairs a frame's table with its index kind
type Side struct {
	Table *table.Table
	Timed bool
}

// MapIDs maps the rows of this frame in rows to the rows of frame key in
// other that a computed column reads.
func (s *Schema) MapIDs(key string, rows *table.Table, other Side) []table.Key {
	if key == s.key {
		return other.Table.Intersect(rows.Keys())
	}

	m := newMatcher()
	link := s.links[key]
	switch {
	case link.Broadcast:
		return other.Table.Keys()
	case link.Column != "":
		for _, k := range rows.Keys() {
			if id, ok := linkedID(rows, k, link.Column); ok {
				m.add(id, k.T, s.timed, other.Timed)
			}
		}
	case link.RemoteColumn != "":
		wanted := make(map[int64]struct{}, rows.Len())
		for _, k := range rows.Keys() {
			wanted[k.ID] = struct{}{}
		}
		var keys []table.Key
		for _, k := range other.Table.Keys() {
			id, ok := linkedID(other.Table, k, link.RemoteColumn)
			if !ok {
				continue
			}
			if _, ok := wanted[id]; !ok {
				continue
			}
			if s.timed && other.Timed && !rows.Has(table.KT(id, k.T)) {
				continue
			}
			keys = append(keys, k)
		}
		return keys
	default:
		for _, k := range rows.Keys() {
			m.add(k.ID, k.T, s.timed, other.Timed)
		}
	}
	return m.resolve(other.Table)
}

// ReverseMapIDs returns the rows of this frame, held in self, whose
// computed values depend on the given rows of frame key.
func (s *Schema) ReverseMapIDs(key string, self *table.Table, source Side, keys []table.Key) []table.Key {
	if key == s.key {
		return self.Intersect(keys)
	}

	m := newMatcher()
	link := s.links[key]
	switch {
	case link.Broadcast:
		if len(keys) == 0 {
			return nil
		}
		return self.Keys()
	case link.Column != "":
		changed := table.NewKeySet()
		changedIDs := make(map[int64]struct{}, len(keys))
		for _, k := range keys {
			changed.Add(k)
			changedIDs[k.ID] = struct{}{}
		}
		var out []table.Key
		for _, k := range self.Keys() {
			id, ok := linkedID(self, k, link.Column)
			if !ok {
				continue
			}
			var hit bool
			switch {
			case s.timed && source.Timed:
				hit = changed.Has(table.KT(id, k.T))
			case !s.timed && source.Timed:
				_, hit = changedIDs[id]
			default:
				hit = changed.Has(table.K(id))
			}
			if hit {
				out = append(out, k)
			}
		}
		return out
	case link.RemoteColumn != "":
		for _, k := range keys {
			if id, ok := linkedID(source.Table, k, link.RemoteColumn); ok {
				m.add(id, k.T, source.Timed, s.timed)
			}
		}
	default:
		for _, k := range keys {
			m.add(k.ID, k.T, source.Timed, s.timed)
		}
	}
	return m.resolve(self)
}
