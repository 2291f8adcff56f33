package table

import (
	"encoding/binary"
	"math"
	"slices"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
)

// Cell type tags written ahead of each value
const (
	tagNull byte = iota
	tagInt
	tagFloat
	tagString
	tagBool
	tagTime
	tagPoint
)

// Fingerprint hashes the rows and columns of the table, skipping the
// excluded columns. Tables with the same keys and cells hash equally
// regardless of column order.
func (t *Table) Fingerprint(exclude ...string) uint64 {
	columns := make([]string, 0, len(t.order))
	for _, name := range t.order {
		if !slices.Contains(exclude, name) {
			columns = append(columns, name)
		}
	}
	slices.Sort(columns)

	h := xxhash.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	writeFloat := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}

	for _, name := range columns {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
	}

	for i, k := range t.keys {
		writeInt(k.ID)
		writeInt(k.T)
		for _, name := range columns {
			switch v := t.columns[name].values[i].(type) {
			case nil:
				_, _ = h.Write([]byte{tagNull})
			case int64:
				_, _ = h.Write([]byte{tagInt})
				writeInt(v)
			case float64:
				_, _ = h.Write([]byte{tagFloat})
				if math.IsNaN(v) {
					v = math.NaN()
				}
				writeFloat(v)
			case string:
				_, _ = h.Write([]byte{tagString})
				writeInt(int64(len(v)))
				_, _ = h.WriteString(v)
			case bool:
				_, _ = h.Write([]byte{tagBool})
				if v {
					_, _ = h.Write([]byte{1})
				} else {
					_, _ = h.Write([]byte{0})
				}
			case time.Time:
				_, _ = h.Write([]byte{tagTime})
				writeInt(v.UnixNano())
			case Point:
				_, _ = h.Write([]byte{tagPoint})
				writeFloat(v.X)
				writeFloat(v.Y)
				writeFloat(v.Z)
			}
		}
	}
	return h.Sum64()
}

// Equal reports whether two tables hold the same rows and cells, ignoring
// the excluded columns
func (t *Table) Equal(other *Table, exclude ...string) bool {
	if t.Len() != other.Len() {
		return false
	}
	for _, name := range t.order {
		if slices.Contains(exclude, name) {
			continue
		}
		if !other.HasColumn(name) {
			return false
		}
	}
	for _, name := range other.order {
		if !slices.Contains(exclude, name) && !t.HasColumn(name) {
			return false
		}
	}

	for i, k := range t.keys {
		j, ok := other.pos[k]
		if !ok {
			return false
		}
		for _, name := range t.order {
			if slices.Contains(exclude, name) {
				continue
			}
			if !Equal(t.columns[name].values[i], other.columns[name].values[j]) {
				return false
			}
		}
	}
	return true
}
