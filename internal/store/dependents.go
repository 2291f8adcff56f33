package store

import (
	"slices"
	"strings"

	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
	"go.uber.org/zap"
)

// node is a column of a frame in the dependency graph
type node struct {
	frame  string
	column string
}

func (n node) String() string {
	return n.frame + "." + n.column
}

func compareNodes(a, b node) int {
	return strings.Compare(a.String(), b.String())
}

// updateDependents rebuilds the dependency graph from every registered
// schema. Edges point from a source column to the computed columns reading
// it; the link columns joining two frames count as sources too. A cycle
// leaves the previous graph in place.
func (s *Store) updateDependents() error {
	edges := make(map[node][]node)
	for _, key := range s.order {
		sc := s.frames[key].schema
		for _, name := range sc.Computed() {
			attr, _ := sc.Attribute(name)
			target := node{frame: key, column: name}
			for _, src := range table.SortedNames(attr.Dependencies) {
				for _, col := range attr.Dependencies[src] {
					addEdge(edges, node{frame: src, column: col}, target)
				}
				// moving a link re-points the rows a column reads
				link, _ := sc.Link(src)
				if src != key && link.Column != "" {
					addEdge(edges, node{frame: key, column: link.Column}, target)
				}
				if src != key && link.RemoteColumn != "" {
					addEdge(edges, node{frame: src, column: link.RemoteColumn}, target)
				}
			}
		}
	}

	if cycle := findCycle(edges); cycle != nil {
		return errors.NewDependencyCycleError("UpdateDependents", cycle)
	}

	s.edges = edges
	s.dependents = closure(edges)
	return nil
}

func addEdge(edges map[node][]node, from, to node) {
	if !slices.Contains(edges[from], to) {
		edges[from] = append(edges[from], to)
	}
}

// findCycle returns the nodes of a dependency cycle, first node repeated at
// the end, or nil
func findCycle(edges map[node][]node) []string {
	const (
		white = iota
		grey
		black
	)

	color := make(map[node]int)
	var stack []node
	var cycle []string

	var visit func(n node) bool
	visit = func(n node) bool {
		color[n] = grey
		stack = append(stack, n)
		for _, next := range edges[n] {
			switch color[next] {
			case grey:
				for _, m := range stack[slices.Index(stack, next):] {
					cycle = append(cycle, m.String())
				}
				cycle = append(cycle, next.String())
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for _, n := range sortedNodes(edges) {
		if color[n] == white && visit(n) {
			return cycle
		}
	}
	return nil
}

func sortedNodes(edges map[node][]node) []node {
	nodes := make([]node, 0, len(edges))
	for n := range edges {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, compareNodes)
	return nodes
}

// closure maps every source column to the valid flags of all computed
// columns reachable from it, grouped by frame
func closure(edges map[node][]node) map[string]map[string]map[string][]string {
	out := make(map[string]map[string]map[string][]string)
	for _, src := range sortedNodes(edges) {
		seen := make(map[node]bool)
		queue := slices.Clone(edges[src])
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			if seen[n] {
				continue
			}
			seen[n] = true
			queue = append(queue, edges[n]...)
		}

		byFrame := make(map[string][]string)
		for n := range seen {
			byFrame[n.frame] = append(byFrame[n.frame], schema.ValidKey(n.column))
		}
		for _, flags := range byFrame {
			slices.Sort(flags)
		}
		if out[src.frame] == nil {
			out[src.frame] = make(map[string]map[string][]string)
		}
		out[src.frame][src.column] = byFrame
	}
	return out
}

// Dependents returns, per dependent frame, the valid flags cleared when
// column of frame changes, following dependencies transitively
func (s *Store) Dependents(frame, column string) map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string)
	for dep, flags := range s.dependents[frame][column] {
		out[dep] = slices.Clone(flags)
	}
	return out
}

// UpdateComputedDependencies rebuilds the dependency graph, e.g. after
// computed columns were added with skipUpdate
func (s *Store) UpdateComputedDependencies() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateDependents()
}

// sourceColumns returns the columns of frame read by any computed column
func (s *Store) sourceColumns(frame string) []string {
	var cols []string
	for n := range s.edges {
		if n.frame == frame {
			cols = append(cols, n.column)
		}
	}
	slices.Sort(cols)
	return cols
}

// invalidate clears the valid flags of the computed columns reading
// columns of frame src at keys and follows the graph to their own
// dependents. With crossOnly the direct dependents inside src are skipped.
func (s *Store) invalidate(src string, keys []table.Key, columns []string, crossOnly bool) {
	type item struct {
		frame     string
		keys      []table.Key
		columns   []string
		crossOnly bool
	}

	queue := []item{{frame: src, keys: keys, columns: columns, crossOnly: crossOnly}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if len(it.keys) == 0 {
			continue
		}

		source, ok := s.frames[it.frame]
		if !ok {
			continue
		}
		side := schema.Side{Table: source.table, Timed: source.schema.IsTimed()}

		for _, col := range it.columns {
			for _, dep := range s.edges[node{frame: it.frame, column: col}] {
				if it.crossOnly && dep.frame == it.frame {
					continue
				}
				target, ok := s.frames[dep.frame]
				if !ok {
					continue
				}

				mapped := target.schema.ReverseMapIDs(it.frame, target.table, side, it.keys)
				cleared := target.clearValid(dep.column, mapped)
				if len(cleared) == 0 {
					continue
				}

				s.metrics.RecordInvalidation(dep.frame, dep.column, len(cleared))
				s.logger.Debug("invalidated column",
					zap.String("frame", dep.frame),
					zap.String("column", dep.column),
					zap.String("source", node{frame: it.frame, column: col}.String()),
					zap.Int("rows", len(cleared)))
				queue = append(queue, item{frame: dep.frame, keys: cleared, columns: []string{dep.column}})
			}
		}
	}
}

// invalidateLinked clears the flags at keys of the computed columns of fd
// that read another frame, then follows their dependents. Rows reinserted
// by undo or redo carry flags from before their removal, which are only
// trustworthy for columns computed from the row itself.
func (s *Store) invalidateLinked(fd *frameData, keys []table.Key) {
	key := fd.schema.Key()
	for _, name := range fd.schema.Computed() {
		attr, _ := fd.schema.Attribute(name)
		linked := false
		for src := range attr.Dependencies {
			if src != key {
				linked = true
				break
			}
		}
		if !linked {
			continue
		}
		cleared := fd.clearValid(name, keys)
		if len(cleared) == 0 {
			continue
		}
		s.metrics.RecordInvalidation(key, name, len(cleared))
		s.invalidate(key, cleared, []string{name}, false)
	}
}

// clearValid sets the valid flag of column to false where it is true and
// returns the affected keys
func (fd *frameData) clearValid(column string, keys []table.Key) []table.Key {
	flag := schema.ValidKey(column)
	var cleared []table.Key
	for _, k := range keys {
		if v, ok := fd.table.Get(k, flag); ok && v == true {
			_ = fd.table.Set(k, flag, false)
			cleared = append(cleared, k)
		}
	}
	return cleared
}

// invalidKeys returns the keys among keys whose column is not valid
func (fd *frameData) invalidKeys(column string, keys []table.Key) []table.Key {
	flag := schema.ValidKey(column)
	var invalid []table.Key
	for _, k := range keys {
		if v, ok := fd.table.Get(k, flag); ok && v != true {
			invalid = append(invalid, k)
		}
	}
	return invalid
}
