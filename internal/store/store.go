// Package store implements lazily evaluated frames with computed columns,
// dependency-tracked invalidation across frames, filtered views and an
// undo/redo log.
//
// A Store coordinates named frames. Each frame owns a root table holding
// stored columns, computed columns and a ".valid" flag per computed column.
// Reads compute the invalid rows of the requested computed columns on
// demand; writes go through the store, which records them in the log and
// clears the flags of every computed column depending on what changed.
//
// The store is single-writer: every public method takes the store mutex.
// Compute functions run under that mutex and receive a view that reads
// without locking again.
package store

import (
	"sync"
	"time"

	"github.com/paveg/lazystore/internal/config"
	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/oplog"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
	"go.uber.org/zap"
)

// frameData is the state shared by a frame and its views
type frameData struct {
	schema    *schema.Schema
	table     *table.Table
	funcs     map[string]ComputeFunc
	state     *SharedState
	computing map[string]bool
	// record frames always hold exactly the RecordKey row
	record bool
}

// Store owns the frames, the dependency graph and the undo/redo log
type Store struct {
	mu         sync.Mutex
	frames     map[string]*frameData
	order      []string
	edges      map[node][]node
	dependents map[string]map[string]map[string][]string
	log        *oplog.RecordLog

	cfg     config.Config
	logger  *zap.Logger
	metrics *monitoring.MetricsCollector
	clock   func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithConfig sets the store configuration
func WithConfig(cfg config.Config) Option {
	return func(s *Store) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger; the default discards everything
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(mc *monitoring.MetricsCollector) Option {
	return func(s *Store) {
		s.metrics = mc
	}
}

// WithClock sets the clock used to stamp modified rows
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		frames:     make(map[string]*frameData),
		edges:      make(map[node][]node),
		dependents: make(map[string]map[string]map[string][]string),
		cfg:        config.NewConfig(),
		logger:     zap.NewNop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && s.cfg.MetricsCollection {
		s.metrics = monitoring.NewMetricsCollector(true)
	}
	s.log = oplog.NewRecordLog(s.cfg.MaxHistory)
	return s
}

// NewFrame registers a frame for sc in store, optionally seeded with data
func NewFrame(store *Store, sc *schema.Schema, data *table.Table) (*Frame, error) {
	return store.AddFrame(sc, data)
}

// AddFrame registers a frame for sc, optionally seeded with data. data may
// hold any declared attribute and the valid flags of computed ones.
func (s *Store) AddFrame(sc *schema.Schema, data *table.Table) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addFrame("AddFrame", sc, data, false)
}

func (s *Store) addFrame(op string, sc *schema.Schema, data *table.Table, record bool) (*Frame, error) {
	key := sc.Key()
	if _, ok := s.frames[key]; ok {
		return nil, errors.NewDuplicateFrameError(op, key)
	}

	root, err := buildRoot(op, sc, data)
	if err != nil {
		return nil, err
	}

	fd := &frameData{
		schema:    sc,
		table:     root,
		funcs:     make(map[string]ComputeFunc),
		state:     &SharedState{},
		computing: make(map[string]bool),
		record:    record,
	}
	s.frames[key] = fd
	s.order = append(s.order, key)

	if err := s.updateDependents(); err != nil {
		delete(s.frames, key)
		s.order = s.order[:len(s.order)-1]
		return nil, err
	}

	s.logger.Debug("frame registered",
		zap.String("frame", key),
		zap.Int("rows", root.Len()),
		zap.Bool("timed", sc.IsTimed()),
		zap.Bool("record", record))
	return s.newFrame(fd, false), nil
}

// buildRoot creates the root table of sc holding data
func buildRoot(op string, sc *schema.Schema, data *table.Table) (*table.Table, error) {
	root := table.New(sc.Fields()...)
	if data == nil {
		return root, nil
	}

	for _, name := range data.Columns() {
		if !root.HasColumn(name) {
			return nil, errors.NewValidationError(op, sc.Key(), name, "unknown attribute")
		}
	}
	if !sc.IsTimed() {
		for _, k := range data.Keys() {
			if k.T != 0 {
				return nil, errors.NewValidationError(op, sc.Key(), "", "untimed frame cannot hold key "+k.String())
			}
		}
	}
	if err := root.Insert(data); err != nil {
		return nil, errors.NewValidationError(op, sc.Key(), "", err.Error())
	}
	root.SortIndex()
	return root, nil
}

// Frame returns the frame registered under key
func (s *Store) Frame(key string) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame("Frame", key, false)
}

func (s *Store) frame(op, key string, held bool) (*Frame, error) {
	fd, ok := s.frames[key]
	if !ok {
		return nil, errors.NewFrameNotFoundError(op, key)
	}
	return s.newFrame(fd, held), nil
}

// Frames returns the keys of the registered frames in registration order
func (s *Store) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Config returns the store configuration
func (s *Store) Config() config.Config {
	return s.cfg
}

// Metrics returns the metrics collector, nil when metrics are disabled
func (s *Store) Metrics() *monitoring.MetricsCollector {
	return s.metrics
}

// LogStats returns a summary of the undo/redo log
func (s *Store) LogStats() oplog.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Stats()
}

// Undo reverses the most recent op and reports whether there was one
func (s *Store) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.undo()
}

// Redo reapplies the most recently undone op and reports whether there was one
func (s *Store) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redo()
}

func (s *Store) undo() (bool, error) {
	op := s.log.Undo()
	if op == nil {
		return false, nil
	}
	err := s.metrics.RecordOperation(monitoring.OpUndo, op.Type, len(op.RowKeys()), func() error {
		return s.replay("Undo", op, true)
	})
	return true, err
}

func (s *Store) redo() (bool, error) {
	op := s.log.Redo()
	if op == nil {
		return false, nil
	}
	err := s.metrics.RecordOperation(monitoring.OpRedo, op.Type, len(op.RowKeys()), func() error {
		return s.replay("Redo", op, false)
	})
	return true, err
}

// CreateState ends the coalescing window of the log
func (s *Store) CreateState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.CreateState()
}
