// Package schema declares the attributes of a frame: stored and computed
// columns, their dtypes, defaults and validation rules, the dependencies of
// computed columns and the links used to map row ids between frames.
package schema

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/table"
)

const (
	// ModifiedColumn is stamped on every row touched by a mutation
	ModifiedColumn = "modified"
	// ValidSuffix names the companion flag column of a computed column
	ValidSuffix = ".valid"
)

// ValidKey returns the name of the valid flag column for a computed column
func ValidKey(column string) string {
	return column + ValidSuffix
}

// Kind distinguishes plain data columns from computed ones
type Kind int

const (
	Stored Kind = iota
	Computed
)

// String returns the kind name
func (k Kind) String() string {
	if k == Computed {
		return "computed"
	}
	return "stored"
}

// Dependencies maps a frame key to the columns of that frame a computed
// column reads. The empty key refers to the declaring frame.
type Dependencies map[string][]string

// Attribute describes one column of a frame
type Attribute struct {
	Key          string
	Title        string
	Description  string
	DType        table.DType
	Kind         Kind
	Default      any
	Rule         string // validator tag, e.g. "gte=0,lte=255"
	Dependencies Dependencies
	Hidden       bool
}

// Link maps row ids between this frame and another one. At most one field
// is set; with none, rows map by identical keys.
type Link struct {
	// Column on this frame holding the id of the other frame's row
	Column string `yaml:"column"`
	// Column on the other frame holding the id of this frame's row
	RemoteColumn string `yaml:"remote_column"`
	// Broadcast maps every row to every row of the other frame, as for a
	// single-row record of parameters
	Broadcast bool `yaml:"broadcast"`
}

// Schema is the declaration of a frame
type Schema struct {
	key        string
	timed      bool
	attributes map[string]*Attribute
	order      []string
	links      map[string]Link
}

// Option configures a Schema
type Option func(*Schema) error

// Timed declares a compound (id, t) index
func Timed() Option {
	return func(s *Schema) error {
		s.timed = true
		return nil
	}
}

// WithAttributes declares attributes in order
func WithAttributes(attrs ...Attribute) Option {
	return func(s *Schema) error {
		for _, attr := range attrs {
			if err := s.AddAttribute(attr); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithLink declares how row ids of this frame map to rows of frame
func WithLink(frame string, link Link) Option {
	return func(s *Schema) error {
		set := 0
		for _, on := range []bool{link.Column != "", link.RemoteColumn != "", link.Broadcast} {
			if on {
				set++
			}
		}
		if set > 1 {
			return errors.NewInvalidInputError("WithLink", "link must set at most one of Column, RemoteColumn and Broadcast")
		}
		s.links[frame] = link
		return nil
	}
}

// New creates a schema for the frame key
func New(key string, opts ...Option) (*Schema, error) {
	if key == "" {
		return nil, errors.NewInvalidInputError("schema.New", "frame key must not be empty")
	}

	s := &Schema{
		key:        key,
		attributes: make(map[string]*Attribute),
		links:      make(map[string]Link),
	}
	s.attributes[ModifiedColumn] = &Attribute{
		Key:    ModifiedColumn,
		Title:  "Modified",
		DType:  table.TimeType,
		Kind:   Stored,
		Hidden: true,
	}
	s.order = append(s.order, ModifiedColumn)

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MustNew is like New but panics on error. Intended for static declarations.
func MustNew(key string, opts ...Option) *Schema {
	s, err := New(key, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Key returns the frame key
func (s *Schema) Key() string {
	return s.key
}

// IsTimed reports whether the frame uses an (id, t) index
func (s *Schema) IsTimed() bool {
	return s.timed
}

// AddAttribute declares a new attribute
func (s *Schema) AddAttribute(attr Attribute) error {
	const op = "AddAttribute"
	if attr.Key == "" {
		return errors.NewValidationError(op, s.key, "", "attribute key must not be empty")
	}
	if strings.HasSuffix(attr.Key, ValidSuffix) {
		return errors.NewValidationError(op, s.key, attr.Key, "attribute key uses the reserved "+ValidSuffix+" suffix")
	}
	if _, ok := s.attributes[attr.Key]; ok {
		return errors.NewValidationError(op, s.key, attr.Key, "attribute already declared")
	}
	if err := checkRule(attr); err != nil {
		return errors.NewValidationError(op, s.key, attr.Key, err.Error())
	}
	if attr.Default != nil {
		coerced, err := attr.DType.Coerce(attr.Default)
		if err != nil {
			return errors.NewValidationError(op, s.key, attr.Key, "default: "+err.Error())
		}
		attr.Default = coerced
	}

	if attr.Kind == Computed {
		attr.Dependencies = s.normalize(attr.Dependencies)
	} else {
		attr.Dependencies = nil
	}

	a := attr
	s.attributes[attr.Key] = &a
	s.order = append(s.order, attr.Key)
	return nil
}

// RemoveAttribute drops a declared attribute
func (s *Schema) RemoveAttribute(key string) {
	if key == ModifiedColumn {
		return
	}
	if _, ok := s.attributes[key]; !ok {
		return
	}
	delete(s.attributes, key)
	s.order = slices.DeleteFunc(s.order, func(k string) bool { return k == key })
}

// normalize replaces the self key "" with the schema key and copies the lists
func (s *Schema) normalize(deps Dependencies) Dependencies {
	out := make(Dependencies, len(deps))
	for frame, cols := range deps {
		if frame == "" {
			frame = s.key
		}
		out[frame] = append(out[frame], cols...)
	}
	return out
}

// Attribute returns the attribute declared under key
func (s *Schema) Attribute(key string) (Attribute, bool) {
	a, ok := s.attributes[key]
	if !ok {
		return Attribute{}, false
	}
	return *a, true
}

// Has reports whether the attribute is declared
func (s *Schema) Has(key string) bool {
	_, ok := s.attributes[key]
	return ok
}

// IsComputed reports whether key is a declared computed attribute
func (s *Schema) IsComputed(key string) bool {
	a, ok := s.attributes[key]
	return ok && a.Kind == Computed
}

// Attributes returns the declared attributes in order
func (s *Schema) Attributes() []Attribute {
	out := make([]Attribute, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.attributes[key])
	}
	return out
}

// Columns returns the names of the declared attributes in order
func (s *Schema) Columns() []string {
	return slices.Clone(s.order)
}

// Computed returns the names of the computed attributes in order
func (s *Schema) Computed() []string {
	var out []string
	for _, key := range s.order {
		if s.attributes[key].Kind == Computed {
			out = append(out, key)
		}
	}
	return out
}

// Fields returns the table columns backing the schema: one per attribute
// plus a valid flag for every computed attribute
func (s *Schema) Fields() []table.Field {
	fields := make([]table.Field, 0, len(s.order))
	for _, key := range s.order {
		a := s.attributes[key]
		fields = append(fields, table.Field{Name: a.Key, DType: a.DType})
		if a.Kind == Computed {
			fields = append(fields, table.Field{Name: ValidKey(a.Key), DType: table.BoolType})
		}
	}
	return fields
}

// Link returns the link declared towards frame
func (s *Schema) Link(frame string) (Link, bool) {
	l, ok := s.links[frame]
	return l, ok
}

// Validate checks values against the declared attributes and returns the
// coerced values. Unknown, computed or mistyped fields are rejected.
func (s *Schema) Validate(values table.Row) (table.Row, error) {
	const op = "Validate"
	out := make(table.Row, len(values))
	for _, key := range table.SortedNames(values) {
		a, ok := s.attributes[key]
		if !ok {
			return nil, errors.NewValidationError(op, s.key, key, "unknown attribute")
		}
		if a.Kind == Computed {
			return nil, errors.NewValidationError(op, s.key, key, "computed attribute cannot be set")
		}
		if key == ModifiedColumn {
			return nil, errors.NewValidationError(op, s.key, key, "modified is maintained by the store")
		}
		v, err := a.DType.Coerce(values[key])
		if err != nil {
			return nil, errors.NewValidationError(op, s.key, key, err.Error())
		}
		if v != nil && a.Rule != "" {
			if err := validate.Var(v, a.Rule); err != nil {
				return nil, errors.NewValidationError(op, s.key, key, fmt.Sprintf("rule %q: %v", a.Rule, err))
			}
		}
		out[key] = v
	}
	return out, nil
}

// WithDefaults returns the defaults of the stored attributes that values
// leaves unset
func (s *Schema) WithDefaults(values table.Row) table.Row {
	out := make(table.Row)
	for _, key := range s.order {
		a := s.attributes[key]
		if a.Kind != Stored || a.Default == nil {
			continue
		}
		if _, ok := values[key]; ok {
			continue
		}
		out[key] = a.Default
	}
	return out
}

// Defaults returns every stored attribute default
func (s *Schema) Defaults() table.Row {
	return s.WithDefaults(nil)
}

var validate = validator.New()

// checkRule rejects rule tags the validator cannot parse; validator panics
// on undefined tags so the check runs against a zero value under recover.
func checkRule(attr Attribute) (err error) {
	if attr.Rule == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid rule %q: %v", attr.Rule, r)
		}
	}()
	_ = validate.Var(zeroOf(attr.DType), attr.Rule)
	return nil
}

func zeroOf(d table.DType) any {
	switch d {
	case table.Int64Type:
		return int64(0)
	case table.Float64Type:
		return 0.0
	case table.StringType:
		return ""
	case table.BoolType:
		return false
	case table.TimeType:
		return time.Time{}
	default:
		return table.Point{}
	}
}
