package schema

import (
	"fmt"
	"io"
	"os"

	"github.com/paveg/lazystore/internal/table"
	"gopkg.in/yaml.v3"
)

// attributeSpec is the YAML form of a stored attribute
type attributeSpec struct {
	Key         string `yaml:"key"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	DType       string `yaml:"dtype"`
	Default     any    `yaml:"default"`
	Rule        string `yaml:"rule"`
	Hidden      bool   `yaml:"hidden"`
}

// schemaSpec is the YAML form of a schema
type schemaSpec struct {
	Key        string          `yaml:"key"`
	Timed      bool            `yaml:"timed"`
	Attributes []attributeSpec `yaml:"attributes"`
	Links      map[string]Link `yaml:"links"`
}

// LoadYAML reads one or more schema declarations from r. Computed
// attributes carry a function and are declared in code instead.
//
//	- key: spines
//	  timed: true
//	  attributes:
//	    - {key: x, dtype: float64, default: 0}
//	    - {key: segmentID, dtype: int64, rule: "gte=0"}
//	  links:
//	    segments: {column: segmentID}
func LoadYAML(r io.Reader) ([]*Schema, error) {
	var specs []schemaSpec
	if err := yaml.NewDecoder(r).Decode(&specs); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode schemas: %w", err)
	}

	out := make([]*Schema, 0, len(specs))
	for _, spec := range specs {
		s, err := spec.build()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadYAMLFile reads schema declarations from a file
func LoadYAMLFile(path string) ([]*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func (spec schemaSpec) build() (*Schema, error) {
	opts := make([]Option, 0, len(spec.Attributes)+len(spec.Links)+1)
	if spec.Timed {
		opts = append(opts, Timed())
	}

	attrs := make([]Attribute, 0, len(spec.Attributes))
	for _, a := range spec.Attributes {
		dtype, err := table.ParseDType(a.DType)
		if err != nil {
			return nil, fmt.Errorf("schema %q attribute %q: %w", spec.Key, a.Key, err)
		}
		attrs = append(attrs, Attribute{
			Key:         a.Key,
			Title:       a.Title,
			Description: a.Description,
			DType:       dtype,
			Kind:        Stored,
			Default:     a.Default,
			Rule:        a.Rule,
			Hidden:      a.Hidden,
		})
	}
	opts = append(opts, WithAttributes(attrs...))

	for _, frame := range table.SortedNames(spec.Links) {
		opts = append(opts, WithLink(frame, spec.Links[frame]))
	}
	return New(spec.Key, opts...)
}
