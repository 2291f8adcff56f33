package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/paveg/lazystore/internal/table"
)

// Read reads JSON row objects and returns a table of the reader's fields.
// Every object needs an integral "id"; "t" is optional.
func (r *JSONReader) Read() (*table.Table, error) {
	var records []map[string]any
	var err error
	switch r.options.Format {
	case JSONArray:
		records, err = r.readJSONArray()
	case JSONLines:
		records, err = r.readJSONLines()
	default:
		return nil, fmt.Errorf("unsupported JSON format: %d", r.options.Format)
	}
	if err != nil {
		return nil, err
	}

	if r.options.MaxRecords > 0 && len(records) > r.options.MaxRecords {
		records = records[:r.options.MaxRecords]
	}
	return r.recordsToTable(records)
}

func (r *JSONReader) readJSONArray() ([]map[string]any, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading JSON data: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshaling JSON array: %w", err)
	}
	return records, nil
}

func (r *JSONReader) readJSONLines() ([]map[string]any, error) {
	var records []map[string]any
	scanner := bufio.NewScanner(r.reader)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading JSON lines: %w", err)
	}
	return records, nil
}

func (r *JSONReader) recordsToTable(records []map[string]any) (*table.Table, error) {
	out := table.New(r.fields...)
	for n, record := range records {
		id, err := integral(record[idField])
		if err != nil {
			return nil, fmt.Errorf("record %d: id: %w", n, err)
		}
		var t int64
		if v, ok := record[timeField]; ok && v != nil {
			if t, err = integral(v); err != nil {
				return nil, fmt.Errorf("record %d: t: %w", n, err)
			}
		}

		row := make(table.Row, len(record))
		for name, v := range record {
			if name == idField || name == timeField {
				continue
			}
			c, ok := out.Column(name)
			if !ok {
				return nil, fmt.Errorf("record %d: unknown column %q", n, name)
			}
			cell, err := decodeJSON(c.DType(), v)
			if err != nil {
				return nil, fmt.Errorf("record %d: %s: %w", n, name, err)
			}
			row[name] = cell
		}
		if err := out.Append(table.KT(id, t), row); err != nil {
			return nil, fmt.Errorf("record %d: %w", n, err)
		}
	}
	out.SortIndex()
	return out, nil
}

func integral(v any) (int64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

// decodeJSON converts a decoded JSON value to a cell of dtype. Times are
// RFC 3339 strings; points are [x, y(, z)] arrays or {x, y, z} objects.
func decodeJSON(dtype table.DType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch dtype {
	case table.Int64Type:
		return integral(v)
	case table.TimeType:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected an RFC 3339 string, got %T", v)
		}
		return time.Parse(time.RFC3339Nano, s)
	case table.PointType:
		return decodePoint(v)
	default:
		return dtype.Coerce(v)
	}
}

func decodePoint(v any) (table.Point, error) {
	switch p := v.(type) {
	case []any:
		if len(p) < 2 || len(p) > 3 {
			return table.Point{}, fmt.Errorf("point needs 2 or 3 coordinates, got %d", len(p))
		}
		coords := make([]float64, 3)
		for i, c := range p {
			f, ok := c.(float64)
			if !ok {
				return table.Point{}, fmt.Errorf("coordinate %d is %T", i, c)
			}
			coords[i] = f
		}
		return table.Point{X: coords[0], Y: coords[1], Z: coords[2]}, nil
	case map[string]any:
		var pt table.Point
		for _, axis := range []struct {
			name string
			dst  *float64
		}{{"x", &pt.X}, {"y", &pt.Y}, {"z", &pt.Z}} {
			if c, ok := p[axis.name]; ok {
				f, ok := c.(float64)
				if !ok {
					return table.Point{}, fmt.Errorf("coordinate %s is %T", axis.name, c)
				}
				*axis.dst = f
			}
		}
		return pt, nil
	}
	return table.Point{}, fmt.Errorf("expected a point, got %T", v)
}
