package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paveg/lazystore/internal/table"
)

const (
	trueStr  = "true"
	falseStr = "false"
)

// Read reads CSV data and returns a table of the reader's fields. Columns
// not among the fields are rejected; empty cells are nulls.
func (r *CSVReader) Read() (*table.Table, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.SkipInitialSpace

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	out := table.New(r.fields...)
	if len(records) == 0 {
		return out, nil
	}

	headers := records[0]
	idCol, timeCol := -1, -1
	dtypes := make([]table.DType, len(headers))
	for i, h := range headers {
		switch h {
		case idField:
			idCol = i
			continue
		case timeField:
			timeCol = i
			continue
		}
		c, ok := out.Column(h)
		if !ok {
			return nil, fmt.Errorf("unknown column %q", h)
		}
		dtypes[i] = c.DType()
	}
	if idCol < 0 {
		return nil, fmt.Errorf("missing %q column", idField)
	}

	for n, record := range records[1:] {
		line := n + 2
		id, err := strconv.ParseInt(record[idCol], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		var t int64
		if timeCol >= 0 && record[timeCol] != "" {
			if t, err = strconv.ParseInt(record[timeCol], 10, 64); err != nil {
				return nil, fmt.Errorf("line %d: t: %w", line, err)
			}
		}

		row := make(table.Row, len(headers))
		for i, cell := range record {
			if i == idCol || i == timeCol {
				continue
			}
			v, err := ParseText(dtypes[i], cell)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, headers[i], err)
			}
			row[headers[i]] = v
		}
		if err := out.Append(table.KT(id, t), row); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	out.SortIndex()
	return out, nil
}

// ParseText parses the text form of a cell; the empty string is null.
// Points are written as POINT (x y) or POINT Z (x y z).
func ParseText(dtype table.DType, s string) (any, error) {
	if s == "" {
		return nil, nil
	}

	switch dtype {
	case table.Int64Type:
		return strconv.ParseInt(s, 10, 64)
	case table.Float64Type:
		return strconv.ParseFloat(s, 64)
	case table.BoolType:
		switch strings.ToLower(s) {
		case trueStr, "1":
			return true, nil
		case falseStr, "0":
			return false, nil
		}
		return nil, fmt.Errorf("invalid bool %q", s)
	case table.TimeType:
		return time.Parse(time.RFC3339Nano, s)
	case table.PointType:
		return parsePoint(s)
	default:
		return s, nil
	}
}

func parsePoint(s string) (table.Point, error) {
	body := strings.TrimSpace(s)
	upper := strings.ToUpper(body)
	if !strings.HasPrefix(upper, "POINT") {
		return table.Point{}, fmt.Errorf("invalid point %q", s)
	}
	open, closing := strings.Index(body, "("), strings.LastIndex(body, ")")
	if open < 0 || closing < open {
		return table.Point{}, fmt.Errorf("invalid point %q", s)
	}

	parts := strings.Fields(body[open+1 : closing])
	if len(parts) < 2 || len(parts) > 3 {
		return table.Point{}, fmt.Errorf("invalid point %q", s)
	}
	coords := make([]float64, 3)
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return table.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
		}
		coords[i] = f
	}
	return table.Point{X: coords[0], Y: coords[1], Z: coords[2]}, nil
}

// FormatText is the inverse of ParseText
func FormatText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case time.Time:
		return c.UTC().Format(time.RFC3339Nano)
	case table.Point:
		return fmt.Sprintf("POINT Z (%s %s %s)",
			strconv.FormatFloat(c.X, 'g', -1, 64),
			strconv.FormatFloat(c.Y, 'g', -1, 64),
			strconv.FormatFloat(c.Z, 'g', -1, 64))
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

// Write writes t as CSV with a header line
func (w *CSVWriter) Write(t *table.Table) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter

	columns := t.Columns()
	header := append([]string{idField, timeField}, columns...)
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(header))
	for i, k := range t.Keys() {
		record[0] = strconv.FormatInt(k.ID, 10)
		record[1] = strconv.FormatInt(k.T, 10)
		row := t.RowAt(i)
		for j, name := range columns {
			record[j+2] = FormatText(row[name])
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("writing row %s: %w", k, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
