package io_test

import (
	"strings"
	"testing"

	"github.com/paveg/lazystore/internal/io"
	"github.com/paveg/lazystore/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONReader(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		data := `[
			{"id": 1, "t": 0, "name": "spine-a", "count": 3, "point": [1, 2, 3]},
			{"id": 1, "t": 1, "name": "spine-a", "point": {"x": 4, "y": 5}},
			{"id": 2, "name": null, "modified": "2024-03-01T12:30:00Z"}
		]`
		tbl, err := io.NewJSONReader(strings.NewReader(data), io.DefaultJSONOptions(), sampleFields).Read()
		require.NoError(t, err)

		assert.Equal(t, []table.Key{table.KT(1, 0), table.KT(1, 1), table.K(2)}, tbl.Keys())
		v, _ := tbl.Get(table.KT(1, 0), "count")
		assert.Equal(t, int64(3), v)
		v, _ = tbl.Get(table.KT(1, 1), "point")
		assert.Equal(t, table.Point{X: 4, Y: 5}, v)
		v, _ = tbl.Get(table.K(2), "modified")
		assert.True(t, table.Equal(sampleTime, v))
	})

	t.Run("lines with limit", func(t *testing.T) {
		data := "{\"id\": 1, \"length\": 0.5}\n\n{\"id\": 2, \"length\": 1}\n{\"id\": 3}\n"
		options := io.JSONOptions{Format: io.JSONLines, MaxRecords: 2}
		tbl, err := io.NewJSONReader(strings.NewReader(data), options, sampleFields).Read()
		require.NoError(t, err)

		assert.Equal(t, table.Keys(1, 2), tbl.Keys())
		v, _ := tbl.Get(table.K(2), "length")
		assert.Equal(t, 1.0, v)
	})

	t.Run("empty", func(t *testing.T) {
		tbl, err := io.NewJSONReader(strings.NewReader(""), io.DefaultJSONOptions(), sampleFields).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.Len())
	})

	errorCases := []struct {
		name string
		data string
	}{
		{"missing id", `[{"name": "x"}]`},
		{"fractional id", `[{"id": 1.5}]`},
		{"unknown column", `[{"id": 1, "colour": "red"}]`},
		{"wrong type", `[{"id": 1, "name": 3}]`},
		{"bad point", `[{"id": 1, "point": [1]}]`},
		{"bad time", `[{"id": 1, "modified": "yesterday"}]`},
		{"malformed", `[{"id": 1`},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := io.NewJSONReader(strings.NewReader(tc.data), io.DefaultJSONOptions(), sampleFields).Read()
			assert.Error(t, err)
		})
	}
}
