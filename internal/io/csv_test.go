package io_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paveg/lazystore/internal/io"
	"github.com/paveg/lazystore/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVReader(t *testing.T) {
	t.Run("reads rows by header", func(t *testing.T) {
		csvData := `id,t,name,length,point
2,0,spine-b,,
1,1,spine-a,2.5,POINT Z (1 2 3)
1,0,spine-a,1.5,POINT (4 5)`

		tbl, err := io.NewCSVReader(strings.NewReader(csvData), io.DefaultCSVOptions(), sampleFields).Read()
		require.NoError(t, err)

		assert.Equal(t, []table.Key{table.KT(1, 0), table.KT(1, 1), table.K(2)}, tbl.Keys())
		v, _ := tbl.Get(table.KT(1, 1), "point")
		assert.Equal(t, table.Point{X: 1, Y: 2, Z: 3}, v)
		v, _ = tbl.Get(table.KT(1, 0), "point")
		assert.Equal(t, table.Point{X: 4, Y: 5}, v)
		v, _ = tbl.Get(table.K(2), "length")
		assert.Nil(t, v)
	})

	t.Run("t defaults to zero", func(t *testing.T) {
		tbl, err := io.NewCSVReader(strings.NewReader("id,count\n7,3\n"), io.DefaultCSVOptions(), sampleFields).Read()
		require.NoError(t, err)
		v, ok := tbl.Get(table.K(7), "count")
		require.True(t, ok)
		assert.Equal(t, int64(3), v)
	})

	t.Run("custom delimiter", func(t *testing.T) {
		options := io.DefaultCSVOptions()
		options.Delimiter = ';'
		tbl, err := io.NewCSVReader(strings.NewReader("id;accepted\n1;true\n2;0\n"), options, sampleFields).Read()
		require.NoError(t, err)
		v, _ := tbl.Get(table.K(2), "accepted")
		assert.Equal(t, false, v)
	})

	t.Run("empty input", func(t *testing.T) {
		tbl, err := io.NewCSVReader(strings.NewReader(""), io.DefaultCSVOptions(), sampleFields).Read()
		require.NoError(t, err)
		assert.Equal(t, 0, tbl.Len())
	})

	errorCases := []struct {
		name string
		data string
	}{
		{"missing id", "name\nx\n"},
		{"unknown column", "id,colour\n1,red\n"},
		{"bad int", "id,count\n1,three\n"},
		{"bad point", "id,point\n1,(1 2)\n"},
		{"duplicate key", "id,name\n1,a\n1,b\n"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := io.NewCSVReader(strings.NewReader(tc.data), io.DefaultCSVOptions(), sampleFields).Read()
			assert.Error(t, err)
		})
	}
}

func TestCSVWriterRoundTrip(t *testing.T) {
	original := sampleTable(t)

	var buf bytes.Buffer
	require.NoError(t, io.NewCSVWriter(&buf, io.DefaultCSVOptions()).Write(original))
	assert.True(t, strings.HasPrefix(buf.String(), "id,t,name,length"))

	restored, err := io.NewCSVReader(&buf, io.DefaultCSVOptions(), sampleFields).Read()
	require.NoError(t, err)
	assert.True(t, original.Equal(restored))
}

func TestParseText(t *testing.T) {
	tests := []struct {
		dtype table.DType
		in    string
		want  any
	}{
		{table.Int64Type, "42", int64(42)},
		{table.Float64Type, "0.5", 0.5},
		{table.BoolType, "TRUE", true},
		{table.StringType, "abc", "abc"},
		{table.PointType, "point z (1 2 3)", table.Point{X: 1, Y: 2, Z: 3}},
		{table.TimeType, "2024-03-01T12:30:00Z", sampleTime},
		{table.Int64Type, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.dtype.String()+"/"+tt.in, func(t *testing.T) {
			got, err := io.ParseText(tt.dtype, tt.in)
			require.NoError(t, err)
			assert.True(t, table.Equal(tt.want, got), "got %v", got)

			again, err := io.ParseText(tt.dtype, io.FormatText(got))
			require.NoError(t, err)
			assert.True(t, table.Equal(got, again))
		})
	}
}
