package io_test

import (
	"testing"
	"time"

	"github.com/paveg/lazystore/internal/table"
	"github.com/stretchr/testify/require"
)

var sampleFields = []table.Field{
	{Name: "name", DType: table.StringType},
	{Name: "length", DType: table.Float64Type},
	{Name: "count", DType: table.Int64Type},
	{Name: "accepted", DType: table.BoolType},
	{Name: "point", DType: table.PointType},
	{Name: "modified", DType: table.TimeType},
}

var sampleTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

// sampleTable holds a timed table with one null in every column but name
func sampleTable(t *testing.T) *table.Table {
	t.Helper()

	tbl := table.New(sampleFields...)
	require.NoError(t, tbl.Append(table.KT(1, 0), table.Row{
		"name": "spine-a", "length": 1.5, "count": int64(3), "accepted": true,
		"point": table.Point{X: 1, Y: 2, Z: 3}, "modified": sampleTime,
	}))
	require.NoError(t, tbl.Append(table.KT(1, 1), table.Row{
		"name": "spine-a", "length": 2.25, "count": int64(4), "accepted": false,
		"point": table.Point{X: 4, Y: 5}, "modified": sampleTime.Add(time.Minute),
	}))
	require.NoError(t, tbl.Append(table.KT(2, 0), table.Row{"name": "spine-b"}))
	return tbl
}
