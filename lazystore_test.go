package lazystore_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/lazystore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareX(view *lazystore.Frame) (lazystore.Result, error) {
	xs, err := lazystore.ColumnAs[float64](view, "x")
	if err != nil {
		return lazystore.Result{}, err
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * x
	}
	return lazystore.ValuesOf(out), nil
}

func newPoints(t *testing.T) *lazystore.Frame {
	t.Helper()

	sc, err := lazystore.NewSchema("points", lazystore.WithAttributes(
		lazystore.Attribute{Key: "x", DType: lazystore.Float64Type, Default: 0.0},
	))
	require.NoError(t, err)

	s := lazystore.New()
	points, err := s.AddFrame(sc, nil)
	require.NoError(t, err)
	require.NoError(t, points.AddComputed("x_squared", lazystore.Attribute{DType: lazystore.Float64Type},
		squareX, lazystore.Dependencies{"": {"x"}}, false))
	return points
}

func TestPublicAPI(t *testing.T) {
	points := newPoints(t)

	require.NoError(t, points.Update([]lazystore.Key{lazystore.K(1), lazystore.K(2)},
		lazystore.Row{"x": 3.0}, lazystore.UpdateOptions{}))

	v, err := points.Cell(lazystore.K(2), "x_squared")
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	err = lazystore.WithSeries(points, "x_squared", func(s lazystore.Series) error {
		assert.Equal(t, 2, s.Len())
		return nil
	})
	require.NoError(t, err)

	_, err = points.Cell(lazystore.K(5), "x")
	assert.True(t, errors.Is(err, lazystore.ErrNotFound))

	var storeErr *lazystore.Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "points", storeErr.Frame)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazystore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_history: 5\nlog_encoding: console\n"), 0o600))
	t.Setenv("LAZYSTORE_MAX_HISTORY", "7")

	cfg, err := lazystore.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxHistory)
	assert.Equal(t, "console", cfg.LogEncoding)

	_, err = lazystore.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func Example() {
	sc, _ := lazystore.NewSchema("points", lazystore.WithAttributes(
		lazystore.Attribute{Key: "x", DType: lazystore.Float64Type, Default: 0.0},
	))

	s := lazystore.New()
	points, _ := s.AddFrame(sc, nil)
	_ = points.AddComputed("x_squared", lazystore.Attribute{DType: lazystore.Float64Type},
		squareX, lazystore.Dependencies{"": {"x"}}, false)

	_ = points.Update([]lazystore.Key{lazystore.K(1)}, lazystore.Row{"x": 4.0}, lazystore.UpdateOptions{})
	v, _ := points.Cell(lazystore.K(1), "x_squared")
	fmt.Println(v)

	_, _ = points.Undo()
	fmt.Println(points.Len())
	// Output:
	// 16
	// 0
}
