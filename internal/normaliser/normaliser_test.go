package normaliser

import (
	"math"
	"testing"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/catalog"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minute(m int) time.Time {
	return time.Date(2024, 1, 19, 15, m, 0, 0, time.UTC)
}

func describe(t *testing.T, name string) catalog.Descriptor {
	t.Helper()
	d, err := catalog.Describe(name)
	require.NoError(t, err)
	return d
}

func TestNormalise_FillsMissingAndKeepsValues(t *testing.T) {
	raw := table.NewRaw("200", "302", "503")
	raw.Append(minute(18), nil, table.Scalar(0), nil)
	raw.Append(minute(19), table.Scalar(0), nil, table.Scalar(0))
	raw.Append(minute(20), nil, table.Scalar(3), table.Scalar(0))
	raw.Append(minute(21), nil, table.Scalar(0), table.Scalar(2))
	raw.Append(minute(22), table.Scalar(1), table.Scalar(0))

	frame := Normalise(raw, describe(t, catalog.RequestCount))

	assert.Equal(t, []string{"200", "302", "503"}, frame.Columns)
	assert.Equal(t, []time.Time{minute(18), minute(19), minute(20), minute(21), minute(22)}, frame.Index)
	assert.Equal(t, [][]float64{
		{0, 0, 0},
		{0, 0, 0},
		{0, 3, 0},
		{0, 0, 2},
		{1, 0, 0},
	}, frame.Data)
}

func TestNormalise_NaNCountsAsMissing(t *testing.T) {
	raw := table.NewRaw("200", "200")
	raw.Append(minute(18), table.Scalar(math.NaN()), table.Scalar(2))
	raw.Append(minute(19), table.Distribution{Count: 0, Mean: math.NaN()}, nil)

	frame := Normalise(raw, describe(t, catalog.RequestCount))

	assert.Equal(t, [][]float64{{2}, {0}}, frame.Data)
}

func TestNormalise_DistributionsCollapseToMean(t *testing.T) {
	means := []float64{0.0, 0.381171, 0.035862, 0.034418, 0.034892}
	raw := table.NewRaw("dvwa")
	for i, m := range means {
		raw.Append(minute(14+i), table.Distribution{Count: 12, Mean: m, Min: 0, Max: 1})
	}

	frame := Normalise(raw, describe(t, catalog.StartupLatency))

	assert.Equal(t, means, frame.Column("dvwa"))
}

func TestNormalise_TruncatesTimestamps(t *testing.T) {
	raw := table.NewRaw("data")
	stamps := []time.Time{
		time.Date(2024, 1, 19, 15, 14, 23, 123456000, time.UTC),
		time.Date(2024, 1, 19, 15, 15, 45, 654321000, time.UTC),
		time.Date(2024, 1, 19, 15, 16, 56, 789101000, time.UTC),
		time.Date(2024, 1, 19, 15, 17, 12, 345678000, time.UTC),
		time.Date(2024, 1, 19, 15, 18, 34, 987654000, time.UTC),
	}
	for i, ts := range stamps {
		raw.Append(ts, table.Scalar(float64(i+1)))
	}

	frame := Normalise(raw, describe(t, catalog.RequestCount))

	assert.Equal(t, []time.Time{minute(14), minute(15), minute(16), minute(17), minute(18)}, frame.Index)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, frame.Column("data"))
}

func TestTruncate(t *testing.T) {
	ts := time.Date(2024, 1, 19, 15, 14, 23, 123456000, time.UTC)

	assert.Equal(t, minute(14), Truncate(ts))
}

func TestNormalise_DuplicateColumns(t *testing.T) {
	tests := []struct {
		metric string
		want   float64
	}{
		{metric: catalog.RequestCount, want: 8},
		{metric: catalog.InstanceCount, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			raw := table.NewRaw("active", "active")
			raw.Append(minute(0), table.Scalar(3), table.Scalar(5))

			frame := Normalise(raw, describe(t, tt.metric))

			require.Equal(t, []string{"active"}, frame.Columns)
			assert.Equal(t, tt.want, frame.Data[0][0])
		})
	}
}

func TestNormalise_RowCollisionsUseReducer(t *testing.T) {
	tests := []struct {
		metric string
		want   []float64
	}{
		{metric: catalog.RequestCount, want: []float64{7, 1}},
		{metric: catalog.InstanceCount, want: []float64{4, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			raw := table.NewRaw("200")
			raw.Append(minute(5).Add(10*time.Second), table.Scalar(3))
			raw.Append(minute(5).Add(40*time.Second), table.Scalar(4))
			raw.Append(minute(6).Add(time.Second), table.Scalar(1))

			frame := Normalise(raw, describe(t, tt.metric))

			assert.Equal(t, []time.Time{minute(5), minute(6)}, frame.Index)
			assert.Equal(t, tt.want, frame.Column("200"))
		})
	}
}

func TestNormalise_PercentageScale(t *testing.T) {
	raw := table.NewRaw("dvwa")
	raw.Append(minute(0), table.Distribution{Count: 3, Mean: 0.358, Min: 0.1, Max: 0.9})

	frame := Normalise(raw, describe(t, catalog.CPUUtilization))

	assert.InDelta(t, 35.8, frame.Data[0][0], 1e-9)
}

func TestNormalise_MaxAcrossDuplicatesBeforeScale(t *testing.T) {
	raw := table.NewRaw("dvwa", "dvwa")
	raw.Append(minute(0), table.Scalar(0.2), table.Distribution{Mean: 0.5})

	frame := Normalise(raw, describe(t, catalog.MemoryUtilization))

	assert.InDelta(t, 50.0, frame.Data[0][0], 1e-9)
}

func TestNormalise_SortsRowsAndColumns(t *testing.T) {
	raw := table.NewRaw("500", "200")
	raw.Append(minute(3), table.Scalar(1), table.Scalar(2))
	raw.Append(minute(1), table.Scalar(3), table.Scalar(4))

	frame := Normalise(raw, describe(t, catalog.RequestCount))

	assert.Equal(t, []string{"200", "500"}, frame.Columns)
	assert.Equal(t, []time.Time{minute(1), minute(3)}, frame.Index)
	assert.Equal(t, [][]float64{{4, 3}, {2, 1}}, frame.Data)
}

func TestNormalise_Idempotent(t *testing.T) {
	raw := table.NewRaw("200", "404")
	raw.Append(minute(1), table.Scalar(1), table.Scalar(0))
	raw.Append(minute(2), table.Scalar(2.5), table.Scalar(7))
	d := describe(t, catalog.RequestCount)

	first := Normalise(raw, d)

	again := table.NewRaw(first.Columns...)
	for i, ts := range first.Index {
		values := make([]table.Sample, len(first.Columns))
		for j, v := range first.Data[i] {
			values[j] = table.Scalar(v)
		}
		again.Append(ts, values...)
	}
	second := Normalise(again, d)

	assert.Equal(t, first, second)
}

func TestNormalise_NeverProducesGaps(t *testing.T) {
	raw := table.NewRaw("a", "b", "c")
	raw.Append(minute(0))
	raw.Append(minute(1), nil, table.Scalar(1))

	frame := Normalise(raw, describe(t, catalog.RequestLatencies))

	for _, row := range frame.Data {
		assert.Len(t, row, 3)
	}
	assert.Equal(t, [][]float64{{0, 0, 0}, {0, 1, 0}}, frame.Data)
}

func TestNormalise_Empty(t *testing.T) {
	d := describe(t, catalog.RequestCount)

	assert.Zero(t, Normalise(nil, d).Len())
	assert.Zero(t, Normalise(table.NewRaw(), d).Len())

	frame := Normalise(table.NewRaw("200"), d)
	assert.Zero(t, frame.Len())
	assert.Equal(t, []string{"200"}, frame.Columns)
}
