package table

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() *Frame {
	t0 := time.Date(2024, 1, 19, 15, 18, 0, 0, time.UTC)
	return &Frame{
		Columns: []string{"200", "302", "503"},
		Index:   []time.Time{t0, t0.Add(time.Minute), t0.Add(2 * time.Minute)},
		Data: [][]float64{
			{0, 0, 0},
			{1.5, 3, 0},
			{0.381171, 0, 2},
		},
	}
}

func TestFrame_JSONRoundTrip(t *testing.T) {
	original := sampleFrame()

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original.Len(), decoded.Len())
	assert.ElementsMatch(t, original.Columns, decoded.Columns)
	for i := range original.Index {
		assert.True(t, original.Index[i].Equal(decoded.Index[i]))
		for _, label := range original.Columns {
			want, _ := original.Value(i, label)
			got, ok := decoded.Value(i, label)
			assert.True(t, ok)
			assert.InDelta(t, want, got, 1e-9)
		}
	}
}

func TestFrame_WireShape(t *testing.T) {
	data, err := json.Marshal(sampleFrame())
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))

	assert.Contains(t, generic, "columns")
	assert.Contains(t, generic, "index")
	assert.Contains(t, generic, "data")
	assert.Equal(t, float64(time.Date(2024, 1, 19, 15, 18, 0, 0, time.UTC).UnixMilli()), generic["index"].([]any)[0])
}

func TestFrame_NonFiniteValuesEncodeAsNull(t *testing.T) {
	f := &Frame{
		Columns: []string{"a", "b", "c"},
		Index:   []time.Time{time.Date(2024, 1, 19, 15, 18, 0, 0, time.UTC)},
		Data:    [][]float64{{math.NaN(), math.Inf(1), 2}},
	}

	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["a","b","c"],"index":[1705677480000],"data":[[null,null,2]]}`, string(data))

	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, math.IsNaN(decoded.Data[0][0]))
	assert.Equal(t, 2.0, decoded.Data[0][2])
}

func TestFrame_EmptyRoundTrip(t *testing.T) {
	data, err := json.Marshal(EmptyFrame())
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[],"index":[],"data":[]}`, string(data))

	var decoded Frame
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Zero(t, decoded.Len())
	assert.Empty(t, decoded.Columns)
}

func TestFrame_UnmarshalRejectsRaggedRows(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "row width", body: `{"columns":["a","b"],"index":[0],"data":[[1]]}`},
		{name: "row count", body: `{"columns":["a"],"index":[0,60000],"data":[[1]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Frame
			assert.Error(t, json.Unmarshal([]byte(tt.body), &f))
		})
	}
}

func TestFrame_Column(t *testing.T) {
	f := sampleFrame()

	assert.Equal(t, []float64{0, 3, 0}, f.Column("302"))
	assert.Nil(t, f.Column("404"))
}
