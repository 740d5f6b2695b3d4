package table

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Frame is a normalised metric table: unique sorted labels, unique ascending
// minute-aligned timestamps and no missing values.
type Frame struct {
	Columns []string
	Index   []time.Time
	Data    [][]float64
}

// EmptyFrame returns a frame with no columns and no rows.
func EmptyFrame() *Frame {
	return &Frame{Columns: []string{}, Index: []time.Time{}, Data: [][]float64{}}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Index)
}

// Value returns the value for label at row i.
func (f *Frame) Value(i int, label string) (float64, bool) {
	for j, c := range f.Columns {
		if c == label {
			return f.Data[i][j], true
		}
	}
	return 0, false
}

// Column returns every value of label in row order, or nil if the label is unknown.
func (f *Frame) Column(label string) []float64 {
	for j, c := range f.Columns {
		if c != label {
			continue
		}
		out := make([]float64, len(f.Data))
		for i, row := range f.Data {
			out[i] = row[j]
		}
		return out
	}
	return nil
}

// frameJSON is the wire shape: pandas "split" orient with epoch-millisecond index.
type frameJSON struct {
	Columns []string `json:"columns"`
	Index   []int64  `json:"index"`
	Data    [][]cell `json:"data"`
}

// cell encodes NaN and ±Inf as null, which encoding/json cannot represent as numbers.
// null decodes back to NaN.
type cell float64

func (c cell) MarshalJSON() ([]byte, error) {
	v := float64(c)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (c *cell) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = cell(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = cell(v)
	return nil
}

func (f *Frame) MarshalJSON() ([]byte, error) {
	out := frameJSON{
		Columns: f.Columns,
		Index:   make([]int64, len(f.Index)),
		Data:    make([][]cell, len(f.Data)),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i, row := range f.Data {
		out.Data[i] = make([]cell, len(row))
		for j, v := range row {
			out.Data[i][j] = cell(v)
		}
	}
	for i, ts := range f.Index {
		out.Index[i] = ts.UnixMilli()
	}
	return json.Marshal(out)
}

func (f *Frame) UnmarshalJSON(b []byte) error {
	var in frameJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	if len(in.Data) != len(in.Index) {
		return fmt.Errorf("frame: %d data rows for %d index entries", len(in.Data), len(in.Index))
	}
	for i, row := range in.Data {
		if len(row) != len(in.Columns) {
			return fmt.Errorf("frame: row %d has %d values for %d columns", i, len(row), len(in.Columns))
		}
	}

	f.Columns = in.Columns
	if f.Columns == nil {
		f.Columns = []string{}
	}
	f.Data = make([][]float64, len(in.Data))
	for i, row := range in.Data {
		f.Data[i] = make([]float64, len(row))
		for j, v := range row {
			f.Data[i][j] = float64(v)
		}
	}
	f.Index = make([]time.Time, len(in.Index))
	for i, ms := range in.Index {
		f.Index[i] = time.UnixMilli(ms).UTC()
	}
	return nil
}
