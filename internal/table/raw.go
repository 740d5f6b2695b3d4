// Package table holds the in-memory shapes a metric query passes through: the raw,
// irregular result of a monitoring query and the normalised frame sent to clients.
package table

import "time"

// Sample is one cell of a raw table. It is implemented only by Scalar and Distribution.
type Sample interface {
	// Float reduces the sample to a single number.
	Float() float64
	isSample()
}

// Scalar is a plain numeric reading.
type Scalar float64

func (s Scalar) Float() float64 { return float64(s) }
func (Scalar) isSample() {}

// Distribution summarises many observations in one bucket.
type Distribution struct {
	Count int64
	Mean  float64
	Min   float64
	Max   float64
}

// Float collapses the distribution to its mean.
func (d Distribution) Float() float64 { return d.Mean }
func (Distribution) isSample() {}

// Row is one timestamped row of a raw table. Values is aligned with Raw.Columns;
// a nil entry (or a missing trailing entry) is an absent cell.
type Row struct {
	Timestamp time.Time
	Values    []Sample
}

// Raw is the result of one metric query. Columns may repeat: several upstream
// series can share a label once resource dimensions are stripped.
type Raw struct {
	Columns []string
	Rows    []Row
}

// NewRaw creates an empty raw table with the given column labels.
func NewRaw(columns ...string) *Raw {
	return &Raw{Columns: columns}
}

// Append adds a row. Values beyond the column count are ignored by consumers.
func (r *Raw) Append(ts time.Time, values ...Sample) {
	r.Rows = append(r.Rows, Row{Timestamp: ts, Values: values})
}

// Cell returns the sample at (row, col), or nil when absent.
func (r *Raw) Cell(row, col int) Sample {
	values := r.Rows[row].Values
	if col >= len(values) {
		return nil
	}
	return values[col]
}

// Len returns the number of rows.
func (r *Raw) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}
