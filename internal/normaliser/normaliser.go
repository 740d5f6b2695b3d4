// Package normaliser turns raw monitoring query results into deterministic,
// chartable frames.
//
// The pipeline runs in a fixed order:
//
//  1. absent cells become 0 (no data means no activity)
//  2. distributions collapse to their mean
//  3. timestamps are truncated to the minute (UTC)
//  4. samples sharing a (minute, label) pair are reduced with the metric's reducer,
//     whether they came from duplicated columns or from rows that truncation merged
//  5. utilisation metrics are scaled from fractions to percent
package normaliser

import (
	"math"
	"sort"
	"time"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/catalog"
	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
)

type bucket struct {
	ts     time.Time
	values []float64
	seen   []bool
}

// Normalise reduces raw into a frame using the policy in d. It never fails: an
// empty or nil raw table yields a zero-row frame.
func Normalise(raw *table.Raw, d catalog.Descriptor) *table.Frame {
	if raw == nil {
		return table.EmptyFrame()
	}

	labels, position := uniqueLabels(raw.Columns)

	byMinute := make(map[int64]*bucket)
	var order []*bucket

	for i, row := range raw.Rows {
		ts := Truncate(row.Timestamp)

		b, ok := byMinute[ts.Unix()]
		if !ok {
			b = &bucket{
				ts:     ts,
				values: make([]float64, len(labels)),
				seen:   make([]bool, len(labels)),
			}
			byMinute[ts.Unix()] = b
			order = append(order, b)
		}

		for c, label := range raw.Columns {
			v := collapse(raw.Cell(i, c))
			j := position[label]
			if !b.seen[j] {
				b.values[j] = v
				b.seen[j] = true
				continue
			}
			b.values[j] = d.Reducer.Apply(b.values[j], v)
		}
	}

	sort.SliceStable(order, func(a, b int) bool {
		return order[a].ts.Before(order[b].ts)
	})

	frame := &table.Frame{
		Columns: labels,
		Index:   make([]time.Time, len(order)),
		Data:    make([][]float64, len(order)),
	}
	for i, b := range order {
		if d.PercentageScale {
			for j := range b.values {
				b.values[j] *= 100
			}
		}
		frame.Index[i] = b.ts
		frame.Data[i] = b.values
	}

	return frame
}

// Truncate drops the seconds and sub-second part of ts, in UTC.
func Truncate(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Minute)
}

// collapse treats NaN like an absent cell.
func collapse(s table.Sample) float64 {
	if s == nil {
		return 0
	}
	v := s.Float()
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// uniqueLabels returns the sorted distinct labels and each label's output position.
func uniqueLabels(columns []string) ([]string, map[string]int) {
	position := make(map[string]int, len(columns))
	labels := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := position[c]; ok {
			continue
		}
		position[c] = 0
		labels = append(labels, c)
	}

	sort.Strings(labels)
	for j, l := range labels {
		position[l] = j
	}

	return labels, position
}
