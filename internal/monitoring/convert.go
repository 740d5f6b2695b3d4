package monitoring

import (
	"sort"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/table"
)

// ToRaw lays series out as a raw table: one column per series labelled by the value of
// groupLabel (metric labels first, then resource labels), one row per distinct point
// end time in ascending order. Series sharing a label keep separate columns.
func ToRaw(series []*monitoringpb.TimeSeries, groupLabel string) *table.Raw {
	raw := table.NewRaw()

	rowAt := make(map[int64]int)
	var stamps []time.Time
	cells := make(map[int64][]table.Sample)

	for col, ts := range series {
		raw.Columns = append(raw.Columns, seriesLabel(ts, groupLabel))

		for _, p := range ts.GetPoints() {
			at := p.GetInterval().GetEndTime().AsTime()
			key := at.UnixNano()
			if _, ok := rowAt[key]; !ok {
				rowAt[key] = len(stamps)
				stamps = append(stamps, at)
			}

			values := cells[key]
			for len(values) <= col {
				values = append(values, nil)
			}
			values[col] = toSample(p.GetValue())
			cells[key] = values
		}
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	for _, at := range stamps {
		raw.Append(at, cells[at.UnixNano()]...)
	}

	return raw
}

func seriesLabel(ts *monitoringpb.TimeSeries, key string) string {
	if v, ok := ts.GetMetric().GetLabels()[key]; ok {
		return v
	}
	return ts.GetResource().GetLabels()[key]
}

// toSample maps a typed point value to a table sample; strings are treated as absent.
func toSample(v *monitoringpb.TypedValue) table.Sample {
	switch val := v.GetValue().(type) {
	case *monitoringpb.TypedValue_DoubleValue:
		return table.Scalar(val.DoubleValue)
	case *monitoringpb.TypedValue_Int64Value:
		return table.Scalar(float64(val.Int64Value))
	case *monitoringpb.TypedValue_BoolValue:
		if val.BoolValue {
			return table.Scalar(1)
		}
		return table.Scalar(0)
	case *monitoringpb.TypedValue_DistributionValue:
		d := val.DistributionValue
		return table.Distribution{
			Count: d.GetCount(),
			Mean:  d.GetMean(),
			Min:   d.GetRange().GetMin(),
			Max:   d.GetRange().GetMax(),
		}
	default:
		return nil
	}
}
