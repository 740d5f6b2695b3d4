// Package catalog maps the six supported metric names to how they are queried and reduced.
package catalog

import (
	"strings"

	"github.com/EricMurray-e-m-dev/RunMonkey/internal/apperr"
)

// Reducer collapses several samples sharing a time bucket and label into one value.
type Reducer int

const (
	// Sum suits additive counters, e.g. total requests across replicas.
	Sum Reducer = iota
	// Max suits gauges and saturation metrics, e.g. peak CPU.
	Max
)

func (r Reducer) String() string {
	switch r {
	case Sum:
		return "sum"
	case Max:
		return "max"
	default:
		return "unknown"
	}
}

// Apply folds v into acc.
func (r Reducer) Apply(acc, v float64) float64 {
	if r == Max {
		if v > acc {
			return v
		}
		return acc
	}
	return acc + v
}

// Descriptor is the static policy for one named metric.
type Descriptor struct {
	Name       string
	QueryType  string
	GroupLabel string
	Reducer    Reducer
	// PercentageScale marks utilisation metrics reported upstream as 0-1 fractions.
	PercentageScale bool
}

const (
	RequestCount      = "request_count"
	RequestLatencies  = "request_latencies"
	InstanceCount     = "instance_count"
	CPUUtilization    = "cpu_utilization"
	MemoryUtilization = "memory_utilization"
	StartupLatency    = "startup_latency"
)

var descriptors = []Descriptor{
	{Name: RequestCount, QueryType: "run.googleapis.com/request_count", GroupLabel: "response_code", Reducer: Sum},
	{Name: RequestLatencies, QueryType: "run.googleapis.com/request_latencies", GroupLabel: "response_code", Reducer: Sum},
	{Name: InstanceCount, QueryType: "run.googleapis.com/container/instance_count", GroupLabel: "state", Reducer: Max},
	{Name: CPUUtilization, QueryType: "run.googleapis.com/container/cpu/utilizations", GroupLabel: "service_name", Reducer: Max, PercentageScale: true},
	{Name: MemoryUtilization, QueryType: "run.googleapis.com/container/memory/utilizations", GroupLabel: "service_name", Reducer: Max, PercentageScale: true},
	{Name: StartupLatency, QueryType: "run.googleapis.com/container/startup_latencies", GroupLabel: "service_name", Reducer: Max},
}

// Describe returns the descriptor for name. Lookup ignores case, so the legacy
// "CPU_utilization" spelling resolves too. Unknown names are an error, never a default.
func Describe(name string) (Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, d := range descriptors {
		if d.Name == key {
			return d, nil
		}
	}
	return Descriptor{}, apperr.UnknownMetric(name)
}

// Names returns the supported metric names in catalog order.
func Names() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}
	return names
}
