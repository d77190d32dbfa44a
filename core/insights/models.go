// Package insights aggregates incident records into dashboard summaries & trends.
package insights

import (
	"time"

	"github.com/trezcool/schoolpulse/core/incident"
)

// snapshot sources
const (
	SourceRemote = "remote"
	SourceDemo   = "demo"
)

type Summary struct {
	TotalDelays         int                `json:"totalDelays"`
	TotalInfractions    int                `json:"totalInfractions"`
	PositiveActions     int                `json:"positiveActions"`
	MostCommonDelayType incident.DelayType `json:"mostCommonDelayType"` // DelayNone when no delays
}

// TrendBucket is a single point of a trend series.
type TrendBucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Trends struct {
	DelaysByDate          []TrendBucket `json:"delaysByDate"`
	InfractionsByCategory []TrendBucket `json:"infractionsByCategory"`
}

// Snapshot is the aggregated view cached by the dashboard.
// A Snapshot is replaced, never mutated in place; use Clone before handing it out.
type Snapshot struct {
	Summary   Summary   `json:"summary"`
	Trends    Trends    `json:"trends"`
	FetchedAt time.Time `json:"fetchedAt"`
	Synthetic bool      `json:"synthetic"`
	Source    string    `json:"source"`
}

func (s Snapshot) Clone() Snapshot {
	s.Trends.DelaysByDate = cloneBuckets(s.Trends.DelaysByDate)
	s.Trends.InfractionsByCategory = cloneBuckets(s.Trends.InfractionsByCategory)
	return s
}

// Consistent reports whether the summary totals match the trend buckets.
func (s Snapshot) Consistent() bool {
	return s.Summary.TotalDelays == SumCounts(s.Trends.DelaysByDate) &&
		s.Summary.TotalInfractions == SumCounts(s.Trends.InfractionsByCategory)
}

// SumCounts adds up the counts of buckets.
func SumCounts(buckets []TrendBucket) int {
	var total int
	for _, b := range buckets {
		total += b.Count
	}
	return total
}

func cloneBuckets(buckets []TrendBucket) []TrendBucket {
	if buckets == nil {
		return nil
	}
	out := make([]TrendBucket, len(buckets))
	copy(out, buckets)
	return out
}
