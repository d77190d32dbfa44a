package insights

import (
	"sort"
	"time"

	"github.com/trezcool/schoolpulse/core/incident"
)

// Summarize computes the dashboard summary of the given records.
// Empty input yields an all-zero Summary.
func Summarize(delays []incident.DelayLogEntry, infractions []incident.InfractionEntry) Summary {
	sum := Summary{
		TotalDelays:         len(delays),
		TotalInfractions:    len(infractions),
		MostCommonDelayType: MostCommonDelayType(delays),
	}
	for _, inf := range infractions {
		if inf.Action == incident.ActionPositive {
			sum.PositiveActions++
		}
	}
	return sum
}

// MostCommonDelayType returns the mode of the delay types; ties go to the type observed first.
// Returns incident.DelayNone when there are no delays.
func MostCommonDelayType(delays []incident.DelayLogEntry) incident.DelayType {
	counts := make(map[incident.DelayType]int, len(incident.DelayTypes))
	order := make([]incident.DelayType, 0, len(incident.DelayTypes))
	for _, d := range delays {
		if d.DelayType == incident.DelayNone {
			continue
		}
		if _, seen := counts[d.DelayType]; !seen {
			order = append(order, d.DelayType)
		}
		counts[d.DelayType]++
	}

	best, bestCount := incident.DelayNone, 0
	for _, dt := range order { // strict > keeps the first observed on ties
		if counts[dt] > bestCount {
			best, bestCount = dt, counts[dt]
		}
	}
	return best
}

// BucketByDate counts delays per day, sorted by date ascending.
func BucketByDate(delays []incident.DelayLogEntry) []TrendBucket {
	return bucketize(len(delays), func(i int) string {
		return delays[i].Timestamp.Format(incident.DateLayout)
	}, func(a, b TrendBucket) bool {
		return a.Key < b.Key
	})
}

// BucketByCategory counts infractions per category, sorted by count descending.
// Categories with equal counts keep their first observed order.
func BucketByCategory(infractions []incident.InfractionEntry) []TrendBucket {
	return bucketize(len(infractions), func(i int) string {
		return infractions[i].Category
	}, func(a, b TrendBucket) bool {
		return a.Count > b.Count
	})
}

// Aggregate builds a full Snapshot out of raw records.
func Aggregate(delays []incident.DelayLogEntry, infractions []incident.InfractionEntry, fetchedAt time.Time) Snapshot {
	return Snapshot{
		Summary: Summarize(delays, infractions),
		Trends: Trends{
			DelaysByDate:          BucketByDate(delays),
			InfractionsByCategory: BucketByCategory(infractions),
		},
		FetchedAt: fetchedAt,
	}
}

func bucketize(n int, keyAt func(i int) string, less func(a, b TrendBucket) bool) []TrendBucket {
	buckets := make([]TrendBucket, 0)
	index := make(map[string]int)
	for i := 0; i < n; i++ {
		key := keyAt(i)
		if idx, ok := index[key]; ok {
			buckets[idx].Count++
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, TrendBucket{Key: key, Count: 1})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return less(buckets[i], buckets[j])
	})
	return buckets
}
