package backendsvc

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
)

type (
	// InsightsResponse is the body of GET /insights.
	InsightsResponse struct {
		Summary SummaryPayload `json:"summary"`
		Trends  TrendsPayload  `json:"trends"`
	}

	SummaryPayload struct {
		TotalDelays         int     `json:"totalDelays"`
		TotalInfractions    int     `json:"totalInfractions"`
		PositiveActions     int     `json:"positiveActions"`
		MostCommonDelayType *string `json:"mostCommonDelayType"`
	}

	TrendsPayload struct {
		DelaysByDate          []DateCount     `json:"delaysByDate"`
		InfractionsByCategory []CategoryCount `json:"infractionsByCategory"`
	}

	DateCount struct {
		Timestamp string `json:"timestamp"`
		Count     int    `json:"count"`
	}

	CategoryCount struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}
)

// NewInsightsResponse encodes snap the way the backend serves it.
func NewInsightsResponse(snap insights.Snapshot) InsightsResponse {
	resp := InsightsResponse{
		Summary: SummaryPayload{
			TotalDelays:      snap.Summary.TotalDelays,
			TotalInfractions: snap.Summary.TotalInfractions,
			PositiveActions:  snap.Summary.PositiveActions,
		},
		Trends: TrendsPayload{
			DelaysByDate:          make([]DateCount, 0, len(snap.Trends.DelaysByDate)),
			InfractionsByCategory: make([]CategoryCount, 0, len(snap.Trends.InfractionsByCategory)),
		},
	}
	if dt := snap.Summary.MostCommonDelayType; dt != incident.DelayNone {
		s := string(dt)
		resp.Summary.MostCommonDelayType = &s
	}
	for _, b := range snap.Trends.DelaysByDate {
		resp.Trends.DelaysByDate = append(resp.Trends.DelaysByDate, DateCount{Timestamp: b.Key, Count: b.Count})
	}
	for _, b := range snap.Trends.InfractionsByCategory {
		resp.Trends.InfractionsByCategory = append(resp.Trends.InfractionsByCategory, CategoryCount{Category: b.Key, Count: b.Count})
	}
	return resp
}

// Snapshot decodes the response into a Snapshot, ordering the buckets like the aggregator does.
// Negative counts are rejected with a *core.ParseError.
func (r InsightsResponse) Snapshot(fetchedAt time.Time) (insights.Snapshot, error) {
	sum := r.Summary
	if sum.TotalDelays < 0 || sum.TotalInfractions < 0 || sum.PositiveActions < 0 {
		return insights.Snapshot{}, &core.ParseError{Err: errors.New("negative summary count")}
	}

	snap := insights.Snapshot{
		Summary: insights.Summary{
			TotalDelays:      sum.TotalDelays,
			TotalInfractions: sum.TotalInfractions,
			PositiveActions:  sum.PositiveActions,
		},
		Trends: insights.Trends{
			DelaysByDate:          make([]insights.TrendBucket, 0, len(r.Trends.DelaysByDate)),
			InfractionsByCategory: make([]insights.TrendBucket, 0, len(r.Trends.InfractionsByCategory)),
		},
		FetchedAt: fetchedAt,
		Source:    insights.SourceRemote,
	}
	if sum.MostCommonDelayType != nil {
		snap.Summary.MostCommonDelayType, _ = incident.ParseDelayType(*sum.MostCommonDelayType)
	}

	for _, dc := range r.Trends.DelaysByDate {
		if dc.Count < 0 {
			return insights.Snapshot{}, &core.ParseError{Err: errors.Errorf("negative count for %q", dc.Timestamp)}
		}
		snap.Trends.DelaysByDate = append(snap.Trends.DelaysByDate, insights.TrendBucket{Key: dc.Timestamp, Count: dc.Count})
	}
	for _, cc := range r.Trends.InfractionsByCategory {
		if cc.Count < 0 {
			return insights.Snapshot{}, &core.ParseError{Err: errors.Errorf("negative count for %q", cc.Category)}
		}
		snap.Trends.InfractionsByCategory = append(snap.Trends.InfractionsByCategory, insights.TrendBucket{Key: cc.Category, Count: cc.Count})
	}

	byDate, byCategory := snap.Trends.DelaysByDate, snap.Trends.InfractionsByCategory
	sort.SliceStable(byDate, func(i, j int) bool { return byDate[i].Key < byDate[j].Key })
	sort.SliceStable(byCategory, func(i, j int) bool { return byCategory[i].Count > byCategory[j].Count })
	return snap, nil
}
