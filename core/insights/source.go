package insights

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/incident"
)

var NowFunc = time.Now // mockable

// Source is anything that can produce an insights Snapshot (the backend, the demo dataset...).
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(ctx context.Context) (Snapshot, error)

func (f SourceFunc) Snapshot(ctx context.Context) (Snapshot, error) { return f(ctx) }

type demoSource struct{}

var _ Source = (*demoSource)(nil)

// NewDemoSource returns the offline demo Source: a fixed synthetic record set, aggregated on each call.
func NewDemoSource() Source {
	return &demoSource{}
}

func (demoSource) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	now := NowFunc()
	delays, infractions := DemoRecords(now)
	snap := Aggregate(delays, infractions, now)
	snap.Synthetic = true
	snap.Source = SourceDemo
	return snap, nil
}

// DemoRecords returns the synthetic dataset, dated relative to now (the last five school days).
func DemoRecords(now time.Time) ([]incident.DelayLogEntry, []incident.InfractionEntry) {
	day := func(n int) time.Time {
		y, m, d := now.Date()
		return time.Date(y, m, d-n, 8, 0, 0, 0, now.Location())
	}
	delays := []incident.DelayLogEntry{
		{Teacher: "Mrs. Mbuyi", DelayType: incident.DelayResource, Timestamp: day(4)},
		{Teacher: "Mr. Kasongo", DelayType: incident.DelayAdmin, Timestamp: day(4)},
		{Teacher: "Mrs. Mbuyi", DelayType: incident.DelayResource, Timestamp: day(3)},
		{Teacher: "Ms. Ilunga", DelayType: incident.DelayTechnical, Notes: "projector", Timestamp: day(2)},
		{Teacher: "Mr. Kasongo", DelayType: incident.DelayPersonal, Timestamp: day(1)},
		{Teacher: "Ms. Ilunga", DelayType: incident.DelayResource, Timestamp: day(1)},
		{Teacher: "Mr. Tshibanda", DelayType: incident.DelayAdmin, Timestamp: day(0)},
	}
	infractions := []incident.InfractionEntry{
		{Student: "Amani K.", Category: "Tardiness", Action: incident.ActionNegative, Timestamp: day(4)},
		{Student: "Grace M.", Category: "Uniform", Action: incident.ActionNegative, Timestamp: day(3)},
		{Student: "Amani K.", Category: "Tardiness", Action: incident.ActionNegative, Timestamp: day(2)},
		{Student: "Daniel T.", Category: "Helpfulness", Action: incident.ActionPositive, Timestamp: day(2)},
		{Student: "Esther L.", Category: "Tardiness", Action: incident.ActionPositive, Timestamp: day(1)},
		{Student: "Grace M.", Category: "Disruption", Action: incident.ActionNegative, Timestamp: day(0)},
	}
	return delays, infractions
}

// FallbackSource serves Primary, switching to Fallback only when the backend cannot be reached.
type FallbackSource struct {
	Primary  Source
	Fallback Source
	Logger   core.Logger
}

var _ Source = (*FallbackSource)(nil)

func (s *FallbackSource) Snapshot(ctx context.Context) (Snapshot, error) {
	snap, err := s.Primary.Snapshot(ctx)
	if err == nil || !errors.Is(err, core.ErrNetworkUnavailable) {
		return snap, err
	}
	if s.Logger != nil {
		s.Logger.Warn("backend unreachable, serving offline demo insights", err)
	}
	fallback, fErr := s.Fallback.Snapshot(ctx)
	if fErr != nil {
		return Snapshot{}, errors.Wrap(fErr, "fallback insights")
	}
	return fallback, nil
}
