package dashboard

import (
	"time"

	"github.com/trezcool/schoolpulse/core/insights"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

var statusNames = map[Status]string{
	StatusIdle:    "idle",
	StatusLoading: "loading",
	StatusLoaded:  "loaded",
	StatusFailed:  "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// State is what the dashboard renders.
// Snapshot is the last successful fetch; it survives failed refreshes.
type State struct {
	Status    Status
	Snapshot  *insights.Snapshot
	Err       error // last refresh error, cleared on success
	UpdatedAt time.Time
}

func (s State) Refreshing() bool {
	return s.Status == StatusLoading
}

func (s State) clone() State {
	if s.Snapshot != nil {
		snap := s.Snapshot.Clone()
		s.Snapshot = &snap
	}
	return s
}
