// Package incident holds the staff-submitted records: strategic delays and student infractions.
package incident

import (
	"strings"
	"time"

	"github.com/trezcool/schoolpulse/core"
)

// DateLayout is the wire format of incident timestamps.
const DateLayout = "2006-01-02"

// Defaults applied to incomplete submissions.
const (
	DefaultTeacher = "Unknown Teacher"
)

var NowFunc = time.Now // mockable

// DelayType
type DelayType string

const (
	DelayNone      DelayType = ""
	DelayResource  DelayType = "RESOURCE"
	DelayAdmin     DelayType = "ADMIN"
	DelayPersonal  DelayType = "PERSONAL"
	DelayTechnical DelayType = "TECHNICAL"
)

var DelayTypes = []DelayType{DelayResource, DelayAdmin, DelayPersonal, DelayTechnical}

// ParseDelayType normalizes s (case & whitespace) and reports whether it is a known DelayType.
func ParseDelayType(s string) (DelayType, bool) {
	dt := DelayType(strings.ToUpper(core.CleanString(s)))
	if dt.Valid() {
		return dt, true
	}
	return DelayType(core.CleanString(s)), false
}

func (dt DelayType) Valid() bool {
	for _, known := range DelayTypes {
		if dt == known {
			return true
		}
	}
	return false
}

// Action is the outcome recorded with an infraction.
type Action string

const (
	ActionPositive Action = "Positive"
	ActionNegative Action = "Negative"
)

func (a Action) Valid() bool {
	return a == ActionPositive || a == ActionNegative
}

// ActionFor maps the UI's positive toggle to an Action.
func ActionFor(isPositive bool) Action {
	if isPositive {
		return ActionPositive
	}
	return ActionNegative
}

// DelayLogEntry is immutable once accepted by the backend.
type DelayLogEntry struct {
	Teacher   string    `json:"teacher"`
	DelayType DelayType `json:"delay_type" validate:"required,delaytype"`
	Notes     string    `json:"notes,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// InfractionEntry is immutable once accepted by the backend.
type InfractionEntry struct {
	Student   string    `json:"student" validate:"notblank"`
	Category  string    `json:"category" validate:"notblank"`
	Action    Action    `json:"action" validate:"omitempty,incidentaction"`
	Timestamp time.Time `json:"timestamp"`
}

// SubmitResult is the backend's verdict on a submission, passed through unchanged.
type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Prepare cleans the entry and fills in the defaults of a submission.
func (e DelayLogEntry) Prepare() DelayLogEntry {
	e.Teacher = core.CleanString(e.Teacher)
	if e.Teacher == "" {
		e.Teacher = DefaultTeacher
	}
	if dt, ok := ParseDelayType(string(e.DelayType)); ok {
		e.DelayType = dt
	}
	e.Notes = core.CleanString(e.Notes)
	if e.Timestamp.IsZero() {
		e.Timestamp = NowFunc()
	}
	return e
}

// Prepare cleans the entry and fills in the defaults of a submission.
func (e InfractionEntry) Prepare() InfractionEntry {
	e.Student = core.CleanString(e.Student)
	e.Category = core.CleanString(e.Category)
	if e.Action == "" {
		e.Action = ActionNegative
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = NowFunc()
	}
	return e
}

// wire payloads

type delayLogPayload struct {
	Teacher   string `json:"teacher"`
	DelayType string `json:"delay_type"`
	Notes     string `json:"notes,omitempty"`
	Timestamp string `json:"timestamp"`
}

type infractionPayload struct {
	Student   string `json:"student"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

// Payload returns the request body of POST /delay-logs.
func (e DelayLogEntry) Payload() interface{} {
	return delayLogPayload{
		Teacher:   e.Teacher,
		DelayType: string(e.DelayType),
		Notes:     e.Notes,
		Timestamp: e.Timestamp.Format(DateLayout),
	}
}

// Payload returns the request body of POST /infractions.
func (e InfractionEntry) Payload() interface{} {
	return infractionPayload{
		Student:   e.Student,
		Category:  e.Category,
		Action:    string(e.Action),
		Timestamp: e.Timestamp.Format(DateLayout),
	}
}
