package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
	"github.com/trezcool/schoolpulse/services/backend"
)

// APIPrefix is the path prefix the fake Backend serves under.
const APIPrefix = "/api"

type (
	response struct {
		status int
		body   string
	}

	// Backend is an in-memory fake of the School Pulse API, served over HTTP.
	// Insights are aggregated from the records it received (or was seeded with).
	Backend struct {
		server *httptest.Server

		mu          sync.Mutex
		calls       map[string]int
		overrides   map[string]response
		result      incident.SubmitResult
		delays      []incident.DelayLogEntry
		infractions []incident.InfractionEntry
		hold        chan struct{}
		arrived     chan struct{}
	}
)

// NewBackend starts a fake Backend; it is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	b := &Backend{
		calls:     make(map[string]int),
		overrides: make(map[string]response),
		result:    incident.SubmitResult{Success: true, Message: "saved"},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)
	e.Use(b.intercept)

	api := e.Group(APIPrefix)
	api.POST(backendsvc.PathDelayLogs, b.createDelayLog)
	api.POST(backendsvc.PathInfractions, b.createInfraction)
	api.GET(backendsvc.PathInsights, b.getInsights)

	b.server = httptest.NewServer(e)
	t.Cleanup(func() {
		b.Release()
		b.server.Close()
	})
	return b
}

// URL is the API base URL, eg. http://127.0.0.1:41234/api
func (b *Backend) URL() string {
	return b.server.URL + APIPrefix
}

// Calls returns the number of requests received for method & API path (eg. "GET", "/insights").
func (b *Backend) Calls(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[method+" "+APIPrefix+path]
}

// Respond makes every subsequent request to method & path answer with status and raw body.
func (b *Backend) Respond(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+APIPrefix+path] = response{status: status, body: body}
}

// Reset removes the override of method & path.
func (b *Backend) Reset(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.overrides, method+" "+APIPrefix+path)
}

// SetSubmitResult sets the verdict returned for submissions.
func (b *Backend) SetSubmitResult(res incident.SubmitResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result = res
}

// Seed adds records to the backend.
func (b *Backend) Seed(delays []incident.DelayLogEntry, infractions []incident.InfractionEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays = append(b.delays, delays...)
	b.infractions = append(b.infractions, infractions...)
}

func (b *Backend) Delays() []incident.DelayLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]incident.DelayLogEntry(nil), b.delays...)
}

func (b *Backend) Infractions() []incident.InfractionEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]incident.InfractionEntry(nil), b.infractions...)
}

// HoldInsights makes GET /insights block until Release is called.
// The returned channel receives a value each time a request arrives.
func (b *Backend) HoldInsights() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hold = make(chan struct{})
	b.arrived = make(chan struct{}, 16)
	return b.arrived
}

// Release unblocks held insights requests.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hold != nil {
		close(b.hold)
		b.hold = nil
	}
}

// WaitArrived waits for a held request to arrive or fails the test.
func WaitArrived(t *testing.T, arrived <-chan struct{}) {
	t.Helper()
	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the backend")
	}
}

func (b *Backend) intercept(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		key := ctx.Request().Method + " " + ctx.Request().URL.Path

		b.mu.Lock()
		b.calls[key]++
		override, ok := b.overrides[key]
		b.mu.Unlock()

		if ok {
			return ctx.Blob(override.status, echo.MIMEApplicationJSONCharsetUTF8, []byte(override.body))
		}
		return next(ctx)
	}
}

type delayLogRequest struct {
	Teacher   string `json:"teacher"`
	DelayType string `json:"delay_type"`
	Notes     string `json:"notes"`
	Timestamp string `json:"timestamp"`
}

type infractionRequest struct {
	Student   string `json:"student"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
}

func (b *Backend) createDelayLog(ctx echo.Context) error {
	var req delayLogRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	ts, err := time.Parse(incident.DateLayout, req.Timestamp)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid timestamp")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays = append(b.delays, incident.DelayLogEntry{
		Teacher:   req.Teacher,
		DelayType: incident.DelayType(req.DelayType),
		Notes:     req.Notes,
		Timestamp: ts,
	})
	return ctx.JSON(http.StatusOK, b.result)
}

func (b *Backend) createInfraction(ctx echo.Context) error {
	var req infractionRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	ts, err := time.Parse(incident.DateLayout, req.Timestamp)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid timestamp")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.infractions = append(b.infractions, incident.InfractionEntry{
		Student:   req.Student,
		Category:  req.Category,
		Action:    incident.Action(req.Action),
		Timestamp: ts,
	})
	return ctx.JSON(http.StatusOK, b.result)
}

func (b *Backend) getInsights(ctx echo.Context) error {
	b.mu.Lock()
	hold, arrived := b.hold, b.arrived
	b.mu.Unlock()

	if hold != nil {
		arrived <- struct{}{}
		select {
		case <-hold:
		case <-ctx.Request().Context().Done():
			return ctx.Request().Context().Err()
		}
	}

	b.mu.Lock()
	snap := insights.Aggregate(b.delays, b.infractions, time.Now())
	b.mu.Unlock()
	return ctx.JSON(http.StatusOK, backendsvc.NewInsightsResponse(snap))
}
