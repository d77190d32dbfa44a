package backendsvc_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
	"github.com/trezcool/schoolpulse/services/backend"
	logsvc "github.com/trezcool/schoolpulse/services/logger"
	"github.com/trezcool/schoolpulse/services/transport"
	"github.com/trezcool/schoolpulse/tests"
)

func setup(t *testing.T) (*backendsvc.Client, *testutil.Backend) {
	backend := testutil.NewBackend(t)
	conf := &core.Config{
		Backend:  core.BackendConfig{Scheme: "http", Host: "localhost", Port: 8000, BasePath: "/api"},
		Insights: core.InsightsConfig{Mode: core.InsightsModeLive},
	}
	tr := transportsvc.New(transportsvc.Options{BaseURL: backend.URL()})
	return backendsvc.NewClient(tr, conf, logsvc.NewNopLogger()), backend
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 10, 0, 0, 0, time.UTC)
}

func TestClient_SubmitDelayLog(t *testing.T) {
	client, backend := setup(t)

	entry := incident.DelayLogEntry{Teacher: "Mrs. Mbuyi", DelayType: incident.DelayResource, Timestamp: day(3)}
	res, err := client.SubmitDelayLog(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, incident.SubmitResult{Success: true, Message: "saved"}, res)

	assert.Equal(t, 1, backend.Calls(http.MethodPost, backendsvc.PathDelayLogs))
	assert.Equal(t, []incident.DelayLogEntry{
		{Teacher: "Mrs. Mbuyi", DelayType: incident.DelayResource, Timestamp: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)},
	}, backend.Delays())
}

func TestClient_SubmitInfraction(t *testing.T) {
	client, backend := setup(t)
	backend.SetSubmitResult(incident.SubmitResult{Success: false, Message: "duplicate report"})

	entry := incident.InfractionEntry{Student: "Amani", Category: "Uniform", Action: incident.ActionNegative, Timestamp: day(4)}
	res, err := client.SubmitInfraction(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, incident.SubmitResult{Success: false, Message: "duplicate report"}, res)
	assert.Equal(t, 1, backend.Calls(http.MethodPost, backendsvc.PathInfractions))
}

func TestClient_SubmitUnexpectedShape(t *testing.T) {
	client, backend := setup(t)
	backend.Respond(http.MethodPost, backendsvc.PathInfractions, http.StatusOK, `["not", "an", "object"]`)

	_, err := client.SubmitInfraction(context.Background(), incident.InfractionEntry{Student: "a", Category: "b", Timestamp: day(1)})
	assert.Equal(t, core.KindParse, core.KindOf(err))
}

func TestClient_Snapshot(t *testing.T) {
	client, backend := setup(t)
	backend.Seed(
		[]incident.DelayLogEntry{
			{DelayType: incident.DelayAdmin, Timestamp: day(2)},
			{DelayType: incident.DelayTechnical, Timestamp: day(1)},
			{DelayType: incident.DelayTechnical, Timestamp: day(2)},
		},
		[]incident.InfractionEntry{
			{Category: "Uniform", Action: incident.ActionNegative},
			{Category: "Helpfulness", Action: incident.ActionPositive},
			{Category: "Helpfulness", Action: incident.ActionPositive},
		},
	)

	snap, err := client.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, insights.SourceRemote, snap.Source)
	assert.False(t, snap.Synthetic)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, insights.Summary{
		TotalDelays:         3,
		TotalInfractions:    3,
		PositiveActions:     2,
		MostCommonDelayType: incident.DelayTechnical,
	}, snap.Summary)
	assert.Equal(t, []insights.TrendBucket{{Key: "2025-03-01", Count: 1}, {Key: "2025-03-02", Count: 2}}, snap.Trends.DelaysByDate)
	assert.Equal(t, []insights.TrendBucket{{Key: "Helpfulness", Count: 2}, {Key: "Uniform", Count: 1}}, snap.Trends.InfractionsByCategory)
	assert.True(t, snap.Consistent())
}

func TestClient_SnapshotDecoding(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     insights.Snapshot
		wantKind core.Kind
	}{
		{
			name: "no delays",
			body: `{"summary":{"totalDelays":0,"totalInfractions":0,"positiveActions":0,"mostCommonDelayType":null},"trends":{"delaysByDate":[],"infractionsByCategory":[]}}`,
			want: insights.Snapshot{
				Trends: insights.Trends{DelaysByDate: []insights.TrendBucket{}, InfractionsByCategory: []insights.TrendBucket{}},
				Source: insights.SourceRemote,
			},
		},
		{
			name: "unsorted buckets",
			body: `{"summary":{"totalDelays":3,"totalInfractions":3,"positiveActions":1,"mostCommonDelayType":"admin"},
				"trends":{"delaysByDate":[{"timestamp":"2025-03-02","count":1},{"timestamp":"2025-03-01","count":2}],
				"infractionsByCategory":[{"category":"Phone","count":1},{"category":"Uniform","count":2}]}}`,
			want: insights.Snapshot{
				Summary: insights.Summary{TotalDelays: 3, TotalInfractions: 3, PositiveActions: 1, MostCommonDelayType: incident.DelayAdmin},
				Trends: insights.Trends{
					DelaysByDate:          []insights.TrendBucket{{Key: "2025-03-01", Count: 2}, {Key: "2025-03-02", Count: 1}},
					InfractionsByCategory: []insights.TrendBucket{{Key: "Uniform", Count: 2}, {Key: "Phone", Count: 1}},
				},
				Source: insights.SourceRemote,
			},
		},
		{
			name:     "negative count",
			body:     `{"summary":{"totalDelays":-1},"trends":{}}`,
			wantKind: core.KindParse,
		},
		{
			name:     "wrong types",
			body:     `{"summary":{"totalDelays":"many"}}`,
			wantKind: core.KindParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, backend := setup(t)
			backend.Respond(http.MethodGet, backendsvc.PathInsights, http.StatusOK, tt.body)

			snap, err := client.Snapshot(context.Background())
			if tt.wantKind != core.KindUnknown {
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			snap.FetchedAt = time.Time{}
			assert.Equal(t, tt.want, snap)
		})
	}
}

func TestClient_Ping(t *testing.T) {
	client, backend := setup(t)
	assert.NoError(t, client.Ping(context.Background()))

	backend.Respond(http.MethodGet, backendsvc.PathInsights, http.StatusServiceUnavailable, `{}`)
	assert.Equal(t, core.KindHTTP, core.KindOf(client.Ping(context.Background())))
	assert.Equal(t, 2, backend.Calls(http.MethodGet, backendsvc.PathInsights))
}

func TestClient_ConnectionInfo(t *testing.T) {
	client, _ := setup(t)
	assert.Equal(t, core.ConnectionInfo{
		BaseURL: "http://localhost:8000/api",
		Host:    "localhost",
		Mode:    core.InsightsModeLive,
	}, client.ConnectionInfo())
}

func TestInsightsResponse_RoundTrip(t *testing.T) {
	snap := insights.Aggregate(
		[]incident.DelayLogEntry{{DelayType: incident.DelayPersonal, Timestamp: day(5)}},
		[]incident.InfractionEntry{{Category: "Phone"}},
		day(6),
	)
	got, err := backendsvc.NewInsightsResponse(snap).Snapshot(day(6))
	require.NoError(t, err)
	snap.Source = insights.SourceRemote
	assert.Equal(t, snap, got)
}
