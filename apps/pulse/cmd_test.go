package main

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolpulse/apps"
	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/dashboard"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
	"github.com/trezcool/schoolpulse/services/backend"
	"github.com/trezcool/schoolpulse/services/transport"
	"github.com/trezcool/schoolpulse/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Backend, *bytes.Buffer) {
	backend := testutil.NewBackend(t)
	conf := &core.Config{
		Backend:  core.BackendConfig{Scheme: "http", Host: "localhost", Port: 8000, BasePath: "/api"},
		Insights: core.InsightsConfig{Mode: core.InsightsModeLive},
	}
	client := backendsvc.NewClient(transportsvc.New(transportsvc.Options{BaseURL: backend.URL()}), conf, testutil.NewLogger())

	v := core.NewValidator()
	incident.InitValidators(v.Validate, v.Translator)
	ctrl := dashboard.NewController(dashboard.Options{Source: client, Backend: client, Validator: v, Logger: testutil.NewLogger()})
	t.Cleanup(ctrl.Close)

	var out bytes.Buffer
	return newCommandLine(ctrl, &out, false), backend, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantKind   core.Kind
	wantOut    []string // fragments expected in the output
	prepare    func(b *testutil.Backend)
	extra      interface{}
}

func runCLITests(t *testing.T, tests []cliTest, check func(t *testing.T, tt cliTest, backend *testutil.Backend)) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, backend, out := setup(t)
			if tt.prepare != nil {
				tt.prepare(backend)
			}

			err := cli.run(context.Background(), tt.args)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			case tt.wantErrStr != "":
				assert.ErrorContains(t, err, tt.wantErrStr)
			case tt.wantKind != core.KindUnknown:
				assert.Equal(t, tt.wantKind, core.KindOf(err), "got %v", err)
			default:
				require.NoError(t, err)
			}
			for _, fragment := range tt.wantOut {
				assert.Contains(t, out.String(), fragment)
			}
			if check != nil {
				check(t, tt, backend)
			}
		})
	}
}

func Test_commandLine_delay(t *testing.T) {
	tests := []cliTest{
		{
			name:    "saved",
			args:    []string{"delay", "--teacher", "Mrs. Mbuyi", "--type", "resource", "--date", "2025-03-03"},
			wantOut: []string{"Saved: saved"},
			extra: []incident.DelayLogEntry{{
				Teacher:   "Mrs. Mbuyi",
				DelayType: incident.DelayResource,
				Timestamp: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
			}},
		},
		{
			name:    "rejected",
			args:    []string{"delay", "--type", "ADMIN"},
			wantErr: errRejected,
			wantOut: []string{"Rejected: outside school hours"},
			prepare: func(b *testutil.Backend) {
				b.SetSubmitResult(incident.SubmitResult{Success: false, Message: "outside school hours"})
			},
		},
		{
			name:     "missing type",
			args:     []string{"delay", "--teacher", "Mrs. Mbuyi"},
			wantKind: core.KindValidation,
			wantOut:  []string{"Invalid entry:\n  delay_type: this field is required\n"},
			extra:    []incident.DelayLogEntry(nil),
		},
		{
			name:     "unknown type",
			args:     []string{"delay", "--type", "LATE"},
			wantKind: core.KindValidation,
			wantOut:  []string{"  delay_type: delay type must be one of RESOURCE, ADMIN, PERSONAL, TECHNICAL\n"},
			extra:    []incident.DelayLogEntry(nil),
		},
		{
			name:       "bad date",
			args:       []string{"delay", "--type", "ADMIN", "--date", "03/03/2025"},
			wantErrStr: `--date: invalid date "03/03/2025", expected YYYY-MM-DD`,
			wantOut:    []string{"Error: --date: invalid date"},
			extra:      []incident.DelayLogEntry(nil),
		},
		{
			name:     "server error",
			args:     []string{"delay", "--type", "ADMIN"},
			wantKind: core.KindHTTP,
			wantOut:  []string{"Error (http): HTTP 500", "try again"},
			prepare: func(b *testutil.Backend) {
				b.Respond(http.MethodPost, backendsvc.PathDelayLogs, http.StatusInternalServerError, `{"detail":"db down"}`)
			},
		},
	}
	runCLITests(t, tests, func(t *testing.T, tt cliTest, backend *testutil.Backend) {
		want, ok := tt.extra.([]incident.DelayLogEntry)
		if !ok {
			return
		}
		if want == nil {
			// rejected locally, never sent
			assert.Equal(t, 0, backend.Calls(http.MethodPost, backendsvc.PathDelayLogs))
			return
		}
		assert.Equal(t, want, backend.Delays())
	})
}

func Test_commandLine_infraction(t *testing.T) {
	tests := []cliTest{
		{
			name:    "negative by default",
			args:    []string{"infraction", "--student", "Amani", "--category", "Uniform"},
			wantOut: []string{"Saved: saved"},
			extra:   incident.ActionNegative,
		},
		{
			name:    "positive",
			args:    []string{"infraction", "--student", "Amani", "--category", "Helpfulness", "--positive"},
			wantOut: []string{"Saved: saved"},
			extra:   incident.ActionPositive,
		},
		{
			name:    "teacher may report",
			args:    []string{"infraction", "--role", "teacher", "--student", "Amani", "--category", "Phone"},
			wantOut: []string{"Saved: saved"},
			extra:   incident.ActionNegative,
		},
		{
			name:     "blank student",
			args:     []string{"infraction", "--student", "  ", "--category", "Phone"},
			wantKind: core.KindValidation,
			wantOut:  []string{"Invalid entry:\n  student: this field cannot be blank\n"},
		},
	}
	runCLITests(t, tests, func(t *testing.T, tt cliTest, backend *testutil.Backend) {
		action, ok := tt.extra.(incident.Action)
		if !ok {
			assert.Empty(t, backend.Infractions())
			return
		}
		require.Len(t, backend.Infractions(), 1)
		assert.Equal(t, action, backend.Infractions()[0].Action)
	})
}

func Test_commandLine_insights(t *testing.T) {
	now := time.Date(2025, time.March, 7, 14, 0, 0, 0, time.UTC)
	insights.NowFunc = func() time.Time { return now }
	defer func() { insights.NowFunc = time.Now }()

	tests := []cliTest{
		{
			name: "dashboard",
			args: []string{"insights"},
			prepare: func(b *testutil.Backend) {
				b.Seed(
					[]incident.DelayLogEntry{
						{DelayType: incident.DelayAdmin, Timestamp: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)},
						{DelayType: incident.DelayAdmin, Timestamp: time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)},
					},
					[]incident.InfractionEntry{
						{Category: "Phone", Action: incident.ActionNegative},
						{Category: "Helpfulness", Action: incident.ActionPositive},
						{Category: "Helpfulness", Action: incident.ActionPositive},
					},
				)
			},
			wantOut: []string{
				"School Pulse insights\n",
				"Source: remote, fetched at 2025-03-07 14:00\n",
				"Total delays: 2\n",
				"Total infractions: 3\n",
				"Positive actions: 2\n",
				"Most common delay: ADMIN\n",
				"Delays by date\n  2025-03-03  1\n  2025-03-04  1\n",
				"Infractions by category\n  Helpfulness  2\n  Phone        1\n",
			},
			extra: 1,
		},
		{
			name:    "empty",
			args:    []string{"insights", "--role", "administrator"},
			wantOut: []string{"Most common delay: none\n", "Delays by date\n  (none)\n"},
			extra:   1,
		},
		{
			name:    "forbidden for teachers",
			args:    []string{"insights", "--role", "teacher"},
			wantErr: apps.ErrForbidden,
			wantOut: []string{"Error: Teacher/Staff cannot ViewInsights"},
			extra:   0,
		},
		{
			name:    "unknown roles are teachers",
			args:    []string{"insights", "--role", "janitor"},
			wantErr: apps.ErrForbidden,
			extra:   0,
		},
		{
			name:     "garbage response",
			args:     []string{"insights"},
			wantKind: core.KindParse,
			wantOut:  []string{"Error (parse):", "try again"},
			prepare: func(b *testutil.Backend) {
				b.Respond(http.MethodGet, backendsvc.PathInsights, http.StatusOK, `not json`)
			},
			extra: 1,
		},
	}
	runCLITests(t, tests, func(t *testing.T, tt cliTest, backend *testutil.Backend) {
		assert.Equal(t, tt.extra, backend.Calls(http.MethodGet, backendsvc.PathInsights))
	})
}

func Test_commandLine_ping(t *testing.T) {
	tests := []cliTest{
		{
			name:    "connected",
			args:    []string{"ping"},
			wantOut: []string{"Connected to http://localhost:8000/api\n"},
		},
		{
			name:    "unreachable",
			args:    []string{"ping"},
			wantErr: errUnreachable,
			wantOut: []string{"Cannot reach http://localhost:8000/api\n"},
			prepare: func(b *testutil.Backend) {
				b.Respond(http.MethodGet, backendsvc.PathInsights, http.StatusBadGateway, `{}`)
			},
		},
	}
	runCLITests(t, tests, nil)
}

func Test_commandLine_capabilities(t *testing.T) {
	tests := []cliTest{
		{
			name:    "principal",
			args:    []string{"capabilities"},
			wantOut: []string{"Principal\n  ReportDelay\n  ReportInfraction\n  ViewInsights\n"},
		},
		{
			name:    "support",
			args:    []string{"capabilities", "--role", " Support "},
			wantOut: []string{"Support Staff\n  ReportDelay\n  ReportInfraction\n"},
		},
		{
			name:    "unknown",
			args:    []string{"capabilities", "--role", "janitor"},
			wantOut: []string{"Teacher/Staff\n", `unknown role "janitor"`, "  ReportInfraction\n"},
		},
	}
	runCLITests(t, tests, nil)
}

func Test_commandLine_info(t *testing.T) {
	tests := []cliTest{
		{
			name: "info",
			args: []string{"info"},
			wantOut: []string{
				"Backend: http://localhost:8000/api\n",
				"Host: localhost\n",
				"Insights mode: live\n",
				"Offline demo: false\n",
			},
		},
		{
			name:       "unknown command",
			args:       []string{"lol"},
			wantErrStr: `unknown command "lol" for "pulse"`,
		},
	}
	runCLITests(t, tests, nil)
}

func Test_renderer_styled(t *testing.T) {
	var out bytes.Buffer
	r := renderer{out: &out, styled: true}
	snap, err := insights.NewDemoSource().Snapshot(context.Background())
	require.NoError(t, err)

	r.insights(snap)
	assert.Contains(t, out.String(), "DEMO DATA")
	assert.Contains(t, out.String(), "Most common delay")
	assert.Contains(t, out.String(), "█")
}
