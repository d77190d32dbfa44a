package backendsvc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/schoolpulse/core"
	"github.com/trezcool/schoolpulse/core/incident"
	"github.com/trezcool/schoolpulse/core/insights"
)

// API paths, relative to the backend base URL.
const (
	PathDelayLogs   = "/delay-logs"
	PathInfractions = "/infractions"
	PathInsights    = "/insights"
)

// Client exposes the backend REST API. It is also the remote insights.Source.
type Client struct {
	transport core.Transport
	logger    core.Logger
	info      core.ConnectionInfo
}

var _ insights.Source = (*Client)(nil)

func NewClient(transport core.Transport, conf *core.Config, logger core.Logger) *Client {
	return &Client{
		transport: transport,
		logger:    logger,
		info: core.ConnectionInfo{
			BaseURL:     conf.BaseURL(),
			Host:        conf.Backend.Host,
			Mode:        conf.Insights.Mode,
			OfflineDemo: conf.Insights.OfflineDemo,
		},
	}
}

// SubmitDelayLog posts a prepared & validated entry.
func (c *Client) SubmitDelayLog(ctx context.Context, entry incident.DelayLogEntry) (incident.SubmitResult, error) {
	return c.submit(ctx, PathDelayLogs, entry.Payload())
}

// SubmitInfraction posts a prepared & validated entry.
func (c *Client) SubmitInfraction(ctx context.Context, entry incident.InfractionEntry) (incident.SubmitResult, error) {
	return c.submit(ctx, PathInfractions, entry.Payload())
}

func (c *Client) submit(ctx context.Context, path string, payload interface{}) (incident.SubmitResult, error) {
	data, err := c.transport.Request(ctx, http.MethodPost, path, payload)
	if err != nil {
		return incident.SubmitResult{}, err
	}
	var res incident.SubmitResult
	if err := decode(data, &res); err != nil {
		return incident.SubmitResult{}, err
	}
	return res, nil
}

// Snapshot fetches the live insights.
func (c *Client) Snapshot(ctx context.Context) (insights.Snapshot, error) {
	data, err := c.transport.Request(ctx, http.MethodGet, PathInsights, nil)
	if err != nil {
		return insights.Snapshot{}, err
	}
	var resp InsightsResponse
	if err := decode(data, &resp); err != nil {
		return insights.Snapshot{}, err
	}
	snap, err := resp.Snapshot(insights.NowFunc())
	if err != nil {
		return insights.Snapshot{}, err
	}
	if !snap.Consistent() && c.logger != nil {
		c.logger.Warn("insights totals do not match trends", core.Fields{
			"total_delays":      snap.Summary.TotalDelays,
			"total_infractions": snap.Summary.TotalInfractions,
		})
	}
	return snap, nil
}

// Ping checks that the backend answers GET /insights.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.transport.Request(ctx, http.MethodGet, PathInsights, nil)
	return err
}

func (c *Client) ConnectionInfo() core.ConnectionInfo {
	return c.info
}

// decode unmarshals valid JSON of an unexpected shape into a *core.ParseError.
func decode(data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &core.ParseError{Err: errors.Wrap(err, "decoding response"), Body: string(data)}
	}
	return nil
}
