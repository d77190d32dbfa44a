package transportsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolpulse/core"
)

const (
	headerRequestID = "X-Request-ID"
	mimeJSON        = "application/json"

	maxErrBodyLen = 512
)

type (
	Options struct {
		BaseURL string
		Timeout time.Duration // zero means no deadline
		Client  *http.Client  // defaults to a new http.Client
		Logger  core.Logger
	}

	httpTransport struct {
		baseURL string
		timeout time.Duration
		client  *http.Client
		logger  core.Logger
	}
)

var _ core.Transport = (*httpTransport)(nil)

// NewHTTPTransport returns the Transport talking to the configured backend.
func NewHTTPTransport(conf *core.Config, logger core.Logger) core.Transport {
	return New(Options{
		BaseURL: conf.BaseURL(),
		Timeout: conf.Backend.Timeout,
		Logger:  logger,
	})
}

func New(opts Options) core.Transport {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &httpTransport{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		timeout: opts.Timeout,
		client:  client,
		logger:  opts.Logger,
	}
}

func (t *httpTransport) Request(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	reqID := uuid.NewString()
	start := time.Now()
	data, status, err := t.do(ctx, reqID, method, path, body)
	t.log(method, path, reqID, status, time.Since(start), err)
	return data, err
}

func (t *httpTransport) do(ctx context.Context, reqID, method, path string, body interface{}) (json.RawMessage, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, errors.Wrap(err, "encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, 0, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", mimeJSON)
	req.Header.Set("Accept", mimeJSON)
	req.Header.Set(headerRequestID, reqID)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, classify(ctx, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, classify(ctx, method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, resp.StatusCode, &core.HTTPError{Status: resp.StatusCode, Body: truncate(raw)}
	}

	var data json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, resp.StatusCode, &core.ParseError{Err: err, Body: truncate(raw)}
	}
	return data, resp.StatusCode, nil
}

// classify maps a failed round trip onto the core error taxonomy.
func classify(ctx context.Context, method, path string, err error) error {
	op := method + " " + path
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.Wrapf(core.ErrTimeout, "%s: %v", op, err)
	case errors.Is(err, context.Canceled):
		return errors.Wrap(context.Canceled, op)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrapf(core.ErrTimeout, "%s: %v", op, err)
	default:
		return errors.Wrapf(core.ErrNetworkUnavailable, "%s: %v", op, err)
	}
}

func (t *httpTransport) log(method, path, reqID string, status int, took time.Duration, err error) {
	if t.logger == nil {
		return
	}
	fields := core.Fields{
		"method":     method,
		"path":       path,
		"request_id": reqID,
		"duration":   took.Round(time.Millisecond).String(),
	}
	if status != 0 {
		fields["status"] = status
	}
	if err == nil {
		fields["outcome"] = "ok"
		t.logger.Debug("backend request", fields)
		return
	}
	fields["outcome"] = core.KindOf(err).String()
	t.logger.Warn("backend request failed", fields, err)
}

func truncate(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrBodyLen {
		return s[:maxErrBodyLen] + "..."
	}
	return s
}
