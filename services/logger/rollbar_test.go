package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/schoolpulse/core"
)

func TestFormatEntry(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want string
	}{
		{name: "message only", want: "INFO transport call"},
		{
			name: "fields sorted",
			args: []interface{}{core.Fields{"path": "/insights", "method": "GET", "status": 200}},
			want: "INFO transport call method=GET path=/insights status=200",
		},
		{
			name: "error & extra",
			args: []interface{}{errors.New("dial tcp: connection refused"), nil, 42},
			want: `INFO transport call error="dial tcp: connection refused" 42`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatEntry("INFO", "transport call", tt.args))
		})
	}
}

func TestRollbarLogger_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	logger.Warn("backend unreachable", core.Fields{"path": "/insights"})
	assert.Equal(t, "WARN backend unreachable path=/insights\n", buf.String())
}

func TestRollbarLogger_DebugOutput(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		want  string
	}{
		{name: "debug", debug: true, want: "DEBUG backend request outcome=ok\n"},
		{name: "quiet", debug: false, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", Debug: tt.debug})
			logger.Enable(false)

			logger.Debug("backend request", core.Fields{"outcome": "ok"})
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
