package app

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/blackwell-systems/feedbackwatch/internal/analyzer"
	"github.com/blackwell-systems/feedbackwatch/internal/metrics"
	"github.com/blackwell-systems/feedbackwatch/internal/watcher"
)

func TestParseWatchInterval(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		config  string
		want    time.Duration
		wantErr string
	}{
		{name: "flag wins", flag: "1m", config: "10m", want: time.Minute},
		{name: "config fallback", config: "10m", want: 10 * time.Minute},
		{name: "built-in default", want: 5 * time.Minute},
		{name: "invalid", flag: "soon", wantErr: "invalid interval"},
		{name: "below minimum", flag: "1s", wantErr: "at least"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWatchInterval(tt.flag, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaselineSummary(t *testing.T) {
	assert.Equal(t, "No feedback data yet", baselineSummary(analyzer.Analysis{}, 0))

	a, _ := analyze(
		insightRequest("r1", "e1", insight("senior", entry("Communication", 4, 2))),
		insightRequest("r2", "e2", insight("peer", entry("Leadership", 3, 1))),
	)
	got := baselineSummary(a, 2)
	assert.Contains(t, got, "Baseline: 2 requests, 2 competencies")
	assert.Contains(t, got, "overall 3.50")
}

func TestAlertIcon(t *testing.T) {
	assert.NotEqual(t, alertIcon(watcher.LevelCritical), alertIcon(watcher.LevelWarning))
	assert.Equal(t, checkMark(), alertIcon(watcher.LevelInfo))
	assert.Equal(t, " ", alertIcon("unknown"))
}

func TestServeMetrics(t *testing.T) {
	rec := metrics.New()
	rec.RecordAlert(watcher.KindScoreShift)

	srv, err := serveMetrics("127.0.0.1:0", rec, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `feedbackwatch_alerts_total{kind="score_shift"} 1`)
}

func TestServeMetrics_BadAddress(t *testing.T) {
	_, err := serveMetrics("not-an-address", metrics.New(), zap.NewNop())
	assert.Error(t, err)
}
