package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"RaceCommentator/internal/config"
	"RaceCommentator/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReceiver(t *testing.T, token string) (*httptest.Server, *Feed) {
	t.Helper()
	feed := NewFeed()
	r := NewReceiver(config.TelemetryConfig{Path: "/telemetry", AuthToken: token}, feed, metrics.New(), zap.NewNop().Sugar())
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return srv, feed
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReceiver_AcceptsFrame(t *testing.T) {
	srv, feed := newTestReceiver(t, "")

	resp := post(t, srv.URL+"/telemetry", "", raceFrame)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 3, feed.CarCount())
	assert.Equal(t, "race", feed.Mode())

	m, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer m.Body.Close()
	body, _ := io.ReadAll(m.Body)
	assert.Contains(t, string(body), "racecommentator_telemetry_frames_total 1")
}

func TestReceiver_Rejects(t *testing.T) {
	srv, feed := newTestReceiver(t, "s3cret")

	resp := post(t, srv.URL+"/telemetry", "", raceFrame)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, srv.URL+"/telemetry", "wrong", raceFrame)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, srv.URL+"/telemetry", "s3cret", "{broken")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv.URL+"/telemetry", "s3cret", `{"cars":[{"carId":20000000}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	get, err := http.Get(srv.URL + "/telemetry")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
	assert.Equal(t, http.MethodPost, get.Header.Get("Allow"))

	assert.Zero(t, feed.CarCount())

	resp = post(t, srv.URL+"/telemetry", "s3cret", raceFrame)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
