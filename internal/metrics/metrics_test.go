package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := New()

	r.ObserveSearch(17)
	r.ObserveSelection(2.8167)
	r.ObserveReady(4, 15*time.Second)
	r.ObserveOutcome(OutcomeReady, time.Unix(1732449600, 0))
	r.ObserveOutcome(OutcomeReady, time.Unix(1732449700, 0))

	assert.Equal(t, 17.0, testutil.ToFloat64(r.OffersFound))
	assert.Equal(t, 2.8167, testutil.ToFloat64(r.SelectedCost))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.PollAttempts))
	assert.Equal(t, 15.0, testutil.ToFloat64(r.ReadySeconds))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues(OutcomeReady)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 1732449700.0, testutil.ToFloat64(r.LastCompletedAt))
}

func TestPush(t *testing.T) {
	var (
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		method = req.Method
		path = req.URL.Path
		data, _ := io.ReadAll(req.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.ObserveSearch(3)
	require.NoError(t, r.Push(context.Background(), srv.URL, "vastdeploy"))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/vastdeploy", path)
	assert.NotEmpty(t, body)
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "vastdeploy")
	assert.ErrorContains(t, err, "failed to push metrics")
}
