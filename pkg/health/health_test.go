package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyEndpoint_NotReadyUntilSet(t *testing.T) {
	h := New()

	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFailureThreshold(t *testing.T) {
	h := New()
	h.SetReady(true)

	failing := func(context.Context) error { return errors.New("db down") }
	h.AddReadinessCheck("db", time.Second, failing)

	c := h.readinessChecks[0]

	// Two consecutive failures are below the threshold of three.
	c.run(context.Background())
	c.run(context.Background())
	assert.True(t, h.IsReady())

	c.run(context.Background())
	assert.False(t, h.IsReady())
}

func TestRecoveryAfterSuccess(t *testing.T) {
	h := New()
	h.SetReady(true)

	healthy := false
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("db down")
	})
	c := h.readinessChecks[0]

	for range 3 {
		c.run(context.Background())
	}
	require.False(t, h.IsReady())

	healthy = true
	c.run(context.Background())
	assert.True(t, h.IsReady(), "one success restores health at successThreshold 1")
}

func TestLiveEndpoint_ReportsFailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("stuck", time.Second, func(context.Context) error {
		return errors.New("deadlock suspected")
	})
	c := h.livenessChecks[0]
	for range 3 {
		c.run(context.Background())
	}

	rec := httptest.NewRecorder()
	h.LiveEndpoint(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadlock suspected")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
