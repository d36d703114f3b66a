package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedger(reg)

	m.ObserveStake("ok")
	m.ObserveStake("ok")
	m.ObserveStake("InsufficientFunds")
	m.ObserveResolve("AlreadyResolved")
	m.ObserveRetry("place stake")
	m.AddPayout(27)
	m.AddReplenished(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Stakes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Stakes.WithLabelValues("InsufficientFunds")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("AlreadyResolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreRetries.WithLabelValues("place stake")))
	assert.Equal(t, 27.0, testutil.ToFloat64(m.PayoutUnits))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Replenished))
}

func TestHandler_Healthz(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewLedger(reg).ObserveStake("ok")

	healthy := Handler(reg, HealthCheck{Name: "store", Check: func(context.Context) error { return nil }})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `ledger_stakes_total{outcome="ok"} 1`))

	broken := Handler(reg,
		HealthCheck{Name: "store", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}
