package observability_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_listings/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record one sample per collector so they show up in the output
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)
	observability.ObserveTransition("publish", "ok")
	observability.ObserveCASRetry("audit_approve")
	observability.ObserveStore("memory", "get", nil, time.Millisecond)
	observability.ObserveCache("redis", "hit")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"listings_http_requests_total",
		"listings_listing_transitions_total",
		"listings_listing_cas_retries_total",
		"listings_store_operations_total",
		"listings_cache_events_total",
	} {
		assert.True(t, strings.Contains(out, name), "expected %s in output", name)
	}
}

func TestLabelErr(t *testing.T) {
	assert.Equal(t, "none", observability.LabelErr(nil))
	assert.Equal(t, "*errors.errorString", observability.LabelErr(errors.New("x")))
}
