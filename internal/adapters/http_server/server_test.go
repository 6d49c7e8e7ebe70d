package httpserver_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_listings/internal/adapters/auth"
	httpserver "hotel_listings/internal/adapters/http_server"
	"hotel_listings/internal/app"
	"hotel_listings/internal/domain"
	"hotel_listings/internal/storage/memory"
)

const secret = "s3cret"

type harness struct {
	t  *testing.T
	ts *httptest.Server
}

func newHarness(t *testing.T, limiter *httpserver.RateLimiter, opts ...httpserver.Option) *harness {
	t.Helper()
	store := memory.New()
	h := &httpserver.Handlers{
		Mod: app.NewModerationService(store, nil, 3),
		Q:   app.NewQueryService(store, nil, time.Minute),
	}
	srv := httpserver.New(opts...)
	srv.MountHandlers(h, auth.NewVerifier(secret), limiter)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &harness{t: t, ts: ts}
}

func token(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := auth.Sign(secret, id, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path string, who *domain.Identity, body any) (*http.Response, map[string]any) {
	h.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.ts.URL+path, rd)
	require.NoError(h.t, err)
	if who != nil {
		req.Header.Set("Authorization", "Bearer "+token(h.t, *who))
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

var (
	merchant = domain.Identity{ID: "m-1", Role: domain.RoleMerchant}
	stranger = domain.Identity{ID: "m-2", Role: domain.RoleMerchant}
	admin    = domain.Identity{ID: "a-1", Role: domain.RoleAdmin}
)

func createBody() map[string]any {
	return map[string]any{
		"nameCn": "海景酒店", "address": "Harbour Rd 8", "city": "厦门", "star": 5,
		"type": "hotel", "openTime": "2020-01-01", "images": []string{"cover.jpg"},
		"roomTypes": []map[string]any{
			{"name": "Sea View", "price": 680, "images": []string{"sv.jpg"}},
			{"name": "City View", "price": 420, "images": []string{"cv.jpg"}},
		},
	}
}

func hotelID(t *testing.T, body map[string]any) string {
	t.Helper()
	hotel, ok := body["hotel"].(map[string]any)
	require.True(t, ok, "body: %v", body)
	return hotel["id"].(string)
}

func TestHTTP_ModerationFlow(t *testing.T) {
	h := newHarness(t, nil)

	res, body := h.do("POST", "/v1/merchant/hotels", &merchant, createBody())
	require.Equal(t, http.StatusCreated, res.StatusCode, "%v", body)
	id := hotelID(t, body)
	hotel := body["hotel"].(map[string]any)
	assert.Equal(t, 420.0, hotel["minPrice"])
	assert.Equal(t, "draft", hotel["auditStatus"])

	res, _ = h.do("GET", "/v1/hotels/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = h.do("POST", "/v1/merchant/hotels/"+id+"/submit", &merchant, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = h.do("POST", "/v1/admin/hotels/"+id+"/audit", &admin, map[string]any{"action": "reject"})
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Equal(t, "rejectReason", body["details"].(map[string]any)["field"])

	res, _ = h.do("POST", "/v1/admin/hotels/"+id+"/audit", &admin, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = h.do("POST", "/v1/admin/hotels/"+id+"/offline", &admin, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, "INVALID_STATE", body["code"])
	assert.Equal(t, "offline", body["details"].(map[string]any)["onlineStatus"])

	res, _ = h.do("POST", "/v1/admin/hotels/"+id+"/publish", &admin, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, body = h.do("GET", "/v1/hotels?city="+url.QueryEscape("厦门市")+"&sort=priceAsc", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1.0, body["total"])
	assert.Equal(t, 10.0, body["pageSize"])

	res, body = h.do("GET", "/v1/hotels/"+id, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	detail := body["hotel"].(map[string]any)
	assert.NotContains(t, detail, "auditStatus")
	assert.NotContains(t, detail, "ownerId")
	rooms := detail["roomTypes"].([]any)
	assert.Equal(t, "City View", rooms[0].(map[string]any)["name"])
	etag := res.Header.Get("ETag")
	require.NotEmpty(t, etag)

	res, _ = h.do("PUT", "/v1/merchant/hotels/"+id, &stranger, map[string]any{"star": 3})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, body = h.do("PUT", "/v1/merchant/hotels/"+id, &merchant, map[string]any{"star": 3})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "draft", body["hotel"].(map[string]any)["updateStatus"])

	// public detail is unchanged by the staged edit
	req, _ := http.NewRequest("GET", h.ts.URL+"/v1/hotels/"+id, nil)
	req.Header.Set("If-None-Match", etag)
	cond, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cond.Body.Close()
	assert.Equal(t, http.StatusNotModified, cond.StatusCode)

	res, body = h.do("GET", "/v1/merchant/stats", &merchant, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1.0, body["total"])

	res, body = h.do("DELETE", "/v1/admin/hotels/"+id, &admin, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, true, body["ok"])

	res, _ = h.do("GET", "/v1/admin/hotels/"+id, &admin, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHTTP_AuthErrors(t *testing.T) {
	h := newHarness(t, nil)

	res, body := h.do("GET", "/v1/merchant/hotels", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.Equal(t, "application/problem+json", res.Header.Get("Content-Type"))

	res, _ = h.do("GET", "/v1/admin/hotels", &merchant, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = h.do("POST", "/v1/merchant/hotels", &admin, createBody())
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, _ = h.do("GET", "/v1/admin/hotels?auditStatus=archived", &admin, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
}

func TestHTTP_PublicRateLimit(t *testing.T) {
	h := newHarness(t, httpserver.NewRateLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		res, _ := h.do("GET", "/v1/hotels", nil, nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
	}
	res, body := h.do("GET", "/v1/hotels", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "RATE_LIMITED", body["code"])

	// authenticated surfaces are not limited
	res, _ = h.do("GET", "/v1/merchant/hotels", &merchant, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func (h *harness) getForwarded(path, xff string) int {
	h.t.Helper()
	req, err := http.NewRequest("GET", h.ts.URL+path, nil)
	require.NoError(h.t, err)
	req.Header.Set("X-Forwarded-For", xff)
	req.Header.Set("X-Real-IP", xff)
	res, err := http.DefaultClient.Do(req)
	require.NoError(h.t, err)
	res.Body.Close()
	return res.StatusCode
}

func TestHTTP_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	h := newHarness(t, httpserver.NewRateLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.getForwarded("/v1/hotels", fmt.Sprintf("203.0.113.%d", i)))
	}
	for i := 2; i < 6; i++ {
		assert.Equal(t, http.StatusTooManyRequests, h.getForwarded("/v1/hotels", fmt.Sprintf("203.0.113.%d", i)))
	}
}

func TestHTTP_RateLimitTrustedProxy(t *testing.T) {
	h := newHarness(t, httpserver.NewRateLimiter(0.001, 1), httpserver.TrustProxy(true))

	assert.Equal(t, http.StatusOK, h.getForwarded("/v1/hotels", "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, h.getForwarded("/v1/hotels", "198.51.100.1"))
	assert.Equal(t, http.StatusOK, h.getForwarded("/v1/hotels", "198.51.100.2"))
}

func TestHTTP_Healthz(t *testing.T) {
	h := newHarness(t, nil)
	res, err := http.Get(h.ts.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
