//go:build integration || !unit

package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_listings/internal/adapters/auth"
	httpserver "hotel_listings/internal/adapters/http_server"
	redisad "hotel_listings/internal/adapters/redis"
	"hotel_listings/internal/app"
	"hotel_listings/internal/domain"
	mysqlrepo "hotel_listings/internal/storage/mysql"
)

const secret = "e2e-secret"

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations", "mysql")
	}
	ents, err := os.ReadDir(dir)
	require.NoError(t, err, "read migrations dir %s", dir)
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	require.NotEmpty(t, files, "no .sql files in %s", dir)
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = db.Exec(string(sqlBytes))
		require.NoError(t, err, "exec %s", f)
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=listings",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "run mysql")
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/listings?parseTime=true&multiStatements=true&charset=utf8mb4&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	pool.MaxWait = 2 * time.Minute
	require.NoError(t, pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}), "connect mysql")
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

type client struct {
	t    *testing.T
	base string
}

func (c client) call(method, path string, who *domain.Identity, body any) (*http.Response, map[string]any) {
	c.t.Helper()
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		payload = b
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(payload))
	require.NoError(c.t, err)
	if who != nil {
		tok, err := auth.Sign(secret, *who, time.Hour)
		require.NoError(c.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer res.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func hotelField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	h, ok := body["hotel"].(map[string]any)
	require.True(t, ok, "response has no hotel: %v", body)
	return h[key]
}

func TestHTTP_EndToEnd_ModerationOnMySQL(t *testing.T) {
	db := startMySQL(t)
	mr := miniredis.RunT(t)
	cache := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	repo := mysqlrepo.New(db)
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Mod: app.NewModerationService(repo, cache, 3),
		Q:   app.NewQueryService(repo, cache, time.Minute),
	}, auth.NewVerifier(secret), nil)
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()
	c := client{t: t, base: ts.URL}

	merchant := domain.Identity{ID: "m-1", Role: domain.RoleMerchant}
	admin := domain.Identity{ID: "a-1", Role: domain.RoleAdmin}

	res, body := c.call(http.MethodPost, "/v1/merchant/hotels", &merchant, map[string]any{
		"nameCn":   "外滩酒店",
		"nameEn":   "Bund Hotel",
		"address":  "1 Zhongshan Rd",
		"city":     "上海市",
		"star":     5,
		"type":     "luxury",
		"openTime": "2019-05",
		"images":   []string{"https://img/1.jpg"},
		"tags":     []string{"river view"},
		"roomTypes": []map[string]any{
			{"name": "King", "price": 1200, "images": []string{"https://img/k.jpg"}},
			{"name": "Twin", "price": 900, "images": []string{"https://img/t.jpg"}},
		},
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, "%v", body)
	id, _ := hotelField(t, body, "id").(string)
	require.NotEmpty(t, id)
	assert.EqualValues(t, 900, hotelField(t, body, "minPrice"))

	res, _ = c.call(http.MethodPost, "/v1/merchant/hotels/"+id+"/submit", &merchant, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = c.call(http.MethodPost, "/v1/admin/hotels/"+id+"/audit", &admin, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, body = c.call(http.MethodPost, "/v1/admin/hotels/"+id+"/publish", &admin, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "online", hotelField(t, body, "onlineStatus"))

	res, body = c.call(http.MethodGet, "/v1/hotels?city="+url.QueryEscape("上海"), nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 1, body["total"])

	res, body = c.call(http.MethodGet, "/v1/hotels/"+id, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "外滩酒店", hotelField(t, body, "nameCn"))
	assert.True(t, mr.Exists("hotel_listings:listing:public:"+id))

	// staged edit stays invisible until approved
	res, body = c.call(http.MethodPut, "/v1/merchant/hotels/"+id, &merchant, map[string]any{"nameCn": "新外滩酒店"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "draft", hotelField(t, body, "updateStatus"))
	assert.Equal(t, "外滩酒店", hotelField(t, body, "nameCn"))

	res, body = c.call(http.MethodGet, "/v1/hotels/"+id, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "外滩酒店", hotelField(t, body, "nameCn"))

	res, _ = c.call(http.MethodPost, "/v1/merchant/hotels/"+id+"/submit", &merchant, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, body = c.call(http.MethodPost, "/v1/admin/hotels/"+id+"/audit", &admin, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "none", hotelField(t, body, "updateStatus"))

	res, body = c.call(http.MethodGet, "/v1/hotels/"+id, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "新外滩酒店", hotelField(t, body, "nameCn"))

	res, _ = c.call(http.MethodDelete, "/v1/admin/hotels/"+id, &admin, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	res, _ = c.call(http.MethodGet, "/v1/hotels/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res, body = c.call(http.MethodGet, "/v1/merchant/stats", &merchant, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 0, body["total"])
}
