package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-pager/internal/domain"
	"chart-pager/internal/pagination"
	"chart-pager/internal/session"
)

func newTestServer(t *testing.T) (*Server, *pagination.Service) {
	t.Helper()
	backend := pagination.New(pagination.Config{})
	srv := NewServer(Options{
		Backend:  backend,
		Sessions: session.NewManager(session.Config{}),
	})
	return srv, backend
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seriesBody(paneID int, seriesType string, from, to int) string {
	points := make([]domain.Point, 0, to-from+1)
	for ts := from; ts <= to; ts++ {
		points = append(points, domain.Point{"time": ts, "value": ts})
	}
	data, _ := json.Marshal(points)
	return fmt.Sprintf(`{"pane_id":%d,"series_type":%q,"data":%s}`, paneID, seriesType, data)
}

func TestServer_CreateChart(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/charts/c1", `{"height":400}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chartId":"c1","options":{"height":400}}`, rec.Body.String())

	// A second create keeps the original options.
	rec = do(t, srv, http.MethodPost, "/charts/c1", `{"height":800}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chartId":"c1","options":{"height":400}}`, rec.Body.String())

	rec = do(t, srv, http.MethodPost, "/charts/c2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chartId":"c2","options":{}}`, rec.Body.String())
}

func TestServer_GetChart(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/charts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Chart not found"}`, rec.Body.String())

	do(t, srv, http.MethodPost, "/charts/c1", `{}`)
	rec = do(t, srv, http.MethodPost, "/charts/c1/data/price", seriesBody(0, "line", 1, 3))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/charts/c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"chartId": "c1",
		"options": {},
		"panes": {"0": {"price": {
			"seriesType": "line",
			"data": [{"time":1,"value":1},{"time":2,"value":2},{"time":3,"value":3}],
			"options": {}
		}}}
	}`, rec.Body.String())
}

func TestServer_SetSeries(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/charts/c1/data/price", seriesBody(0, "candlestick", 1, 10))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"seriesId":"price","seriesType":"candlestick","count":10}`, rec.Body.String())

	t.Run("missing series type", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/charts/c1/data/price", `{"pane_id":0,"data":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("bad body", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/charts/c1/data/price", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("negative pane", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/charts/c1/data/price", seriesBody(-1, "line", 1, 2))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("invalid id", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/charts/c1/data/a..b", seriesBody(0, "line", 1, 2))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_GetSeries(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/charts/c1/data/small", seriesBody(0, "line", 1, 10))
	do(t, srv, http.MethodPost, "/charts/c1/data/big", seriesBody(0, "line", 0, 999))

	small := decode(t, do(t, srv, http.MethodGet, "/charts/c1/data/0/small", ""))
	assert.Equal(t, false, small["chunked"])
	assert.Equal(t, float64(10), small["totalCount"])
	assert.NotContains(t, small, "chunkInfo")
	assert.NotContains(t, small, "hasMoreBefore")
	assert.NotContains(t, small, "hasMoreAfter")

	big := decode(t, do(t, srv, http.MethodGet, "/charts/c1/data/0/big", ""))
	assert.Equal(t, true, big["chunked"])
	assert.Equal(t, float64(1000), big["totalCount"])
	assert.Equal(t, true, big["hasMoreBefore"])
	assert.Equal(t, false, big["hasMoreAfter"])
	assert.Equal(t, map[string]any{
		"startIndex": float64(500), "endIndex": float64(1000),
		"startTime": float64(500), "endTime": float64(999), "count": float64(500),
	}, big["chunkInfo"])

	rec := do(t, srv, http.MethodGet, "/charts/nope/data/0/big", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Chart not found"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/charts/c1/data/3/big", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Series not found"}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/charts/c1/data/x/big", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/charts/c1/data/p", seriesBody(0, "line", 0, 999))

	page := decode(t, do(t, srv, http.MethodGet, "/charts/c1/history/0/p?before_time=500&count=100", ""))
	assert.Equal(t, "p", page["seriesId"])
	assert.Equal(t, true, page["hasMoreBefore"])
	assert.Equal(t, true, page["hasMoreAfter"])
	assert.Equal(t, float64(1000), page["totalCount"])
	data := page["data"].([]any)
	require.Len(t, data, 100)
	assert.Equal(t, float64(400), data[0].(map[string]any)["time"])
	assert.Equal(t, float64(499), data[99].(map[string]any)["time"])

	// count defaults to 500.
	page = decode(t, do(t, srv, http.MethodGet, "/charts/c1/history/0/p?before_time=1000", ""))
	assert.Len(t, page["data"], 500)

	cases := map[string]string{
		"missing before_time": "/charts/c1/history/0/p",
		"negative before_time": "/charts/c1/history/0/p?before_time=-1",
		"zero count":           "/charts/c1/history/0/p?before_time=10&count=0",
		"count too large":      "/charts/c1/history/0/p?before_time=10&count=10001",
		"non-numeric count":    "/charts/c1/history/0/p?before_time=10&count=abc",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, path, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec), "error")
		})
	}

	rec := do(t, srv, http.MethodGet, "/charts/c1/history/0/q?before_time=10", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Series not found"}`, rec.Body.String())
}

func TestServer_PostHistory(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/charts/c1/data/p", seriesBody(0, "line", 0, 999))

	rec := do(t, srv, http.MethodPost, "/charts/c1/history",
		`{"pane_id":0,"series_id":"p","before_time":500,"count":100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	assert.Len(t, page["data"], 100)
	assert.Equal(t, map[string]any{
		"startIndex": float64(400), "endIndex": float64(500),
		"startTime": float64(400), "endTime": float64(499), "count": float64(100),
	}, page["chunkInfo"])

	rec = do(t, srv, http.MethodPost, "/charts/c1/history", `{"pane_id":0,"series_id":"p"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"before_time: is required"}`, rec.Body.String())
}

func TestServer_GetRange(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/charts/c1/data/p", seriesBody(0, "line", 0, 99))

	page := decode(t, do(t, srv, http.MethodGet, "/charts/c1/range/0/p?start_time=10&end_time=19", ""))
	assert.Equal(t, float64(10), page["count"])
	assert.Len(t, page["data"], 10)

	rec := do(t, srv, http.MethodGet, "/charts/c1/range/0/p?start_time=20&end_time=10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, srv, http.MethodGet, "/charts/c1/range/0/p?start_time=20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListAndDeleteCharts(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, http.MethodPost, "/charts/b", `{}`)
	do(t, srv, http.MethodPost, "/charts/a", `{}`)

	rec := do(t, srv, http.MethodGet, "/charts", "")
	assert.JSONEq(t, `{"charts":["b","a"]}`, rec.Body.String())

	rec = do(t, srv, http.MethodDelete, "/charts/b", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodDelete, "/charts/b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/charts", "")
	assert.JSONEq(t, `{"charts":["a"]}`, rec.Body.String())
}

func TestServer_Sessions(t *testing.T) {
	srv, backend := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id, _ := decode(t, rec)["sessionId"].(string)
	require.NotEmpty(t, id)

	prefix := "/sessions/" + id
	rec = do(t, srv, http.MethodPost, prefix+"/charts/c1/data/p", seriesBody(0, "line", 1, 5))
	require.Equal(t, http.StatusOK, rec.Code)

	// Session data is invisible to the backend.
	assert.False(t, backend.HasChart("c1"))
	rec = do(t, srv, http.MethodGet, "/charts/c1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, prefix+"/charts/c1/data/0/p", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode(t, rec)["totalCount"])

	rec = do(t, srv, http.MethodDelete, prefix, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodGet, prefix+"/charts/c1/data/0/p", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Session not found"}`, rec.Body.String())

	rec = do(t, srv, http.MethodDelete, prefix, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HealthAndStatus(t *testing.T) {
	srv, backend := newTestServer(t)
	backend.CreateChart("c1", nil)

	rec := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	status := decode(t, do(t, srv, http.MethodGet, "/status", ""))
	assert.Equal(t, "running", status["status"])
	assert.Equal(t, float64(1), status["charts"])
	assert.Equal(t, float64(0), status["sessions"])

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chart_pager_http_requests_total")
}

func TestServer_WithoutSessions(t *testing.T) {
	srv := NewServer(Options{Backend: pagination.New(pagination.Config{})})

	rec := do(t, srv, http.MethodPost, "/sessions", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ServesSnapshotsUnderConcurrentWrites(t *testing.T) {
	srv, backend := newTestServer(t)
	ctx := context.Background()
	backend.SetSeriesData(ctx, "c1", 0, "p", "line", []domain.Point{{"time": 1}}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			backend.SetSeriesData(ctx, "c1", 0, "p", "line", []domain.Point{{"time": i}}, nil)
		}
	}()
	for i := 0; i < 50; i++ {
		rec := do(t, srv, http.MethodGet, "/charts/c1/data/0/p", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	<-done
}
