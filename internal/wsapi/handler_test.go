package wsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-pager/internal/domain"
	"chart-pager/internal/pagination"
	"chart-pager/internal/session"
)

func linePoints(from, to int) []domain.Point {
	points := make([]domain.Point, 0, to-from+1)
	for ts := from; ts <= to; ts++ {
		points = append(points, domain.Point{"time": int64(ts), "value": float64(ts)})
	}
	return points
}

func startServer(t *testing.T, svc *pagination.Service) (*Handler, string) {
	t.Helper()
	h := NewHandler(session.StaticLease(svc), nil, nil)
	mux := http.NewServeMux()
	mux.Handle("GET /ws/charts/{chartId}", h)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		h.Close()
		server.Close()
	})
	return h, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/charts/"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	connected := readJSON(t, conn)
	require.Equal(t, "connected", connected["type"])
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func roundTrip(t *testing.T, conn *websocket.Conn, req any) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	return readJSON(t, conn)
}

func TestHandler_ConnectedAndPing(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	h, base := startServer(t, svc)

	conn, _, err := websocket.DefaultDialer.Dial(base+"c1", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, map[string]any{"type": "connected", "chartId": "c1"}, readJSON(t, conn))
	assert.Equal(t, map[string]any{"type": "pong"}, roundTrip(t, conn, map[string]any{"type": "ping"}))
	assert.Equal(t, 1, h.Count())
}

func TestHandler_GetInitialData(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	svc.SetSeriesData(context.Background(), "c1", 0, "p", "line", linePoints(0, 999), nil)
	_, base := startServer(t, svc)
	conn := dial(t, base+"c1")

	resp := roundTrip(t, conn, map[string]any{"type": "get_initial_data", "paneId": 0, "seriesId": "p"})
	assert.Equal(t, "initial_data_response", resp["type"])
	assert.Equal(t, "c1", resp["chartId"])
	assert.Equal(t, "p", resp["seriesId"])
	assert.Equal(t, true, resp["chunked"])
	assert.Equal(t, float64(1000), resp["totalCount"])
	assert.Equal(t, true, resp["hasMoreBefore"])
	assert.Len(t, resp["data"], 500)
}

func TestHandler_RequestHistory(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	svc.SetSeriesData(context.Background(), "c1", 0, "p", "line", linePoints(0, 999), nil)
	_, base := startServer(t, svc)
	conn := dial(t, base+"c1")

	resp := roundTrip(t, conn, map[string]any{
		"type": "request_history", "paneId": 0, "seriesId": "p", "beforeTime": 500, "count": 100,
	})
	assert.Equal(t, "history_response", resp["type"])
	assert.Equal(t, "c1", resp["chartId"])
	assert.Equal(t, "p", resp["seriesId"])
	assert.Equal(t, true, resp["hasMoreBefore"])
	assert.Equal(t, true, resp["hasMoreAfter"])
	data := resp["data"].([]any)
	require.Len(t, data, 100)
	assert.Equal(t, float64(400), data[0].(map[string]any)["time"])

	// count defaults to 500.
	resp = roundTrip(t, conn, map[string]any{
		"type": "request_history", "paneId": 0, "seriesId": "p", "beforeTime": 1000,
	})
	assert.Len(t, resp["data"], 500)
}

func TestHandler_Errors(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	svc.SetSeriesData(context.Background(), "c1", 0, "p", "line", linePoints(0, 9), nil)
	_, base := startServer(t, svc)
	conn := dial(t, base+"c1")

	tests := []struct {
		name string
		req  any
		want string
	}{
		{"unknown type", map[string]any{"type": "subscribe"}, "Unknown message type"},
		{"missing series", map[string]any{"type": "get_initial_data", "paneId": 0, "seriesId": "q"}, "Series not found"},
		{"missing pane", map[string]any{"type": "get_initial_data", "paneId": 4, "seriesId": "p"}, "Series not found"},
		{"missing before time", map[string]any{"type": "request_history", "paneId": 0, "seriesId": "p"}, "beforeTime: is required"},
		{"count too large", map[string]any{"type": "request_history", "paneId": 0, "seriesId": "p", "beforeTime": 5, "count": 10001}, "count: must be between 1 and 10000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, map[string]any{"type": "error", "error": tt.want}, roundTrip(t, conn, tt.req))
		})
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, map[string]any{"type": "error", "error": "Invalid message"}, readJSON(t, conn))
}

func TestHandler_UnknownChart(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	_, base := startServer(t, svc)
	conn := dial(t, base+"nope")

	resp := roundTrip(t, conn, map[string]any{"type": "get_initial_data", "paneId": 0, "seriesId": "p"})
	assert.Equal(t, map[string]any{"type": "error", "error": "Chart not found"}, resp)
}

func TestHandler_PushesSeriesUpdates(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	_, base := startServer(t, svc)
	conn := dial(t, base+"c1")
	other := dial(t, base+"c2")

	svc.SetSeriesData(context.Background(), "c1", 2, "vol", "histogram", linePoints(1, 7), nil)

	assert.Equal(t, map[string]any{
		"type": "series_updated", "chartId": "c1", "paneId": float64(2), "seriesId": "vol", "count": float64(7),
	}, readJSON(t, conn))

	svc.DeleteChart(context.Background(), "c1")
	assert.Equal(t, map[string]any{"type": "chart_deleted", "chartId": "c1"}, readJSON(t, conn))

	// The c2 connection saw nothing but its own pong.
	assert.Equal(t, map[string]any{"type": "pong"}, roundTrip(t, other, map[string]any{"type": "ping"}))
}

func TestHandler_DisconnectUnregisters(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	h, base := startServer(t, svc)

	conn, _, err := websocket.DefaultDialer.Dial(base+"c1", nil)
	require.NoError(t, err)
	readJSON(t, conn)
	require.Equal(t, 1, h.Count())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Count() == 0 }, 5*time.Second, 10*time.Millisecond)

	// Writes after the disconnect still succeed.
	res := svc.SetSeriesData(context.Background(), "c1", 0, "p", "line", linePoints(1, 3), nil)
	assert.Equal(t, 3, res.Count)
}

func TestHandler_RejectsInvalidChartID(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	_, base := startServer(t, svc)

	_, resp, err := websocket.DefaultDialer.Dial(base+"a..b", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_UnknownSession(t *testing.T) {
	mgr := session.NewManager(session.Config{})
	h := NewHandler(mgr.Lease("sessionId"), nil, nil)
	mux := http.NewServeMux()
	mux.Handle("GET /sessions/{sessionId}/ws/charts/{chartId}", h)
	server := httptest.NewServer(mux)
	defer server.Close()

	base := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(base+"/sessions/missing/ws/charts/c1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	id := mgr.Create()
	conn, _, err := websocket.DefaultDialer.Dial(base+"/sessions/"+id+"/ws/charts/c1", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "connected", readJSON(t, conn)["type"])
}

type steppedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *steppedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *steppedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestHandler_OpenConnectionKeepsSessionAlive(t *testing.T) {
	clock := &steppedClock{now: time.Unix(1_700_000_000, 0)}
	mgr := session.NewManager(session.Config{IdleTTL: time.Minute, Now: clock.Now})
	id := mgr.Create()
	svc, err := mgr.Get(id)
	require.NoError(t, err)
	svc.SetSeriesData(context.Background(), "c1", 0, "p", "line", linePoints(0, 9), nil)

	h := NewHandler(mgr.Lease("sessionId"), nil, nil)
	mux := http.NewServeMux()
	mux.Handle("GET /sessions/{sessionId}/ws/charts/{chartId}", h)
	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		h.Close()
		server.Close()
	})

	conn := dial(t, "ws"+strings.TrimPrefix(server.URL, "http")+"/sessions/"+id+"/ws/charts/c1")
	for i := 0; i < 5; i++ {
		clock.Advance(30 * time.Second)
		resp := roundTrip(t, conn, map[string]any{"type": "get_initial_data", "paneId": 0, "seriesId": "p"})
		require.Equal(t, "initial_data_response", resp["type"])
	}

	assert.Zero(t, mgr.Sweep(clock.Now()))
	_, err = mgr.Get(id)
	require.NoError(t, err)

	// Once the socket closes the session ages out normally.
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		clock.Advance(2 * time.Minute)
		return mgr.Sweep(clock.Now()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	_, err = mgr.Get(id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestConn_ForwardDropsSlowConsumer(t *testing.T) {
	svc := pagination.New(pagination.Config{})
	_, base := startServer(t, svc)
	ws := dial(t, base+"c0")

	// A conn whose queue is never drained.
	c := &conn{id: "slow", chartID: "c1", ws: ws, send: make(chan []byte, 1), done: make(chan struct{})}
	ev := domain.Event{ChartID: "c1", Type: domain.EventSeriesUpdated, Series: &domain.SeriesUpdate{SeriesID: "p", Count: 1}}

	require.NoError(t, c.forward(context.Background(), ev))
	assert.ErrorIs(t, c.forward(context.Background(), ev), errSlowConsumer)

	select {
	case <-c.done:
	default:
		t.Fatal("slow connection should be closed")
	}
}
