// Package wsapi serves chart pagination over WebSocket and pushes series
// updates to connected clients.
package wsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chart-pager/internal/domain"
	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/pagination"
	"chart-pager/internal/session"
	"chart-pager/internal/validation"
)

var errSlowConsumer = errors.New("send buffer full")

// Config configures WebSocket connection behavior.
type Config struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a connection may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-connection outbound queue length.
	SendBuffer int
	// MaxMessageBytes limits inbound message size.
	MaxMessageBytes int64
	// DefaultCount is the history page size when a request omits count.
	DefaultCount int
}

// DefaultConfig returns default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		PingInterval:    30 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		SendBuffer:      64,
		MaxMessageBytes: 1 << 20,
		DefaultCount:    validation.DefaultHistoryCount,
	}
}

// Handler upgrades requests on a {chartId} route and keeps a registry of
// open connections.
type Handler struct {
	lease    session.Lease
	config   Config
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*conn
}

// NewHandler creates a Handler. lease picks the service a connection reads
// and keeps it alive while the connection is open.
func NewHandler(lease session.Lease, config *Config, logger *zap.Logger) *Handler {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	defaults := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = defaults.DefaultCount
	}

	return &Handler{
		lease:   lease,
		config:  cfg,
		logger:  logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*conn),
	}
}

// Count returns the number of open connections.
func (h *Handler) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close drops every open connection.
func (h *Handler) Close() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	chartID := r.PathValue("chartId")
	if err := validation.ID("chartId", chartID); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	svc, release, err := h.lease(r)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	defer release()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &conn{
		id:      uuid.NewString(),
		chartID: chartID,
		ws:      ws,
		send:    make(chan []byte, h.config.SendBuffer),
		done:    make(chan struct{}),
	}
	h.register(c)
	defer h.unregister(c)

	unsubscribe := svc.Subscribe(chartID, c.forward)
	defer unsubscribe()

	go c.writePump(h.config, h.logger)
	_ = c.enqueue(connectedMessage{Type: typeConnected, ChartID: chartID})

	h.readPump(c, svc)
}

func (h *Handler) register(c *conn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	observability.WSConnected()
	h.logger.Debug("websocket connected", zap.String("conn_id", c.id), zap.String("chart_id", c.chartID))
}

func (h *Handler) unregister(c *conn) {
	c.close()
	h.mu.Lock()
	delete(h.conns, c.id)
	h.mu.Unlock()
	observability.WSDisconnected()
	h.logger.Debug("websocket disconnected", zap.String("conn_id", c.id), zap.String("chart_id", c.chartID))
}

func (h *Handler) readPump(c *conn, svc *pagination.Service) {
	c.ws.SetReadLimit(h.config.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))

		if err := c.enqueue(h.reply(c.chartID, svc, raw)); err != nil {
			return
		}
	}
}

// reply computes the response to one inbound message.
func (h *Handler) reply(chartID string, svc *pagination.Service, raw []byte) any {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		observability.RecordWSMessage("invalid")
		return errorMessage{Type: typeError, Error: msgInvalidMessage}
	}

	switch msg.Type {
	case typePing:
		observability.RecordWSMessage(msg.Type)
		return pongMessage{Type: typePong}

	case typeGetInitialData:
		observability.RecordWSMessage(msg.Type)
		if err := validation.SeriesRef(chartID, msg.PaneID, msg.SeriesID); err != nil {
			return errorMessage{Type: typeError, Error: err.Error()}
		}
		data, err := svc.GetInitialData(chartID, msg.PaneID, msg.SeriesID)
		if err != nil {
			return lookupError(err)
		}
		return initialDataMessage{Type: typeInitialDataResponse, ChartID: chartID, InitialData: data}

	case typeRequestHistory:
		observability.RecordWSMessage(msg.Type)
		if err := validation.SeriesRef(chartID, msg.PaneID, msg.SeriesID); err != nil {
			return errorMessage{Type: typeError, Error: err.Error()}
		}
		if msg.BeforeTime == nil {
			return errorMessage{Type: typeError, Error: "beforeTime: is required"}
		}
		if err := validation.Timestamp("beforeTime", *msg.BeforeTime); err != nil {
			return errorMessage{Type: typeError, Error: err.Error()}
		}
		count := h.config.DefaultCount
		if msg.Count != nil {
			count = *msg.Count
		}
		if err := validation.HistoryCount(count); err != nil {
			return errorMessage{Type: typeError, Error: err.Error()}
		}
		page, err := svc.GetHistory(chartID, msg.PaneID, msg.SeriesID, *msg.BeforeTime, count)
		if err != nil {
			return lookupError(err)
		}
		return historyMessage{Type: typeHistoryResponse, ChartID: chartID, History: page}

	default:
		observability.RecordWSMessage("unknown")
		return errorMessage{Type: typeError, Error: msgUnknownType}
	}
}

func lookupError(err error) errorMessage {
	switch {
	case errors.Is(err, pagination.ErrChartNotFound):
		return errorMessage{Type: typeError, Error: msgChartNotFound}
	case errors.Is(err, pagination.ErrSeriesNotFound):
		return errorMessage{Type: typeError, Error: msgSeriesNotFound}
	default:
		return errorMessage{Type: typeError, Error: err.Error()}
	}
}

// conn is one client connection. Only writePump writes to ws.
type conn struct {
	id      string
	chartID string
	ws      *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// forward pushes chart events to the client. It never blocks the writer
// that triggered the event: a full queue drops the connection.
func (c *conn) forward(_ context.Context, ev domain.Event) error {
	switch ev.Type {
	case domain.EventSeriesUpdated:
		if ev.Series == nil {
			return nil
		}
		return c.enqueue(seriesUpdatedMessage{
			Type:     typeSeriesUpdated,
			ChartID:  ev.ChartID,
			PaneID:   ev.Series.PaneID,
			SeriesID: ev.Series.SeriesID,
			Count:    ev.Series.Count,
		})
	case domain.EventChartDeleted:
		return c.enqueue(chartDeletedMessage{Type: typeChartDeleted, ChartID: ev.ChartID})
	}
	return nil
}

func (c *conn) enqueue(msg any) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		c.close()
		return errSlowConsumer
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (c *conn) writePump(cfg Config, logger *zap.Logger) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case b := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				logger.Debug("websocket write failed", zap.String("conn_id", c.id), zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
