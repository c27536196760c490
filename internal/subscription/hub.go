// Package subscription delivers chart mutation events to registered callbacks.
package subscription

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chart-pager/internal/domain"
	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
)

// Handler receives events for one chart. A returned error or a panic is
// logged and does not affect other subscribers or the writer.
type Handler func(ctx context.Context, ev domain.Event) error

type subscriber struct {
	id      string
	handler Handler
}

// Hub keeps a per-chart list of subscribers.
type Hub struct {
	mu     sync.Mutex
	subs   map[string][]subscriber
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[string][]subscriber),
		logger: logging.OrNop(logger),
	}
}

// Subscribe registers handler for chartID. The returned function removes it
// and is safe to call more than once.
func (h *Hub) Subscribe(chartID string, handler Handler) func() {
	sub := subscriber{id: uuid.NewString(), handler: handler}

	h.mu.Lock()
	h.subs[chartID] = append(h.subs[chartID], sub)
	h.mu.Unlock()

	return func() { h.remove(chartID, sub.id) }
}

func (h *Hub) remove(chartID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := slices.DeleteFunc(slices.Clone(h.subs[chartID]), func(s subscriber) bool {
		return s.id == id
	})
	if len(list) == 0 {
		delete(h.subs, chartID)
		return
	}
	h.subs[chartID] = list
}

// Count returns the number of subscribers for chartID.
func (h *Hub) Count(chartID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[chartID])
}

// Notify invokes every subscriber of ev.ChartID in registration order. The
// list is copied first so handlers may unsubscribe during delivery.
func (h *Hub) Notify(ctx context.Context, ev domain.Event) {
	h.mu.Lock()
	list := slices.Clone(h.subs[ev.ChartID])
	h.mu.Unlock()

	for _, sub := range list {
		if err := h.deliver(ctx, sub, ev); err != nil {
			observability.RecordSubscriberError()
			h.logger.Error("subscriber failed",
				zap.String("chart_id", ev.ChartID),
				zap.String("event_type", string(ev.Type)),
				zap.String("subscriber_id", sub.id),
				zap.Error(err),
			)
		}
	}
}

func (h *Hub) deliver(ctx context.Context, sub subscriber, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panic: %v", r)
		}
	}()
	return sub.handler(ctx, ev)
}
