// Package registry maps chart ids to panes of series stores.
//
// Registry is not synchronized. The pagination service holds the only
// reference and serializes every call.
package registry

import (
	"slices"

	"chart-pager/internal/domain"
	"chart-pager/internal/series"
)

// ChartState is one chart: its options and its panes of series.
type ChartState struct {
	id      string
	options domain.Options

	panes     map[int]map[string]*series.Store
	paneOrder []int
	// seriesOrder keeps insertion order per pane.
	seriesOrder map[int][]string
}

func newChartState(id string, options domain.Options) *ChartState {
	return &ChartState{
		id:          id,
		options:     options.Clone(),
		panes:       make(map[int]map[string]*series.Store),
		seriesOrder: make(map[int][]string),
	}
}

func (c *ChartState) ID() string              { return c.id }
func (c *ChartState) Options() domain.Options { return c.options.Clone() }

// PaneIDs returns pane ids in insertion order.
func (c *ChartState) PaneIDs() []int {
	return slices.Clone(c.paneOrder)
}

// Series returns the store for (paneID, seriesID) if present.
func (c *ChartState) Series(paneID int, seriesID string) (*series.Store, bool) {
	pane, ok := c.panes[paneID]
	if !ok {
		return nil, false
	}
	s, ok := pane[seriesID]
	return s, ok
}

// SeriesCount returns the number of series across all panes.
func (c *ChartState) SeriesCount() int {
	n := 0
	for _, pane := range c.panes {
		n += len(pane)
	}
	return n
}

func (c *ChartState) install(store *series.Store) {
	paneID, seriesID := store.PaneID(), store.SeriesID()

	pane, ok := c.panes[paneID]
	if !ok {
		pane = make(map[string]*series.Store)
		c.panes[paneID] = pane
		c.paneOrder = append(c.paneOrder, paneID)
	}
	if _, exists := pane[seriesID]; !exists {
		c.seriesOrder[paneID] = append(c.seriesOrder[paneID], seriesID)
	}
	pane[seriesID] = store
}

// Registry owns every ChartState.
type Registry struct {
	charts map[string]*ChartState
	order  []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{charts: make(map[string]*ChartState)}
}

// GetOrCreate returns the chart, creating it with options if absent. An
// existing chart keeps its original options.
func (r *Registry) GetOrCreate(chartID string, options domain.Options) *ChartState {
	if c, ok := r.charts[chartID]; ok {
		return c
	}
	c := newChartState(chartID, options)
	r.charts[chartID] = c
	r.order = append(r.order, chartID)
	return c
}

// Get returns the chart if present.
func (r *Registry) Get(chartID string) (*ChartState, bool) {
	c, ok := r.charts[chartID]
	return c, ok
}

// SetSeries replaces (never merges) the series at (chartID, paneID, seriesID).
// Points are copied and sorted before the store is installed.
func (r *Registry) SetSeries(chartID string, paneID int, seriesID, seriesType string, points []domain.Point, options domain.Options) *series.Store {
	c := r.GetOrCreate(chartID, nil)

	owned := domain.ClonePoints(points)
	if owned == nil {
		owned = []domain.Point{}
	}
	store := series.NewStore(paneID, seriesID, seriesType, owned, options.Clone())
	store.EnsureSorted()

	c.install(store)
	return store
}

// Delete removes a chart and all of its series.
func (r *Registry) Delete(chartID string) bool {
	if _, ok := r.charts[chartID]; !ok {
		return false
	}
	delete(r.charts, chartID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == chartID })
	return true
}

// List returns chart ids in creation order.
func (r *Registry) List() []string {
	return slices.Clone(r.order)
}

// Len returns the number of charts.
func (r *Registry) Len() int {
	return len(r.charts)
}

// Snapshot copies the whole chart. Callers must hold the same guard that
// serializes SetSeries so the copy is a single point-in-time view.
func (r *Registry) Snapshot(chartID string) (domain.ChartSnapshot, bool) {
	c, ok := r.charts[chartID]
	if !ok {
		return domain.ChartSnapshot{}, false
	}

	snap := domain.ChartSnapshot{
		ChartID: c.id,
		Options: c.options.Clone(),
		Panes:   make([]domain.PaneSnapshot, 0, len(c.paneOrder)),
	}
	for _, paneID := range c.paneOrder {
		pane := domain.PaneSnapshot{PaneID: paneID}
		for _, seriesID := range c.seriesOrder[paneID] {
			s := c.panes[paneID][seriesID]
			pane.Series = append(pane.Series, domain.SeriesSnapshot{
				SeriesID:   seriesID,
				SeriesType: s.SeriesType(),
				Points:     s.Points(),
				Options:    s.Options(),
			})
		}
		snap.Panes = append(snap.Panes, pane)
	}
	return snap, true
}
