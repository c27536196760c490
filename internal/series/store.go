// Package series holds one chart series' points and answers windowed queries.
package series

import (
	"sort"

	"chart-pager/internal/domain"
)

// Store holds the raw points of a single series. It is not safe for
// concurrent use; the owning registry serializes access.
type Store struct {
	paneID     int
	seriesID   string
	seriesType string
	options    domain.Options

	points []domain.Point
	sorted bool
}

// NewStore creates a store that owns the given points. Callers must not
// mutate points after handing them over.
func NewStore(paneID int, seriesID, seriesType string, points []domain.Point, options domain.Options) *Store {
	return &Store{
		paneID:     paneID,
		seriesID:   seriesID,
		seriesType: seriesType,
		options:    options,
		points:     points,
	}
}

func (s *Store) PaneID() int             { return s.paneID }
func (s *Store) SeriesID() string        { return s.seriesID }
func (s *Store) SeriesType() string      { return s.seriesType }
func (s *Store) Options() domain.Options { return s.options.Clone() }
func (s *Store) Len() int                { return len(s.points) }
func (s *Store) Sorted() bool            { return s.sorted }

// EnsureSorted orders points by time ASC once. Equal timestamps keep their
// insertion order.
func (s *Store) EnsureSorted() {
	if s.sorted {
		return
	}
	sort.SliceStable(s.points, func(i, j int) bool {
		return s.points[i].Time() < s.points[j].Time()
	})
	s.sorted = true
}

// Points returns a copy of all points.
func (s *Store) Points() []domain.Point {
	return domain.ClonePoints(s.points)
}

// RangeByTime returns copies of points with start <= time <= end.
func (s *Store) RangeByTime(start, end int64) []domain.Point {
	if start > end || len(s.points) == 0 {
		return []domain.Point{}
	}

	if !s.sorted {
		result := []domain.Point{}
		for _, p := range s.points {
			if t := p.Time(); t >= start && t <= end {
				result = append(result, p)
			}
		}
		return domain.ClonePoints(result)
	}

	lo := s.firstAtOrAfter(start)
	hi := sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Time() > end
	})
	return domain.ClonePoints(s.points[lo:hi])
}

// WindowBefore returns up to count points strictly before beforeTime, or the
// most recent count points when beforeTime is nil.
//
// The cursor is a boundary: points stamped exactly beforeTime are excluded, so
// paging with the first time of the previous window neither repeats nor skips.
func (s *Store) WindowBefore(beforeTime *int64, count int) domain.Window {
	if len(s.points) == 0 {
		return domain.Window{Points: []domain.Point{}}
	}
	if count < 0 {
		count = 0
	}

	s.EnsureSorted()

	total := len(s.points)
	endIndex := total
	if beforeTime != nil {
		endIndex = s.firstAtOrAfter(*beforeTime)
	}
	startIndex := max(0, endIndex-count)

	w := domain.Window{
		Points: domain.ClonePoints(s.points[startIndex:endIndex]),
		Info: domain.WindowInfo{
			StartIndex: startIndex,
			EndIndex:   endIndex,
			Count:      endIndex - startIndex,
		},
		HasMoreBefore:  startIndex > 0,
		HasMoreAfter:   endIndex < total,
		TotalAvailable: total,
	}
	if len(w.Points) > 0 {
		w.Info.StartTime = w.Points[0].Time()
		w.Info.EndTime = w.Points[len(w.Points)-1].Time()
	}
	return w
}

// firstAtOrAfter returns the smallest index with time >= t, or len(points).
func (s *Store) firstAtOrAfter(t int64) int {
	return sort.Search(len(s.points), func(i int) bool {
		return s.points[i].Time() >= t
	})
}
