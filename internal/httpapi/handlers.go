package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"chart-pager/internal/pagination"
	"chart-pager/internal/session"
	"chart-pager/internal/validation"
)

// chartHandlers serves the /charts routes against whatever service resolve
// returns: the backend service or a UI session's own service.
type chartHandlers struct {
	resolve      session.Resolver
	defaultCount int
	logger       *zap.Logger
}

func (h *chartHandlers) service(w http.ResponseWriter, r *http.Request) (*pagination.Service, bool) {
	svc, err := h.resolve(r)
	if err != nil {
		writeLookupError(w, h.logger, err)
		return nil, false
	}
	return svc, true
}

func (h *chartHandlers) listCharts(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ChartListResponse{Charts: svc.ListCharts()})
}

func (h *chartHandlers) createChart(w http.ResponseWriter, r *http.Request) {
	chartID := r.PathValue("chartId")
	if !validID(w, "chartId", chartID) {
		return
	}
	var req CreateChartRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.CreateChart(chartID, req.options()))
}

func (h *chartHandlers) getChart(w http.ResponseWriter, r *http.Request) {
	chartID := r.PathValue("chartId")
	if !validID(w, "chartId", chartID) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	data, err := svc.GetChartData(chartID)
	if err != nil {
		writeLookupError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *chartHandlers) deleteChart(w http.ResponseWriter, r *http.Request) {
	chartID := r.PathValue("chartId")
	if !validID(w, "chartId", chartID) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	if !svc.DeleteChart(r.Context(), chartID) {
		writeError(w, http.StatusNotFound, msgChartNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *chartHandlers) setSeries(w http.ResponseWriter, r *http.Request) {
	chartID, seriesID := r.PathValue("chartId"), r.PathValue("seriesId")
	if !validID(w, "chartId", chartID) || !validID(w, "seriesId", seriesID) {
		return
	}
	var req SetSeriesRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := validation.PaneID(req.PaneID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SeriesType == "" {
		writeError(w, http.StatusBadRequest, "series_type: is required")
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	res := svc.SetSeriesData(r.Context(), chartID, req.PaneID, seriesID, req.SeriesType, req.Data, req.Options)
	writeJSON(w, http.StatusOK, res)
}

func (h *chartHandlers) getSeries(w http.ResponseWriter, r *http.Request) {
	chartID, paneID, seriesID, ok := seriesPath(w, r)
	if !ok {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	data, err := svc.GetInitialData(chartID, paneID, seriesID)
	if err != nil {
		writeLookupError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *chartHandlers) getHistory(w http.ResponseWriter, r *http.Request) {
	chartID, paneID, seriesID, ok := seriesPath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	beforeTime, ok := queryInt64(w, q.Get("before_time"), "before_time", nil)
	if !ok {
		return
	}
	defaultCount := int64(h.defaultCount)
	count, ok := queryInt64(w, q.Get("count"), "count", &defaultCount)
	if !ok {
		return
	}
	h.history(w, r, chartID, paneID, seriesID, beforeTime, int(count))
}

func (h *chartHandlers) postHistory(w http.ResponseWriter, r *http.Request) {
	chartID := r.PathValue("chartId")
	if !validID(w, "chartId", chartID) {
		return
	}
	var req HistoryRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if !validID(w, "seriesId", req.SeriesID) {
		return
	}
	if err := validation.PaneID(req.PaneID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.BeforeTime == nil {
		writeError(w, http.StatusBadRequest, "before_time: is required")
		return
	}
	count := h.defaultCount
	if req.Count != nil {
		count = *req.Count
	}
	h.history(w, r, chartID, req.PaneID, req.SeriesID, *req.BeforeTime, count)
}

func (h *chartHandlers) history(w http.ResponseWriter, r *http.Request, chartID string, paneID int, seriesID string, beforeTime int64, count int) {
	if err := validation.Timestamp("before_time", beforeTime); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validation.HistoryCount(count); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	page, err := svc.GetHistory(chartID, paneID, seriesID, beforeTime, count)
	if err != nil {
		writeLookupError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *chartHandlers) getRange(w http.ResponseWriter, r *http.Request) {
	chartID, paneID, seriesID, ok := seriesPath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	start, ok := queryInt64(w, q.Get("start_time"), "start_time", nil)
	if !ok {
		return
	}
	end, ok := queryInt64(w, q.Get("end_time"), "end_time", nil)
	if !ok {
		return
	}
	if err := validation.TimeRange(start, end); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	res, err := svc.GetRange(chartID, paneID, seriesID, start, end)
	if err != nil {
		writeLookupError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func validID(w http.ResponseWriter, field, value string) bool {
	if err := validation.ID(field, value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func seriesPath(w http.ResponseWriter, r *http.Request) (string, int, string, bool) {
	chartID, seriesID := r.PathValue("chartId"), r.PathValue("seriesId")
	if !validID(w, "chartId", chartID) || !validID(w, "seriesId", seriesID) {
		return "", 0, "", false
	}
	paneID, err := strconv.Atoi(r.PathValue("paneId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "paneId: must be an integer")
		return "", 0, "", false
	}
	if err := validation.PaneID(paneID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", 0, "", false
	}
	return chartID, paneID, seriesID, true
}

// queryInt64 parses a query value; def is used when raw is empty, and a nil
// def makes the parameter required.
func queryInt64(w http.ResponseWriter, raw, field string, def *int64) (int64, bool) {
	if raw == "" {
		if def == nil {
			writeError(w, http.StatusBadRequest, field+": is required")
			return 0, false
		}
		return *def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+": must be an integer")
		return 0, false
	}
	return v, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "invalid request body")
	return false
}
