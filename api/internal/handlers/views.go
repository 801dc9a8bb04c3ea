package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flowlens/internal/analytics"
	"flowlens/internal/model"
)

const dateLayout = "2006-01-02"

// parseFilter reads proto, service, state, from, to and anomaly query parameters
func parseFilter(r *http.Request) (analytics.Filter, error) {
	q := r.URL.Query()
	f := analytics.Filter{
		Proto:   q.Get("proto"),
		Service: q.Get("service"),
		State:   q.Get("state"),
	}
	var err error
	if f.Anomaly, err = analytics.ParseAnomalyFilter(q.Get("anomaly")); err != nil {
		return f, err
	}
	for key, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		s := q.Get(key)
		if s == "" {
			continue
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, fmt.Errorf("invalid %s date %q, want YYYY-MM-DD", key, s)
		}
		*dst = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("to date is before from date")
	}
	return f, nil
}

// filteredView resolves the dataset and applies the request filter
func (h *Handlers) filteredView(w http.ResponseWriter, r *http.Request) (analytics.View, bool) {
	ds, ok := h.withDataset(w, r)
	if !ok {
		return analytics.View{}, false
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return analytics.View{}, false
	}
	return f.Apply(ds.Table), true
}

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	v, ok := h.filteredView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(v))
}

func (h *Handlers) GetDistribution(w http.ResponseWriter, r *http.Request) {
	v, ok := h.filteredView(w, r)
	if !ok {
		return
	}
	column := r.URL.Query().Get("column")
	if column == "" {
		column = model.ColDur
	}
	d, err := analytics.Histogram(v, column, intParam(r, "bins", analytics.DefaultBins))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	v, ok := h.filteredView(w, r)
	if !ok {
		return
	}
	var columns []string
	if s := r.URL.Query().Get("columns"); s != "" {
		columns = strings.Split(s, ",")
	}
	m, err := analytics.Correlation(v, columns)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) GetProtocols(w http.ResponseWriter, r *http.Request) {
	v, ok := h.filteredView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"protocols": analytics.ProtocolBreakdown(v),
		"services":  analytics.TopServices(v, intParam(r, "top", 10)),
	})
}

func (h *Handlers) GetTimeOfDay(w http.ResponseWriter, r *http.Request) {
	v, ok := h.filteredView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analytics.TimeOfDayTraffic(v))
}

func (h *Handlers) GetGeo(w http.ResponseWriter, r *http.Request) {
	v, ok := h.filteredView(w, r)
	if !ok {
		return
	}
	dir, err := analytics.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := map[string]interface{}{
		"direction": dir,
		"countries": analytics.CountryTraffic(v, dir),
	}
	if metric := r.URL.Query().Get("metric"); metric != "" {
		means, err := analytics.CountryMetricMean(v, dir, metric)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		resp["metric"] = metric
		resp["means"] = means
	}
	writeJSON(w, http.StatusOK, resp)
}

// Anomaly views read the whole labeled table

func (h *Handlers) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.withDataset(w, r)
	if !ok {
		return
	}
	o, err := analytics.AnomalyOverview(ds.Table)
	if err != nil {
		h.writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handlers) GetAnomalySamples(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.withDataset(w, r)
	if !ok {
		return
	}
	typ, err := anomalyTypeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := analytics.AnomalySamples(ds.Table, typ, intParam(r, "n", 5))
	if err != nil {
		h.writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) GetAnomalyRate(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.withDataset(w, r)
	if !ok {
		return
	}
	window := analytics.DefaultRateWindow
	if s := r.URL.Query().Get("window"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid window %q", s))
			return
		}
		window = d
	}
	points, err := analytics.ConnectionRate(ds.Table, window)
	if err != nil {
		h.writeDatasetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"window": window.String(),
		"points": points,
	})
}

func (h *Handlers) GetAnomalyComparison(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.withDataset(w, r)
	if !ok {
		return
	}
	typ, err := anomalyTypeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = analytics.MetricPacketByteRatio
	}
	c, err := analytics.CompareMetric(ds.Table, typ, metric)
	if errors.Is(err, analytics.ErrUnlabeled) {
		h.writeDatasetError(w, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// anomalyTypeParam reads ?type=; empty selects every anomalous record
func anomalyTypeParam(r *http.Request) (model.AnomalyType, error) {
	s := r.URL.Query().Get("type")
	if s == "" || s == "all" {
		return model.AnomalyNone, nil
	}
	for _, t := range model.AnomalyTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown anomaly type %q", s)
}
