package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flowlens/api/internal/storage"
	"flowlens/internal/analytics"
	"flowlens/internal/dataset"
	"flowlens/internal/pipeline"
	"flowlens/internal/rules"
	"flowlens/internal/utils"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type Handlers struct {
	store     *storage.Storage
	processor *pipeline.Processor
	loader    *dataset.Loader
	config    *utils.Config
	logger    *logrus.Logger
	upgrader  websocket.Upgrader

	// load and detect calls for one dataset share a single in-flight run
	group singleflight.Group
}

func NewHandlers(store *storage.Storage, processor *pipeline.Processor, loader *dataset.Loader, config *utils.Config, logger *logrus.Logger) *Handlers {
	return &Handlers{
		store:     store,
		processor: processor,
		loader:    loader,
		config:    config,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(config.Application.AllowedOrigins, r.Header.Get("Origin"))
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// datasetName validates the {name} route variable
func datasetName(r *http.Request) (string, bool) {
	name := strings.ToLower(mux.Vars(r)["name"])
	if name == "" {
		name = strings.ToLower(r.URL.Query().Get("dataset"))
	}
	switch name {
	case dataset.KindReal, dataset.KindSynthetic:
		return name, true
	}
	return name, false
}

// dataset returns the stored dataset, loading it from disk on first use
func (h *Handlers) dataset(name string) (*storage.Dataset, error) {
	if ds, ok := h.store.GetDataset(name); ok {
		return ds, nil
	}
	v, err, _ := h.group.Do("load:"+name, func() (interface{}, error) {
		if ds, ok := h.store.GetDataset(name); ok {
			return ds, nil
		}
		table, report, err := h.processor.Load(name)
		if err != nil {
			return nil, err
		}
		return h.store.SetDataset(name, table, report), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*storage.Dataset), nil
}

// withDataset resolves {name} and writes the error response itself when it fails
func (h *Handlers) withDataset(w http.ResponseWriter, r *http.Request) (*storage.Dataset, bool) {
	name, ok := datasetName(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown dataset: "+name)
		return nil, false
	}
	ds, err := h.dataset(name)
	if err != nil {
		h.writeDatasetError(w, err)
		return nil, false
	}
	return ds, true
}

func (h *Handlers) writeDatasetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, analytics.ErrUnlabeled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rules.ErrMissingColumn):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Errorf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Dataset handlers
type datasetInfo struct {
	Name      string               `json:"name"`
	Path      string               `json:"path"`
	Available bool                 `json:"available"`
	Loaded    bool                 `json:"loaded"`
	Records   int                  `json:"records"`
	Labeled   bool                 `json:"labeled"`
	Columns   []string             `json:"columns,omitempty"`
	Report    *dataset.CleanReport `json:"report,omitempty"`
	LoadedAt  *time.Time           `json:"loaded_at,omitempty"`
}

func (h *Handlers) GetDatasets(w http.ResponseWriter, r *http.Request) {
	available := h.loader.Available()
	items := make([]datasetInfo, 0, 2)
	for _, kind := range []string{dataset.KindReal, dataset.KindSynthetic} {
		info := datasetInfo{
			Name:      kind,
			Path:      h.loader.Path(kind),
			Available: available[kind],
		}
		if ds, ok := h.store.GetDataset(kind); ok {
			info.Loaded = true
			info.Records = ds.Table.Len()
			info.Labeled = ds.Table.Labeled
			info.Columns = ds.Table.Columns
			info.Report = ds.Report
			loadedAt := ds.LoadedAt
			info.LoadedAt = &loadedAt
		}
		items = append(items, info)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

type detectResponse struct {
	Result interface{} `json:"result"`
	Alerts interface{} `json:"alerts"`
	Shared bool        `json:"shared"`
}

// Detect runs the rule engine over a copy of the dataset and stores the
// relabeled copy. Concurrent calls for one dataset share a single run.
func (h *Handlers) Detect(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.withDataset(w, r)
	if !ok {
		return
	}
	ctx := context.WithoutCancel(r.Context())

	v, err, shared := h.group.Do("detect:"+ds.Name, func() (interface{}, error) {
		table := ds.Table.Clone()
		result, alerts, err := h.processor.Detect(ctx, ds.Name, table)
		if err != nil {
			return nil, err
		}
		h.store.SetDataset(ds.Name, table, ds.Report)
		stored := h.store.AddDetection(*result)
		return &detectResponse{Result: stored, Alerts: alerts}, nil
	})
	if err != nil {
		h.writeDatasetError(w, err)
		return
	}
	resp := *v.(*detectResponse)
	resp.Shared = shared
	writeJSON(w, http.StatusOK, resp)
}

// Detection history handlers
func (h *Handlers) GetDetections(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 100)
	items := h.store.GetDetections(limit, r.URL.Query().Get("dataset"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (h *Handlers) GetDetection(w http.ResponseWriter, r *http.Request) {
	d := h.store.GetDetectionByID(mux.Vars(r)["id"])
	if d == nil {
		writeError(w, http.StatusNotFound, "Detection not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Alerts handlers
func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	limit := intParam(r, "limit", 100)
	q := r.URL.Query()
	items := h.store.GetAlerts(limit, strings.ToUpper(q.Get("severity")), q.Get("dataset"))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(items),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func intParam(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "failed to encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
