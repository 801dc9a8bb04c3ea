package handlers

import (
	"net/http"
	"sync"
	"time"

	"flowlens/internal/model"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	streamBatchSize = 10
	writeWait       = 10 * time.Second
)

type streamMessage struct {
	Type    string             `json:"type"`
	Message string             `json:"message,omitempty"`
	Dataset string             `json:"dataset,omitempty"`
	Records []model.FlowRecord `json:"records,omitempty"`
	Count   int                `json:"count,omitempty"`
}

// StreamAnomalies sends the anomalous records of ?dataset= in batches over a
// WebSocket, followed by a done message carrying the total.
func (h *Handlers) StreamAnomalies(w http.ResponseWriter, r *http.Request) {
	name, ok := datasetName(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown dataset: "+name)
		return
	}
	ds, err := h.dataset(name)
	if err != nil {
		h.writeDatasetError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}
	h.logger.Infof("WebSocket connection established from %s", r.RemoteAddr)
	defer func() {
		h.logger.Debugf("WebSocket connection closed for %s", r.RemoteAddr)
		conn.Close()
	}()

	// Channel to signal connection close
	done := make(chan struct{})
	once := &sync.Once{}
	closeDone := func() {
		once.Do(func() {
			close(done)
		})
	}

	// Read messages in background to detect connection close
	go func() {
		defer closeDone()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg streamMessage) bool {
		data, err := json.Marshal(msg)
		if err != nil {
			h.logger.Errorf("Failed to encode stream message: %v", err)
			return false
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debugf("WebSocket write error: %v", err)
			return false
		}
		return true
	}

	if !send(streamMessage{Type: "connected", Dataset: name, Message: "WebSocket connection established"}) {
		return
	}

	table := ds.Table
	if !table.Labeled {
		send(streamMessage{Type: "error", Dataset: name, Message: "dataset has no anomaly labels, run detection first"})
		return
	}

	total := 0
	batch := make([]model.FlowRecord, 0, streamBatchSize)
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		ok := send(streamMessage{Type: "anomalies", Dataset: name, Records: batch})
		batch = make([]model.FlowRecord, 0, streamBatchSize)
		return ok
	}

	for i := range table.Records {
		select {
		case <-done:
			return
		default:
		}
		if !table.Records[i].Anomaly {
			continue
		}
		batch = append(batch, table.Records[i])
		total++
		if len(batch) >= streamBatchSize && !flush() {
			return
		}
	}
	if !flush() {
		return
	}
	send(streamMessage{Type: "done", Dataset: name, Count: total})

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}
