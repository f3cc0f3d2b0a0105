// internal/handlers/table_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/calebtracey/blackjack/internal/blackjack"
	"github.com/calebtracey/blackjack/internal/middleware"
)

// SnapshotHub fans table snapshots out to websocket subscribers. One snapshot
// goes out per accepted mutation; subscribers only ever see public state.
type SnapshotHub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[*subscriber]struct{}
	logger *logrus.Logger
}

type subscriber struct {
	conn *websocket.Conn
}

// NewSnapshotHub constructs an empty hub.
func NewSnapshotHub(logger *logrus.Logger) *SnapshotHub {
	return &SnapshotHub{
		subs:   make(map[uuid.UUID]map[*subscriber]struct{}),
		logger: logger,
	}
}

func (h *SnapshotHub) subscribe(tableID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[tableID] == nil {
		h.subs[tableID] = make(map[*subscriber]struct{})
	}
	h.subs[tableID][sub] = struct{}{}
}

func (h *SnapshotHub) unsubscribe(tableID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[tableID], sub)
	if len(h.subs[tableID]) == 0 {
		delete(h.subs, tableID)
	}
}

// Broadcast sends the table's snapshot to every subscriber. The snapshot is
// marshaled once; writes happen off the caller's goroutine so a slow client
// never blocks the mutation path.
func (h *SnapshotHub) Broadcast(t *blackjack.Table) {
	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs[t.ID]))
	for sub := range h.subs[t.ID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(t.Snapshot())
	if err != nil {
		h.logger.Errorf("Failed to marshal snapshot for table %s: %v", t.ID, err)
		return
	}

	go func(subs []*subscriber, payload []byte, tableID uuid.UUID) {
		for _, sub := range subs {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := sub.conn.Write(ctx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				h.logger.Warnf("Failed to write snapshot to subscriber of table %s: %v", tableID, err)
			}
		}
	}(targets, data, t.ID)
}

// TableWSHandler upgrades the connection and streams one snapshot per
// accepted mutation for the table, starting with the current state. The
// stream is read-only; clients act through the HTTP endpoints.
func (s *TableServer) TableWSHandler(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid table id", http.StatusBadRequest)
		return
	}
	table, err := s.Store.Get(tableID)
	if err != nil {
		http.Error(w, "table not found", http.StatusNotFound)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"table"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Logger.Warnf("WebSocket accept error for table %s: %v", tableID, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != "table" {
		c.Close(websocket.StatusPolicyViolation, "Client must use the 'table' subprotocol.")
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	sub := &subscriber{conn: c}
	s.Hub.subscribe(tableID, sub)
	defer s.Hub.unsubscribe(tableID, sub)

	// Initial snapshot so the client does not wait for the next mutation.
	if data, err := json.Marshal(table.Snapshot()); err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		_ = c.Write(ctx, websocket.MessageText, data)
		cancel()
	}

	// Block draining the connection; an error or closure ends the stream.
	var readErr error
	for {
		if _, _, readErr = c.Read(r.Context()); readErr != nil {
			break
		}
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)
	c.Close(websocket.StatusNormalClosure, "")
}
