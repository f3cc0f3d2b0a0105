// internal/handlers/table_server.go
package handlers

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/calebtracey/blackjack/internal/blackjack"
	"github.com/calebtracey/blackjack/internal/cache"
	"github.com/calebtracey/blackjack/internal/database"
)

// TableServer holds the table store and the fan-out surfaces behind the HTTP
// boundary: the websocket snapshot hub, the Redis event queue, and the
// Postgres archive. Handlers themselves stay stateless; every mutation goes
// through Store.Update and the authoritative record.
type TableServer struct {
	Store  *blackjack.Store
	Hub    *SnapshotHub
	Logger *log.Logger

	// Archive and Publish gate the Postgres and Redis side effects so the
	// server runs standalone in development.
	Archive bool
	Publish bool
}

// NewTableServer constructs a TableServer over a fresh store.
func NewTableServer(logger *log.Logger) *TableServer {
	return &TableServer{
		Store:  blackjack.NewStore(),
		Hub:    NewSnapshotHub(logger),
		Logger: logger,
	}
}

// committed runs the post-mutation fan-out for an accepted table mutation:
// one snapshot to every websocket subscriber and one event record onto the
// historian queue. Failures are logged, never surfaced to the client; the
// mutation already committed.
func (s *TableServer) committed(ctx context.Context, t *blackjack.Table, eventType string, payload map[string]interface{}) {
	s.Hub.Broadcast(t)

	if !s.Publish || cache.Rdb == nil {
		return
	}
	record := cache.TableEventRecord{
		TableID:   t.ID,
		Version:   t.Version,
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	if t.Round != nil {
		record.RoundID = t.Round.ID
	}
	if err := cache.PublishTableEvent(ctx, record); err != nil {
		s.Logger.WithFields(log.Fields{
			"table": t.ID,
			"event": eventType,
			"error": err,
		}).Warn("failed to publish table event")
	}
}

// archiveSettlement persists a settlement to Postgres when archiving is on.
func (s *TableServer) archiveSettlement(ctx context.Context, result *blackjack.SettlementResult) {
	if !s.Archive || database.DB == nil {
		return
	}
	if err := database.RecordSettlement(ctx, result); err != nil {
		s.Logger.WithFields(log.Fields{
			"table": result.TableID,
			"round": result.RoundID,
			"error": err,
		}).Error("failed to archive settlement")
	}
}

// archiveTable registers a new table row when archiving is on.
func (s *TableServer) archiveTable(ctx context.Context, tableID uuid.UUID, rules blackjack.RulesConfig) {
	if !s.Archive || database.DB == nil {
		return
	}
	if err := database.UpsertTableRecord(ctx, tableID, rules); err != nil {
		s.Logger.WithFields(log.Fields{
			"table": tableID,
			"error": err,
		}).Error("failed to archive table record")
	}
}

// NewSweeper builds a deadline sweeper over the server's store with its
// advance callback wired into the snapshot/event fan-out.
func (s *TableServer) NewSweeper(clock quartz.Clock, interval time.Duration, logger *log.Logger) *blackjack.Sweeper {
	sw := blackjack.NewSweeper(s.Store, clock, interval, logger)
	sw.OnAdvance = s.OnDeadlineAdvance
	return sw
}

// OnDeadlineAdvance is wired as the sweeper's OnAdvance callback so timeout
// transitions reach subscribers and the historian like any other mutation.
func (s *TableServer) OnDeadlineAdvance(t *blackjack.Table) {
	s.committed(context.Background(), t, cache.EventDeadline, nil)
	if t.Round != nil && t.Round.Settlement != nil {
		s.archiveSettlement(context.Background(), t.Round.Settlement)
	}
}
