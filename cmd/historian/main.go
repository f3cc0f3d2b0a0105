// cmd/historian/main.go is an asynchronous historian service that pops table
// event records from a Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/calebtracey/blackjack/internal/cache"
	"github.com/calebtracey/blackjack/internal/database"
)

// HistorianService encapsulates the Redis + DB logic for capturing table
// events and marking tables abandoned when the inactivity threshold is
// reached.
type HistorianService struct {
	redisClient  *redis.Client
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration // duration until a table is marked "abandoned"
	lastActivity sync.Map      // map[uuid.UUID]time.Time per table

	batchMu  sync.Mutex
	batch    []cache.TableEventRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService instance from environment variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("TABLE_INACTIVITY_TIMEOUT_SEC", 600) // default 10 min

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.TableEventRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two main loops:
//  1. A loop that reads from the Redis queue, accumulates events in a batch, and flushes them to the DB.
//  2. A periodic check for inactivity to mark tables as abandoned.
func (hs *HistorianService) Run() {
	database.ConnectDB()

	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("blackjack-historian service started.")
	<-hs.ctx.Done()
	log.Println("blackjack-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve events from the Redis queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// Use BLPop with a 3-second timeout so that context cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				// No message popped.
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			payload := res[1]
			var record cache.TableEventRecord
			if err := json.Unmarshal([]byte(payload), &record); err != nil {
				log.Printf("invalid table event record: %v\n", err)
				continue
			}

			hs.lastActivity.Store(record.TableID, time.Now())

			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.TableEventRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchToDB()
	}
}

// flushBatchToDB flushes the current batch to the database in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.TableEventRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertTableEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertTableEventTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d table events to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically checks if any table has been inactive beyond the
// configured threshold, and marks such tables as abandoned.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				tableID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.markTableAbandoned(tableID)
					hs.lastActivity.Delete(tableID)
				}
				return true
			})
		}
	}
}

// markTableAbandoned marks a table as 'abandoned' in the database if it was still marked as 'active'.
func (hs *HistorianService) markTableAbandoned(tableID uuid.UUID) {
	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE tables
			SET status = 'abandoned', last_seen = NOW()
			WHERE id = $1 AND status = 'active'
		`
		_, e := tx.Exec(ctx, q, tableID)
		return e
	})
	if err != nil {
		log.Printf("failed to mark table %v abandoned: %v", tableID, err)
	} else {
		log.Printf("Marked table %v as 'abandoned' due to inactivity.", tableID)
	}
}

// insertTableEventTx inserts a single event record into the table_events table
// and upserts the tables row. A settlement event finalizes the round count.
func insertTableEventTx(ctx context.Context, tx pgx.Tx, rec cache.TableEventRecord) error {
	upsertTableQ := `
		INSERT INTO tables (id, status, last_seen)
		VALUES ($1, 'active', NOW())
		ON CONFLICT (id)
		DO UPDATE SET status = 'active', last_seen = NOW()
	`
	_, err := tx.Exec(ctx, upsertTableQ, rec.TableID)
	if err != nil {
		return err
	}

	eventInsertQ := `
		INSERT INTO table_events (
			table_id, round_id, version, event_type, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
	`
	jsonPayload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	var roundID interface{}
	if rec.RoundID != uuid.Nil {
		roundID = rec.RoundID
	}
	_, err = tx.Exec(ctx, eventInsertQ,
		rec.TableID, roundID, rec.Version, rec.EventType, jsonPayload, rec.Timestamp,
	)
	if err != nil {
		return err
	}

	if rec.EventType == cache.EventSettled {
		finalizeQ := `
			UPDATE tables
			SET rounds_settled = COALESCE(rounds_settled, 0) + 1
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, finalizeQ, rec.TableID)
		if err != nil {
			return err
		}
	}
	return nil
}

// Stop gracefully stops the historian service.
func (hs *HistorianService) Stop() {
	hs.cancelFn()
}

// main is the entrypoint.
func main() {
	hs := NewHistorianService()
	go hs.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	hs.Stop()
	log.Println("Historian shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
