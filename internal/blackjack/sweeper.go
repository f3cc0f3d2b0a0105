// internal/blackjack/sweeper.go
package blackjack

import (
	"context"
	"errors"
	"time"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

// errNoDeadline aborts a sweep update without committing a version bump when
// the table had nothing past due.
var errNoDeadline = errors.New("no deadline elapsed")

// Sweeper is the scheduled trigger behind every deadline in the round
// machine. Deadlines live in Round state as plain timestamps; the sweeper
// re-evaluates them on a fixed cadence and applies the default action when
// one has lapsed. Because the deadline is data rather than an in-memory
// timer, a process restart loses nothing: the next sweep picks it up.
type Sweeper struct {
	store    *Store
	clock    quartz.Clock
	interval time.Duration
	log      *logrus.Logger

	// OnAdvance, when set, receives the committed table after a deadline
	// advanced state. Used to push snapshots to websocket subscribers.
	OnAdvance func(*Table)
}

// NewSweeper builds a sweeper over the store. The clock is injectable so
// tests drive timeouts deterministically.
func NewSweeper(store *Store, clock quartz.Clock, interval time.Duration, log *logrus.Logger) *Sweeper {
	return &Sweeper{store: store, clock: clock, interval: interval, log: log}
}

// Run sweeps until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	return s.clock.TickerFunc(ctx, s.interval, func() error {
		s.SweepOnce()
		return nil
	}, "deadline-sweeper").Wait()
}

// SweepOnce checks every table once and applies any lapsed deadline.
func (s *Sweeper) SweepOnce() {
	now := s.clock.Now()
	for _, id := range s.store.IDs() {
		updated, err := s.store.Update(id, func(t *Table) error {
			changed, err := t.AdvanceDeadline(now)
			if err != nil {
				return err
			}
			if !changed {
				return errNoDeadline
			}
			return nil
		})
		switch {
		case err == nil:
			s.log.WithFields(logrus.Fields{
				"table":   id,
				"version": updated.Version,
			}).Info("deadline advanced")
			if s.OnAdvance != nil {
				s.OnAdvance(updated)
			}
		case errors.Is(err, errNoDeadline), errors.Is(err, ErrTableNotFound):
			// Nothing due, or the table vanished mid-sweep.
		default:
			s.log.WithFields(logrus.Fields{
				"table": id,
				"error": err,
			}).Error("deadline sweep failed")
		}
	}
}
