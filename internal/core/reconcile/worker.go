// Package reconcile runs the background sweep that settles payments whose
// webhook never arrived.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is the slice of the payment service the worker drives.
type Sweeper interface {
	SweepStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

type Worker struct {
	svc        Sweeper
	pollEvery  time.Duration
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func NewWorker(svc Sweeper, pollEvery, staleAfter time.Duration, batch int) *Worker {
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	return &Worker{
		svc:        svc,
		pollEvery:  pollEvery,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled. A zero poll interval
// disables the worker.
func (w *Worker) Run(ctx context.Context) {
	if w.pollEvery <= 0 {
		log.Info().Msg("reconcile worker: disabled")
		return
	}
	log.Info().
		Dur("poll_every", w.pollEvery).
		Dur("stale_after", w.staleAfter).
		Int("batch", w.batch).
		Msg("reconcile worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconcile worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	resolved, err := w.svc.SweepStale(ctx, w.now().Add(-w.staleAfter), w.batch)
	if err != nil {
		log.Error().Err(err).Msg("reconcile worker: sweep failed")
		return
	}
	if resolved > 0 {
		log.Info().Int("resolved", resolved).Msg("reconcile worker: settled stale payments")
	}
}
