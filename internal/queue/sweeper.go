package queue

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper owns the periodic sweep as an explicit start/stop lifecycle
// object. Tests drive it deterministically through RunOnce instead of
// waiting on the ticker.
type Sweeper struct {
	interval time.Duration
	service  *Service
	quit     chan struct{}
	mu       sync.Mutex
	running  bool
	started  bool
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		interval: interval,
		service:  service,
		quit:     make(chan struct{}),
	}
}

// Start launches the sweep loop. One job's transport latency never blocks
// the next tick from firing; overlap is skipped via the running guard and
// double-processing is prevented by the claim step, not by serialization.
func (s *Sweeper) Start(ctx context.Context, wg *sync.WaitGroup) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.quit = make(chan struct{})
	quit := s.quit
	s.mu.Unlock()

	log.Info().Dur("interval", s.interval).Msg("queue: sweeper started")

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				go s.RunOnce(ctx)
			case <-quit:
				log.Info().Msg("queue: sweeper stopped")
				return
			case <-ctx.Done():
				log.Info().Msg("queue: sweeper stopping on shutdown")
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	close(s.quit)
}

// RunOnce executes a single sweep. Skips silently if a previous sweep is
// still in flight.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	processed, err := s.service.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("queue: sweep failed")
		return
	}
	if processed > 0 {
		log.Info().Int("processed", processed).Msg("queue: sweep completed")
	}
}
