package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/anamnesos/hivemind-sub007/internal/config"
)

// Sweeper runs the periodic maintenance passes: pattern mining, claim TTL
// expiry, and a database integrity check. Each sweep runs on its own
// timer with no mutual ordering; a failing sweep logs a warning and is
// retried on its next tick, never crashing the process.
type Sweeper struct {
	runtime *Runtime
	cfg     config.Config

	stopOnce sync.Once
	stop     chan struct{}
	done     sync.WaitGroup
}

// NewSweeper builds a Sweeper over runtime. Call Start to begin sweeping.
func NewSweeper(runtime *Runtime, cfg config.Config) *Sweeper {
	return &Sweeper{runtime: runtime, cfg: cfg, stop: make(chan struct{})}
}

// Start launches one goroutine per sweep. Intervals of zero or less
// disable the corresponding sweep.
func (s *Sweeper) Start() {
	s.launch("pattern mining", s.cfg.MineInterval, "process-pattern-spool")
	s.launch("claim expiry", s.cfg.ExpireInterval, "expire-claims")
	s.launch("integrity check", s.cfg.IntegrityInterval, "integrity-check")
}

func (s *Sweeper) launch(name string, interval time.Duration, op string) {
	if interval <= 0 {
		return
	}
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(name, op)
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sweeper) sweep(name, op string) {
	resp := s.runtime.Execute(context.Background(), Request{Op: op})
	if !resp.OK {
		log.Printf("WARNING: %s sweep failed (%s): %s", name, resp.Reason, resp.Error)
	}
}

// Stop halts all sweeps and waits for in-flight ones to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.done.Wait()
}
