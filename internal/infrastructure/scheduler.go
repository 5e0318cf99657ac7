package infrastructure

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic maintenance jobs. Specs carry a leading seconds field.
type Scheduler struct {
	cron    *cron.Cron
	mutex   sync.Mutex
	running bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// AddJob registers fn under spec.
func (s *Scheduler) AddJob(name, spec string, fn func()) error {
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	log.Printf("[SCHEDULER] %s scheduled at %q", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}
