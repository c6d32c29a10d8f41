package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/showfolio/showfolio-backend/internal/projects"
)

// Scheduler periodically re-fetches the full project list. Realtime events
// keep the store current between sweeps; the sweep repairs anything a
// missed notification left behind.
type Scheduler struct {
	store    *projects.Store
	interval int // seconds
	cron     *cron.Cron
}

func NewScheduler(store *projects.Store, intervalSeconds int) *Scheduler {
	if intervalSeconds <= 0 {
		intervalSeconds = 300
	}
	return &Scheduler{store: store, interval: intervalSeconds}
}

func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	spec := fmt.Sprintf("@every %ds", s.interval)
	_, err := c.AddFunc(spec, func() {
		s.store.Refresh(context.Background())
	})
	if err != nil {
		log.Printf("Failed to create refresh job: %v", err)
		return
	}

	log.Printf("Refresh scheduler started (every %ds)", s.interval)
	c.Start()
	s.cron = c
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
