package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one scheduled run.
type Job func(ctx context.Context) error

type Scheduler struct {
	name     string
	job      Job
	interval time.Duration
}

func NewScheduler(name string, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		name:     name,
		job:      job,
		interval: interval,
	}
}

// Start runs the job every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.job(ctx); err != nil {
				logrus.WithError(err).WithField("job", s.name).Error("Scheduled job failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
