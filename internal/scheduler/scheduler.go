// Package scheduler submits dependency-update jobs on cron schedules
// configured per repository.
package scheduler

import (
	"context"
	"fmt"

	"depctl/internal/config"
	"depctl/internal/jobs"
	"depctl/pkg/logging"

	"github.com/robfig/cron/v3"
)

const subsystem = "Scheduler"

// Submitter queues an update run; satisfied by *jobs.Manager.
type Submitter interface {
	Submit(repository string) jobs.Job
}

// Scheduler drives scheduled update submissions.
type Scheduler struct {
	cron      *cron.Cron
	submitter Submitter
}

// New creates a scheduler and registers the given schedules. An invalid
// cron expression fails construction rather than being skipped silently.
func New(submitter Submitter, schedules []config.ScheduledRepository) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		submitter: submitter,
	}

	for _, sched := range schedules {
		repo := sched.Repository
		_, err := s.cron.AddFunc(sched.Cron, func() {
			logging.Info(subsystem, "Scheduled update for %s", repo)
			s.submitter.Submit(repo)
		})
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", sched.Cron, repo, err)
		}
		logging.Info(subsystem, "Registered schedule %q for %s", sched.Cron, repo)
	}

	return s, nil
}

// EntryCount returns the number of registered schedules.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for any in-flight submission callback,
// bounded by the context deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		logging.Warn(subsystem, "Timed out waiting for scheduler to stop")
	}
}
