package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"depctl/internal/config"
	"depctl/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSubmitter records submitted repositories.
type recordingSubmitter struct {
	mu    sync.Mutex
	repos []string
}

func (r *recordingSubmitter) Submit(repository string) jobs.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.repos = append(r.repos, repository)
	return jobs.Job{ID: "test", Repository: repository, Status: jobs.StatusQueued}
}

func (r *recordingSubmitter) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.repos))
	copy(out, r.repos)
	return out
}

func TestNewRegistersSchedules(t *testing.T) {
	sched, err := New(&recordingSubmitter{}, []config.ScheduledRepository{
		{Repository: "octo/one", Cron: "0 3 * * *"},
		{Repository: "octo/two", Cron: "@weekly"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sched.EntryCount())
}

func TestNewWithNoSchedules(t *testing.T) {
	sched, err := New(&recordingSubmitter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, sched.EntryCount())
}

func TestNewRejectsInvalidCron(t *testing.T) {
	_, err := New(&recordingSubmitter{}, []config.ScheduledRepository{
		{Repository: "octo/one", Cron: "not a cron expression"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
	assert.Contains(t, err.Error(), "octo/one")
}

func TestScheduledSubmission(t *testing.T) {
	submitter := &recordingSubmitter{}
	sched, err := New(submitter, []config.ScheduledRepository{
		{Repository: "octo/repo", Cron: "@every 10ms"},
	})
	require.NoError(t, err)

	sched.Start()
	defer sched.Stop(context.Background())

	deadline := time.After(2 * time.Second)
	for len(submitter.submitted()) == 0 {
		select {
		case <-deadline:
			t.Fatal("schedule never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	assert.Contains(t, submitter.submitted(), "octo/repo")
}

func TestStopIsBounded(t *testing.T) {
	sched, err := New(&recordingSubmitter{}, nil)
	require.NoError(t, err)

	sched.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sched.Stop(ctx)
}
