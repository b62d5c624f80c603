package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForStatus polls the store until the job leaves the transient states or
// the deadline passes.
func waitForStatus(t *testing.T, store *Store, id string) Job {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job %s did not settle in time", id)
		case <-time.After(5 * time.Millisecond):
		}

		job, ok := store.Get(id)
		require.True(t, ok)
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
	}
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	manager := NewManager(NewStore(), ManagerOptions{
		Run: func(ctx context.Context, repository string) (map[string]interface{}, error) {
			return map[string]interface{}{"pull_request": float64(42)}, nil
		},
	})
	defer manager.Shutdown(context.Background())

	job := manager.Submit("octo/repo")
	assert.Equal(t, StatusQueued, job.Status)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "octo/repo", job.Repository)

	final := waitForStatus(t, manager.Store(), job.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, float64(42), final.Result["pull_request"])
	assert.Empty(t, final.Error)
}

func TestSubmitRecordsFailure(t *testing.T) {
	manager := NewManager(NewStore(), ManagerOptions{
		Run: func(ctx context.Context, repository string) (map[string]interface{}, error) {
			return nil, errors.New("agent exploded")
		},
	})
	defer manager.Shutdown(context.Background())

	job := manager.Submit("octo/repo")

	final := waitForStatus(t, manager.Store(), job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "agent exploded", final.Error)
	assert.Nil(t, final.Result)
}

func TestPreflightFailureSkipsRun(t *testing.T) {
	ran := false
	manager := NewManager(NewStore(), ManagerOptions{
		Preflight: func(ctx context.Context) error {
			return errors.New("GITHUB_PERSONAL_ACCESS_TOKEN not set")
		},
		Run: func(ctx context.Context, repository string) (map[string]interface{}, error) {
			ran = true
			return nil, nil
		},
	})
	defer manager.Shutdown(context.Background())

	job := manager.Submit("octo/repo")

	final := waitForStatus(t, manager.Store(), job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "GITHUB_PERSONAL_ACCESS_TOKEN not set")
	assert.False(t, ran, "run must not be invoked when preflight fails")
}

func TestDefaultRunnerIsUnconfigured(t *testing.T) {
	manager := NewManager(NewStore(), ManagerOptions{})
	defer manager.Shutdown(context.Background())

	job := manager.Submit("octo/repo")

	final := waitForStatus(t, manager.Store(), job.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "no update agent configured")
}

func TestShutdownWaitsForJobs(t *testing.T) {
	release := make(chan struct{})
	manager := NewManager(NewStore(), ManagerOptions{
		Run: func(ctx context.Context, repository string) (map[string]interface{}, error) {
			<-release
			return map[string]interface{}{}, nil
		},
	})

	job := manager.Submit("octo/repo")
	close(release)

	require.NoError(t, manager.Shutdown(context.Background()))

	final, ok := manager.Store().Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestShutdownTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	manager := NewManager(NewStore(), ManagerOptions{
		Run: func(ctx context.Context, repository string) (map[string]interface{}, error) {
			<-release
			return nil, nil
		},
	})

	manager.Submit("octo/repo")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := manager.Shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out waiting for jobs")
}

func TestSubmittedJobsGetDistinctIDs(t *testing.T) {
	manager := NewManager(NewStore(), ManagerOptions{
		Run: func(ctx context.Context, repository string) (map[string]interface{}, error) {
			return nil, nil
		},
	})
	defer manager.Shutdown(context.Background())

	a := manager.Submit("octo/one")
	b := manager.Submit("octo/two")
	assert.NotEqual(t, a.ID, b.ID)

	list := manager.Store().List()
	assert.Len(t, list, 2)
}
