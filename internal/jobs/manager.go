package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"depctl/pkg/logging"

	"github.com/google/uuid"
)

const subsystem = "Jobs"

// UpdateFunc performs the actual dependency-update work for one repository.
// It is the boundary to the delegated agent layer: what it does with the
// repository (which versions to bump, how to test, whether to open a PR or
// an issue) is opaque to the job manager.
type UpdateFunc func(ctx context.Context, repository string) (map[string]interface{}, error)

// UnconfiguredRunner is the default UpdateFunc when no delegated agent is
// wired in; every run fails with an explanatory message.
func UnconfiguredRunner(ctx context.Context, repository string) (map[string]interface{}, error) {
	return nil, fmt.Errorf("no update agent configured for repository %s", repository)
}

// Manager runs submitted jobs in the background, one goroutine per job, and
// records their outcomes in the store.
type Manager struct {
	store     *Store
	run       UpdateFunc
	preflight func(ctx context.Context) error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Run performs the update for one repository. Defaults to
	// UnconfiguredRunner.
	Run UpdateFunc

	// Preflight validates prerequisites before a job runs (credential
	// present, runtime reachable). A failure marks the job failed without
	// invoking Run. Optional.
	Preflight func(ctx context.Context) error
}

// NewManager creates a job manager backed by the given store.
func NewManager(store *Store, opts ManagerOptions) *Manager {
	if opts.Run == nil {
		opts.Run = UnconfiguredRunner
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:     store,
		run:       opts.Run,
		preflight: opts.Preflight,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Store exposes the backing store for read access.
func (m *Manager) Store() *Store {
	return m.store
}

// Submit queues an update run for the repository and starts processing it in
// the background. The returned job is in StatusQueued.
func (m *Manager) Submit(repository string) Job {
	now := time.Now()
	job := Job{
		ID:         uuid.NewString(),
		Repository: repository,
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.store.Put(job)

	m.wg.Add(1)
	go m.process(job.ID, repository)

	logging.Info(subsystem, "Queued update job %s for %s", job.ID, repository)
	return job
}

func (m *Manager) process(id, repository string) {
	defer m.wg.Done()

	m.store.update(id, func(j *Job) { j.Status = StatusProcessing })
	logging.Info(subsystem, "[Job %s] Processing repository %s", id, repository)

	if m.preflight != nil {
		if err := m.preflight(m.ctx); err != nil {
			logging.Warn(subsystem, "[Job %s] Prerequisite check failed: %v", id, err)
			m.store.update(id, func(j *Job) {
				j.Status = StatusFailed
				j.Error = err.Error()
			})
			return
		}
	}

	result, err := m.run(m.ctx, repository)
	if err != nil {
		logging.Error(subsystem, err, "[Job %s] Failed", id)
		m.store.update(id, func(j *Job) {
			j.Status = StatusFailed
			j.Error = err.Error()
		})
		return
	}

	m.store.update(id, func(j *Job) {
		j.Status = StatusCompleted
		j.Result = result
	})
	logging.Info(subsystem, "[Job %s] Completed", id)
}

// Shutdown cancels in-flight jobs and waits for their goroutines to finish,
// bounded by the context deadline.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for jobs to finish: %w", ctx.Err())
	}
}
