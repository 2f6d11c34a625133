// Package jobs tracks compute tasks and the jobs they spawn. A job binds
// one concrete execution to the composite token that authorizes it, so a
// later audit can tie the execution back to the composition graph.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"xdao.co/datatoken/dtid"
)

var (
	ErrTaskNotFound = errors.New("jobs: task not found")
	ErrJobNotFound  = errors.New("jobs: job not found")
)

// Task groups the jobs of one compute engagement.
type Task struct {
	ID      string
	Name    string
	Created time.Time
}

// Job is one execution bound to the composite token it runs under.
type Job struct {
	ID      string
	TaskID  string
	CDT     dtid.DT
	Created time.Time
}

// Book is an in-memory task/job ledger safe for concurrent use.
type Book struct {
	mu    sync.RWMutex
	tasks map[string]Task
	jobs  map[string]Job

	now func() time.Time
}

func NewBook() *Book {
	return &Book{
		tasks: make(map[string]Task),
		jobs:  make(map[string]Job),
		now:   time.Now,
	}
}

// CreateTask registers a new task under a fresh identifier.
func (b *Book) CreateTask(ctx context.Context, name string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	if name == "" {
		return Task{}, errors.New("jobs: task name is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	task := Task{ID: uuid.NewString(), Name: name, Created: b.now().UTC()}
	b.tasks[task.ID] = task
	return task, nil
}

// AddJob registers a job under taskID, bound to the composite token cdt.
func (b *Book) AddJob(ctx context.Context, taskID string, cdt dtid.DT) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	if !cdt.Defined() {
		return Job{}, errors.New("jobs: job requires a defined composite token")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.tasks[taskID]; !ok {
		return Job{}, ErrTaskNotFound
	}
	job := Job{ID: uuid.NewString(), TaskID: taskID, CDT: cdt, Created: b.now().UTC()}
	b.jobs[job.ID] = job
	return job, nil
}

// Job returns the job registered under jobID.
func (b *Book) Job(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	job, ok := b.jobs[jobID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// Jobs enumerates the jobs of a task, ordered by identifier.
func (b *Book) Jobs(ctx context.Context, taskID string) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.tasks[taskID]; !ok {
		return nil, ErrTaskNotFound
	}
	var out []Job
	for _, job := range b.jobs {
		if job.TaskID == taskID {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
