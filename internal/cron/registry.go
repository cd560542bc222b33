package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of periodic work. Name labels its logs and metrics, so it
// must be unique within a Registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in the order they run each cycle.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order, skipping nil entries.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job. Blank or duplicate names are rejected.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job %T has no name", job)
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Names lists job names in run order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
