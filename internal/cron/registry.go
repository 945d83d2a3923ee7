package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one unit of scheduled work. Name doubles as the metrics label and
// the value accepted by the worker's -jobs flag.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order and rejects duplicate names.
type Registry struct {
	order  []string
	byName map[string]Job
}

// NewRegistry registers jobs, skipping nils. It panics on a duplicate name
// since that is a wiring bug in main.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if err := r.Register(job); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := job.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Select narrows the registry to a comma separated list of names. An empty
// list selects everything.
func (r *Registry) Select(names string) (*Registry, error) {
	names = strings.TrimSpace(names)
	if names == "" {
		return r, nil
	}
	picked := &Registry{byName: map[string]Job{}}
	var unknown []string
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		job, ok := r.byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if _, dup := picked.byName[name]; !dup {
			_ = picked.Register(job)
		}
	}
	if len(unknown) > 0 {
		known := append([]string(nil), r.order...)
		sort.Strings(known)
		return nil, fmt.Errorf("unknown cron jobs %v (known: %s)", unknown, strings.Join(known, ", "))
	}
	return picked, nil
}
