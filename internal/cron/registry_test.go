package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "token-reconcile"}
	jobB := &stubJob{name: "other"}
	registry, err := NewRegistry(jobA, nil, jobB)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("internal slice leaked")
	}
	if names := registry.Names(); names[0] != "token-reconcile" || names[1] != "other" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "a"}, &stubJob{name: "a"}); err == nil {
		t.Fatal("expected duplicate name to fail")
	}

	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if err := registry.Register(&stubJob{name: "  "}); err == nil {
		t.Fatal("expected blank name to fail")
	}
	if len(registry.Jobs()) != 0 {
		t.Fatal("rejected job must not be registered")
	}
}
