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

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	first, second := &stubJob{name: "payment-reconcile"}, &stubJob{name: "outbox-retention"}
	registry, err := NewRegistry(first, nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := registry.Register(second); err != nil {
		t.Fatalf("Register: %v", err)
	}

	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != first || jobs[1] != second {
		t.Fatalf("unexpected jobs %v", jobs)
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsDuplicateAndUnnamedJobs(t *testing.T) {
	if _, err := NewRegistry(&stubJob{name: "sweep"}, &stubJob{name: "sweep"}); err == nil {
		t.Fatalf("expected duplicate name to be rejected")
	}
	if _, err := NewRegistry(&stubJob{}); err == nil {
		t.Fatalf("expected unnamed job to be rejected")
	}
}
