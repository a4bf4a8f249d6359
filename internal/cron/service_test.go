package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/agromarket/agromarket-backend/pkg/logger"
	"github.com/agromarket/agromarket-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type fakeLocks map[string]*fakeLock

func (f fakeLocks) factory(job string) (Lock, error) {
	lock, ok := f[job]
	if !ok {
		lock = &fakeLock{}
		f[job] = lock
	}
	return lock, nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, locks fakeLocks, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("register jobs: %v", err)
	}
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Locks:    locks.factory,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	locks := fakeLocks{}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, locks, reg, ok, failing)

	svc.runCycle(context.Background())

	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", ok.runs, failing.runs)
	}
	for name, lock := range locks {
		if lock.held || lock.released != 1 {
			t.Fatalf("lock %s not released", name)
		}
	}
	count, err := testutil.GatherAndCount(reg, "agro_cron_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected a success and a failure series, got %d", count)
	}
}

func TestRunCycleSkipsJobHeldElsewhere(t *testing.T) {
	held := &testJob{name: "held"}
	free := &testJob{name: "free"}
	locks := fakeLocks{"held": &fakeLock{held: true}}
	svc := newTestService(t, locks, nil, held, free)

	svc.runCycle(context.Background())

	if held.runs != 0 {
		t.Fatalf("expected held job to be skipped")
	}
	if free.runs != 1 {
		t.Fatalf("expected free job to run")
	}
}

func TestNewServiceRequiresLocks(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})})
	if err == nil {
		t.Fatal("expected error")
	}
}
