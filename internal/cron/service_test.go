package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvfashion/backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { return nil }

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

func testCronLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestRunCycleRunsAllDueJobsEvenOnFailure(t *testing.T) {
	registry := NewRegistry()
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	registry.Register(success, time.Minute)
	registry.Register(failure, time.Minute)

	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
}

func TestRunCycleHonorsPerJobCadence(t *testing.T) {
	registry := NewRegistry()
	fast := &testJob{name: "fast"}
	slow := &testJob{name: "slow"}
	registry.Register(fast, 5*time.Minute)
	registry.Register(slow, 30*time.Minute)

	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return clock }

	ctx := context.Background()

	// First cycle: both jobs are due because neither has run.
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if fast.runs != 1 || slow.runs != 1 {
		t.Fatalf("expected both jobs to run, got fast=%d slow=%d", fast.runs, slow.runs)
	}

	// Ten minutes later only the fast job has come due again.
	clock = clock.Add(10 * time.Minute)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if fast.runs != 2 {
		t.Fatalf("expected fast job to run again, ran %d", fast.runs)
	}
	if slow.runs != 1 {
		t.Fatalf("expected slow job to wait, ran %d", slow.runs)
	}

	// Past the slow cadence both run.
	clock = clock.Add(25 * time.Minute)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("third cycle: %v", err)
	}
	if fast.runs != 3 || slow.runs != 2 {
		t.Fatalf("expected fast=3 slow=2, got fast=%d slow=%d", fast.runs, slow.runs)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	registry := NewRegistry()
	job := &testJob{name: "sweep"}
	registry.Register(job, time.Minute)

	lock := &fakeLock{held: true}
	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestRunCycleDoesNotLockWithNothingDue(t *testing.T) {
	registry := NewRegistry()
	job := &testJob{name: "sweep"}
	registry.Register(job, time.Hour)

	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   testCronLogger(),
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return clock }

	ctx := context.Background()
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("first cycle: %v", err)
	}

	lock.acquired = false
	clock = clock.Add(time.Minute)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if lock.acquired {
		t.Fatal("expected idle cycle to skip the lock")
	}
	if job.runs != 1 {
		t.Fatalf("expected one run, got %d", job.runs)
	}
}
