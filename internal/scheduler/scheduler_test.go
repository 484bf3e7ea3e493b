package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStartSchedulesBothJobs(t *testing.T) {
	noop := func(context.Context) error { return nil }

	s := New(time.UTC, "15:37", "23:55", noop, noop, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if s.Jobs() != 2 {
		t.Fatalf("expected 2 jobs, got %d", s.Jobs())
	}
}

func TestStartSkipsMissingJobs(t *testing.T) {
	s := New(time.UTC, "15:37", "23:55", nil, func(context.Context) error { return nil }, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if s.Jobs() != 1 {
		t.Fatalf("expected 1 job, got %d", s.Jobs())
	}
}

func TestStartRejectsBadTime(t *testing.T) {
	noop := func(context.Context) error { return nil }

	s := New(time.UTC, "25:99", "23:55", noop, noop, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatalf("expected an error for an invalid time")
	}
}

func TestRunAppliesTimeout(t *testing.T) {
	s := New(time.UTC, "15:37", "23:55", nil, nil, nil)
	s.timeout = 10 * time.Millisecond

	done := make(chan error, 1)
	s.run("slow", func(ctx context.Context) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	if err := <-done; !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
