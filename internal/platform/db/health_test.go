package db

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunChecks_AllHealthy(t *testing.T) {
	checks := map[string]Check{
		"redis":    func(context.Context) error { return nil },
		"database": func(context.Context) error { return nil },
	}

	results, healthy := RunChecks(context.Background(), checks, time.Second)
	if !healthy {
		t.Error("expected healthy")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "database" || results[1].Name != "redis" {
		t.Errorf("expected results sorted by name, got %+v", results)
	}
}

func TestRunChecks_OneFailing(t *testing.T) {
	checks := map[string]Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}

	results, healthy := RunChecks(context.Background(), checks, time.Second)
	if healthy {
		t.Error("expected unhealthy")
	}
	if results[1].Status != "unhealthy" || results[1].Error != "connection refused" {
		t.Errorf("unexpected redis result: %+v", results[1])
	}
	if results[0].Status != "healthy" {
		t.Errorf("expected database healthy, got %+v", results[0])
	}
}

func TestRunChecks_AppliesTimeout(t *testing.T) {
	checks := map[string]Check{
		"slow": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	start := time.Now()
	_, healthy := RunChecks(context.Background(), checks, 20*time.Millisecond)
	if healthy {
		t.Error("expected timed-out check to be unhealthy")
	}
	if time.Since(start) > time.Second {
		t.Error("expected checks to be bounded by the timeout")
	}
}
