package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/personio-adapter/pkg/model"
)

func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &HybridStore{redis: rdb, logger: zap.NewNop()}, mr
}

func TestSetAndGetJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	val := map[string]string{"client_id": "abc123", "client_secret": "xyz456"}

	if err := store.SetJSON(ctx, "personio:cred", val, time.Minute); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var got map[string]string
	if err := store.GetJSON(ctx, "personio:cred", &got); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}

	if got["client_id"] != "abc123" {
		t.Errorf("expected client_id=abc123, got %s", got["client_id"])
	}
}

func TestSaveAndLastRunReport(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	report := model.RunReport{
		RunID:       "run-1",
		StartedAt:   time.Now().UTC().Truncate(time.Second),
		Extracted:   120,
		Transformed: 118,
		Skipped:     2,
		Departments: 7,
		Success:     true,
	}

	if err := store.SaveRunReport(ctx, report); err != nil {
		t.Fatalf("SaveRunReport failed: %v", err)
	}

	got, err := store.LastRunReport(ctx)
	if err != nil {
		t.Fatalf("LastRunReport failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected report, got nil")
	}
	if got.RunID != "run-1" {
		t.Errorf("expected run_id=run-1, got %s", got.RunID)
	}
	if got.Transformed != 118 || got.Skipped != 2 {
		t.Errorf("counts not round-tripped: %+v", got)
	}
}

func TestLastRunReport_NoRunYet(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	got, err := store.LastRunReport(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing report, got %+v", got)
	}
}

func TestUpsertsWithoutPostgresAreNoops(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	if err := store.UpsertEmployeeSnapshot(ctx, []model.EmployeeRecord{{EmployeeID: "1"}}); err != nil {
		t.Fatalf("expected no-op without postgres, got %v", err)
	}
	if err := store.UpsertDepartmentSummaries(ctx, []model.DepartmentSummary{{Department: "Sales"}}); err != nil {
		t.Fatalf("expected no-op without postgres, got %v", err)
	}
}

func TestSetJSON_Expiration(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	val := map[string]string{"key": "value"}
	if err := store.SetJSON(ctx, "test:key", val, 200*time.Millisecond); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	// Fast forward miniredis time
	mr.FastForward(300 * time.Millisecond)

	var got map[string]string
	err := store.GetJSON(ctx, "test:key", &got)
	if err == nil {
		t.Fatal("expected error for expired key, got nil")
	}
}

func TestConcurrentReportWrites(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.SaveRunReport(ctx, model.RunReport{RunID: "run", Extracted: i})
		}(i)
	}
	wg.Wait()

	got, err := store.LastRunReport(ctx)
	if err != nil {
		t.Fatalf("LastRunReport failed: %v", err)
	}
	if got == nil || got.RunID != "run" {
		t.Fatalf("expected a stored report, got %+v", got)
	}
}
