package data

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewRepository(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndLastRun(t *testing.T) {
	repo := setupTestDB(t)

	// Initially no runs
	run, err := repo.LastRun()
	if err != nil {
		t.Fatalf("LastRun() returned an error: %v", err)
	}
	if run != nil {
		t.Fatal("Expected no run before any sync")
	}

	started := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	runs := []*SyncRun{
		{StartedAt: started, FinishedAt: started.Add(time.Minute), Total: 10, Errors: 1},
		{StartedAt: started.Add(time.Hour), FinishedAt: started.Add(time.Hour + time.Minute), Total: 12, Errors: 0},
	}
	for _, r := range runs {
		if err := repo.SaveRun(r); err != nil {
			t.Fatalf("SaveRun() returned an error: %v", err)
		}
	}

	last, err := repo.LastRun()
	if err != nil {
		t.Fatalf("LastRun() returned an error: %v", err)
	}
	if last == nil {
		t.Fatal("Expected a last run")
	}
	if last.Total != 12 {
		t.Errorf("Expected most recent run (total 12), got total %d", last.Total)
	}
	if last.Errors != 0 {
		t.Errorf("Expected 0 errors, got %d", last.Errors)
	}
}

func TestSaveAndListProgress(t *testing.T) {
	repo := setupTestDB(t)

	// Initially empty
	list, err := repo.ListProgress()
	if err != nil {
		t.Fatalf("ListProgress() returned an error: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("Expected 0 progress rows, got %d", len(list))
	}

	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	entries := []*Progress{
		{Title: "Foo", Chapter: "2", Status: "ok", UpdatedAt: now},
		{Title: "Bar", Chapter: "Error", Status: "error", UpdatedAt: now},
	}
	for _, p := range entries {
		if err := repo.SaveProgress(p); err != nil {
			t.Fatalf("SaveProgress() returned an error: %v", err)
		}
	}

	list, err = repo.ListProgress()
	if err != nil {
		t.Fatalf("ListProgress() returned an error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 progress rows, got %d", len(list))
	}

	// Ordered by title
	if list[0].Title != "Bar" {
		t.Errorf("Expected first row 'Bar', got '%s'", list[0].Title)
	}
	if list[0].Status != "error" {
		t.Errorf("Expected status 'error', got '%s'", list[0].Status)
	}
	if list[1].Chapter != "2" {
		t.Errorf("Expected chapter '2', got '%s'", list[1].Chapter)
	}
}

func TestSaveProgressUpserts(t *testing.T) {
	repo := setupTestDB(t)

	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	if err := repo.SaveProgress(&Progress{Title: "Foo", Chapter: "1", Status: "ok", UpdatedAt: now}); err != nil {
		t.Fatalf("SaveProgress() returned an error: %v", err)
	}
	if err := repo.SaveProgress(&Progress{Title: "Foo", Chapter: "3", Status: "ok", UpdatedAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("SaveProgress() returned an error: %v", err)
	}

	list, err := repo.ListProgress()
	if err != nil {
		t.Fatalf("ListProgress() returned an error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 progress row after upsert, got %d", len(list))
	}
	if list[0].Chapter != "3" {
		t.Errorf("Expected chapter '3' after upsert, got '%s'", list[0].Chapter)
	}
}
