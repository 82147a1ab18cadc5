package pipeline

import (
	"errors"
	"testing"
	"time"
)

func TestNewJobs(t *testing.T) {
	fj := NewFileJob("rcp.html", []byte("<html></html>"))
	if fj.Status != StatusQueued || fj.Filename != "rcp.html" {
		t.Errorf("unexpected file job: %+v", fj.Snapshot())
	}
	if len(fj.ID) != 36 {
		t.Errorf("expected a UUID job id, got %q", fj.ID)
	}
	if string(fj.FileData()) != "<html></html>" {
		t.Errorf("file data not kept")
	}

	uj := NewURLJob("https://example.org/rcp")
	if uj.URL != "https://example.org/rcp" || len(uj.FileData()) != 0 {
		t.Errorf("unexpected url job: %+v", uj.Snapshot())
	}
	if fj.ID == uj.ID {
		t.Error("expected distinct job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusFetching, "fetching"},
		{StatusParsing, "parsing"},
		{StatusStructuring, "structuring"},
		{StatusStoring, "storing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJobStatus_Terminal(t *testing.T) {
	for _, s := range []JobStatus{StatusCompleted, StatusFailed, StatusDupSkipped} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []JobStatus{StatusQueued, StatusFetching, StatusParsing, StatusStructuring, StatusStoring} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestJob_Fail(t *testing.T) {
	job := &Job{ID: "test-fail", Status: StatusParsing, UpdatedAt: time.Now()}
	job.Fail("parsing", errors.New("bad docx"))

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failed/parsing, got %s/%s", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "parsing: bad docx" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("fetch timeout")
	job.AddError("parse failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "fetch timeout" {
		t.Errorf("expected first error %q, got %q", "fetch timeout", snap.Progress.Errors[0])
	}

	// The snapshot owns its slice.
	snap.Progress.Errors[0] = "changed"
	if job.Snapshot().Progress.Errors[0] != "fetch timeout" {
		t.Error("snapshot shares errors with job")
	}
}

func TestJob_SetResultAndMedicine(t *testing.T) {
	job := &Job{ID: "res-test", UpdatedAt: time.Now()}
	job.SetResult(12, 20, 3, true)
	job.SetMedicine("med-1", "DOLIPRANE")

	snap := job.Snapshot()
	if snap.Progress.Sections != 12 || snap.Progress.Chunks != 20 || snap.Progress.DuplicatesDropped != 3 || !snap.Progress.Windowed {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if snap.MedicineID != "med-1" || snap.Title != "DOLIPRANE" {
		t.Errorf("unexpected medicine %q %q", snap.MedicineID, snap.Title)
	}
}

func TestJob_FileData(t *testing.T) {
	job := &Job{ID: "data-test"}
	data := []byte("file content here")
	job.SetFileData(data, "text/plain")
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
