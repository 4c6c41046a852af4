package requestlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sampleRow(id string, tsNs int64) LogRow {
	return LogRow{
		ID:          id,
		TsNs:        tsNs,
		ClientIP:    "10.0.0.1",
		SourceURL:   "https://www.tiktok.com/@user/video/1",
		SourceHost:  "www.tiktok.com",
		Platform:    "tiktok",
		Fingerprint: "0123456789abcdef0123456789abcdef",
		Method:      "api_mirror",
		Outcome:     "success",
		Attempts:    1,
		DurationNs:  int64(120 * time.Millisecond),
	}
}

func TestRepo_InsertListGet(t *testing.T) {
	repo := NewRepo(t.TempDir(), 1<<20, 5)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ts := time.Now().Add(-time.Minute).UnixNano()
	a := sampleRow("log-a", ts)
	b := sampleRow("log-b", ts+1)
	b.Platform = "instagram"
	b.Outcome = "failure"
	b.ErrorKind = "authentication_required"
	b.Attempts = 3

	n, err := repo.InsertBatch([]LogRow{a, b})
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	rows, err := repo.List(ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("List = %d rows, want 2", len(rows))
	}
	if rows[0].ID != "log-b" || rows[1].ID != "log-a" {
		t.Fatalf("order = %s,%s want ts_ns DESC", rows[0].ID, rows[1].ID)
	}

	got, err := repo.GetByID("log-a")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Platform != "tiktok" || got.Outcome != "success" {
		t.Fatalf("GetByID = %+v", got)
	}

	missing, err := repo.GetByID("log-zz")
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID missing = %+v, want nil", missing)
	}
}

func TestRepo_ListFilters(t *testing.T) {
	repo := NewRepo(t.TempDir(), 1<<20, 5)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ts := time.Now().UnixNano()
	a := sampleRow("log-a", ts)
	b := sampleRow("log-b", ts+1)
	b.Platform = "instagram"
	b.Outcome = "failure"
	b.ErrorKind = "blocked"
	c := sampleRow("log-c", ts+2)
	c.CacheHit = true

	if _, err := repo.InsertBatch([]LogRow{a, b, c}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	rows, err := repo.List(ListFilter{Platform: "instagram"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "log-b" {
		t.Fatalf("platform filter = %+v", rows)
	}

	rows, err = repo.List(ListFilter{Outcome: "failure"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ErrorKind != "blocked" {
		t.Fatalf("outcome filter = %+v", rows)
	}

	hit := 1
	rows, err = repo.List(ListFilter{CacheHit: &hit})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "log-c" {
		t.Fatalf("cache_hit filter = %+v", rows)
	}

	rows, err = repo.List(ListFilter{Before: ts + 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "log-a" {
		t.Fatalf("before filter = %+v", rows)
	}

	rows, err = repo.List(ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "log-b" {
		t.Fatalf("limit/offset = %+v", rows)
	}
}

func TestRepo_DuplicateIDIgnored(t *testing.T) {
	repo := NewRepo(t.TempDir(), 1<<20, 5)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ts := time.Now().UnixNano()
	if _, err := repo.InsertBatch([]LogRow{sampleRow("dup", ts), sampleRow("dup", ts+1)}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	rows, err := repo.List(ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want duplicate id ignored", len(rows))
	}
}

func TestRepo_RotationAndRetention(t *testing.T) {
	dir := t.TempDir()
	// Tiny max size so every batch triggers rotation.
	repo := NewRepo(dir, 1, 2)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ts := time.Now().UnixNano()
	for i := 0; i < 4; i++ {
		row := sampleRow("log-"+strings.Repeat("x", i+1), ts+int64(i))
		if _, err := repo.InsertBatch([]LogRow{row}); err != nil {
			t.Fatalf("InsertBatch %d: %v", i, err)
		}
		// Filenames carry millisecond timestamps; keep them distinct.
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var dbCount int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "resolution_logs-") && strings.HasSuffix(e.Name(), ".db") {
			dbCount++
		}
	}
	if dbCount > 2 {
		t.Fatalf("retained %d db files, want <= 2", dbCount)
	}
}

func TestRepo_OpenReusesLatest(t *testing.T) {
	dir := t.TempDir()
	repo := NewRepo(dir, 1<<20, 5)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	ts := time.Now().UnixNano()
	if _, err := repo.InsertBatch([]LogRow{sampleRow("persisted", ts)}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := NewRepo(dir, 1<<20, 5)
	if err := reopened.Open(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetByID("persisted")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("row should survive reopen")
	}

	files, err := filepath.Glob(filepath.Join(dir, "resolution_logs-*.db"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("db files = %d, want reuse of existing file", len(files))
	}
}

func TestService_EmitAndFlush(t *testing.T) {
	repo := NewRepo(t.TempDir(), 1<<20, 5)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	svc := NewService(ServiceConfig{
		Repo:          repo,
		QueueSize:     64,
		FlushBatch:    8,
		FlushInterval: time.Hour, // flush via Stop, not timer
	})
	svc.Start()

	ts := time.Now().UnixNano()
	for i := 0; i < 5; i++ {
		svc.Emit(sampleRow("svc-"+strings.Repeat("y", i+1), ts+int64(i)))
	}
	svc.Stop()

	rows, err := repo.List(ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5 after drain", len(rows))
	}
}

func TestService_DisabledDrops(t *testing.T) {
	repo := NewRepo(t.TempDir(), 1<<20, 5)
	if err := repo.Open(); err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	svc := NewService(ServiceConfig{Repo: repo, QueueSize: 64, FlushBatch: 8, FlushInterval: time.Hour})
	svc.SetEnabled(false)
	svc.Start()
	svc.Emit(sampleRow("dropped", time.Now().UnixNano()))
	svc.Stop()

	rows, err := repo.List(ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want disabled intake to drop", len(rows))
	}
}
