package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcliao/mnemo/internal/model"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func sampleEntries() []model.Entry {
	base := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	return []model.Entry{
		{ID: "e1", Kind: model.KindDecision, Text: "use sqlite fts for search", Confidence: 0.9, CreatedAt: base},
		{ID: "e2", Kind: model.KindGotcha, Text: "wal journal needs a writable directory", Confidence: 0.7, CreatedAt: base.Add(time.Hour)},
		{ID: "e3", Kind: model.KindLearning, Text: "cosine ranking beats recency for recall", Confidence: 0.7, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func TestFingerprintLifecycle(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)

	fp, err := ix.Fingerprint(ctx)
	if err != nil || fp != "" {
		t.Fatalf("fresh index fingerprint = %q, %v; want empty", fp, err)
	}

	if err := ix.Rebuild(ctx, sampleEntries(), "fp-1"); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	fp, _ = ix.Fingerprint(ctx)
	if fp != "fp-1" {
		t.Errorf("fingerprint after rebuild = %q", fp)
	}

	extra := model.Entry{ID: "e4", Kind: model.KindProgress, Text: "wired the cli", Confidence: 0.4}
	if err := ix.Insert(ctx, extra, "fp-2"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	fp, _ = ix.Fingerprint(ctx)
	if fp != "fp-2" {
		t.Errorf("fingerprint after insert = %q", fp)
	}
	n, _ := ix.Count(ctx)
	if n != 4 {
		t.Errorf("count = %d, want 4", n)
	}
}

func TestSearchRanksMatches(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	if err := ix.Rebuild(ctx, sampleEntries(), "fp"); err != nil {
		t.Fatal(err)
	}

	hits, err := ix.Search(ctx, "sqlite search", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for indexed terms")
	}
	if hits[0].ID != "e1" {
		t.Errorf("best hit = %s, want e1", hits[0].ID)
	}

	hits, err = ix.Search(ctx, "", 10)
	if err != nil || hits != nil {
		t.Errorf("empty query = %v, %v; want nil, nil", hits, err)
	}

	hits, err = ix.Search(ctx, "zzz nonexistent", 10)
	if err != nil {
		t.Fatalf("miss search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("unexpected hits: %+v", hits)
	}
}

func TestAccessCountsSurviveRebuild(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	entries := sampleEntries()
	if err := ix.Rebuild(ctx, entries, "fp-1"); err != nil {
		t.Fatal(err)
	}

	if err := ix.Touch(ctx, []string{"e1", "e1", "e3"}); err != nil {
		t.Fatalf("touch: %v", err)
	}
	counts, err := ix.AccessCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["e1"] != 2 || counts["e3"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts["e2"]; ok {
		t.Error("untouched entry reported a count")
	}

	// Rebuild from the same logical entries keeps counts, IDs being stable.
	if err := ix.Rebuild(ctx, entries, "fp-2"); err != nil {
		t.Fatal(err)
	}
	counts, _ = ix.AccessCounts(ctx)
	if counts["e1"] != 2 {
		t.Errorf("counts lost across rebuild: %v", counts)
	}
}

func TestRebuildReplacesEntries(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	if err := ix.Rebuild(ctx, sampleEntries(), "fp-1"); err != nil {
		t.Fatal(err)
	}

	replacement := []model.Entry{
		{ID: "n1", Kind: model.KindIssue, Text: "only entry now", Confidence: 0.7},
	}
	if err := ix.Rebuild(ctx, replacement, "fp-2"); err != nil {
		t.Fatal(err)
	}

	n, _ := ix.Count(ctx)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	hits, err := ix.Search(ctx, "sqlite", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("stale entries still searchable: %+v", hits)
	}
}

func TestAllPreservesFields(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex(t)
	entries := sampleEntries()
	entries[1].SupersededBy = "e3"
	entries[2].Pinned = true
	if err := ix.Rebuild(ctx, entries, "fp"); err != nil {
		t.Fatal(err)
	}

	all, err := ix.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("all = %d entries", len(all))
	}
	// Newest first.
	if all[0].ID != "e3" || all[2].ID != "e1" {
		t.Errorf("order = %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}
	byID := map[string]model.Entry{}
	for _, e := range all {
		byID[e.ID] = e
	}
	if byID["e2"].SupersededBy != "e3" {
		t.Errorf("superseded-by dropped: %+v", byID["e2"])
	}
	if !byID["e3"].Pinned {
		t.Errorf("pinned flag dropped: %+v", byID["e3"])
	}
	if !byID["e1"].CreatedAt.Equal(entries[0].CreatedAt) {
		t.Errorf("created_at mismatch: %v", byID["e1"].CreatedAt)
	}
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	ix, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Rebuild(ctx, sampleEntries(), "fp-1"); err != nil {
		t.Fatal(err)
	}
	ix.Close()

	ix, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	fp, _ := ix.Fingerprint(ctx)
	if fp != "fp-1" {
		t.Errorf("fingerprint after reopen = %q", fp)
	}
	n, _ := ix.Count(ctx)
	if n != 3 {
		t.Errorf("count after reopen = %d", n)
	}
}
