package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rcliao/mnemo/internal/config"
	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/remind"
)

var baseTime = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

// newTestEngine opens an engine over a temp dir with a settable clock.
func newTestEngine(t *testing.T) (*Engine, *time.Time) {
	t.Helper()
	e, err := Open(t.TempDir(), config.Default(), nil)
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	now := baseTime
	e.SetClock(func() time.Time { return now })
	t.Cleanup(func() { e.Close() })
	return e, &now
}

func TestFirstRunIsFresh(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	res, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !res.Session.FirstRun || res.Session.Boundary {
		t.Errorf("first run decision = %+v", res.Session)
	}
	if res.Context != "# Memory Context\n" {
		t.Errorf("empty-store context = %q", res.Context)
	}
	if e.ReparseCount() != 0 {
		t.Errorf("reparses = %d on an empty store", e.ReparseCount())
	}
}

func TestRecallIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	lr, err := e.Log(ctx, "**Decided:** use sqlite for the index", "decision")
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if lr.StoredAs != "permanent" || lr.Confidence != 0.9 {
		t.Fatalf("log result = %+v", lr)
	}

	first, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if first.Session.Boundary {
		t.Errorf("engine-owned append read as a boundary: %+v", first.Session)
	}
	if !strings.Contains(first.Context, "- use sqlite for the index") {
		t.Errorf("logged decision missing from context:\n%s", first.Context)
	}

	second, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("second recall: %v", err)
	}
	if second.Context != first.Context {
		t.Errorf("back-to-back recalls differ:\n%s\nvs\n%s", first.Context, second.Context)
	}
	if e.ReparseCount() != 0 {
		t.Errorf("reparses = %d, want 0: the index was built incrementally", e.ReparseCount())
	}
}

func TestSessionGapPromotesBuffer(t *testing.T) {
	ctx := context.Background()
	e, now := newTestEngine(t)

	if _, err := e.Log(ctx, "moved the retry logic into internal/client/backoff.go", "experience"); err != nil {
		t.Fatalf("log: %v", err)
	}

	*now = baseTime.Add(29 * time.Minute)
	res, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("recall at 29m: %v", err)
	}
	if res.Session.Boundary || res.Promotion != nil {
		t.Fatalf("29 minutes crossed the boundary: %+v", res.Session)
	}
	if res.Health.BufferCount != 1 {
		t.Errorf("buffer drained early: %+v", res.Health)
	}

	*now = baseTime.Add(61 * time.Minute) // 32m after the last recall
	res, err = e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("recall at 61m: %v", err)
	}
	if !res.Session.Boundary || !res.Session.GapExceeded {
		t.Fatalf("gap not detected: %+v", res.Session)
	}
	if res.Promotion == nil || len(res.Promotion.Inserted) != 1 {
		t.Fatalf("promotion = %+v", res.Promotion)
	}
	if res.Promotion.Inserted[0].Kind != model.KindLearning {
		t.Errorf("promoted kind = %s", res.Promotion.Inserted[0].Kind)
	}
	if res.Health.BufferCount != 0 {
		t.Errorf("buffer not cleared: %+v", res.Health)
	}
	if !strings.Contains(res.Context, "moved the retry logic into internal/client/backoff.go") {
		t.Errorf("promoted entry missing from context:\n%s", res.Context)
	}
}

func TestCheckpointForcesPromotion(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.Log(ctx, "tuned the sqlite wal checkpoint interval", "experience"); err != nil {
		t.Fatal(err)
	}
	res, err := e.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if res.Promotion == nil || len(res.Promotion.Inserted) != 1 {
		t.Fatalf("checkpoint did not promote: %+v", res.Promotion)
	}
	if res.Health.BufferCount != 0 {
		t.Errorf("buffer survived checkpoint: %+v", res.Health)
	}
}

func TestExternalEditTriggersReparse(t *testing.T) {
	ctx := context.Background()
	e, now := newTestEngine(t)

	if _, err := e.Recall(ctx, false); err != nil {
		t.Fatal(err)
	}
	before := e.ReparseCount()

	store := filepath.Join(e.dir, MemoryFile)
	content := "# Project Memory\n\n## 2026-08-28\n\n- **Decided:** adopt structured logging <!-- id:abc123 conf:0.90 -->\n"
	if err := os.WriteFile(store, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	*now = baseTime.Add(time.Minute)
	res, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("recall after edit: %v", err)
	}
	if !res.Session.Stale || !res.Session.Boundary {
		t.Fatalf("external edit not detected: %+v", res.Session)
	}
	if e.ReparseCount() != before+1 {
		t.Errorf("reparses = %d, want %d", e.ReparseCount(), before+1)
	}
	if !strings.Contains(res.Context, "- adopt structured logging") {
		t.Errorf("hand-written entry missing from context:\n%s", res.Context)
	}

	// The id carried in the metadata comment survives the parse.
	res2, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Session.Boundary {
		t.Errorf("second recall re-detected the same edit: %+v", res2.Session)
	}
	if res2.Context != res.Context {
		t.Error("context drifted without any change")
	}
}

func TestMissingIndexRebuiltOnRecall(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e, err := Open(dir, config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	now := baseTime
	e.SetClock(func() time.Time { return now })
	if _, err := e.Log(ctx, "**Gotcha:** wal files need the data dir writable", "gotcha"); err != nil {
		t.Fatal(err)
	}
	e.Close()

	for _, suffix := range []string{"", "-wal", "-shm"} {
		os.Remove(filepath.Join(dir, IndexFile+suffix))
	}

	e, err = Open(dir, config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	now = baseTime.Add(time.Minute)
	e.SetClock(func() time.Time { return now })

	res, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if res.Session.Boundary {
		t.Errorf("intact store misread as boundary: %+v", res.Session)
	}
	if e.ReparseCount() != 1 {
		t.Errorf("reparses = %d, want 1 for the index rebuild", e.ReparseCount())
	}
	if !strings.Contains(res.Context, "wal files need the data dir writable") {
		t.Errorf("entry lost with the index:\n%s", res.Context)
	}
}

func TestNextSessionReminderSurfacesOnce(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	r, err := e.Remind(ctx, "check the ci failure", "next session")
	if err != nil {
		t.Fatalf("remind: %v", err)
	}
	if r.Kind != model.TriggerTime || r.Expr != "next session" {
		t.Fatalf("reminder = %+v", r)
	}

	res, err := e.Recall(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Context, "- check the ci failure (next session)") {
		t.Fatalf("reminder not surfaced:\n%s", res.Context)
	}

	res, err = e.Recall(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(res.Context, "check the ci failure") {
		t.Errorf("next-session reminder surfaced twice:\n%s", res.Context)
	}

	all, err := e.Reminders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Status != model.StatusDone {
		t.Errorf("reminder not auto-acknowledged: %+v", all)
	}
}

func TestContextReminderFiresOnMatchingLog(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.Remind(ctx, "review the token refresh flow", "on auth"); err != nil {
		t.Fatal(err)
	}

	res, err := e.Log(ctx, "working on the auth middleware", "experience")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Triggered) != 1 || res.Triggered[0].MatchedWord != "auth" {
		t.Fatalf("triggered = %+v", res.Triggered)
	}

	res, err = e.Log(ctx, "renamed the config loader", "experience")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Triggered) != 0 {
		t.Errorf("unrelated text triggered: %+v", res.Triggered)
	}

	// Context reminders are never auto-dismissed; they fire again.
	res, err = e.Log(ctx, "more auth work", "experience")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Triggered) != 1 {
		t.Errorf("context reminder dismissed after one match: %+v", res.Triggered)
	}
}

func TestRepeatedRejectionWarnsLoop(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	line := "use a global mutex for session state because it serializes everything"
	res, err := e.Log(ctx, line, "rejected")
	if err != nil {
		t.Fatal(err)
	}
	if res.Loop != nil {
		t.Fatalf("first rejection warned: %+v", res.Loop)
	}

	res, err = e.Log(ctx, line, "rejected")
	if err != nil {
		t.Fatal(err)
	}
	if res.Loop == nil {
		t.Fatal("repeated rejection produced no loop warning")
	}
	if res.Loop.Severity != "critical" || res.Loop.PriorText != line {
		t.Errorf("loop = %+v", res.Loop)
	}
}

func TestBlockerSurfacesRelatedMemories(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.Log(ctx, "auth tokens expire mid session", "gotcha"); err != nil {
		t.Fatal(err)
	}

	res, err := e.Blocker(ctx, "stuck on auth token refresh")
	if err != nil {
		t.Fatalf("blocker: %v", err)
	}
	if len(res.Related) == 0 {
		t.Fatal("no related memories surfaced")
	}
	if res.Related[0].Source != "memory" ||
		!strings.Contains(res.Related[0].Entry.Text, "auth tokens expire") {
		t.Errorf("related = %+v", res.Related[0])
	}

	st, err := e.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.BufferCount != 1 {
		t.Errorf("blocker not buffered: %+v", st)
	}
}

func TestSearchIncludesBufferWhenAsked(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.Log(ctx, "**Learned:** the migration runner skips empty files", "learning"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Log(ctx, "migration order matters for the seed data", "experience"); err != nil {
		t.Fatal(err)
	}

	hits, err := e.Search(ctx, "migration", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Source != "memory" {
		t.Fatalf("memory-only search = %+v", hits)
	}

	hits, err = e.Search(ctx, "migration", true)
	if err != nil {
		t.Fatal(err)
	}
	var buffered int
	for _, h := range hits {
		if h.Source == "buffer" {
			buffered++
		}
	}
	if len(hits) != 2 || buffered != 1 {
		t.Errorf("unpromoted search = %+v", hits)
	}
}

func TestLogValidation(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.Log(ctx, "", "decision"); err == nil {
		t.Error("empty text accepted")
	}
	if _, err := e.Log(ctx, "something", "bogus-kind"); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestRemindRejectsMalformedTrigger(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	_, err := e.Remind(ctx, "x", "whenever pigs fly")
	if !errors.Is(err, remind.ErrMalformedTrigger) {
		t.Errorf("err = %v, want ErrMalformedTrigger", err)
	}

	// The failed call leaves no partial reminder behind.
	all, err := e.Reminders(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("reminders after failed add: %+v", all)
	}
}

func TestStatusReportsCounts(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	if _, err := e.Log(ctx, "**Decided:** keep markdown authoritative", "decision"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Log(ctx, "waiting on the schema review", "blocker"); err != nil {
		t.Fatal(err)
	}
	r, err := e.Remind(ctx, "ping the reviewer", "2026-09-05")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Remind(ctx, "rotate token", "2026-09-06"); err != nil {
		t.Fatal(err)
	}
	if err := e.ReminderDone(ctx, r.ID); err != nil {
		t.Fatal(err)
	}

	st, err := e.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.EntryCount != 1 || st.BufferCount != 1 {
		t.Errorf("counts = %+v", st)
	}
	if st.Pending != 1 || st.Done != 1 {
		t.Errorf("reminder counts = %+v", st)
	}
	if st.Stale {
		t.Errorf("engine-owned writes read as stale: %+v", st)
	}
	if st.LastActivity == nil || !st.LastActivity.Equal(baseTime) {
		t.Errorf("last activity = %v", st.LastActivity)
	}
}
