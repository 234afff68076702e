package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/diaflow/diaflow/internal/infra/eventbus"
	"github.com/diaflow/diaflow/internal/infra/sqlite"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return NewService(db, eventbus.New(), zap.NewNop()), db
}

func commitInput(n int) CommitInput {
	return CommitInput{
		ProjectID:   "proj-1",
		WorkspaceID: "ws-1",
		UserID:      "user-1",
		Prompt:      fmt.Sprintf("prompt %d", n),
		DiagramType: "flowchart",
		MermaidText: fmt.Sprintf("flowchart TD\nA-->B%d", n),
	}
}

func seedQuota(t *testing.T, svc *Service, credits int) {
	t.Helper()
	if err := svc.EnsureQuota(context.Background(), "user-1", credits); err != nil {
		t.Fatalf("EnsureQuota() error = %v", err)
	}
}

func TestCommit_StoresDiagramHistoryAndChargesQuota(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	seedQuota(t, svc, 5)

	res, err := svc.Commit(ctx, commitInput(1))
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if res.ArtifactID == "" {
		t.Error("Commit() returned empty artifact id")
	}

	d, err := svc.CurrentDiagram(ctx, "proj-1")
	if err != nil {
		t.Fatalf("CurrentDiagram() error = %v", err)
	}
	if d.ArtifactID != res.ArtifactID || d.MermaidText != "flowchart TD\nA-->B1" {
		t.Errorf("stored diagram = %+v", d)
	}

	entries, err := svc.History(ctx, "proj-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != res.ArtifactID {
		t.Errorf("history = %+v; want one entry for the commit", entries)
	}

	remaining, err := svc.Remaining(ctx, "user-1")
	if err != nil {
		t.Fatalf("Remaining() error = %v", err)
	}
	if remaining != 4 {
		t.Errorf("remaining credits = %d; want 4", remaining)
	}
}

func TestCommit_UpsertsCurrentDiagram(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	seedQuota(t, svc, 5)

	if _, err := svc.Commit(ctx, commitInput(1)); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}
	res2, err := svc.Commit(ctx, commitInput(2))
	if err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}

	d, err := svc.CurrentDiagram(ctx, "proj-1")
	if err != nil {
		t.Fatalf("CurrentDiagram() error = %v", err)
	}
	if d.ArtifactID != res2.ArtifactID {
		t.Errorf("current diagram is %q; want the latest commit %q", d.ArtifactID, res2.ArtifactID)
	}

	entries, _ := svc.History(ctx, "proj-1", 0)
	if len(entries) != 2 {
		t.Errorf("history length = %d; want 2", len(entries))
	}
}

func TestCommit_HistoryCappedAtThirty(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	seedQuota(t, svc, 100)

	var firstID string
	for i := 0; i < 31; i++ {
		res, err := svc.Commit(ctx, commitInput(i))
		if err != nil {
			t.Fatalf("Commit(%d) error = %v", i, err)
		}
		if i == 0 {
			firstID = res.ArtifactID
		}
	}

	entries, err := svc.History(ctx, "proj-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 30 {
		t.Errorf("history length = %d; want 30 after the 31st commit", len(entries))
	}
	for _, e := range entries {
		if e.ID == firstID {
			t.Error("oldest entry still present; want it evicted")
		}
	}
}

func TestCommit_QuotaExhausted(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	seedQuota(t, svc, 1)

	if _, err := svc.Commit(ctx, commitInput(1)); err != nil {
		t.Fatalf("Commit() with one credit error = %v", err)
	}

	_, err := svc.Commit(ctx, commitInput(2))
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("Commit() with zero credits error = %v; want ErrQuotaExhausted", err)
	}

	// The failed commit must leave no trace.
	entries, _ := svc.History(ctx, "proj-1", 0)
	if len(entries) != 1 {
		t.Errorf("history length = %d; want 1", len(entries))
	}
	remaining, _ := svc.Remaining(ctx, "user-1")
	if remaining != 0 {
		t.Errorf("remaining credits = %d; want 0, never negative", remaining)
	}
}

func TestCommit_MissingQuotaRowTreatedAsExhausted(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Commit(context.Background(), commitInput(1))
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Errorf("Commit() without quota row error = %v; want ErrQuotaExhausted", err)
	}
}

func TestEnsureQuota_DoesNotResetExistingCredits(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	seedQuota(t, svc, 3)
	if _, err := svc.Commit(ctx, commitInput(1)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	// A repeated seed (e.g. on login) must not refill the balance.
	seedQuota(t, svc, 3)
	remaining, _ := svc.Remaining(ctx, "user-1")
	if remaining != 2 {
		t.Errorf("remaining credits = %d; want 2", remaining)
	}
}

func TestCurrentDiagram_NotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	if _, err := svc.CurrentDiagram(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("CurrentDiagram() error = %v; want ErrNotFound", err)
	}
}

func TestCommit_PublishesPreviewJob(t *testing.T) {
	t.Parallel()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	bus := eventbus.New()
	jobs := bus.Subscribe(TopicPreviewImage)
	svc := NewService(db, bus, zap.NewNop())
	seedQuota(t, svc, 5)

	in := commitInput(1)
	in.PreviewImage = "data:image/png;base64,AAAA"
	res, err := svc.Commit(context.Background(), in)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	select {
	case evt := <-jobs:
		job, ok := evt.Payload.(PreviewJob)
		if !ok {
			t.Fatalf("payload type = %T", evt.Payload)
		}
		if job.ArtifactID != res.ArtifactID || job.Image != in.PreviewImage {
			t.Errorf("job = %+v", job)
		}
	default:
		t.Fatal("no preview job published")
	}
}

func TestCommit_NoPreviewJobWithoutImage(t *testing.T) {
	t.Parallel()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	bus := eventbus.New()
	jobs := bus.Subscribe(TopicPreviewImage)
	svc := NewService(db, bus, zap.NewNop())
	seedQuota(t, svc, 5)

	if _, err := svc.Commit(context.Background(), commitInput(1)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	select {
	case evt := <-jobs:
		t.Errorf("unexpected preview job: %+v", evt)
	default:
	}
}
