// Package artifact persists validated diagrams: the current diagram per
// project, an append-only capped history, and the per-user generation quota.
package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diaflow/diaflow/internal/infra/eventbus"
)

// historyCap bounds per-project history; the oldest entries are evicted on
// overflow.
const historyCap = 30

// TopicPreviewImage carries PreviewJob payloads from Commit to the
// asynchronous preview writer.
const TopicPreviewImage = "artifact.preview"

var (
	ErrQuotaExhausted = errors.New("generation quota exhausted")
	ErrNotFound       = errors.New("not found")
)

type CommitInput struct {
	ProjectID    string
	WorkspaceID  string
	UserID       string
	Prompt       string
	DiagramType  string
	MermaidText  string
	PreviewImage string
}

type CommitResult struct {
	ArtifactID string
}

type Diagram struct {
	ProjectID   string    `json:"projectId"`
	WorkspaceID string    `json:"workspaceId"`
	ArtifactID  string    `json:"artifactId"`
	DiagramType string    `json:"diagramType"`
	MermaidText string    `json:"mermaidText"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type HistoryEntry struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	Prompt       string    `json:"prompt"`
	DiagramText  string    `json:"diagramText"`
	DiagramType  string    `json:"diagramType"`
	PreviewImage string    `json:"previewImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PreviewJob is the payload published on TopicPreviewImage after a commit.
type PreviewJob struct {
	ArtifactID string
	ProjectID  string
	Image      string
}

type Service struct {
	db  *sql.DB
	bus eventbus.EventBus
	log *zap.Logger
}

func NewService(db *sql.DB, bus eventbus.EventBus, log *zap.Logger) *Service {
	return &Service{db: db, bus: bus, log: log}
}

// Commit stores a validated diagram in a single transaction: the project's
// current diagram is upserted, a history entry is appended (evicting beyond
// the cap), and one quota unit is charged. The quota charge is conditional so
// a user with zero credits is never driven negative; in that case nothing is
// written and ErrQuotaExhausted is returned.
func (s *Service) Commit(ctx context.Context, in CommitInput) (CommitResult, error) {
	// V7 ids are time-ordered, so the id is a stable tiebreaker when several
	// history rows share one RFC3339 timestamp.
	id, err := uuid.NewV7()
	if err != nil {
		return CommitResult{}, fmt.Errorf("artifact id: %w", err)
	}
	artifactID := id.String()
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CommitResult{}, fmt.Errorf("begin commit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE quotas SET credits = credits - 1, updated_at = ? WHERE user_id = ? AND credits > 0`,
		now, in.UserID)
	if err != nil {
		return CommitResult{}, fmt.Errorf("decrement quota: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return CommitResult{}, fmt.Errorf("decrement quota: %w", err)
	}
	if affected == 0 {
		return CommitResult{}, ErrQuotaExhausted
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO diagrams (project_id, workspace_id, artifact_id, diagram_type, mermaid_text, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   workspace_id = excluded.workspace_id,
		   artifact_id = excluded.artifact_id,
		   diagram_type = excluded.diagram_type,
		   mermaid_text = excluded.mermaid_text,
		   updated_at = excluded.updated_at`,
		in.ProjectID, in.WorkspaceID, artifactID, in.DiagramType, in.MermaidText, now)
	if err != nil {
		return CommitResult{}, fmt.Errorf("upsert diagram: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO history (id, project_id, workspace_id, prompt, diagram_text, diagram_type, preview_image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifactID, in.ProjectID, in.WorkspaceID, in.Prompt, in.MermaidText, in.DiagramType, "", now)
	if err != nil {
		return CommitResult{}, fmt.Errorf("append history: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE project_id = ? AND id NOT IN (
		   SELECT id FROM history WHERE project_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
		 )`,
		in.ProjectID, in.ProjectID, historyCap)
	if err != nil {
		return CommitResult{}, fmt.Errorf("evict history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CommitResult{}, fmt.Errorf("commit tx: %w", err)
	}

	if in.PreviewImage != "" {
		s.bus.Publish(TopicPreviewImage, PreviewJob{
			ArtifactID: artifactID,
			ProjectID:  in.ProjectID,
			Image:      in.PreviewImage,
		})
	}

	return CommitResult{ArtifactID: artifactID}, nil
}

// EnsureQuota seeds a quota row for userID when none exists yet.
func (s *Service) EnsureQuota(ctx context.Context, userID string, credits int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO quotas (user_id, credits, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, credits, now)
	if err != nil {
		return fmt.Errorf("ensure quota: %w", err)
	}
	return nil
}

// Remaining returns the caller's remaining generation credits.
func (s *Service) Remaining(ctx context.Context, userID string) (int, error) {
	var credits int
	err := s.db.QueryRowContext(ctx,
		`SELECT credits FROM quotas WHERE user_id = ?`, userID).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return credits, nil
}

// CurrentDiagram returns the project's latest committed diagram.
func (s *Service) CurrentDiagram(ctx context.Context, projectID string) (*Diagram, error) {
	var d Diagram
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id, workspace_id, artifact_id, diagram_type, mermaid_text, updated_at
		 FROM diagrams WHERE project_id = ?`, projectID).
		Scan(&d.ProjectID, &d.WorkspaceID, &d.ArtifactID, &d.DiagramType, &d.MermaidText, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read diagram: %w", err)
	}
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &d, nil
}

// History lists the project's entries, newest first.
func (s *Service) History(ctx context.Context, projectID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.project_id, h.prompt, h.diagram_text, h.diagram_type,
		        COALESCE(p.image, h.preview_image), h.created_at
		 FROM history h
		 LEFT JOIN previews p ON p.artifact_id = h.id
		 WHERE h.project_id = ?
		 ORDER BY h.created_at DESC, h.id DESC
		 LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Prompt, &e.DiagramText, &e.DiagramType, &e.PreviewImage, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return out, nil
}
