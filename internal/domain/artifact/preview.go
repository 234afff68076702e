package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/diaflow/diaflow/internal/infra/eventbus"
)

// previewBackoff is the delay schedule between preview write attempts.
var previewBackoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// PreviewWriter consumes preview jobs published after a successful commit and
// stores the rendered image out of band. The diagram text is already durable
// when a job arrives, so write failures are retried with backoff and logged
// but never surfaced as generation failures.
type PreviewWriter struct {
	db    *sql.DB
	jobs  <-chan eventbus.Event
	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPreviewWriter subscribes immediately so jobs published before Start runs
// are not lost.
func NewPreviewWriter(db *sql.DB, bus eventbus.EventBus, log *zap.Logger) *PreviewWriter {
	return &PreviewWriter{
		db:    db,
		jobs:  bus.Subscribe(TopicPreviewImage),
		log:   log,
		sleep: sleepContext,
	}
}

// Start consumes jobs until ctx is cancelled. Run it in its own goroutine.
func (w *PreviewWriter) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-w.jobs:
			job, ok := evt.Payload.(PreviewJob)
			if !ok {
				w.log.Warn("preview writer received unexpected payload",
					zap.String("topic", evt.Topic))
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *PreviewWriter) handle(ctx context.Context, job PreviewJob) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = w.write(ctx, job)
		if lastErr == nil {
			return
		}
		if attempt >= len(previewBackoff) {
			break
		}
		w.log.Warn("preview write failed, retrying",
			zap.String("artifactId", job.ArtifactID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
		if err := w.sleep(ctx, previewBackoff[attempt]); err != nil {
			return
		}
	}
	w.log.Error("preview write abandoned",
		zap.String("artifactId", job.ArtifactID),
		zap.Error(lastErr))
}

func (w *PreviewWriter) write(ctx context.Context, job PreviewJob) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := w.db.ExecContext(ctx,
		`INSERT INTO previews (artifact_id, project_id, image, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(artifact_id) DO UPDATE SET image = excluded.image`,
		job.ArtifactID, job.ProjectID, job.Image, now)
	if err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
