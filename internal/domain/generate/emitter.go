package generate

import (
	"context"
	"strings"
	"time"
)

// flushThreshold bounds partial emission granularity: a flush carries at
// least this many buffered lines, except the final flush at stream end.
const flushThreshold = 2

// Sleeper waits for d or until ctx is cancelled. Injectable so tests run
// without real delays.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Emitter batches completed payload lines and pushes cumulative partial text
// to the client. A one-time settle delay precedes the first flush so the
// client never sees a flash of unstable content; a fixed pacing delay after
// every flush rate-limits emission regardless of provider speed.
type Emitter struct {
	settle  time.Duration
	pacing  time.Duration
	sleep   Sleeper
	send    func(ctx context.Context, text string) error
	buf     []string
	visible strings.Builder
	settled bool
}

func NewEmitter(settle, pacing time.Duration, sleep Sleeper, send func(ctx context.Context, text string) error) *Emitter {
	if sleep == nil {
		sleep = defaultSleeper
	}
	return &Emitter{settle: settle, pacing: pacing, sleep: sleep, send: send}
}

// Add buffers completed lines and flushes once the threshold is reached.
func (em *Emitter) Add(ctx context.Context, lines ...string) error {
	em.buf = append(em.buf, lines...)
	if len(em.buf) < flushThreshold {
		return nil
	}
	return em.flush(ctx)
}

// Finish flushes whatever remains in the buffer, even a single line.
func (em *Emitter) Finish(ctx context.Context) error {
	if len(em.buf) == 0 {
		return nil
	}
	return em.flush(ctx)
}

// Text returns the cumulative text emitted so far.
func (em *Emitter) Text() string { return em.visible.String() }

func (em *Emitter) flush(ctx context.Context) error {
	if !em.settled {
		if err := em.sleep(ctx, em.settle); err != nil {
			return err
		}
		em.settled = true
	}

	for _, line := range em.buf {
		em.visible.WriteString(line)
		em.visible.WriteByte('\n')
	}
	em.buf = em.buf[:0]

	if err := em.send(ctx, em.visible.String()); err != nil {
		return err
	}
	return em.sleep(ctx, em.pacing)
}
