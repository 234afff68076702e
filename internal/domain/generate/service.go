package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/diaflow/diaflow/internal/domain/artifact"
	"github.com/diaflow/diaflow/internal/domain/diagram"
	"github.com/diaflow/diaflow/internal/infra/cache"
	"github.com/diaflow/diaflow/internal/infra/llm"
	"github.com/diaflow/diaflow/internal/infra/validator"
)

// TypeRegistry resolves a diagram type id to its definition.
type TypeRegistry interface {
	Lookup(id string) (diagram.TypeDefinition, error)
}

// ProviderRouter selects the streaming provider for a request.
type ProviderRouter interface {
	Route(ctx context.Context) (llm.StreamingProvider, error)
}

// Committer persists a validated artifact exactly once.
type Committer interface {
	Commit(ctx context.Context, in artifact.CommitInput) (artifact.CommitResult, error)
}

// MetricsRecorder observes finished logical requests. May be nil.
type MetricsRecorder interface {
	ObserveGeneration(diagramType, outcome string, d time.Duration)
}

// Input is one logical generation request.
type Input struct {
	WorkspaceID   string
	UserID        string
	ProjectID     string
	Prompt        string
	DiagramType   string
	History       []llm.Message
	IsRetry       bool
	ClearCache    bool
	FailureReason string
	PreviewImage  string
}

// Options carries the pipeline tunables.
type Options struct {
	SettleDelay       time.Duration
	PacingDelay       time.Duration
	GenerationTimeout time.Duration
	BaseTemperature   float32
}

// commitBackoff is the delay schedule between artifact commit attempts.
var commitBackoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

type Service struct {
	registry  TypeRegistry
	providers ProviderRouter
	validate  validator.Validator
	sink      Committer
	cache     cache.CompletionCache
	metrics   MetricsRecorder
	log       *zap.Logger
	opts      Options
	sleep     Sleeper
}

func NewService(reg TypeRegistry, providers ProviderRouter, v validator.Validator, sink Committer, c cache.CompletionCache, m MetricsRecorder, log *zap.Logger, opts Options) *Service {
	return &Service{
		registry:  reg,
		providers: providers,
		validate:  v,
		sink:      sink,
		cache:     c,
		metrics:   m,
		log:       log,
		opts:      opts,
		sleep:     defaultSleeper,
	}
}

// Generate starts one logical request and returns its event stream. The
// channel is closed after the terminal event. Request validation errors are
// returned synchronously, before any streaming begins.
func (s *Service) Generate(ctx context.Context, in Input) (<-chan Event, error) {
	def, err := s.registry.Lookup(in.DiagramType)
	if err != nil {
		return nil, fmt.Errorf("unsupported diagram type %q: %w", in.DiagramType, err)
	}

	out := make(chan Event)

	if in.ClearCache {
		if delErr := s.cache.Delete(ctx, in.WorkspaceID, def.ID, in.Prompt); delErr != nil {
			s.log.Warn("completion cache bust failed", zap.Error(delErr))
		}
	} else if entry, cacheErr := s.cache.Get(ctx, in.WorkspaceID, def.ID, in.Prompt); cacheErr == nil {
		// Replay the already-validated artifact without charging quota.
		go func() {
			defer close(out)
			_ = send(ctx, out, Event{
				MermaidSyntax: entry.MermaidText,
				IsComplete:    true,
				ArtifactID:    entry.ArtifactID,
			})
			s.observe(def.ID, "cached", time.Now())
		}()
		return out, nil
	} else if !errors.Is(cacheErr, cache.ErrMiss) {
		s.log.Warn("completion cache read failed", zap.Error(cacheErr))
	}

	go s.run(ctx, out, def, in)
	return out, nil
}

func (s *Service) run(ctx context.Context, out chan<- Event, def diagram.TypeDefinition, in Input) {
	defer close(out)

	ctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	start := time.Now()
	retry := NewRetryState()
	isRetry := in.IsRetry
	reason := in.FailureReason

	for {
		res := s.attempt(ctx, out, def, in, isRetry, reason)
		if res.OK {
			outcome := s.commit(ctx, out, def, in, res.Candidate)
			s.observe(def.ID, outcome, start)
			return
		}

		if res.Kind.Retryable() && retry.Consume(res.Message) {
			s.log.Info("generation attempt failed, retrying",
				zap.String("diagramType", def.ID),
				zap.String("kind", res.Kind.String()),
				zap.String("reason", res.Message))
			isRetry = true
			reason = res.Message
			continue
		}

		_ = send(ctx, out, Event{
			Error:         true,
			ErrorMessage:  res.Message,
			MermaidSyntax: res.Candidate,
			NeedsRetry:    res.Kind != ErrQuota && res.Kind != ErrPersistence,
			IsComplete:    true,
		})
		s.observe(def.ID, res.Kind.String(), start)
		return
	}
}

// attempt runs one physical generation: stream, extract, emit partials,
// normalize, sanitize, validate. It never persists.
func (s *Service) attempt(ctx context.Context, out chan<- Event, def diagram.TypeDefinition, in Input, isRetry bool, reason string) Outcome {
	provider, err := s.providers.Route(ctx)
	if err != nil {
		return Outcome{Kind: ErrTransport, Message: err.Error()}
	}

	msgs := diagram.CompilePrompt(def, diagram.PromptInput{
		Prompt:        in.Prompt,
		History:       in.History,
		IsRetry:       isRetry,
		FailureReason: reason,
	})
	stream, err := provider.ChatStream(ctx, llm.ChatRequest{
		Messages:    msgs,
		Temperature: diagram.Temperature(s.opts.BaseTemperature, isRetry),
	})
	if err != nil {
		return Outcome{Kind: ErrTransport, Message: fmt.Sprintf("provider stream: %v", err)}
	}

	ex := NewExtractor()
	em := NewEmitter(s.opts.SettleDelay, s.opts.PacingDelay, s.sleep, func(ctx context.Context, text string) error {
		return send(ctx, out, Event{MermaidSyntax: text})
	})

loop:
	for {
		select {
		case <-ctx.Done():
			return Outcome{Kind: ErrTransport, Message: "generation cancelled: " + ctx.Err().Error(), Candidate: em.Text()}
		case delta, ok := <-stream:
			if !ok {
				break loop
			}
			if delta.Err != nil {
				return Outcome{Kind: ErrTransport, Message: delta.Err.Error(), Candidate: em.Text()}
			}
			if lines := ex.Feed(delta.Text); len(lines) > 0 {
				if emitErr := em.Add(ctx, lines...); emitErr != nil {
					return Outcome{Kind: ErrTransport, Message: "client stream closed: " + emitErr.Error(), Candidate: em.Text()}
				}
			}
			if ex.State() == StateDone {
				// The block is complete; drain the rest of the provider
				// stream so its goroutine can exit.
				go func() {
					for range stream {
					}
				}()
				break loop
			}
		}
	}

	candidate, ok := ex.Finish()
	if flushErr := em.Finish(ctx); flushErr != nil {
		return Outcome{Kind: ErrTransport, Message: "client stream closed: " + flushErr.Error(), Candidate: candidate}
	}
	if !ok {
		if strings.TrimSpace(candidate) == "" {
			return Outcome{Kind: ErrEmptyArtifact, Message: "the model response contained no diagram code block"}
		}
		return Outcome{Kind: ErrEmptyArtifact, Message: "the model response ended before the diagram was complete", Candidate: candidate}
	}

	candidate = diagram.Sanitize(diagram.Normalize(candidate, def), def)

	verdict, err := s.validate.Validate(ctx, candidate, def.ID)
	if err != nil {
		return Outcome{Kind: ErrTransport, Message: "validator: " + err.Error(), Candidate: candidate}
	}
	if !verdict.Valid {
		msg := verdict.Message
		if msg == "" {
			msg = "diagram failed syntax validation"
		}
		return Outcome{Kind: ErrValidation, Message: msg, Candidate: candidate}
	}

	return Outcome{OK: true, Candidate: candidate}
}

// commit persists the validated text with bounded backoff and emits the
// terminal event. The returned string is the metrics outcome label.
func (s *Service) commit(ctx context.Context, out chan<- Event, def diagram.TypeDefinition, in Input, text string) string {
	var res artifact.CommitResult
	var err error
	for attempt := 0; ; attempt++ {
		res, err = s.sink.Commit(ctx, artifact.CommitInput{
			ProjectID:    in.ProjectID,
			WorkspaceID:  in.WorkspaceID,
			UserID:       in.UserID,
			Prompt:       in.Prompt,
			DiagramType:  def.ID,
			MermaidText:  text,
			PreviewImage: in.PreviewImage,
		})
		if err == nil {
			break
		}
		if errors.Is(err, artifact.ErrQuotaExhausted) {
			_ = send(ctx, out, Event{
				Error:         true,
				ErrorMessage:  "generation quota exhausted",
				MermaidSyntax: text,
				IsComplete:    true,
			})
			return ErrQuota.String()
		}
		if attempt >= len(commitBackoff) {
			// The text is already valid; a storage fault is not a diagram
			// failure. The client keeps the text, the save is logged lost.
			s.log.Error("artifact commit abandoned",
				zap.String("projectId", in.ProjectID),
				zap.Error(err))
			_ = send(ctx, out, Event{
				MermaidSyntax: text,
				IsComplete:    true,
			})
			return ErrPersistence.String()
		}
		s.log.Warn("artifact commit failed, retrying",
			zap.String("projectId", in.ProjectID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if s.sleep(ctx, commitBackoff[attempt]) != nil {
			return ErrPersistence.String()
		}
	}

	if cacheErr := s.cache.Set(ctx, in.WorkspaceID, def.ID, in.Prompt, cache.Entry{
		ArtifactID:  res.ArtifactID,
		MermaidText: text,
		DiagramType: def.ID,
	}); cacheErr != nil {
		s.log.Warn("completion cache write failed", zap.Error(cacheErr))
	}

	_ = send(ctx, out, Event{
		MermaidSyntax: text,
		IsComplete:    true,
		ArtifactID:    res.ArtifactID,
	})
	return "success"
}

func (s *Service) observe(diagramType, outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveGeneration(diagramType, outcome, time.Since(start))
}

func send(ctx context.Context, out chan<- Event, evt Event) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case out <- evt:
		return nil
	}
}
