// Package cache provides the Redis-backed completion cache.
// Successful generations are cached by (workspace, diagram type, prompt hash)
// so an identical request replays the already-validated artifact without
// burning provider tokens or quota. Entries expire after a configurable TTL;
// a request with clearCache=true busts its entry before generating.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when no entry exists for the key.
var ErrMiss = errors.New("cache miss")

// Entry is one cached, validated generation.
type Entry struct {
	ArtifactID  string `json:"artifactId"`
	MermaidText string `json:"mermaidText"`
	DiagramType string `json:"diagramType"`
}

// CompletionCache is the cache contract consumed by the generation service.
type CompletionCache interface {
	Get(ctx context.Context, workspaceID, diagramType, prompt string) (Entry, error)
	Set(ctx context.Context, workspaceID, diagramType, prompt string, e Entry) error
	Delete(ctx context.Context, workspaceID, diagramType, prompt string) error
}

// Store implements CompletionCache on Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration for cached completions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key prefix for cached completions.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// New creates a Redis completion cache with options.
func New(addr string, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{Addr: addr})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Store from an existing client (used with miniredis in tests).
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "diaflow:gen:",
		ttl:    time.Hour,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// key derives the cache key. The prompt is hashed so arbitrarily long user
// text never ends up as a Redis key.
func (s *Store) key(workspaceID, diagramType, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return s.prefix + workspaceID + ":" + diagramType + ":" + hex.EncodeToString(sum[:])
}

// Get fetches the cached entry, or ErrMiss.
func (s *Store) Get(ctx context.Context, workspaceID, diagramType, prompt string) (Entry, error) {
	data, err := s.client.Get(ctx, s.key(workspaceID, diagramType, prompt)).Bytes()
	if errors.Is(err, backend.Nil) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("cache get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("cache get: unmarshal: %w", err)
	}
	return e, nil
}

// Set stores the entry with the configured TTL.
func (s *Store) Set(ctx context.Context, workspaceID, diagramType, prompt string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache set: marshal: %w", err)
	}
	if err := s.client.Set(ctx, s.key(workspaceID, diagramType, prompt), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes the entry (clearCache=true path). Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, workspaceID, diagramType, prompt string) error {
	if err := s.client.Del(ctx, s.key(workspaceID, diagramType, prompt)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}
