package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/theprismdata/llm-sql-maker/internal/relation"
	"github.com/theprismdata/llm-sql-maker/internal/schema"
)

// Backend is the pluggable graph engine behind the Store. Implementations
// need not be safe for concurrent use; the Store serializes rebuilds against
// queries.
type Backend interface {
	// Rebuild wipes and recreates all nodes and edges from the snapshot.
	Rebuild(ctx context.Context, s *schema.Schema, rels []relation.Relationship) error
	// ShortestPaths returns the minimum-hop path for every unordered pair of
	// the given tables reachable within maxHops, with a deterministic
	// tie-break (lexicographically smallest table-name sequence).
	ShortestPaths(ctx context.Context, tables []string, maxHops int) (map[Pair]Path, error)
	// NeighborsWithin returns tables reachable from the seed set within the
	// configured hop bound, excluding the seeds themselves.
	NeighborsWithin(ctx context.Context, tables []string, opts NeighborOptions) ([]string, error)
	// Close releases backend resources.
	Close(ctx context.Context) error
}

// Store fronts a Backend with a readers-shared / rebuild-exclusive lock so
// planners never observe a partially wiped graph, and applies a per-query
// timeout.
type Store struct {
	mu           sync.RWMutex
	backend      Backend
	queryTimeout time.Duration
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

// WithQueryTimeout sets the per-query deadline for path and neighborhood
// queries. Zero disables the deadline.
func WithQueryTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.queryTimeout = d }
}

// NewStore wraps a backend.
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild wipes and repopulates the graph. Exclusive with respect to queries.
func (s *Store) Rebuild(ctx context.Context, snapshot *schema.Schema, rels []relation.Relationship) error {
	ctx, span := storeSpan(ctx, "graph.rebuild",
		attribute.Int("graph.table_count", len(snapshot.Tables)),
		attribute.Int("graph.relationship_count", len(rels)),
	)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Rebuild(ctx, snapshot, rels); err != nil {
		recordStoreError(span, err)
		return backendError("rebuild", err)
	}
	return nil
}

// ShortestPaths answers the all-pairs minimum-hop query for the given tables.
// A timeout surfaces as ErrQueryTimeout; other backend failures as
// ErrBackendUnavailable.
func (s *Store) ShortestPaths(ctx context.Context, tables []string, maxHops int) (map[Pair]Path, error) {
	ctx, span := storeSpan(ctx, "graph.shortest_paths",
		attribute.Int("graph.query_tables", len(tables)),
		attribute.Int("graph.max_hops", maxHops),
	)
	defer span.End()

	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()
	paths, err := s.backend.ShortestPaths(ctx, tables, maxHops)
	if err != nil {
		recordStoreError(span, err)
		return nil, s.classify("shortest_paths", err)
	}
	return paths, nil
}

// NeighborsWithin expands the seed set to nearby tables.
func (s *Store) NeighborsWithin(ctx context.Context, tables []string, opts NeighborOptions) ([]string, error) {
	ctx, span := storeSpan(ctx, "graph.neighbors_within",
		attribute.Int("graph.seed_tables", len(tables)),
		attribute.Int("graph.max_hops", opts.MaxHops),
	)
	defer span.End()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()
	neighbors, err := s.backend.NeighborsWithin(ctx, tables, opts.withDefaults())
	if err != nil {
		recordStoreError(span, err)
		return nil, s.classify("neighbors_within", err)
	}
	return neighbors, nil
}

// Close releases the backend.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close(ctx)
}

func (s *Store) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

func (s *Store) classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrQueryTimeout
	}
	return backendError(op, err)
}

func storeSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("llm-sql-maker/graph")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordStoreError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
