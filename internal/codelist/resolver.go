// Package codelist resolves SDMX dimension value lists from structural
// metadata when a data message does not embed them.
//
// Resolutions are memoized per flow for the life of the Resolver, and
// concurrent callers for the same unresolved flow share one in-flight
// resolution.
package codelist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"statbridge/internal/cube/sdmx"
)

// Source fetches structural metadata documents.
type Source interface {
	Dataflow(ctx context.Context, flowID string) ([]byte, error)
	Structure(ctx context.Context, ref Ref) ([]byte, error)
}

// Recorder receives resolution events. platform/metrics implements it.
type Recorder interface {
	CodelistResolved(flowID string, shared bool)
}

// Codes maps a dimension id to its codes in positional order.
type Codes = map[string][]sdmx.Code

type Resolver struct {
	source   Source
	logger   *slog.Logger
	recorder Recorder

	group singleflight.Group
	mu    sync.RWMutex
	memo  map[string]Codes
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

func NewResolver(source Source, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		logger: slog.New(slog.DiscardHandler),
		memo:   make(map[string]Codes),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the dimension codes for flowID. The returned map is
// shared; callers must not modify it.
//
// Coalesced callers share the first caller's context: if it is cancelled
// every waiter sees the cancellation and the flow stays unresolved.
func (r *Resolver) Resolve(ctx context.Context, flowID string) (Codes, error) {
	if codes, ok := r.cached(flowID); ok {
		return codes, nil
	}

	v, err, shared := r.group.Do(flowID, func() (any, error) {
		if codes, ok := r.cached(flowID); ok {
			return codes, nil
		}
		codes, err := r.resolve(ctx, flowID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.memo[flowID] = codes
		r.mu.Unlock()
		r.logger.InfoContext(ctx, "resolved dataflow structure", "flow", flowID, "dimensions", len(codes))
		return codes, nil
	})
	if err != nil {
		return nil, err
	}
	if r.recorder != nil {
		r.recorder.CodelistResolved(flowID, shared)
	}
	return v.(Codes), nil
}

// Forget drops a memoized resolution so the next call refetches it.
func (r *Resolver) Forget(flowID string) {
	r.mu.Lock()
	delete(r.memo, flowID)
	r.mu.Unlock()
}

func (r *Resolver) cached(flowID string) (Codes, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes, ok := r.memo[flowID]
	return codes, ok
}

func (r *Resolver) resolve(ctx context.Context, flowID string) (Codes, error) {
	flowDoc, err := r.source.Dataflow(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("fetch dataflow %s: %w", flowID, err)
	}
	ref, err := structureRef(flowID, flowDoc)
	if err != nil {
		return nil, err
	}
	structDoc, err := r.source.Structure(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("fetch structure %s: %w", ref, err)
	}
	return joinCodelists(flowID, structDoc)
}
