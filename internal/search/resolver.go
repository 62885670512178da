package search

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"studyassist/internal/logging"
)

type Transport interface {
	Do(ctx context.Context, r Request) (int, []byte, error)
}

type Resolver struct {
	transport Transport
	log       *zap.Logger
}

func NewResolver(t Transport, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{transport: t, log: log}
}

// Handle is the Lambda entrypoint.
func (r *Resolver) Handle(ctx context.Context, ev Event) ([]json.RawMessage, error) {
	return r.Resolve(ctx, ev.Arguments)
}

func (r *Resolver) Resolve(ctx context.Context, q Query) ([]json.RawMessage, error) {
	log := logging.ForInvocation(ctx, r.log)

	status, body, err := r.transport.Do(ctx, BuildRequest(q.Title))
	if err != nil {
		log.Error("search request failed", zap.Error(err))
		return nil, err
	}

	docs, err := ParseResponse(status, body)
	if err != nil {
		log.Error("search response rejected", zap.Int("status", status), zap.Error(err))
		return nil, err
	}
	log.Debug("search resolved", zap.Int("hits", len(docs)))
	return docs, nil
}
