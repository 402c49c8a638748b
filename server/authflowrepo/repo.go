package authflowrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/takemethere/internal/cache"
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// AuthFlowState is what a third-party sign-in must remember between the
// authorize redirect and the callback.
type AuthFlowState struct {
	Provider     string    `json:"provider"`
	CodeVerifier string    `json:"code_verifier"`
	Next         string    `json:"next"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repo interface {
	Upsert(ctx context.Context, state string, authState *AuthFlowState) error
	// Take returns the state and forgets it, so a callback can only be honoured once.
	Take(ctx context.Context, state string) (*AuthFlowState, error)
}

const keyPrefix = "authflow:"

// CacheRepo keeps flow state in the shared cache so any instance can finish the flow.
type CacheRepo struct {
	cache cache.Cache
	ttl   time.Duration
}

var _ Repo = (*CacheRepo)(nil)

func NewCacheRepo(c cache.Cache, ttl time.Duration) *CacheRepo {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CacheRepo{cache: c, ttl: ttl}
}

func (r *CacheRepo) Upsert(ctx context.Context, state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}
	b, err := json.Marshal(authState)
	if err != nil {
		return fmt.Errorf("[authflowrepo Upsert] failed to encode state: %w", err)
	}
	if err := r.cache.Set(ctx, keyPrefix+state, b, r.ttl); err != nil {
		return fmt.Errorf("[authflowrepo Upsert] failed to store state: %w", err)
	}
	return nil
}

func (r *CacheRepo) Take(ctx context.Context, state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errs.ErrFlowStateNotFound
	}
	b, err := r.cache.Take(ctx, keyPrefix+state)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, errs.ErrFlowStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[authflowrepo Take] failed to read state: %w", err)
	}
	var s AuthFlowState
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("[authflowrepo Take] failed to decode state: %w", err)
	}
	return &s, nil
}
