package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aman-zulfiqar/constant-product-amm/internal/constants"
	"github.com/redis/go-redis/v9"
)

// Store keeps per-operation pause flags for one pool in Redis.
type Store struct {
	client redis.Cmdable
	pool   string
}

func NewStore(client redis.Cmdable, pool string) (*Store, error) {
	if client == nil {
		return nil, ErrNilStorage
	}
	if pool == "" {
		pool = constants.DefaultPoolID
	}
	return &Store{client: client, pool: pool}, nil
}

func ValidateOp(op string) error {
	if !slices.Contains(Operations, op) {
		return fmt.Errorf("%w %q", ErrUnknownOp, op)
	}
	return nil
}

// Set pauses or resumes op.
func (s *Store) Set(ctx context.Context, op string, paused bool, reason string) (*Flag, error) {
	if err := ValidateOp(op); err != nil {
		return nil, err
	}

	flag := &Flag{Op: op, Paused: paused, Reason: reason, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(flag)
	if err != nil {
		return nil, fmt.Errorf("marshal flag: %w", err)
	}
	if err := s.client.Set(ctx, constants.FlagKey(s.pool, op), b, 0).Err(); err != nil {
		return nil, fmt.Errorf("set flag: %w", err)
	}
	return flag, nil
}

func (s *Store) Get(ctx context.Context, op string) (*Flag, error) {
	if err := ValidateOp(op); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, constants.FlagKey(s.pool, op)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get flag: %w", err)
	}

	var f Flag
	if err := json.Unmarshal([]byte(val), &f); err != nil {
		return nil, fmt.Errorf("unmarshal flag: %w", err)
	}
	return &f, nil
}

// List returns one entry per operation; operations never flagged are
// reported as running with a zero UpdatedAt.
func (s *Store) List(ctx context.Context) ([]*Flag, error) {
	keys := make([]string, len(Operations))
	for i, op := range Operations {
		keys[i] = constants.FlagKey(s.pool, op)
	}

	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget flags: %w", err)
	}

	out := make([]*Flag, 0, len(Operations))
	for i, v := range vals {
		f := &Flag{Op: Operations[i]}
		if raw, ok := v.(string); ok {
			if err := json.Unmarshal([]byte(raw), f); err != nil {
				return nil, fmt.Errorf("unmarshal flag %s: %w", Operations[i], err)
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// Clear removes the flag, resuming op.
func (s *Store) Clear(ctx context.Context, op string) error {
	if err := ValidateOp(op); err != nil {
		return err
	}
	if err := s.client.Del(ctx, constants.FlagKey(s.pool, op)).Err(); err != nil {
		return fmt.Errorf("clear flag: %w", err)
	}
	return nil
}

// Paused reports whether op is currently paused. A missing flag means running.
func (s *Store) Paused(ctx context.Context, op string) (bool, error) {
	f, err := s.Get(ctx, op)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return f.Paused, nil
}
