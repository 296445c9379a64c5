package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wordgarden/gateway/internal/kv"
)

const keyPrefix = "user:"

type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	Put(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]User, error)
}

type kvRepository struct {
	store kv.Store
}

func NewRepository(store kv.Store) Repository {
	return &kvRepository{store: store}
}

func userKey(id string) string {
	return keyPrefix + id
}

// Get returns nil, nil when the user does not exist.
func (r *kvRepository) Get(ctx context.Context, id string) (*User, error) {
	user, err := kv.GetJSON[User](ctx, r.store, userKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", id, err)
	}
	return user, nil
}

func (r *kvRepository) Put(ctx context.Context, user *User) error {
	if err := kv.PutJSON(ctx, r.store, userKey(user.ID), user, 0); err != nil {
		return fmt.Errorf("storing user %s: %w", user.ID, err)
	}
	return nil
}

func (r *kvRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, userKey(id)); err != nil {
		return fmt.Errorf("deleting user %s: %w", id, err)
	}
	return nil
}

// List loads every user record. Keys that vanish between the scan and the
// read are skipped, as are records that no longer decode.
func (r *kvRepository) List(ctx context.Context) ([]User, error) {
	keys, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	out := make([]User, 0, len(keys))
	for _, key := range keys {
		user, err := kv.GetJSON[User](ctx, r.store, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("skipping unreadable user record", "key", key, "error", err)
			continue
		}
		if user.ID == "" {
			user.ID = strings.TrimPrefix(key, keyPrefix)
		}
		out = append(out, *user)
	}
	return out, nil
}
