package limits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wordgarden/gateway/internal/kv"
)

const (
	systemKey      = "config:system_limits"
	overridePrefix = "limits:"
)

// Resolver computes effective caps by overlaying per-user overrides on the
// system limits. Until an admin stores system limits the configured
// built-in defaults apply.
type Resolver struct {
	store    kv.Store
	defaults Limits
}

func NewResolver(store kv.Store, defaults Limits) *Resolver {
	return &Resolver{store: store, defaults: defaults}
}

func overrideKey(subjectID string) string {
	return overridePrefix + subjectID
}

// Resolve never fails: unreadable records are logged and treated as absent.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) Limits {
	system := r.SystemLimits(ctx)

	override, err := r.Override(ctx, subjectID)
	if err != nil {
		slog.Warn("limits: reading override, using system limits", "subject", subjectID, "error", err)
		return system
	}
	if override == nil {
		return system
	}
	return override.Apply(system)
}

// SystemLimits returns the stored system limits or the built-in defaults.
func (r *Resolver) SystemLimits(ctx context.Context) Limits {
	stored, err := kv.GetJSON[Limits](ctx, r.store, systemKey)
	if errors.Is(err, kv.ErrNotFound) {
		return r.defaults
	}
	if err != nil {
		slog.Warn("limits: reading system limits, using defaults", "error", err)
		return r.defaults
	}
	return *stored
}

func (r *Resolver) SetSystemLimits(ctx context.Context, l Limits) error {
	if err := kv.PutJSON(ctx, r.store, systemKey, l, 0); err != nil {
		return fmt.Errorf("storing system limits: %w", err)
	}
	return nil
}

// Override returns nil, nil when the subject has no override.
func (r *Resolver) Override(ctx context.Context, subjectID string) (*Override, error) {
	o, err := kv.GetJSON[Override](ctx, r.store, overrideKey(subjectID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading override for %s: %w", subjectID, err)
	}
	return o, nil
}

// SetOverride replaces the subject's override. An empty override removes it.
func (r *Resolver) SetOverride(ctx context.Context, subjectID string, o Override) error {
	if o.Empty() {
		return r.DeleteOverride(ctx, subjectID)
	}
	if err := kv.PutJSON(ctx, r.store, overrideKey(subjectID), o, 0); err != nil {
		return fmt.Errorf("storing override for %s: %w", subjectID, err)
	}
	return nil
}

func (r *Resolver) DeleteOverride(ctx context.Context, subjectID string) error {
	if err := r.store.Delete(ctx, overrideKey(subjectID)); err != nil {
		return fmt.Errorf("deleting override for %s: %w", subjectID, err)
	}
	return nil
}

// MoveOverride re-keys an override from one subject to another. It matches
// users.ClaimFunc.
func (r *Resolver) MoveOverride(ctx context.Context, fromID, toID string) error {
	o, err := r.Override(ctx, fromID)
	if err != nil || o == nil {
		return err
	}
	if err := r.SetOverride(ctx, toID, *o); err != nil {
		return err
	}
	return r.DeleteOverride(ctx, fromID)
}
