package spellauth

import (
	"context"
	"fmt"
)

// Follow records that follower follows followed. Following twice is a no-op.
func (e *Engine) Follow(ctx context.Context, follower, followed *User) error {
	if err := e.checkFollowPair(follower, followed); err != nil {
		return err
	}
	if err := e.follows.Follow(ctx, follower.ID, followed.ID); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	e.metricInc(MetricFollow)
	return nil
}

// Unfollow removes the edge if present.
func (e *Engine) Unfollow(ctx context.Context, follower, followed *User) error {
	if err := e.checkFollowPair(follower, followed); err != nil {
		return err
	}
	if err := e.follows.Unfollow(ctx, follower.ID, followed.ID); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	e.metricInc(MetricUnfollow)
	return nil
}

func (e *Engine) IsFollowing(ctx context.Context, follower, followed *User) (bool, error) {
	if follower == nil || followed == nil {
		return false, ErrInvalidUser
	}
	if e == nil || e.follows == nil {
		return false, ErrFollowBackendMissing
	}
	return e.follows.IsFollowing(ctx, follower.ID, followed.ID)
}

// IsFollowedBy reports whether other follows u.
func (e *Engine) IsFollowedBy(ctx context.Context, u, other *User) (bool, error) {
	return e.IsFollowing(ctx, other, u)
}

// Followers returns the IDs of users following u.
func (e *Engine) Followers(ctx context.Context, u *User) ([]string, error) {
	if u == nil {
		return nil, ErrInvalidUser
	}
	if e == nil || e.follows == nil {
		return nil, ErrFollowBackendMissing
	}
	return e.follows.Followers(ctx, u.ID)
}

// Following returns the IDs of users u follows.
func (e *Engine) Following(ctx context.Context, u *User) ([]string, error) {
	if u == nil {
		return nil, ErrInvalidUser
	}
	if e == nil || e.follows == nil {
		return nil, ErrFollowBackendMissing
	}
	return e.follows.Following(ctx, u.ID)
}

func (e *Engine) checkFollowPair(follower, followed *User) error {
	if follower == nil || followed == nil || follower.ID == "" || followed.ID == "" {
		return ErrInvalidUser
	}
	if e == nil || e.follows == nil {
		return ErrFollowBackendMissing
	}
	if follower.ID == followed.ID {
		return ErrSelfFollow
	}
	return nil
}
