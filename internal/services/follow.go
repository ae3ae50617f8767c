package services

import (
	"context"
	"fmt"

	"picturegram-sync/internal/errs"
	"picturegram-sync/internal/metrics"
	"picturegram-sync/internal/models"

	"github.com/rs/zerolog/log"
)

// FollowResult reports the relation from the principal to the target
type FollowResult struct {
	TargetID  string `json:"target_id"`
	Following bool   `json:"following"`
}

// FollowService maintains the follow graph. Each edge lives in two user
// records, updated one after the other.
type FollowService struct {
	users           UserStore
	identity        Identity
	notifier        Notifier
	allowSelfFollow bool
}

// NewFollowService creates a new follow service
func NewFollowService(users UserStore, identity Identity, notifier Notifier, allowSelfFollow bool) *FollowService {
	return &FollowService{
		users:           users,
		identity:        identity,
		notifier:        notifier,
		allowSelfFollow: allowSelfFollow,
	}
}

// Follow adds targetID to the principal's following set, then the principal
// to the target's followers set. A failure of the second write leaves the
// first in place and is reported as a remote error.
func (s *FollowService) Follow(ctx context.Context, targetID string) (*FollowResult, error) {
	self, target, err := s.prepare(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.users.AddFollowing(ctx, self.ID, target.ID); err != nil {
		metrics.FollowOps.WithLabelValues("follow", "error").Inc()
		return nil, errs.Remote(fmt.Errorf("failed to update following: %w", err))
	}
	if err := s.users.AddFollower(ctx, target.ID, self.ID); err != nil {
		metrics.FollowOps.WithLabelValues("follow", "partial").Inc()
		log.Error().
			Err(err).
			Str("user_id", self.ID).
			Str("target_id", target.ID).
			Msg("Follow recorded on follower side only")
		return nil, errs.Remote(fmt.Errorf("failed to update followers: %w", err))
	}
	metrics.FollowOps.WithLabelValues("follow", "ok").Inc()

	if self.ID != target.ID {
		s.notifier.Notify(ctx, models.KindFollow, self.DisplayName, target.Name)
	}

	return &FollowResult{TargetID: target.ID, Following: true}, nil
}

// Unfollow removes the edge in the same order as Follow. It never notifies.
func (s *FollowService) Unfollow(ctx context.Context, targetID string) (*FollowResult, error) {
	self, target, err := s.prepare(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.users.RemoveFollowing(ctx, self.ID, target.ID); err != nil {
		metrics.FollowOps.WithLabelValues("unfollow", "error").Inc()
		return nil, errs.Remote(fmt.Errorf("failed to update following: %w", err))
	}
	if err := s.users.RemoveFollower(ctx, target.ID, self.ID); err != nil {
		metrics.FollowOps.WithLabelValues("unfollow", "partial").Inc()
		log.Error().
			Err(err).
			Str("user_id", self.ID).
			Str("target_id", target.ID).
			Msg("Unfollow recorded on follower side only")
		return nil, errs.Remote(fmt.Errorf("failed to update followers: %w", err))
	}
	metrics.FollowOps.WithLabelValues("unfollow", "ok").Inc()

	return &FollowResult{TargetID: target.ID, Following: false}, nil
}

// IsFollowing reads only the principal's following set.
func (s *FollowService) IsFollowing(ctx context.Context, targetID string) (*FollowResult, error) {
	self, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return nil, errs.ErrUnauthenticated
	}
	if targetID == "" {
		return nil, errs.Validation("target id is required")
	}
	following, err := s.users.IsFollowing(ctx, self.ID, targetID)
	if err != nil {
		return nil, errs.Remote(err)
	}
	return &FollowResult{TargetID: targetID, Following: following}, nil
}

func (s *FollowService) prepare(ctx context.Context, targetID string) (models.Principal, *models.User, error) {
	self, ok := s.identity.CurrentPrincipal(ctx)
	if !ok {
		return models.Principal{}, nil, errs.ErrUnauthenticated
	}
	if targetID == "" {
		return models.Principal{}, nil, errs.Validation("target id is required")
	}
	if !s.allowSelfFollow && targetID == self.ID {
		return models.Principal{}, nil, errs.Validation("following yourself is disabled")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return models.Principal{}, nil, errs.Remote(err)
	}
	return self, target, nil
}
