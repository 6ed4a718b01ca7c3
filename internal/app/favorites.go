package app

import (
	"context"

	"study-vault/internal/domain"
)

// FavoritesService keeps a user's liked set and the resource like counters in step. Membership
// and counter change in the same transaction; the counter moves through AdjustLikes so
// concurrent toggles never lose an update. Only public resources can be liked; removing a like
// is always allowed so a resource that went private can still be dropped from the set.
type FavoritesService struct {
	store Store
}

func NewFavoritesService(store Store) *FavoritesService {
	return &FavoritesService{store: store}
}

// Toggle likes the resource if the user has not, otherwise unlikes it.
func (s *FavoritesService) Toggle(ctx context.Context, userID, resourceID string) (domain.LikeResult, error) {
	return s.apply(ctx, userID, resourceID, func(ctx context.Context, tx Tx, res domain.Resource) (domain.LikeOutcome, int, error) {
		removed, err := tx.RemoveLike(ctx, userID, resourceID)
		if err != nil {
			return "", 0, err
		}
		if removed {
			return decrement(ctx, tx, resourceID)
		}
		return increment(ctx, tx, userID, res)
	})
}

// Add puts the resource in the liked set. Adding an already liked resource changes nothing.
func (s *FavoritesService) Add(ctx context.Context, userID, resourceID string) (domain.LikeResult, error) {
	return s.apply(ctx, userID, resourceID, func(ctx context.Context, tx Tx, res domain.Resource) (domain.LikeOutcome, int, error) {
		return increment(ctx, tx, userID, res)
	})
}

// Remove takes the resource out of the liked set. Removing an absent resource changes nothing.
func (s *FavoritesService) Remove(ctx context.Context, userID, resourceID string) (domain.LikeResult, error) {
	return s.apply(ctx, userID, resourceID, func(ctx context.Context, tx Tx, res domain.Resource) (domain.LikeOutcome, int, error) {
		removed, err := tx.RemoveLike(ctx, userID, resourceID)
		if err != nil {
			return "", 0, err
		}
		if !removed {
			return domain.Unliked, res.Likes, nil
		}
		return decrement(ctx, tx, resourceID)
	})
}

type likeStep func(ctx context.Context, tx Tx, res domain.Resource) (domain.LikeOutcome, int, error)

func (s *FavoritesService) apply(ctx context.Context, userID, resourceID string, step likeStep) (domain.LikeResult, error) {
	var result domain.LikeResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		res, err := tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		outcome, likes, err := step(ctx, tx, res)
		if err != nil {
			return err
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		result = domain.LikeResult{Outcome: outcome, User: user, Likes: likes}
		return nil
	})
	return result, err
}

func increment(ctx context.Context, tx Tx, userID string, res domain.Resource) (domain.LikeOutcome, int, error) {
	if err := requirePublic(res, userID); err != nil {
		return "", 0, err
	}
	added, err := tx.AddLike(ctx, userID, res.ID)
	if err != nil {
		return "", 0, err
	}
	if !added {
		return domain.Liked, res.Likes, nil
	}
	likes, err := tx.AdjustLikes(ctx, res.ID, 1)
	return domain.Liked, likes, err
}

func decrement(ctx context.Context, tx Tx, resourceID string) (domain.LikeOutcome, int, error) {
	likes, err := tx.AdjustLikes(ctx, resourceID, -1)
	return domain.Unliked, likes, err
}
