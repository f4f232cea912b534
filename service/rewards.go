package service

import (
	"context"
	"errors"
	"fmt"

	"ecopoints/database"
	"ecopoints/metrics"
	"ecopoints/models"
	"ecopoints/points"
	"ecopoints/rabbitmq"

	"github.com/apex/log"
)

// RedeemAllID selects the redemption of the whole balance in RedeemReward.
const RedeemAllID = 0

const recentTransactions = 10

// Redemption is the result of RedeemReward.
type Redemption struct {
	RewardID int64          `json:"rewardId"`
	Points   float64        `json:"points"`
	Reward   *models.Reward `json:"reward"`
}

type rewardRedeemedEvent struct {
	UserID   int64   `json:"userId"`
	RewardID int64   `json:"rewardId"`
	Points   float64 `json:"points"`
}

// GetUserBalance folds the user's whole ledger into the spendable balance.
func (s *Service) GetUserBalance(ctx context.Context, userID int64) (float64, error) {
	txs, err := s.db.ListTransactions(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	return points.Balance(txs), nil
}

// TotalRewardPoints sums the points over all the user's reward rows.
func (s *Service) TotalRewardPoints(ctx context.Context, userID int64) (float64, error) {
	rewards, err := s.db.ListUserRewards(ctx, userID)
	if err != nil {
		return 0, err
	}
	return points.TotalPoints(rewards), nil
}

// GetOrCreateReward returns the user's default reward row, creating it with
// zero points when missing.
func (s *Service) GetOrCreateReward(ctx context.Context, userID int64) (*models.Reward, error) {
	r, err := s.db.GetUserReward(ctx, userID, models.DefaultRewardName)
	if err != nil || r != nil {
		return r, err
	}
	if err := s.db.AddRewardPoints(ctx, userID, models.DefaultRewardName, models.DefaultRewardCollectionInfo, 0); err != nil {
		return nil, err
	}
	return s.db.GetUserReward(ctx, userID, models.DefaultRewardName)
}

// RedeemReward spends points from the user's default reward row. With
// RedeemAllID the whole ledger balance is redeemed and the row is emptied;
// any other id names an available catalog reward whose points are its cost.
func (s *Service) RedeemReward(ctx context.Context, userID, rewardID int64) (*Redemption, error) {
	var out Redemption
	err := s.db.InTx(ctx, func(q *database.Queries) error {
		if err := q.AddRewardPoints(ctx, userID, models.DefaultRewardName, models.DefaultRewardCollectionInfo, 0); err != nil {
			return err
		}
		row, err := q.LockUserReward(ctx, userID, models.DefaultRewardName)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("default reward of user %d missing", userID)
		}

		var description string
		if rewardID == RedeemAllID {
			txs, err := q.ListTransactions(ctx, userID, 0)
			if err != nil {
				return err
			}
			balance := points.Balance(txs)
			if balance <= 0 {
				return fmt.Errorf("%w: balance is 0", ErrInsufficientPoints)
			}
			if err := q.SetRewardPoints(ctx, row.ID, 0); err != nil {
				return err
			}
			out.Points = balance
			description = "Redeemed all points: " + formatPoints(balance)
		} else {
			catalog, err := q.GetReward(ctx, rewardID)
			if err != nil {
				return err
			}
			if catalog == nil || !catalog.IsAvailable {
				return fmt.Errorf("%w: %d", ErrInvalidReward, rewardID)
			}
			ok, err := q.DeductRewardPoints(ctx, row.ID, catalog.Points)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s costs %s, %s available", ErrInsufficientPoints,
					catalog.Name, formatPoints(catalog.Points), formatPoints(row.Points))
			}
			out.Points = catalog.Points
			description = "Redeemed: " + catalog.Name
		}

		if _, err := q.InsertTransaction(ctx, userID, models.TxRedeemed, out.Points, description); err != nil {
			return err
		}
		out.RewardID = rewardID
		out.Reward, err = q.GetUserReward(ctx, userID, models.DefaultRewardName)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientPoints):
		metrics.RedemptionsTotal.WithLabelValues("insufficient").Inc()
		return nil, err
	case errors.Is(err, ErrInvalidReward):
		metrics.RedemptionsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	default:
		metrics.RedemptionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to redeem reward %d: %w", rewardID, err)
	}

	metrics.RedemptionsTotal.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{"user_id": userID, "reward_id": rewardID, "points": out.Points}).Info("Reward redeemed")
	s.publish(ctx, rabbitmq.RoutingKeyRewardRedeemed, rewardRedeemedEvent{UserID: userID, RewardID: rewardID, Points: out.Points})
	return &out, nil
}

// Leaderboard ranks users by the points summed over their reward rows.
func (s *Service) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.ListRewardsWithUsers(ctx)
	if err != nil {
		return nil, err
	}
	return points.Leaderboard(rows), nil
}

// ListTransactions returns the user's latest ledger entries.
func (s *Service) ListTransactions(ctx context.Context, userID int64) ([]models.TransactionView, error) {
	txs, err := s.db.ListTransactions(ctx, userID, recentTransactions)
	if err != nil {
		return nil, err
	}
	views := make([]models.TransactionView, 0, len(txs))
	for i := range txs {
		views = append(views, txs[i].View())
	}
	return views, nil
}

// ListAvailableRewards lists what the user can redeem: the whole balance
// first, then the catalog.
func (s *Service) ListAvailableRewards(ctx context.Context, userID int64) ([]models.AvailableReward, error) {
	balance, err := s.GetUserBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.db.ListAvailableRewards(ctx)
	if err != nil {
		return nil, err
	}

	description := "Use the points you have earned"
	out := []models.AvailableReward{{
		ID:             RedeemAllID,
		Name:           "Your Points",
		Cost:           balance,
		Description:    &description,
		CollectionInfo: "Points earned from reporting and collecting waste",
	}}
	seen := map[int64]bool{RedeemAllID: true}
	for _, r := range catalog {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, models.AvailableReward{
			ID:             r.ID,
			Name:           r.Name,
			Cost:           r.Points,
			Description:    r.Description,
			CollectionInfo: r.CollectionInfo,
		})
	}
	return out, nil
}
