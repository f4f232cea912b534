package handlers

import (
	"net/http"

	"ecopoints/models"

	"github.com/gin-gonic/gin"
)

// GetBalance handles GET /api/v1/me/balance
func (h *Handlers) GetBalance(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	balance, err := h.svc.GetUserBalance(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "get balance")
		return
	}
	total, err := h.svc.TotalRewardPoints(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "get reward points")
		return
	}
	c.JSON(http.StatusOK, models.BalanceResponse{Balance: balance, TotalPoints: total})
}

// ListTransactions handles GET /api/v1/me/transactions
func (h *Handlers) ListTransactions(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	txs, err := h.svc.ListTransactions(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, txs)
}

// ListRewards handles GET /api/v1/me/rewards
func (h *Handlers) ListRewards(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	rewards, err := h.svc.ListAvailableRewards(c.Request.Context(), s.UserID)
	if err != nil {
		respondError(c, err, "list rewards")
		return
	}
	c.JSON(http.StatusOK, rewards)
}

// RedeemReward handles POST /api/v1/me/rewards/:id/redeem. Id 0 redeems the
// whole balance.
func (h *Handlers) RedeemReward(c *gin.Context) {
	s, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	out, err := h.svc.RedeemReward(c.Request.Context(), s.UserID, id)
	if err != nil {
		respondError(c, err, "redeem reward")
		return
	}
	c.JSON(http.StatusOK, out)
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *Handlers) Leaderboard(c *gin.Context) {
	entries, err := h.svc.Leaderboard(c.Request.Context())
	if err != nil {
		respondError(c, err, "build leaderboard")
		return
	}
	c.JSON(http.StatusOK, entries)
}
