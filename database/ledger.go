package database

import (
	"context"
	"fmt"

	"ecopoints/models"
)

// InsertTransaction appends an entry to the points ledger.
func (q *Queries) InsertTransaction(ctx context.Context, userID int64, txType string, amount float64, description string) (int64, error) {
	result, err := q.q.ExecContext(ctx,
		"INSERT INTO transactions (user_id, type, amount, description) VALUES (?, ?, ?, ?)",
		userID, txType, amount, description)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s transaction: %w", txType, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction id: %w", err)
	}
	return id, nil
}

// ListTransactions returns the user's ledger, newest first. A limit of zero
// or less returns the whole ledger.
func (q *Queries) ListTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	query := "SELECT id, user_id, type, amount, description, date FROM transactions WHERE user_id = ? ORDER BY date DESC, id DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of user %d: %w", userID, err)
	}
	defer rows.Close()

	txs := make([]models.Transaction, 0)
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Description, &tx.Date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions of user %d: %w", userID, err)
	}
	return txs, nil
}
