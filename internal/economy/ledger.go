package economy

import (
	"database/sql"
	"fmt"
	"time"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. Ledger
// adjustments take it as a parameter so a balance mutation can run inside the
// same transaction as the state transition that authorized it.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Ledger owns balance mutation for user coins and family points. It applies
// exactly the delta it is given; duplicate prevention is the workflows'
// responsibility via their state-machine guards.
type Ledger struct{}

// AdjustCoins applies delta to a user's coin balance and returns the new
// balance. The guarded UPDATE refuses any delta that would take the balance
// negative, so the coins column can never go below zero.
func (Ledger) AdjustCoins(q DBTX, userID int64, delta int) (int, error) {
	res, err := q.Exec(
		`UPDATE users SET coins = coins + ?, updated_at = ? WHERE id = ? AND coins + ? >= 0`,
		delta, time.Now().UTC(), userID, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("adjust coins: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust coins rows: %w", err)
	}
	if n == 0 {
		var exists int
		if err := q.QueryRow(`SELECT COUNT(*) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check user: %w", err)
		}
		if exists == 0 {
			return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return 0, fmt.Errorf("user %d coins: %w", userID, ErrInsufficientFunds)
	}

	var balance int
	if err := q.QueryRow(`SELECT coins FROM users WHERE id = ?`, userID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read coin balance: %w", err)
	}
	return balance, nil
}

// AdjustPoints is the family-pool counterpart of AdjustCoins.
func (Ledger) AdjustPoints(q DBTX, familyID int64, delta int) (int, error) {
	res, err := q.Exec(
		`UPDATE families SET points = points + ?, updated_at = ? WHERE id = ? AND points + ? >= 0`,
		delta, time.Now().UTC(), familyID, delta,
	)
	if err != nil {
		return 0, fmt.Errorf("adjust points: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("adjust points rows: %w", err)
	}
	if n == 0 {
		var exists int
		if err := q.QueryRow(`SELECT COUNT(*) FROM families WHERE id = ?`, familyID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check family: %w", err)
		}
		if exists == 0 {
			return 0, fmt.Errorf("family %d: %w", familyID, ErrNotFound)
		}
		return 0, fmt.Errorf("family %d points: %w", familyID, ErrInsufficientFunds)
	}

	var balance int
	if err := q.QueryRow(`SELECT points FROM families WHERE id = ?`, familyID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("read point balance: %w", err)
	}
	return balance, nil
}
