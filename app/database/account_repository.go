package database

import (
	"database/sql"
	"fmt"
)

// AccountRepositoryImpl handles database operations for connected accounts
type AccountRepositoryImpl struct {
	db *DB
}

var _ AccountRepository = (*AccountRepositoryImpl)(nil)

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{db: db}
}

// GetConnectedAccount retrieves the connected account for a user/platform
// pair. Returns nil when the platform is not connected.
func (r *AccountRepositoryImpl) GetConnectedAccount(userID, platform string) (*ConnectedAccount, error) {
	var account ConnectedAccount
	err := r.db.QueryRow(`
		SELECT id, user_id, platform, access_token, COALESCE(account_ref, ''), created_at, updated_at
		FROM connected_accounts
		WHERE user_id = $1 AND platform = $2
	`, userID, platform).Scan(
		&account.ID, &account.UserID, &account.Platform, &account.AccessToken,
		&account.AccountRef, &account.CreatedAt, &account.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connected account: %w", err)
	}

	return &account, nil
}
