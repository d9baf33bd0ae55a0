package database

import (
	"database/sql"
	"fmt"
)

// SyncStatusRepositoryImpl handles database operations for sync schedules
type SyncStatusRepositoryImpl struct {
	db *DB
}

var _ SyncStatusRepository = (*SyncStatusRepositoryImpl)(nil)

// NewSyncStatusRepository creates a new sync status repository
func NewSyncStatusRepository(db *DB) *SyncStatusRepositoryImpl {
	return &SyncStatusRepositoryImpl{db: db}
}

const syncStatusColumns = `id, user_id, platform, last_synced_at, last_success_at, next_sync_at,
	       enabled, failed_syncs, COALESCE(last_error, ''), created_at, updated_at`

// GetSyncStatus retrieves the sync schedule for a user/platform pair.
// Returns nil when the pair has never been synced.
func (r *SyncStatusRepositoryImpl) GetSyncStatus(userID, platform string) (*SyncStatus, error) {
	var status SyncStatus
	err := r.db.QueryRow(`
		SELECT `+syncStatusColumns+`
		FROM platform_sync_status
		WHERE user_id = $1 AND platform = $2
	`, userID, platform).Scan(
		&status.ID, &status.UserID, &status.Platform, &status.LastSyncedAt,
		&status.LastSuccessAt, &status.NextSyncAt, &status.Enabled,
		&status.FailedSyncs, &status.LastError, &status.CreatedAt, &status.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	return &status, nil
}

// RecordSyncAttempt upserts the schedule row after a sync attempt. The
// failed_syncs counter is incremented inside the statement so concurrent
// syncs cannot lose an update.
func (r *SyncStatusRepositoryImpl) RecordSyncAttempt(userID, platform string, attempt SyncAttempt) error {
	var query string
	if attempt.Succeeded {
		query = `
		INSERT INTO platform_sync_status (user_id, platform, last_synced_at, last_success_at, next_sync_at, failed_syncs, last_error)
		VALUES ($1, $2, $3, $3, $4, 0, '')
		ON CONFLICT (user_id, platform) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			last_success_at = EXCLUDED.last_success_at,
			next_sync_at = EXCLUDED.next_sync_at,
			failed_syncs = 0,
			last_error = '',
			updated_at = NOW()`
	} else {
		query = `
		INSERT INTO platform_sync_status (user_id, platform, last_synced_at, next_sync_at, failed_syncs, last_error)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			next_sync_at = EXCLUDED.next_sync_at,
			failed_syncs = platform_sync_status.failed_syncs + 1,
			last_error = EXCLUDED.last_error,
			updated_at = NOW()`
	}

	var err error
	if attempt.Succeeded {
		_, err = r.db.Exec(query, userID, platform, attempt.AttemptedAt, attempt.NextSyncAt)
	} else {
		_, err = r.db.Exec(query, userID, platform, attempt.AttemptedAt, attempt.NextSyncAt, attempt.ErrorSummary)
	}

	if err != nil {
		return fmt.Errorf("failed to record sync attempt: %w", err)
	}

	return nil
}

// GetDueForSync returns enabled schedules whose next sync time has passed
func (r *SyncStatusRepositoryImpl) GetDueForSync(limit int) ([]SyncStatus, error) {
	rows, err := r.db.Query(`
		SELECT `+syncStatusColumns+`
		FROM platform_sync_status
		WHERE enabled = true
		  AND (next_sync_at IS NULL OR next_sync_at <= NOW())
		ORDER BY COALESCE(next_sync_at, '1970-01-01'::timestamptz)
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedules due for sync: %w", err)
	}
	defer rows.Close()

	return scanSyncStatuses(rows)
}

// ListSyncStatus returns all sync schedules for a user
func (r *SyncStatusRepositoryImpl) ListSyncStatus(userID string) ([]SyncStatus, error) {
	rows, err := r.db.Query(`
		SELECT `+syncStatusColumns+`
		FROM platform_sync_status
		WHERE user_id = $1
		ORDER BY platform
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync status: %w", err)
	}
	defer rows.Close()

	return scanSyncStatuses(rows)
}

func scanSyncStatuses(rows *sql.Rows) ([]SyncStatus, error) {
	var statuses []SyncStatus
	for rows.Next() {
		var status SyncStatus
		err := rows.Scan(
			&status.ID, &status.UserID, &status.Platform, &status.LastSyncedAt,
			&status.LastSuccessAt, &status.NextSyncAt, &status.Enabled,
			&status.FailedSyncs, &status.LastError, &status.CreatedAt, &status.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync status row: %w", err)
		}
		statuses = append(statuses, status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync status rows: %w", err)
	}

	return statuses, nil
}
