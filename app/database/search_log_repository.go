package database

import (
	"encoding/json"
	"fmt"
)

// SearchLogRepositoryImpl handles database operations for search telemetry
type SearchLogRepositoryImpl struct {
	db *DB
}

var _ SearchLogRepository = (*SearchLogRepositoryImpl)(nil)

// NewSearchLogRepository creates a new search log repository
func NewSearchLogRepository(db *DB) *SearchLogRepositoryImpl {
	return &SearchLogRepositoryImpl{db: db}
}

// InsertSearchLog records one search request for later trend analysis
func (r *SearchLogRepositoryImpl) InsertSearchLog(log SearchLog) error {
	filters, err := json.Marshal(log.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode search filters: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO search_logs (user_id, query, filters, result_count, top_score)
		VALUES ($1, $2, $3, $4, $5)
	`, log.UserID, log.Query, filters, log.ResultCount, log.TopScore)

	if err != nil {
		return fmt.Errorf("failed to insert search log: %w", err)
	}

	return nil
}

// GetRecentQueries returns the user's most recent distinct search queries
func (r *SearchLogRepositoryImpl) GetRecentQueries(userID string, limit int) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT query
		FROM (
			SELECT DISTINCT ON (query) query, created_at
			FROM search_logs
			WHERE user_id = $1
			ORDER BY query, created_at DESC
		) q
		ORDER BY q.created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			return nil, fmt.Errorf("failed to scan query row: %w", err)
		}
		queries = append(queries, query)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query rows: %w", err)
	}

	return queries, nil
}
