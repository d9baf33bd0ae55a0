package database

import (
	"fmt"
)

// PatternRepositoryImpl handles database operations for content patterns
type PatternRepositoryImpl struct {
	db *DB
}

var _ PatternRepository = (*PatternRepositoryImpl)(nil)

// NewPatternRepository creates a new pattern repository
func NewPatternRepository(db *DB) *PatternRepositoryImpl {
	return &PatternRepositoryImpl{db: db}
}

// RecalculatePriorities rebuilds pattern priorities for a user/platform from
// the current insight snapshots. Priority is the mean engagement rate across
// posts sharing the pattern value.
func (r *PatternRepositoryImpl) RecalculatePriorities(userID, platform string) error {
	_, err := r.db.Exec(`
		INSERT INTO content_patterns (user_id, platform, pattern_type, pattern_value, priority, sample_count, updated_at)
		SELECT user_id, platform, 'day_part', day_part, AVG(engagement_rate), COUNT(*), NOW()
		FROM ai_insights
		WHERE user_id = $1 AND platform = $2 AND day_part <> ''
		GROUP BY user_id, platform, day_part
		ON CONFLICT (user_id, platform, pattern_type, pattern_value) DO UPDATE SET
			priority = EXCLUDED.priority,
			sample_count = EXCLUDED.sample_count,
			updated_at = NOW()
	`, userID, platform)
	if err != nil {
		return fmt.Errorf("failed to recalculate day part patterns: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO content_patterns (user_id, platform, pattern_type, pattern_value, priority, sample_count, updated_at)
		SELECT user_id, platform, 'content_trait', trait, AVG(engagement_rate), COUNT(*), NOW()
		FROM (
			SELECT user_id, platform, engagement_rate,
			       CASE WHEN has_cta THEN 'cta' ELSE 'no_cta' END AS trait
			FROM ai_insights
			WHERE user_id = $1 AND platform = $2
			UNION ALL
			SELECT user_id, platform, engagement_rate,
			       CASE WHEN has_question THEN 'question' ELSE 'no_question' END AS trait
			FROM ai_insights
			WHERE user_id = $1 AND platform = $2
		) traits
		GROUP BY user_id, platform, trait
		ON CONFLICT (user_id, platform, pattern_type, pattern_value) DO UPDATE SET
			priority = EXCLUDED.priority,
			sample_count = EXCLUDED.sample_count,
			updated_at = NOW()
	`, userID, platform)
	if err != nil {
		return fmt.Errorf("failed to recalculate content trait patterns: %w", err)
	}

	return nil
}

// GetActivePatterns returns the user's highest priority patterns
func (r *PatternRepositoryImpl) GetActivePatterns(userID string, limit int) ([]Pattern, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, platform, pattern_type, pattern_value, priority, sample_count, updated_at
		FROM content_patterns
		WHERE user_id = $1
		ORDER BY priority DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get active patterns: %w", err)
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		err := rows.Scan(&p.ID, &p.UserID, &p.Platform, &p.PatternType, &p.PatternValue,
			&p.Priority, &p.SampleCount, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern row: %w", err)
		}
		patterns = append(patterns, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pattern rows: %w", err)
	}

	return patterns, nil
}
