package database

import (
	"fmt"

	"github.com/lib/pq"
)

// InsightRepositoryImpl handles database operations for engagement insights
type InsightRepositoryImpl struct {
	db *DB
}

var _ InsightRepository = (*InsightRepositoryImpl)(nil)

// NewInsightRepository creates a new insight repository
func NewInsightRepository(db *DB) *InsightRepositoryImpl {
	return &InsightRepositoryImpl{db: db}
}

// UpsertInsight inserts or replaces the engagement snapshot keyed by
// (user_id, post_id, platform). Metric values are snapshots, so re-running
// with identical inputs converges to identical stored state.
func (r *InsightRepositoryImpl) UpsertInsight(insight Insight) error {
	_, err := r.db.Exec(`
		INSERT INTO ai_insights (
			user_id, post_id, platform, likes, comments, shares, reach, impressions,
			engagement_rate, emoji_count, hashtag_count, mention_count, has_cta,
			has_question, word_count, char_count, day_of_week, hour_of_day, day_part,
			performance, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (user_id, post_id, platform) DO UPDATE SET
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			reach = EXCLUDED.reach,
			impressions = EXCLUDED.impressions,
			engagement_rate = EXCLUDED.engagement_rate,
			emoji_count = EXCLUDED.emoji_count,
			hashtag_count = EXCLUDED.hashtag_count,
			mention_count = EXCLUDED.mention_count,
			has_cta = EXCLUDED.has_cta,
			has_question = EXCLUDED.has_question,
			word_count = EXCLUDED.word_count,
			char_count = EXCLUDED.char_count,
			day_of_week = EXCLUDED.day_of_week,
			hour_of_day = EXCLUDED.hour_of_day,
			day_part = EXCLUDED.day_part,
			performance = EXCLUDED.performance,
			last_synced_at = EXCLUDED.last_synced_at,
			updated_at = NOW()
	`, insight.UserID, insight.PostID, insight.Platform, insight.Likes, insight.Comments,
		insight.Shares, insight.Reach, insight.Impressions, insight.EngagementRate,
		insight.EmojiCount, insight.HashtagCount, insight.MentionCount, insight.HasCTA,
		insight.HasQuestion, insight.WordCount, insight.CharCount, insight.DayOfWeek,
		insight.HourOfDay, insight.DayPart, insight.Performance, insight.LastSyncedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert insight: %w", err)
	}

	return nil
}

// GetLatestPerformance returns the most recently synced performance category
// per post, restricted to the given user's posts.
func (r *InsightRepositoryImpl) GetLatestPerformance(userID string, postIDs []string) (map[string]string, error) {
	performance := make(map[string]string)
	if len(postIDs) == 0 {
		return performance, nil
	}

	rows, err := r.db.Query(`
		SELECT DISTINCT ON (post_id) post_id, performance
		FROM ai_insights
		WHERE user_id = $1
		  AND post_id = ANY($2)
		ORDER BY post_id, last_synced_at DESC
	`, userID, pq.Array(postIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get latest performance: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID, category string
		if err := rows.Scan(&postID, &category); err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		performance[postID] = category
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance rows: %w", err)
	}

	return performance, nil
}

// GetRecentInsights returns the user's most recently synced insights
func (r *InsightRepositoryImpl) GetRecentInsights(userID string, limit int) ([]Insight, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, post_id, platform, likes, comments, shares, reach, impressions,
		       engagement_rate, emoji_count, hashtag_count, mention_count, has_cta,
		       has_question, word_count, char_count, day_of_week, hour_of_day, day_part,
		       performance, last_synced_at, created_at, updated_at
		FROM ai_insights
		WHERE user_id = $1
		ORDER BY last_synced_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent insights: %w", err)
	}
	defer rows.Close()

	var insights []Insight
	for rows.Next() {
		var ins Insight
		err := rows.Scan(
			&ins.ID, &ins.UserID, &ins.PostID, &ins.Platform, &ins.Likes, &ins.Comments,
			&ins.Shares, &ins.Reach, &ins.Impressions, &ins.EngagementRate, &ins.EmojiCount,
			&ins.HashtagCount, &ins.MentionCount, &ins.HasCTA, &ins.HasQuestion,
			&ins.WordCount, &ins.CharCount, &ins.DayOfWeek, &ins.HourOfDay, &ins.DayPart,
			&ins.Performance, &ins.LastSyncedAt, &ins.CreatedAt, &ins.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight row: %w", err)
		}
		insights = append(insights, ins)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insight rows: %w", err)
	}

	return insights, nil
}
