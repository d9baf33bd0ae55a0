package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/postsense/postsense/app/database"
)

const (
	recentSearchLimit   = 5
	suggestedTopicLimit = 10
)

// Suggestions assembles the search UI's empty-state data: the user's recent
// queries, their most used topics, and the catalog's types and platforms.
func (s *Service) Suggestions(ctx context.Context, userID string) (*SuggestionsResponse, error) {
	response := &SuggestionsResponse{
		AvailableTypes:     s.catalog.ContentTypes(),
		AvailablePlatforms: s.catalog.IDs(),
	}

	recent, err := s.searchLogs.GetRecentQueries(userID, recentSearchLimit)
	if err != nil {
		// Degraded suggestions beat a failed request
		slog.Warn("Failed to load recent searches", "user_id", userID, "error", err)
	} else {
		response.RecentSearches = recent
	}

	topics, err := s.posts.GetTopTags(userID, suggestedTopicLimit)
	if err != nil {
		slog.Warn("Failed to load suggested topics", "user_id", userID, "error", err)
	} else {
		response.SuggestedTopics = topics
	}

	return response, nil
}

// usageSuggestions proposes reuse ideas for a result: generic remix
// suggestions first, then platform catalog templates for the post's type,
// capped at MaxUsageSuggestions.
func (s *Service) usageSuggestions(post database.Post) []string {
	suggestions := []string{
		"Reuse this angle for an upcoming post",
		"Refresh the hook and republish to your best time slot",
	}

	for _, platformID := range post.Platforms {
		p, ok := s.catalog.Get(platformID)
		if !ok {
			continue
		}
		for _, template := range p.Suggestions[post.ContentType] {
			suggestions = append(suggestions, fmt.Sprintf("%s: %s", p.DisplayName, template))
		}
	}

	if len(suggestions) > MaxUsageSuggestions {
		suggestions = suggestions[:MaxUsageSuggestions]
	}

	return suggestions
}
