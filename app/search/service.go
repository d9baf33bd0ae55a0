package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/postsense/postsense/app/database"
	"github.com/postsense/postsense/app/embedding"
	"github.com/postsense/postsense/app/platform"
)

var (
	// ErrEmptyQuery rejects empty or whitespace-only queries
	ErrEmptyQuery = errors.New("search query must not be empty")

	// ErrEmbeddingUnavailable aborts a live search when the query cannot be
	// embedded. A search with no vector cannot produce a meaningful ranking.
	ErrEmbeddingUnavailable = errors.New("query embedding unavailable")
)

const (
	// CandidatePoolSize bounds how many filtered posts are pulled into memory
	// for ranking.
	CandidatePoolSize = 50

	// DefaultLimit is the result count when the caller does not specify one
	DefaultLimit = 10

	// MaxUsageSuggestions caps the per-result suggestion list
	MaxUsageSuggestions = 5
)

// Service combines relational pre-filtering with similarity ranking
type Service struct {
	posts      database.PostRepository
	insights   database.InsightRepository
	searchLogs database.SearchLogRepository
	provider   embedding.Provider
	catalog    *platform.Catalog
}

// NewService creates a new search service
func NewService(posts database.PostRepository, insights database.InsightRepository,
	searchLogs database.SearchLogRepository, provider embedding.Provider,
	catalog *platform.Catalog) *Service {
	return &Service{
		posts:      posts,
		insights:   insights,
		searchLogs: searchLogs,
		provider:   provider,
		catalog:    catalog,
	}
}

// Search runs a hybrid semantic search over the caller's own posts
func (s *Service) Search(ctx context.Context, userID, query string, filters Filters, limit int) (*Response, error) {
	started := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	queryVector, err := s.provider.Embed(ctx, query)
	if err != nil || len(queryVector) == 0 {
		slog.Error("Query embedding failed", "user_id", userID, "error", err)
		return nil, ErrEmbeddingUnavailable
	}

	candidates, err := s.loadCandidates(userID, filters)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		response := &Response{
			Results: []Result{},
			Stats: Stats{
				NoCandidates: true,
				Duration:     time.Since(started),
			},
		}
		s.recordTelemetry(userID, query, filters, response)
		return response, nil
	}

	ranked := Rank(queryVector, candidates, limit)

	response := &Response{
		Results:    make([]Result, 0, len(ranked)),
		TotalFound: len(ranked),
		Stats: Stats{
			CandidatesConsidered: len(candidates),
		},
	}

	performance := performanceByPost(candidates)
	for _, r := range ranked {
		r.MatchReasons = append(r.MatchReasons, filterReasons(filters)...)
		r.MatchReasons = append(r.MatchReasons, keywordReasons(query, r.Post)...)

		response.Results = append(response.Results, Result{
			Post:         r.Post,
			Performance:  performance[r.Post.ID],
			Similarity:   r.Similarity,
			Boost:        r.Boost,
			Score:        r.Score,
			MatchReasons: r.MatchReasons,
			Suggestions:  s.usageSuggestions(r.Post),
			Explanation:  relevanceExplanation(r, performance[r.Post.ID]),
		})
	}

	if len(response.Results) > 0 {
		response.Stats.TopScore = response.Results[0].Score
	}
	response.Stats.Duration = time.Since(started)

	s.recordTelemetry(userID, query, filters, response)

	return response, nil
}

// loadCandidates fetches the filtered candidate pool and joins each post
// with its latest performance classification.
func (s *Service) loadCandidates(userID string, filters Filters) ([]Candidate, error) {
	posts, err := s.posts.GetSearchCandidates(userID, database.SearchFilters{
		ContentType: filters.ContentType,
		Platform:    filters.Platform,
		Status:      filters.Status,
		Topics:      filters.Topics,
		DateFrom:    filters.DateFrom,
		DateTo:      filters.DateTo,
	}, CandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load search candidates: %w", err)
	}

	if len(posts) == 0 {
		return nil, nil
	}

	postIDs := make([]string, len(posts))
	for i, post := range posts {
		postIDs[i] = post.ID
	}

	performance, err := s.insights.GetLatestPerformance(userID, postIDs)
	if err != nil {
		// Ranking degrades to pure similarity; the search itself still works
		slog.Warn("Failed to load performance classifications", "user_id", userID, "error", err)
		performance = map[string]string{}
	}

	candidates := make([]Candidate, len(posts))
	for i, post := range posts {
		candidates[i] = Candidate{Post: post, Performance: performance[post.ID]}
	}

	return candidates, nil
}

// recordTelemetry writes the search log without blocking or failing the
// response.
func (s *Service) recordTelemetry(userID, query string, filters Filters, response *Response) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Search telemetry panicked", "recover", r)
			}
		}()

		log := database.SearchLog{
			UserID:      userID,
			Query:       query,
			Filters:     filtersMap(filters),
			ResultCount: len(response.Results),
			TopScore:    response.Stats.TopScore,
		}

		if err := s.searchLogs.InsertSearchLog(log); err != nil {
			slog.Warn("Failed to record search telemetry", "user_id", userID, "error", err)
		}
	}()
}

func filtersMap(filters Filters) map[string]interface{} {
	m := make(map[string]interface{})
	if filters.ContentType != "" {
		m["type"] = filters.ContentType
	}
	if filters.Platform != "" {
		m["platform"] = filters.Platform
	}
	if filters.Status != "" {
		m["status"] = filters.Status
	}
	if len(filters.Topics) > 0 {
		m["topics"] = filters.Topics
	}
	if filters.DateFrom != nil {
		m["date_from"] = filters.DateFrom.Format(time.RFC3339)
	}
	if filters.DateTo != nil {
		m["date_to"] = filters.DateTo.Format(time.RFC3339)
	}
	return m
}

func performanceByPost(candidates []Candidate) map[string]string {
	m := make(map[string]string, len(candidates))
	for _, c := range candidates {
		if c.Performance != "" {
			m[c.Post.ID] = c.Performance
		}
	}
	return m
}

func filterReasons(filters Filters) []string {
	var reasons []string
	if filters.Platform != "" {
		reasons = append(reasons, "targets "+filters.Platform)
	}
	if filters.ContentType != "" {
		reasons = append(reasons, "matches type "+filters.ContentType)
	}
	if filters.Status != "" {
		reasons = append(reasons, "status "+filters.Status)
	}
	if len(filters.Topics) > 0 {
		reasons = append(reasons, "shares topics: "+strings.Join(filters.Topics, ", "))
	}
	return reasons
}

// keywordReasons reports which query words literally appear in the post,
// complementing the similarity score with something a user can verify.
func keywordReasons(query string, post database.Post) []string {
	haystack := strings.ToLower(post.Title + " " + post.Content + " " + strings.Join(post.Tags, " "))

	var matched []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) < 3 {
			continue
		}
		if strings.Contains(haystack, word) {
			matched = append(matched, word)
		}
	}

	if len(matched) == 0 {
		return nil
	}
	return []string{"contains keywords: " + strings.Join(matched, ", ")}
}

func relevanceExplanation(r RankedResult, performance string) string {
	explanation := fmt.Sprintf("%s to your query", similarityBand(r.Similarity))
	if r.Boost > 0 {
		explanation += fmt.Sprintf(", boosted for %s past performance", performance)
	}
	return explanation
}
