package search

import (
	"time"

	"github.com/postsense/postsense/app/database"
)

// Filters narrows the candidate pool before similarity ranking
type Filters struct {
	ContentType string     `json:"type,omitempty"`
	Platform    string     `json:"platform,omitempty"`
	Status      string     `json:"status,omitempty"`
	Topics      []string   `json:"topics,omitempty"`
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
}

// Candidate is a post joined with its latest performance classification,
// derived per request and never persisted.
type Candidate struct {
	Post        database.Post
	Performance string // high, medium, low, or empty when unclassified
}

// RankedResult is one scored candidate
type RankedResult struct {
	Post         database.Post
	Similarity   float64
	Boost        float64
	Score        float64
	MatchReasons []string
}

// Result is a ranked candidate enriched for the API response
type Result struct {
	Post         database.Post
	Performance  string
	Similarity   float64
	Boost        float64
	Score        float64
	MatchReasons []string
	Suggestions  []string
	Explanation  string
}

// Stats describes how a search request was satisfied
type Stats struct {
	CandidatesConsidered int
	NoCandidates         bool
	TopScore             float64
	Duration             time.Duration
}

// Response is the full search result set
type Response struct {
	Results    []Result
	TotalFound int
	Stats      Stats
}

// SuggestionsResponse feeds the search UI's empty state
type SuggestionsResponse struct {
	RecentSearches     []string
	SuggestedTopics    []string
	AvailableTypes     []string
	AvailablePlatforms []string
}
