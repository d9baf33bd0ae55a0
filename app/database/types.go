package database

import (
	"time"
)

// Post represents a user-authored content item. Embedding is nil until the
// post has been indexed for semantic search.
type Post struct {
	ID           string
	UserID       string
	Title        string
	Content      string
	ContentType  string
	Platforms    []string
	Status       string // draft, scheduled, published
	PublishedAt  *time.Time
	Tags         []string
	Embedding    []float32
	ExternalRefs map[string]string // platform -> external post id
	Likes        int
	Comments     int
	Shares       int
	Reach        int
	Impressions  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Insight is an engagement snapshot per (user, post, platform).
type Insight struct {
	ID             string
	UserID         string
	PostID         string
	Platform       string
	Likes          int
	Comments       int
	Shares         int
	Reach          int
	Impressions    int
	EngagementRate float64
	EmojiCount     int
	HashtagCount   int
	MentionCount   int
	HasCTA         bool
	HasQuestion    bool
	WordCount      int
	CharCount      int
	DayOfWeek      int
	HourOfDay      int
	DayPart        string
	Performance    string // high, medium, low
	LastSyncedAt   time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SyncStatus tracks the insight sync schedule per (user, platform).
type SyncStatus struct {
	ID            string
	UserID        string
	Platform      string
	LastSyncedAt  *time.Time
	LastSuccessAt *time.Time
	NextSyncAt    *time.Time
	Enabled       bool
	FailedSyncs   int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ConnectedAccount holds the credential used to reach a platform's metrics API.
type ConnectedAccount struct {
	ID          string
	UserID      string
	Platform    string
	AccessToken string
	AccountRef  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SearchLog is one recorded search request, written fire-and-forget.
type SearchLog struct {
	ID          string
	UserID      string
	Query       string
	Filters     map[string]interface{}
	ResultCount int
	TopScore    float64
	CreatedAt   time.Time
}

// Pattern is an aggregated content pattern with a recalculated priority.
type Pattern struct {
	ID           string
	UserID       string
	Platform     string
	PatternType  string
	PatternValue string
	Priority     float64
	SampleCount  int
	UpdatedAt    time.Time
}

// EmbeddingStats summarizes embedding coverage over the posts table.
type EmbeddingStats struct {
	TotalPosts             int
	PostsWithEmbeddings    int
	PostsWithoutEmbeddings int
}

// EngagementCounters carries the raw counters propagated back onto posts.
type EngagementCounters struct {
	Likes       int
	Comments    int
	Shares      int
	Reach       int
	Impressions int
}
