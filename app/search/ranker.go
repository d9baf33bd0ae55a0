package search

import (
	"fmt"
	"math"
	"sort"
)

// Performance boosts applied on top of cosine similarity. Posts that have
// historically performed well rank above equally similar ones that have not.
const (
	BoostHigh   = 0.10
	BoostMedium = 0.05
)

// CosineSimilarity computes the cosine of the angle between two vectors of
// equal length. A zero vector on either side yields 0, not an error.
func CosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores candidates against the query vector and returns them ordered
// by final score, ties broken by more recent publish time. Candidates whose
// vector is missing or has a different dimensionality are excluded rather
// than scored wrongly.
func Rank(query []float32, candidates []Candidate, limit int) []RankedResult {
	results := make([]RankedResult, 0, len(candidates))

	for _, candidate := range candidates {
		if len(candidate.Post.Embedding) == 0 || len(candidate.Post.Embedding) != len(query) {
			continue
		}

		similarity := CosineSimilarity(query, candidate.Post.Embedding)
		boost := performanceBoost(candidate.Performance)

		results = append(results, RankedResult{
			Post:       candidate.Post,
			Similarity: similarity,
			Boost:      boost,
			Score:      similarity + boost,
			MatchReasons: []string{
				fmt.Sprintf("%s (similarity %.2f)", similarityBand(similarity), similarity),
			},
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return publishedAfter(results[i], results[j])
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}

func performanceBoost(category string) float64 {
	switch category {
	case "high":
		return BoostHigh
	case "medium":
		return BoostMedium
	default:
		return 0
	}
}

// publishedAfter reports whether a was published more recently than b.
// Posts without a publish time sort last.
func publishedAfter(a, b RankedResult) bool {
	switch {
	case a.Post.PublishedAt == nil:
		return false
	case b.Post.PublishedAt == nil:
		return true
	default:
		return a.Post.PublishedAt.After(*b.Post.PublishedAt)
	}
}

func similarityBand(similarity float64) string {
	switch {
	case similarity >= 0.8:
		return "very close match"
	case similarity >= 0.6:
		return "close match"
	case similarity >= 0.4:
		return "related content"
	default:
		return "loosely related"
	}
}
