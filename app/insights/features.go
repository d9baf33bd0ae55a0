package insights

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Performance classification thresholds on engagement rate.
const (
	HighPerformanceThreshold   = 0.06
	MediumPerformanceThreshold = 0.03
)

// Engagement rate weights. Comments and shares signal more intent than a
// like, so they count more. One canonical formula is used everywhere.
const (
	commentWeight = 2.0
	shareWeight   = 1.5
)

var (
	hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	mentionPattern = regexp.MustCompile(`@[\p{L}\p{N}_.]+`)
)

// ctaKeywords mark a call to action in post copy
var ctaKeywords = []string{
	"link in bio", "sign up", "learn more", "shop now", "click the link",
	"register", "subscribe", "dm us", "dm me", "comment below", "follow us",
	"book now", "download", "join us", "check out", "get started", "tag a friend",
}

// ContentFeatures are derived from the post's text
type ContentFeatures struct {
	EmojiCount   int
	HashtagCount int
	MentionCount int
	HasCTA       bool
	HasQuestion  bool
	WordCount    int
	CharCount    int
}

// TimingFeatures are derived from the post's publish timestamp
type TimingFeatures struct {
	DayOfWeek int // 0 = Sunday
	HourOfDay int
	DayPart   string // morning, afternoon, evening, night
}

// ExtractContentFeatures scans post text for the signals the pattern
// analysis works from.
func ExtractContentFeatures(text string) ContentFeatures {
	lower := strings.ToLower(text)

	features := ContentFeatures{
		EmojiCount:   countEmoji(text),
		HashtagCount: len(hashtagPattern.FindAllString(text, -1)),
		MentionCount: len(mentionPattern.FindAllString(text, -1)),
		HasQuestion:  strings.Contains(text, "?"),
		WordCount:    len(strings.Fields(text)),
		CharCount:    utf8.RuneCountInString(text),
	}

	for _, keyword := range ctaKeywords {
		if strings.Contains(lower, keyword) {
			features.HasCTA = true
			break
		}
	}

	return features
}

// TimingFeaturesFrom buckets a publish timestamp
func TimingFeaturesFrom(t time.Time) TimingFeatures {
	hour := t.Hour()

	return TimingFeatures{
		DayOfWeek: int(t.Weekday()),
		HourOfDay: hour,
		DayPart:   dayPart(hour),
	}
}

func dayPart(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 16:
		return "afternoon"
	case hour >= 17 && hour <= 21:
		return "evening"
	default:
		return "night"
	}
}

// EngagementRate computes the weighted engagement rate. Zero reach yields
// zero rather than a division error.
func EngagementRate(likes, comments, shares, reach int) float64 {
	if reach <= 0 {
		return 0
	}
	weighted := float64(likes) + commentWeight*float64(comments) + shareWeight*float64(shares)
	return weighted / float64(reach)
}

// ClassifyPerformance buckets an engagement rate into high/medium/low
func ClassifyPerformance(rate float64) string {
	switch {
	case rate >= HighPerformanceThreshold:
		return "high"
	case rate >= MediumPerformanceThreshold:
		return "medium"
	default:
		return "low"
	}
}

// countEmoji counts runes in the common emoji blocks. Variation selectors
// and zero-width joiners are not counted, so a composed emoji sequence
// counts once per visible symbol.
func countEmoji(text string) int {
	count := 0
	for _, r := range text {
		if isEmoji(r) {
			count++
		}
	}
	return count
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x1FA70 && r <= 0x1FAFF: // extended pictographs
		return true
	case r >= 0x2600 && r <= 0x26FF: // misc symbols
		return true
	case r >= 0x2700 && r <= 0x27BF: // dingbats
		return true
	default:
		return false
	}
}
