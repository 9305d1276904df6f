package domain

import (
	"math"
	"sort"
	"strings"
)

const (
	// Lexical weights, matched against the title
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0

	// A match only in url or notes
	ScoreSecondaryMatch = 20.0

	// Position bonus (earlier is better)
	ScorePositionBonus = 10.0

	// Usage weight (click count contributes to final score)
	ScoreUsageWeight = 0.1

	// Recency: a bookmark opened within recencyWindow gets up to ScoreRecencyBonus
	ScoreRecencyBonus = 15.0
	recencyWindowMs   = 7 * 24 * 60 * 60 * 1000
)

// Ranked is a bookmark with its display score.
type Ranked struct {
	Bookmark     Bookmark
	LexicalScore float64
	UsageScore   float64
	TotalScore   float64
}

// lexicalScore scores term against b. term must be lower-cased and trimmed.
func lexicalScore(term string, b Bookmark) float64 {
	if term == "" {
		return 0.0
	}
	title := strings.ToLower(b.Title)

	switch {
	case title == term:
		return ScoreExactMatch + ScorePositionBonus
	case strings.HasPrefix(title, term):
		return ScorePrefixMatch + ScorePositionBonus
	case strings.Contains(title, term):
		index := strings.Index(title, term)
		// Earlier substring matches get higher score
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(title)))
	case strings.Contains(strings.ToLower(b.URL), term),
		strings.Contains(strings.ToLower(b.Notes), term):
		return ScoreSecondaryMatch
	}
	return 0.0
}

// usageScore is logarithmic in ClickCount so heavy use cannot dominate a
// better lexical match, plus a linear bonus decaying over the recency window.
func usageScore(b Bookmark, nowMillis int64) float64 {
	score := 0.0
	if b.ClickCount > 0 {
		score = math.Log10(float64(b.ClickCount)+1) * ScoreUsageWeight * 100
	}
	if b.LastUsedAt > 0 && nowMillis > 0 {
		age := nowMillis - b.LastUsedAt
		if age >= 0 && age < recencyWindowMs {
			score += ScoreRecencyBonus * (1.0 - float64(age)/recencyWindowMs)
		}
	}
	return score
}

// Rank orders the bookmarks matching term for display. An empty term keeps
// every bookmark and ranks by usage only. Ties keep the stored order.
func Rank(list []Bookmark, term string, nowMillis int64) []Ranked {
	term = strings.ToLower(strings.TrimSpace(term))

	ranked := make([]Ranked, 0, len(list))
	for _, b := range list {
		if !b.Matches(term) {
			continue
		}
		lex := lexicalScore(term, b)
		use := usageScore(b, nowMillis)
		ranked = append(ranked, Ranked{
			Bookmark:     b,
			LexicalScore: lex,
			UsageScore:   use,
			TotalScore:   lex + use,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})
	return ranked
}

// Bookmarks unwraps a ranked slice.
func Bookmarks(ranked []Ranked) []Bookmark {
	out := make([]Bookmark, len(ranked))
	for i := range ranked {
		out[i] = ranked[i].Bookmark
	}
	return out
}
