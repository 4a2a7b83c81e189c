// Package match implements the resume scoring primitives: embedding
// similarity, feedback score parsing and weighted fusion.
package match

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/rebota-hq/rebota/internal/domain"
)

// DefaultLLMScore is used when no score can be parsed out of the feedback
// text. This is a documented fallback, never surfaced as an error.
const DefaultLLMScore = 50.0

// scoreRe matches the word "score" followed on the same line by a 1-3 digit
// number, e.g. "Score: 87/100" or "a score of 92".
var scoreRe = regexp.MustCompile(`(?i)score.*?(\d{1,3})`)

// ExtractScore pulls the numeric match score out of free-text feedback.
// Feedback without a recognizable score yields DefaultLLMScore.
func ExtractScore(feedback string) float64 {
	m := scoreRe.FindStringSubmatch(feedback)
	if m == nil {
		return DefaultLLMScore
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return DefaultLLMScore
	}
	return v
}

// Cosine computes cosine similarity of two vectors. Mismatched dimensions or
// a zero-norm vector yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// EmbeddingScore maps cosine similarity to the 0..100 scale. Similarity is
// clamped to [0,1] first so that a negative similarity scores 0 instead of
// dragging the weighted sum negative.
func EmbeddingScore(jobVec, resumeVec []float32) float64 {
	sim := Cosine(jobVec, resumeVec)
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim * 100
}

// Combined fuses the two scores with the configured weights.
func Combined(embeddingScore, llmScore, embedWeight, llmWeight float64) float64 {
	return embedWeight*embeddingScore + llmWeight*llmScore
}

// Round2 rounds to two decimal places for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rank sorts results by descending combined score and assigns 1-based ranks.
// The sort is stable: resumes with equal scores keep their input order.
func Rank(results []domain.ResumeMatch) []domain.ResumeMatch {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CombinedScore > results[j].CombinedScore
	})
	for i := range results {
		results[i].Rank = i + 1
		results[i].CombinedScore = Round2(results[i].CombinedScore)
	}
	return results
}
