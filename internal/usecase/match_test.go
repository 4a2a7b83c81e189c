package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebota-hq/rebota/internal/domain"
)

// vecEmbedder returns canned vectors per input text.
type vecEmbedder struct {
	vectors map[string][]float32
}

func (f *vecEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, domain.ErrEmbeddingFailed
	}
	return v, nil
}

func TestScoreAndRankOrdersByCombinedScore(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{
		"Go backend engineer":  {1, 0},
		"go resume text":       {1, 0},    // cosine 1.0 -> 100
		"frontend resume text": {1, 1},    // cosine ~0.707 -> 70.71
		"sales resume text":    {0.01, 1}, // cosine ~0.01 -> ~1
	}}
	gen := &fakeGenerator{responses: []string{
		"- 5+ years Go\n- REST APIs",
		"Strong fit. Score: 90/100",
		"Partial fit. Score: 60/100",
		"Poor fit. Score: 10/100",
	}}
	s := NewMatchService(emb, gen, 0.7, 0.3)

	reqs, results, err := s.ScoreAndRank(context.Background(), "Go backend engineer", []NamedText{
		{Name: "go.pdf", Text: "go resume text"},
		{Name: "frontend.pdf", Text: "frontend resume text"},
		{Name: "sales.pdf", Text: "sales resume text"},
	})
	require.NoError(t, err)
	assert.Equal(t, "- 5+ years Go\n- REST APIs", reqs)
	require.Len(t, results, 3)

	assert.Equal(t, "go.pdf", results[0].ResumeName)
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 0.7*100+0.3*90, results[0].CombinedScore, 0.01)
	assert.Equal(t, 90.0, results[0].LLMScore)
	assert.Equal(t, 100.0, results[0].EmbeddingScore)

	assert.Equal(t, "frontend.pdf", results[1].ResumeName)
	assert.Equal(t, 2, results[1].Rank)

	assert.Equal(t, "sales.pdf", results[2].ResumeName)
	assert.Equal(t, 3, results[2].Rank)

	// Requirements prompt saw the job text, feedback prompts saw the extracted
	// requirements rather than the raw description.
	require.Len(t, gen.prompts, 4)
	assert.Contains(t, gen.prompts[0], "Go backend engineer")
	assert.Contains(t, gen.prompts[1], "- 5+ years Go")
	assert.Contains(t, gen.prompts[1], "go resume text")
}

func TestScoreAndRankSkipsResumeWithFailedEmbedding(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{
		"job": {1, 0},
		"ok":  {1, 0},
		// "broken" missing: embedding fails
	}}
	gen := &fakeGenerator{responses: []string{"reqs", "Fine. Score: 70"}}
	s := NewMatchService(emb, gen, 0.7, 0.3)

	_, results, err := s.ScoreAndRank(context.Background(), "job", []NamedText{
		{Name: "broken.pdf", Text: "broken"},
		{Name: "ok.pdf", Text: "ok"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok.pdf", results[0].ResumeName)
	assert.Equal(t, 1, results[0].Rank)
}

func TestScoreAndRankFeedbackFailureUsesDefaultScore(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{
		"job": {1, 0},
		"r":   {1, 0},
	}}
	gen := &fakeGenerator{
		responses: []string{"reqs", ""},
		errs:      []error{nil, domain.ErrLLMFailed},
	}
	s := NewMatchService(emb, gen, 0.7, 0.3)

	_, results, err := s.ScoreAndRank(context.Background(), "job", []NamedText{{Name: "r.pdf", Text: "r"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 50.0, results[0].LLMScore)
	assert.Equal(t, "Feedback unavailable.", results[0].Feedback)
	assert.InDelta(t, 0.7*100+0.3*50, results[0].CombinedScore, 0.01)
}

func TestScoreAndRankJobEmbeddingFailureIsFatal(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{}}
	s := NewMatchService(emb, &fakeGenerator{}, 0.7, 0.3)

	_, _, err := s.ScoreAndRank(context.Background(), "job", []NamedText{{Name: "r.pdf", Text: "r"}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
}

func TestScoreAndRankRequirementsFailureDegradesToRawJobText(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{
		"the job description": {1, 0},
		"r":                   {1, 0},
	}}
	gen := &fakeGenerator{
		responses: []string{"", "Good. Score: 80"},
		errs:      []error{domain.ErrLLMFailed, nil},
	}
	s := NewMatchService(emb, gen, 0.7, 0.3)

	reqs, results, err := s.ScoreAndRank(context.Background(), "the job description", []NamedText{{Name: "r.pdf", Text: "r"}})
	require.NoError(t, err)
	assert.Equal(t, "the job description", reqs)
	require.Len(t, results, 1)
	// Feedback prompt falls back to the raw job text as requirements.
	assert.Contains(t, gen.prompts[1], "the job description")
}

func TestScoreAndRankValidation(t *testing.T) {
	s := NewMatchService(&vecEmbedder{}, &fakeGenerator{}, 0.7, 0.3)

	_, _, err := s.ScoreAndRank(context.Background(), "  ", []NamedText{{Name: "r", Text: "r"}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, _, err = s.ScoreAndRank(context.Background(), "job", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestScoreAndRankNegativeCosineClampsToZero(t *testing.T) {
	emb := &vecEmbedder{vectors: map[string][]float32{
		"job": {1, 0},
		"r":   {-1, 0},
	}}
	gen := &fakeGenerator{responses: []string{"reqs", "Weak. Score: 20"}}
	s := NewMatchService(emb, gen, 0.7, 0.3)

	_, results, err := s.ScoreAndRank(context.Background(), "job", []NamedText{{Name: "r.pdf", Text: "r"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].EmbeddingScore)
	assert.InDelta(t, 0.3*20, results[0].CombinedScore, 0.01)
}
