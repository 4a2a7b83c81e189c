package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/internal/match"
)

const requirementsPrompt = `Analyze the following job description and extract the key requirements in structured bullet points.

Job Description:
%s`

const feedbackPrompt = `Compare the following resume to the job requirements and give a detailed assessment of how well it matches.

Job Requirements:
%s

Resume:
%s

Provide:
- A short summary of the candidate's fit
- Match highlights (skills, experience)
- Missing qualifications (if any)
- Suggested improvements
- A score out of 100 for match quality`

// NamedText is one uploaded document: its filename and extracted text.
type NamedText struct {
	Name string
	Text string
}

// MatchService scores resumes against a job description using whole-document
// embeddings fused with LLM feedback scores.
type MatchService struct {
	Embed domain.Embedder
	LLM   domain.Generator

	// EmbedWeight and LLMWeight combine the two 0..100 scores.
	EmbedWeight float64
	LLMWeight   float64
}

// NewMatchService constructs a MatchService with its dependencies.
func NewMatchService(e domain.Embedder, g domain.Generator, embedWeight, llmWeight float64) MatchService {
	return MatchService{Embed: e, LLM: g, EmbedWeight: embedWeight, LLMWeight: llmWeight}
}

// ExtractRequirements distills a job description into structured bullet
// points. On LLM failure the raw job text stands in for the requirements so
// resume feedback still has something to compare against.
func (s MatchService) ExtractRequirements(ctx context.Context, jobText string) string {
	out, err := s.LLM.Generate(ctx, fmt.Sprintf(requirementsPrompt, jobText))
	if err != nil {
		slog.WarnContext(ctx, "requirements extraction failed, using raw job text",
			slog.Any("error", err))
		return jobText
	}
	return strings.TrimSpace(out)
}

// ScoreAndRank scores each resume against the job description and returns
// the extracted requirements plus the ranked results.
//
// Failure isolation: a resume whose embedding fails is skipped; a resume
// whose feedback generation fails keeps its embedding score with the default
// LLM score. Only a job-text embedding failure is fatal, since nothing can
// be scored without it.
func (s MatchService) ScoreAndRank(ctx context.Context, jobText string, resumes []NamedText) (string, []domain.ResumeMatch, error) {
	jobText = strings.TrimSpace(jobText)
	if jobText == "" {
		return "", nil, fmt.Errorf("%w: job description is empty", domain.ErrInvalidArgument)
	}
	if len(resumes) == 0 {
		return "", nil, fmt.Errorf("%w: at least one resume required", domain.ErrInvalidArgument)
	}

	jobVec, err := s.Embed.Embed(ctx, jobText)
	if err != nil {
		return "", nil, fmt.Errorf("embed job description: %w", err)
	}

	requirements := s.ExtractRequirements(ctx, jobText)

	results := make([]domain.ResumeMatch, 0, len(resumes))
	for _, r := range resumes {
		vec, err := s.Embed.Embed(ctx, r.Text)
		if err != nil {
			slog.WarnContext(ctx, "skipping resume, embedding failed",
				slog.String("resume", r.Name), slog.Any("error", err))
			continue
		}
		embScore := match.EmbeddingScore(jobVec, vec)

		feedback, err := s.LLM.Generate(ctx, fmt.Sprintf(feedbackPrompt, requirements, r.Text))
		llmScore := match.DefaultLLMScore
		if err != nil {
			slog.WarnContext(ctx, "resume feedback failed, using default score",
				slog.String("resume", r.Name), slog.Any("error", err))
			feedback = "Feedback unavailable."
		} else {
			feedback = strings.TrimSpace(feedback)
			llmScore = match.ExtractScore(feedback)
		}

		results = append(results, domain.ResumeMatch{
			ResumeName:     r.Name,
			EmbeddingScore: match.Round2(embScore),
			LLMScore:       llmScore,
			CombinedScore:  match.Combined(embScore, llmScore, s.EmbedWeight, s.LLMWeight),
			Feedback:       feedback,
		})
	}

	return requirements, match.Rank(results), nil
}
