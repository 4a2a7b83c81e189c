// Package usecase contains application business logic services.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rebota-hq/rebota/internal/adapter/ai/tokencount"
	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/pkg/textx"
)

// expandPrompt asks for alternative phrasings of the user question, one per
// line, to widen retrieval recall.
const expandPrompt = `You are an AI language model assistant. Your task is to generate %d different versions of the given user question to retrieve relevant documents from a vector database. By generating multiple perspectives on the user question, your goal is to help overcome some of the limitations of distance-based similarity search. Provide these alternative questions separated by newlines. Do not number them.
Original question: %s`

// ragPrompt grounds the answer in retrieved context first, with general model
// knowledge as the fallback.
const ragPrompt = `First try to answer the question based ONLY on the following context:
%s
Question: %s
If you cannot answer, then use LLM knowledge to help.`

// ChatService answers questions over the indexed document corpus.
type ChatService struct {
	Embed     domain.Embedder
	LLM       domain.Generator
	Retriever domain.Retriever
	History   domain.HistoryStore

	// TopK is the per-query retrieval depth.
	TopK int
	// NumExpansions is how many paraphrases the expander requests.
	NumExpansions int
	// ContextTokenBudget caps the concatenated context handed to the LLM.
	ContextTokenBudget int
	// LLMModel is used for token counting only.
	LLMModel string
}

// NewChatService constructs a ChatService with its dependencies.
func NewChatService(e domain.Embedder, g domain.Generator, r domain.Retriever, h domain.HistoryStore, topK, tokenBudget int, llmModel string) ChatService {
	return ChatService{
		Embed:              e,
		LLM:                g,
		Retriever:          r,
		History:            h,
		TopK:               topK,
		NumExpansions:      3,
		ContextTokenBudget: tokenBudget,
		LLMModel:           llmModel,
	}
}

// ExpandQuery generates alternative phrasings of question via the LLM.
// The original question is always first in the result. On LLM failure the
// expansion degrades to the original question alone.
func (s ChatService) ExpandQuery(ctx context.Context, question string) []string {
	queries := []string{question}
	out, err := s.LLM.Generate(ctx, fmt.Sprintf(expandPrompt, s.NumExpansions, question))
	if err != nil {
		slog.WarnContext(ctx, "query expansion failed, using original question only",
			slog.Any("error", err))
		return queries
	}
	for _, line := range textx.FirstNonEmptyLines(out, s.NumExpansions) {
		if line == question {
			continue
		}
		queries = append(queries, line)
	}
	return queries
}

// dedupeKey is the identity of a retrieved chunk. Two hits with the same
// content from the same source offset are the same chunk regardless of which
// expanded query retrieved them.
type dedupeKey struct {
	content    string
	source     string
	page       int
	startIndex int
}

// RetrieveAll embeds each query, searches the index and merges the hits,
// dropping exact duplicates. Queries whose embedding fails are skipped;
// retrieval succeeds as long as at least the merge itself works.
func (s ChatService) RetrieveAll(ctx context.Context, queries []string) []domain.Hit {
	seen := make(map[dedupeKey]struct{})
	var merged []domain.Hit
	for _, q := range queries {
		vec, err := s.Embed.Embed(ctx, q)
		if err != nil {
			slog.WarnContext(ctx, "skipping expanded query, embedding failed",
				slog.String("query", q), slog.Any("error", err))
			continue
		}
		hits, err := s.Retriever.Query(ctx, vec, s.TopK)
		if err != nil {
			slog.WarnContext(ctx, "skipping expanded query, search failed",
				slog.String("query", q), slog.Any("error", err))
			continue
		}
		for _, h := range hits {
			k := dedupeKey{h.Content, h.Meta.Source, h.Meta.Page, h.StartIndex}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, h)
		}
	}
	return merged
}

// buildContext concatenates hit contents up to the token budget. Hits beyond
// the budget are dropped whole rather than truncated mid-chunk.
func (s ChatService) buildContext(hits []domain.Hit) string {
	var b strings.Builder
	used := 0
	for _, h := range hits {
		n := tokencount.Count(h.Content, s.LLMModel)
		if s.ContextTokenBudget > 0 && used+n > s.ContextTokenBudget && used > 0 {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(h.Content)
		used += n
	}
	return b.String()
}

// Ask runs the full pipeline for one question: expand, retrieve, synthesize.
func (s ChatService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question required", domain.ErrInvalidArgument)
	}
	queries := s.ExpandQuery(ctx, question)
	hits := s.RetrieveAll(ctx, queries)
	answer, err := s.LLM.Generate(ctx, fmt.Sprintf(ragPrompt, s.buildContext(hits), question))
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Chat answers a question for a user and records the exchange. A history
// save failure is logged but does not fail the chat.
func (s ChatService) Chat(ctx context.Context, userID, question string) (domain.ChatExchange, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.ChatExchange{}, fmt.Errorf("%w: user_id required", domain.ErrInvalidArgument)
	}
	answer, err := s.Ask(ctx, question)
	if err != nil {
		return domain.ChatExchange{}, err
	}
	ex := domain.ChatExchange{
		UserID:    userID,
		Question:  strings.TrimSpace(question),
		Answer:    answer,
		Timestamp: time.Now().UTC(),
	}
	if err := s.History.Save(ctx, ex); err != nil {
		slog.WarnContext(ctx, "failed to save chat exchange",
			slog.String("user_id", userID), slog.Any("error", err))
	}
	return ex, nil
}

// ListHistory returns the recorded exchanges for a user, newest first.
func (s ChatService) ListHistory(ctx context.Context, userID string) ([]domain.ChatExchange, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user_id required", domain.ErrInvalidArgument)
	}
	return s.History.ListByUser(ctx, userID)
}
