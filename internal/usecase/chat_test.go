package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebota-hq/rebota/internal/domain"
)

type fakeEmbedder struct {
	calls   []string
	failFor map[string]bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.failFor[text] {
		return nil, domain.ErrEmbeddingFailed
	}
	// Deterministic vector keyed by text length so queries differ.
	return []float32{float32(len(text)), 1}, nil
}

type fakeGenerator struct {
	prompts   []string
	responses []string
	errs      []error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return resp, err
}

type fakeRetriever struct {
	hits    map[int][]domain.Hit // keyed by vector[0] (query length)
	queries int
	err     error
}

func (f *fakeRetriever) Query(_ context.Context, vector []float32, _ int) ([]domain.Hit, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.hits[int(vector[0])], nil
}

type fakeHistory struct {
	saved []domain.ChatExchange
	err   error
}

func (f *fakeHistory) Save(_ context.Context, ex domain.ChatExchange) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, ex)
	return nil
}

func (f *fakeHistory) ListByUser(_ context.Context, _ string) ([]domain.ChatExchange, error) {
	return f.saved, nil
}

func newChatService(e domain.Embedder, g domain.Generator, r domain.Retriever, h domain.HistoryStore) ChatService {
	return NewChatService(e, g, r, h, 4, 2048, "llama3.2:latest")
}

func TestExpandQueryIncludesOriginalFirst(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"How many vacation days?\n\nWhat is the leave policy?\n"}}
	s := newChatService(&fakeEmbedder{}, gen, &fakeRetriever{}, &fakeHistory{})

	qs := s.ExpandQuery(context.Background(), "How much PTO do I get?")
	require.Len(t, qs, 3)
	assert.Equal(t, "How much PTO do I get?", qs[0])
	assert.Equal(t, "How many vacation days?", qs[1])
	assert.Equal(t, "What is the leave policy?", qs[2])
}

func TestExpandQueryDegradesOnLLMFailure(t *testing.T) {
	gen := &fakeGenerator{errs: []error{domain.ErrLLMFailed}}
	s := newChatService(&fakeEmbedder{}, gen, &fakeRetriever{}, &fakeHistory{})

	qs := s.ExpandQuery(context.Background(), "original question")
	assert.Equal(t, []string{"original question"}, qs)
}

func TestExpandQueryDropsEchoedOriginal(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"original question\nvariant one"}}
	s := newChatService(&fakeEmbedder{}, gen, &fakeRetriever{}, &fakeHistory{})

	qs := s.ExpandQuery(context.Background(), "original question")
	assert.Equal(t, []string{"original question", "variant one"}, qs)
}

func TestRetrieveAllDedupesAcrossQueries(t *testing.T) {
	shared := domain.Hit{Content: "vacation policy text", Meta: domain.Metadata{Source: "hb.pdf", Page: 2}, StartIndex: 0, Score: 0.9}
	ret := &fakeRetriever{hits: map[int][]domain.Hit{
		3: {shared, {Content: "only from q1", Meta: domain.Metadata{Source: "hb.pdf", Page: 3}}},
		5: {shared, {Content: "only from q2", Meta: domain.Metadata{Source: "hb.pdf", Page: 4}}},
	}}
	s := newChatService(&fakeEmbedder{}, &fakeGenerator{}, ret, &fakeHistory{})

	hits := s.RetrieveAll(context.Background(), []string{"abc", "abcde"})
	require.Len(t, hits, 3)
	assert.Equal(t, "vacation policy text", hits[0].Content)
	assert.Equal(t, 2, ret.queries)
}

func TestRetrieveAllSkipsFailedQueryEmbedding(t *testing.T) {
	emb := &fakeEmbedder{failFor: map[string]bool{"bad": true}}
	ret := &fakeRetriever{hits: map[int][]domain.Hit{2: {{Content: "ok"}}}}
	s := newChatService(emb, &fakeGenerator{}, ret, &fakeHistory{})

	hits := s.RetrieveAll(context.Background(), []string{"bad", "ok"})
	require.Len(t, hits, 1)
	assert.Equal(t, 1, ret.queries)
}

func TestAskBuildsRAGPromptFromHits(t *testing.T) {
	gen := &fakeGenerator{
		responses: []string{"variant", "Employees get 25 days."},
	}
	ret := &fakeRetriever{hits: map[int][]domain.Hit{
		len("How much PTO?"): {{Content: "Annual leave is 25 days."}},
		len("variant"):       nil,
	}}
	s := newChatService(&fakeEmbedder{}, gen, ret, &fakeHistory{})

	answer, err := s.Ask(context.Background(), "How much PTO?")
	require.NoError(t, err)
	assert.Equal(t, "Employees get 25 days.", answer)

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "based ONLY on the following context")
	assert.Contains(t, gen.prompts[1], "Annual leave is 25 days.")
	assert.Contains(t, gen.prompts[1], "Question: How much PTO?")
	assert.Contains(t, gen.prompts[1], "use LLM knowledge to help")
}

func TestAskEmptyQuestion(t *testing.T) {
	s := newChatService(&fakeEmbedder{}, &fakeGenerator{}, &fakeRetriever{}, &fakeHistory{})
	_, err := s.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAskSynthesisFailure(t *testing.T) {
	gen := &fakeGenerator{errs: []error{nil, domain.ErrLLMFailed}, responses: []string{"variant", ""}}
	s := newChatService(&fakeEmbedder{}, gen, &fakeRetriever{hits: map[int][]domain.Hit{}}, &fakeHistory{})

	_, err := s.Ask(context.Background(), "question")
	assert.ErrorIs(t, err, domain.ErrLLMFailed)
}

func TestChatSavesExchange(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"variant", "the answer"}}
	hist := &fakeHistory{}
	s := newChatService(&fakeEmbedder{}, gen, &fakeRetriever{hits: map[int][]domain.Hit{}}, hist)

	ex, err := s.Chat(context.Background(), "u-1", "a question")
	require.NoError(t, err)
	assert.Equal(t, "u-1", ex.UserID)
	assert.Equal(t, "the answer", ex.Answer)
	assert.False(t, ex.Timestamp.IsZero())
	assert.Equal(t, "UTC", ex.Timestamp.Location().String())

	require.Len(t, hist.saved, 1)
	assert.Equal(t, ex, hist.saved[0])
}

func TestChatHistorySaveFailureIsNotFatal(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"variant", "the answer"}}
	hist := &fakeHistory{err: errors.New("store down")}
	s := newChatService(&fakeEmbedder{}, gen, &fakeRetriever{hits: map[int][]domain.Hit{}}, hist)

	ex, err := s.Chat(context.Background(), "u-1", "a question")
	require.NoError(t, err)
	assert.Equal(t, "the answer", ex.Answer)
}

func TestChatRequiresUserID(t *testing.T) {
	s := newChatService(&fakeEmbedder{}, &fakeGenerator{}, &fakeRetriever{}, &fakeHistory{})
	_, err := s.Chat(context.Background(), "", "q")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBuildContextRespectsTokenBudget(t *testing.T) {
	s := newChatService(&fakeEmbedder{}, &fakeGenerator{}, &fakeRetriever{}, &fakeHistory{})
	s.ContextTokenBudget = 20

	long := strings.Repeat("benefits enrollment period ", 30)
	hits := []domain.Hit{{Content: long}, {Content: "short follow-up"}}
	ctx := s.buildContext(hits)
	// First hit always included even when over budget; second dropped whole.
	assert.Contains(t, ctx, "benefits enrollment")
	assert.NotContains(t, ctx, "short follow-up")
}
