package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rebota-hq/rebota/internal/config"
	"github.com/rebota-hq/rebota/internal/domain"
	"github.com/rebota-hq/rebota/internal/ingest"
	"github.com/rebota-hq/rebota/internal/usecase"
	"github.com/rebota-hq/rebota/pkg/textx"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Chat        usecase.ChatService
	Match       usecase.MatchService
	OllamaCheck func(ctx context.Context) error
	QdrantCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, chat usecase.ChatService, match usecase.MatchService, ollamaCheck, qdrantCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Chat: chat, Match: match, OllamaCheck: ollamaCheck, QdrantCheck: qdrantCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type askRequest struct {
	Query string `json:"query" validate:"required,min=1,max=4000"`
}

type askResponse struct {
	Query  string `json:"query"`
	Result string `json:"result"`
}

// AskHandler answers a one-off question over the indexed corpus.
func (s *Server) AskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		answer, err := s.Chat.Ask(r.Context(), req.Query)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, askResponse{Query: req.Query, Result: answer})
	}
}

type chatRequest struct {
	UserID   string `json:"user_id" validate:"required,min=1,max=128"`
	Question string `json:"question" validate:"required,min=1,max=4000"`
}

type chatResponse struct {
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatHandler answers a question for a user and records the exchange.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		ex, err := s.Chat.Chat(r.Context(), req.UserID, req.Question)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Answer: ex.Answer, Timestamp: ex.Timestamp})
	}
}

type historyEntry struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryHandler lists the recorded exchanges for a user.
func (s *Server) HistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "user_id")
		exchanges, err := s.Chat.ListHistory(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]historyEntry, 0, len(exchanges))
		for _, ex := range exchanges {
			out = append(out, historyEntry{Question: ex.Question, Answer: ex.Answer, Timestamp: ex.Timestamp})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type matchResult struct {
	Rank       int     `json:"rank"`
	ResumeName string  `json:"resume_name"`
	MatchScore float64 `json:"match_score"`
	Feedback   string  `json:"feedback"`
}

type matchResponse struct {
	JobRequirements string        `json:"job_requirements"`
	Results         []matchResult `json:"results"`
}

// MatchResumesHandler scores uploaded resumes against an uploaded job description.
func (s *Server) MatchResumesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		jobFile, jobHeader, err := r.FormFile("job_file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: job_file required", domain.ErrInvalidArgument), map[string]string{"field": "job_file"})
			return
		}
		defer func() { _ = jobFile.Close() }()

		resumeHeaders := r.MultipartForm.File["resumes"]
		if len(resumeHeaders) == 0 {
			writeError(w, r, fmt.Errorf("%w: at least one resume required", domain.ErrInvalidArgument), map[string]string{"field": "resumes"})
			return
		}

		jobText, err := extractUploadedText(jobHeader, jobFile)
		if err != nil {
			writeError(w, r, err, map[string]string{"filename": jobHeader.Filename})
			return
		}

		resumes := make([]usecase.NamedText, 0, len(resumeHeaders))
		for _, h := range resumeHeaders {
			f, err := h.Open()
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidArgument, h.Filename, err), nil)
				return
			}
			text, err := extractUploadedText(h, f)
			_ = f.Close()
			if err != nil {
				writeError(w, r, err, map[string]string{"filename": h.Filename})
				return
			}
			resumes = append(resumes, usecase.NamedText{Name: h.Filename, Text: text})
		}

		requirements, ranked, err := s.Match.ScoreAndRank(r.Context(), jobText, resumes)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		results := make([]matchResult, 0, len(ranked))
		for _, m := range ranked {
			results = append(results, matchResult{
				Rank:       m.Rank,
				ResumeName: m.ResumeName,
				MatchScore: m.CombinedScore,
				Feedback:   m.Feedback,
			})
		}
		writeJSON(w, http.StatusOK, matchResponse{JobRequirements: requirements, Results: results})
	}
}

// allowedExt enforces the upload allowlist: .pdf and .txt.
func allowedExt(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".pdf") || strings.HasSuffix(n, ".txt")
}

func allowedMIMEFor(m, filename string) bool {
	m = strings.ToLower(m)
	if strings.HasSuffix(strings.ToLower(filename), ".txt") && strings.HasPrefix(m, "text/") {
		return true
	}
	return m == "application/pdf"
}

// extractUploadedText validates the upload against the extension and content
// allowlists and extracts its text. PDFs stream through a temp file for the
// extractor; text files are sanitized directly.
func extractUploadedText(h *multipart.FileHeader, f multipart.File) (string, error) {
	if !allowedExt(h.Filename) {
		return "", fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidArgument, filepath.Ext(h.Filename))
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", domain.ErrInvalidArgument, h.Filename, err)
	}
	m := mimetype.Detect(data)
	if !allowedMIMEFor(m.String(), h.Filename) {
		return "", fmt.Errorf("%w: unsupported content type %q for %s", domain.ErrInvalidArgument, m.String(), h.Filename)
	}
	if strings.HasSuffix(strings.ToLower(h.Filename), ".pdf") {
		tmp, err := os.CreateTemp("", "upload-*.pdf")
		if err != nil {
			return "", fmt.Errorf("op=httpserver.extract: %w", err)
		}
		defer func() { _ = os.Remove(tmp.Name()); _ = tmp.Close() }()
		if _, err := tmp.Write(data); err != nil {
			return "", fmt.Errorf("op=httpserver.extract: %w", err)
		}
		text, err := ingest.ExtractPDFText(tmp.Name())
		if err != nil {
			return "", fmt.Errorf("%w: pdf extract %s: %v", domain.ErrInvalidArgument, h.Filename, err)
		}
		return text, nil
	}
	return textx.SanitizeText(string(data)), nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", domain.ErrInvalidArgument, err)
	}
	if err := getValidator().Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type readinessCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// ReadyzHandler probes the Ollama and Qdrant dependencies.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := []readinessCheck{
			runCheck(ctx, "ollama", s.OllamaCheck),
			runCheck(ctx, "qdrant", s.QdrantCheck),
		}
		status := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				status = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, status, map[string]any{"checks": checks})
	}
}

func runCheck(ctx context.Context, name string, fn func(context.Context) error) readinessCheck {
	if fn == nil {
		return readinessCheck{Name: name, OK: true, Details: "not configured"}
	}
	if err := fn(ctx); err != nil {
		return readinessCheck{Name: name, OK: false, Details: err.Error()}
	}
	return readinessCheck{Name: name, OK: true}
}
