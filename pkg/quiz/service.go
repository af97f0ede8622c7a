package quiz

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/notenibblers/notenibblers/pkg/storage"
)

// DefaultQuestionCount is generated when the request doesn't ask for a
// specific number.
const DefaultQuestionCount = 5

// EntitlementGate is the slice of the billing service quiz generation
// depends on.
type EntitlementGate interface {
	// ConsumeQuiz spends one unit of quiz quota or fails with the billing
	// package's quota error.
	ConsumeQuiz(ctx context.Context, userID uuid.UUID) (used, limit int64, err error)

	// QuestionLimit returns the per-quiz question cap of the user's plan.
	QuestionLimit(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service coordinates extraction, entitlement-gated generation and grading.
type Service struct {
	generator Generator
	gate      EntitlementGate
	cache     Cache
	archive   storage.Storage
	log       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables quiz caching so generated quizzes can be re-fetched.
func WithCache(c Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithArchive enables best-effort upload archiving.
func WithArchive(st storage.Storage) ServiceOption {
	return func(s *Service) { s.archive = st }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService wires the quiz service. Generator and entitlement gate are
// required; cache and archive are optional.
func NewService(generator Generator, gate EntitlementGate, opts ...ServiceOption) *Service {
	if generator == nil {
		panic("quiz: generator is required")
	}
	if gate == nil {
		panic("quiz: entitlement gate is required")
	}
	s := &Service{
		generator: generator,
		gate:      gate,
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractDocument extracts quiz source text from an upload and archives the
// original document when storage is configured. Archive failures are
// logged, not returned: the extracted text is already in hand.
func (s *Service) ExtractDocument(ctx context.Context, userID uuid.UUID, filename string, data []byte) (string, error) {
	text, err := ExtractText(filename, data)
	if err != nil {
		return "", err
	}

	if s.archive != nil {
		ext := strings.ToLower(filepath.Ext(filename))
		key := fmt.Sprintf("uploads/%s/%s%s", userID, uuid.New(), ext)
		contentType := mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if _, err := s.archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			s.log.WarnContext(ctx, "upload archive failed",
				slog.String("user_id", userID.String()),
				slog.String("key", key),
				slog.Any("error", err))
		}
	}
	return text, nil
}

// GenerateQuiz spends quiz quota, generates questions from the source text
// and caches the result. The question count is clamped to the plan's
// per-quiz cap. Quota errors from the gate pass through untouched so
// callers can map them.
func (s *Service) GenerateQuiz(ctx context.Context, userID uuid.UUID, title, source string, count int) (*Quiz, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrInvalidInput
	}
	if count <= 0 {
		count = DefaultQuestionCount
	}

	maxQuestions, err := s.gate.QuestionLimit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if maxQuestions > 0 && count > maxQuestions {
		count = maxQuestions
	}

	used, limit, err := s.gate.ConsumeQuiz(ctx, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.GenerateQuestions(ctx, source, count)
	if err != nil {
		return nil, err
	}

	q := &Quiz{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Questions: questions,
		CreatedAt: time.Now().UTC(),
	}
	if q.Title == "" {
		q.Title = "Untitled quiz"
	}

	if s.cache != nil {
		if err := s.cache.Save(ctx, q); err != nil {
			s.log.WarnContext(ctx, "quiz cache write failed",
				slog.String("quiz_id", q.ID.String()), slog.Any("error", err))
		}
	}

	s.log.InfoContext(ctx, "quiz generated",
		slog.String("user_id", userID.String()),
		slog.String("quiz_id", q.ID.String()),
		slog.Int("questions", len(questions)),
		slog.Int64("quota_used", used),
		slog.Int64("quota_limit", limit))
	return q, nil
}

// GetQuiz retrieves a cached quiz, scoped to its owner.
func (s *Service) GetQuiz(ctx context.Context, userID, quizID uuid.UUID) (*Quiz, error) {
	if s.cache == nil {
		return nil, ErrQuizNotFound
	}
	q, err := s.cache.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if q.UserID != userID {
		return nil, ErrQuizNotFound
	}
	return q, nil
}

// GradeAnswer checks one submitted answer.
func (s *Service) GradeAnswer(ctx context.Context, question string, options []string, selected string) (*GradeResult, error) {
	return s.generator.GradeAnswer(ctx, question, options, selected)
}
