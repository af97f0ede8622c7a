package quiz

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/notenibblers/notenibblers/pkg/billing"
	"github.com/notenibblers/notenibblers/pkg/jwt"
	"github.com/notenibblers/notenibblers/pkg/quiz"
	"github.com/notenibblers/notenibblers/pkg/response"
)

// maxUploadBytes bounds uploaded source documents.
const maxUploadBytes = 10 << 20

type handlers struct {
	svc *quiz.Service
	log *slog.Logger
}

type extractView struct {
	Text string `json:"text"`
}

// extract accepts a multipart upload under the "file" field and returns
// the extracted plain text for review before generation.
func (h *handlers) extract(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.Error(w, response.ErrRequestEntityTooLarge.WithMessage("upload too large or malformed"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, response.ErrBadRequest.WithMessage("file field is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	text, err := h.svc.ExtractDocument(r.Context(), userID, header.Filename, data)
	if err != nil {
		response.Error(w, mapQuizError(err))
		return
	}
	response.JSON(w, http.StatusOK, extractView{Text: text})
}

type generateRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	QuestionCount int    `json:"question_count"`
}

func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	q, err := h.svc.GenerateQuiz(r.Context(), userID, req.Title, req.Content, req.QuestionCount)
	if err != nil {
		response.Error(w, mapQuizError(err))
		return
	}
	response.JSON(w, http.StatusOK, q)
}

func (h *handlers) getQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := jwt.UserID(r.Context())
	if !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	quizID, err := uuid.Parse(chi.URLParam(r, "quizID"))
	if err != nil {
		response.Error(w, response.ErrBadRequest.WithMessage("invalid quiz id"))
		return
	}

	q, err := h.svc.GetQuiz(r.Context(), userID, quizID)
	if err != nil {
		response.Error(w, mapQuizError(err))
		return
	}
	response.JSON(w, http.StatusOK, q)
}

type answerRequest struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	SelectedAnswer string   `json:"selected_answer"`
}

func (h *handlers) answer(w http.ResponseWriter, r *http.Request) {
	if _, ok := jwt.UserID(r.Context()); !ok {
		response.Error(w, response.ErrUnauthorized)
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, response.ErrBadRequest)
		return
	}

	result, err := h.svc.GradeAnswer(r.Context(), req.Question, req.Options, req.SelectedAnswer)
	if err != nil {
		response.Error(w, mapQuizError(err))
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func mapQuizError(err error) error {
	switch {
	case errors.Is(err, billing.ErrQuotaExceeded):
		return response.ErrPaymentRequired.
			WithMessage("free plan quiz limit reached, upgrade at /pricing to continue")
	case errors.Is(err, quiz.ErrUnsupportedFormat):
		return response.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported_format").
			WithMessage("only PDF, DOCX, TXT and MD files are supported")
	case errors.Is(err, quiz.ErrEmptyDocument):
		return response.ErrUnprocessableEntity.WithMessage("no text could be extracted from the document")
	case errors.Is(err, quiz.ErrExtraction):
		return response.ErrUnprocessableEntity.WithMessage("the document could not be parsed")
	case errors.Is(err, quiz.ErrInvalidInput):
		return response.ErrBadRequest.WithMessage("invalid quiz input")
	case errors.Is(err, quiz.ErrQuizNotFound):
		return response.ErrNotFound
	case errors.Is(err, quiz.ErrGeneration), errors.Is(err, quiz.ErrGrading):
		return response.NewHTTPError(http.StatusBadGateway, "generation_failed").
			WithMessage("question generation is unavailable, please try again")
	default:
		return err
	}
}
