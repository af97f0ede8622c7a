package quiz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notenibblers/notenibblers/pkg/quiz"
)

// completionServer fakes the OpenAI chat completions endpoint, returning
// the given assistant message content and capturing the request body.
func completionServer(t *testing.T, content string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestGenerator(t *testing.T, srv *httptest.Server) *quiz.OpenAIGenerator {
	t.Helper()
	g, err := quiz.NewOpenAIGenerator(quiz.GeneratorConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1",
	})
	require.NoError(t, err)
	return g
}

func TestOpenAIGenerator_GenerateQuestions(t *testing.T) {
	t.Parallel()

	content := `{"questions":[
		{"question":"What is the powerhouse of the cell?","options":["Nucleus","Mitochondria","Ribosome","Golgi"]},
		{"question":"What carries genetic information?","options":["DNA","ATP","RNA polymerase","Lipids"]}
	]}`

	var captured map[string]any
	srv := completionServer(t, content, &captured)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	questions, err := g.GenerateQuestions(context.Background(), "Cell biology source text", 5)
	require.NoError(t, err)

	require.Len(t, questions, 2)
	assert.Equal(t, "What is the powerhouse of the cell?", questions[0].Question)
	assert.Len(t, questions[0].Options, 4)

	assert.Equal(t, "gpt-4-turbo-preview", captured["model"])
	rf, ok := captured["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", rf["type"])
}

func TestOpenAIGenerator_GenerateQuestions_DropsMalformedEntries(t *testing.T) {
	t.Parallel()

	content := `{"questions":[
		{"question":"","options":["A","B","C","D"]},
		{"question":"Only one option","options":["A"]},
		{"question":"Valid?","options":["Yes","No"]}
	]}`

	srv := completionServer(t, content, nil)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	questions, err := g.GenerateQuestions(context.Background(), "source", 5)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "Valid?", questions[0].Question)
}

func TestOpenAIGenerator_GenerateQuestions_CapsAtRequestedCount(t *testing.T) {
	t.Parallel()

	content := `{"questions":[
		{"question":"Q1?","options":["A","B"]},
		{"question":"Q2?","options":["A","B"]},
		{"question":"Q3?","options":["A","B"]}
	]}`

	srv := completionServer(t, content, nil)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	questions, err := g.GenerateQuestions(context.Background(), "source", 2)
	require.NoError(t, err)
	assert.Len(t, questions, 2)
}

func TestOpenAIGenerator_GenerateQuestions_BadJSON(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, "sorry, here are your questions in prose", nil)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	_, err := g.GenerateQuestions(context.Background(), "source", 5)
	assert.ErrorIs(t, err, quiz.ErrGeneration)
}

func TestOpenAIGenerator_GenerateQuestions_InputValidation(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, "{}", nil)
	defer srv.Close()
	g := newTestGenerator(t, srv)

	_, err := g.GenerateQuestions(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, quiz.ErrInvalidInput)

	_, err = g.GenerateQuestions(context.Background(), "source", 0)
	assert.ErrorIs(t, err, quiz.ErrInvalidInput)
}

func TestOpenAIGenerator_GradeAnswer(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	srv := completionServer(t, `{"is_correct":true,"explanation":"Mitochondria produce ATP."}`, &captured)
	defer srv.Close()

	g := newTestGenerator(t, srv)
	result, err := g.GradeAnswer(context.Background(),
		"What is the powerhouse of the cell?",
		[]string{"Nucleus", "Mitochondria", "Ribosome", "Golgi"},
		"Mitochondria")
	require.NoError(t, err)

	assert.True(t, result.IsCorrect)
	assert.Equal(t, "Mitochondria produce ATP.", result.Explanation)
	assert.Equal(t, "gpt-3.5-turbo", captured["model"])
}

func TestOpenAIGenerator_GradeAnswer_InputValidation(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, "{}", nil)
	defer srv.Close()
	g := newTestGenerator(t, srv)

	_, err := g.GradeAnswer(context.Background(), "", []string{"A"}, "A")
	assert.ErrorIs(t, err, quiz.ErrInvalidInput)

	_, err = g.GradeAnswer(context.Background(), "Q?", []string{"A"}, "")
	assert.ErrorIs(t, err, quiz.ErrInvalidInput)
}
