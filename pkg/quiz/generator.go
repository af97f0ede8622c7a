package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// promptSourceLimit caps how much of the source document goes into the
// generation prompt to stay inside model token limits.
const promptSourceLimit = 3000

// Generator produces and grades quiz questions. The production
// implementation calls OpenAI; tests substitute their own.
type Generator interface {
	GenerateQuestions(ctx context.Context, source string, count int) ([]Question, error)
	GradeAnswer(ctx context.Context, question string, options []string, selected string) (*GradeResult, error)
}

// GeneratorConfig holds OpenAI settings. BaseURL is overridable for
// proxies and tests.
type GeneratorConfig struct {
	APIKey     string `env:"OPENAI_API_KEY,required"`
	Model      string `env:"OPENAI_MODEL" envDefault:"gpt-4-turbo-preview"`
	GradeModel string `env:"OPENAI_GRADE_MODEL" envDefault:"gpt-3.5-turbo"`
	BaseURL    string `env:"OPENAI_BASE_URL"`
}

// OpenAIGenerator implements Generator against the OpenAI chat completions
// API.
type OpenAIGenerator struct {
	client     *openai.Client
	model      string
	gradeModel string
}

// NewOpenAIGenerator creates an OpenAI-backed generator.
func NewOpenAIGenerator(cfg GeneratorConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4-turbo-preview"
	}
	gradeModel := cfg.GradeModel
	if gradeModel == "" {
		gradeModel = "gpt-3.5-turbo"
	}
	return &OpenAIGenerator{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		gradeModel: gradeModel,
	}, nil
}

func (g *OpenAIGenerator) GenerateQuestions(ctx context.Context, source string, count int) ([]Question, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrInvalidInput
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: question count must be positive", ErrInvalidInput)
	}

	prompt := fmt.Sprintf(`Based on the following text, generate %d multiple choice questions. Each question should have 4 options.

Text: %s

Format each question as follows:
{
  "question": "Question text here?",
  "options": ["Option A", "Option B", "Option C", "Option D"]
}

Return a JSON object with a "questions" array.`, count, truncate(source, promptSourceLimit))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a helpful assistant that generates multiple choice questions based on document content. Return only valid JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature:    0.7,
		MaxTokens:      2000,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, errors.Join(ErrGeneration, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrGeneration)
	}

	var parsed struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, errors.Join(ErrGeneration, err)
	}

	questions := make([]Question, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
			continue
		}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no usable questions in completion", ErrGeneration)
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

func (g *OpenAIGenerator) GradeAnswer(ctx context.Context, question string, options []string, selected string) (*GradeResult, error) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(selected) == "" {
		return nil, ErrInvalidInput
	}

	prompt := fmt.Sprintf(`Question: %s
Available options: %s
Selected answer: %s

Decide whether the selected answer is correct based on factual knowledge.
Return a JSON object: {"is_correct": true or false, "explanation": "one short sentence"}.`,
		question, strings.Join(options, ", "), selected)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.gradeModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    0,
		MaxTokens:      150,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return nil, errors.Join(ErrGrading, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrGrading)
	}

	var result GradeResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, errors.Join(ErrGrading, err)
	}
	return &result, nil
}
