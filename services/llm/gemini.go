// Package llmsvc generates text with Gemini.
package llmsvc

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/teleapo/core"
)

const generateTimeout = 60 * time.Second

var (
	// errors
	ErrNotConfigured = errors.New("GEMINI_API_KEY is not configured")
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrNoText        = errors.New("model returned no text")
)

// contentGenerator is implemented by *genai.GenerativeModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Generation struct {
	Text         string `json:"text"`
	FinishReason string `json:"finishReason,omitempty"`
}

type Service struct {
	client *genai.Client
	model  contentGenerator
}

// NewService returns a service that fails with ErrNotConfigured when no API key is set.
func NewService(ctx context.Context, conf *core.Config) (*Service, error) {
	if conf.Google.GeminiAPIKey == "" {
		return &Service{}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(conf.Google.GeminiAPIKey))
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	return &Service{client: client, model: client.GenerativeModel(conf.Google.GeminiModel)}, nil
}

func (svc *Service) Close() error {
	if svc.client == nil {
		return nil
	}
	return svc.client.Close()
}

// Generate returns the text of the first candidate, its parts joined.
func (svc *Service) Generate(ctx context.Context, prompt string) (Generation, error) {
	if svc.model == nil {
		return Generation{}, ErrNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return Generation{}, core.NewValidationError(ErrEmptyPrompt, core.FieldError{Field: "prompt", Error: ErrEmptyPrompt.Error()})
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := svc.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Generation{}, errors.Wrap(err, "generating content")
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Generation{}, ErrNoText
	}

	cand := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return Generation{}, ErrNoText
	}
	return Generation{Text: sb.String(), FinishReason: cand.FinishReason.String()}, nil
}
