package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/snapstudy/snapstudy/internal/domain"
	"github.com/snapstudy/snapstudy/internal/errors"
)

// ErrGeneration covers every failure mode of the vision call: unreachable
// service, unparseable model output, or zero usable cards. They all surface
// to the user as one message with a retry path.
var ErrGeneration = errors.New(errors.CodeUnavailable,
	errors.WithMessagef("generate: could not create flashcards from this image"))

const prompt = `Analyze this image of notes and create flashcards from the content.

Extract key concepts, definitions, formulas, or important information and convert them into question-answer pairs suitable for studying.

Return the flashcards in this exact JSON format:
{
  "flashcards": [
    {
      "front": "Question or term",
      "back": "Answer or definition"
    }
  ]
}

Create between 5-15 flashcards depending on the content available. Focus on the most important information that would be useful for studying.`

type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Generator turns a photographed page of notes into flashcard pairs via an
// OpenAI-compatible vision model.
type Generator struct {
	client *openai.Client
	c      Config
}

func NewGenerator(c Config) *Generator {
	if c.Model == "" {
		c.Model = openai.GPT4o
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}

	cc := openai.DefaultConfig(c.APIKey)
	if c.BaseURL != "" {
		cc.BaseURL = c.BaseURL
	}

	return &Generator{
		client: openai.NewClientWithConfig(cc),
		c:      c,
	}
}

// FromImage sends the base64-encoded JPEG to the vision model and parses
// the returned question/answer pairs.
func (g *Generator) FromImage(ctx context.Context, imageBase64 string) ([]domain.Flashcard, error) {
	ctx, cancel := context.WithTimeout(ctx, g.c.Timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.c.Model,
		MaxTokens:   g.c.MaxTokens,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/jpeg;base64," + imageBase64,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, generationError(fmt.Errorf("chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return nil, generationError(fmt.Errorf("empty completion response"))
	}

	cards, err := parseFlashcards(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, generationError(err)
	}

	return cards, nil
}

// parseFlashcards extracts the JSON block from the model output. Models
// often wrap the payload in prose or code fences, so everything outside
// the outermost braces is discarded.
func parseFlashcards(content string) ([]domain.Flashcard, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var payload struct {
		Flashcards []struct {
			Front string `json:"front"`
			Back  string `json:"back"`
		} `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}

	now := time.Now().UnixMilli()
	cards := make([]domain.Flashcard, 0, len(payload.Flashcards))
	for i, c := range payload.Flashcards {
		if c.Front == "" && c.Back == "" {
			continue
		}
		cards = append(cards, domain.Flashcard{
			ID:    fmt.Sprintf("card_%d_%d", now, i),
			Front: c.Front,
			Back:  c.Back,
		})
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("no flashcards in model output")
	}

	return cards, nil
}

func generationError(cause error) error {
	return errors.New(errors.CodeUnavailable,
		errors.WithMessagef("generate: could not create flashcards from this image"),
		errors.WithCause(cause))
}
