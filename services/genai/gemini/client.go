package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/studybuddy/core"
	"github.com/trezcool/studybuddy/core/chat"
)

var errNoText = errors.New("no text in completion")

// Client answers chat prompts with a Gemini model.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ chat.Completer = (*Client)(nil)

func NewClient(ctx context.Context, conf *core.Config) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(conf.AI.ApiKey))
	if err != nil {
		return nil, errors.Wrap(err, "creating genai client")
	}
	model := client.GenerativeModel(conf.AI.Model)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(512)
	return &Client{client: client, model: model}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", errors.Wrap(err, "generating content")
	}
	return responseText(resp)
}

func (c *Client) Close() error {
	return c.client.Close()
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errNoText
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", errNoText
	}
	return b.String(), nil
}
