package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KonoNeko/MeowBuling/internal/domain"
	"github.com/KonoNeko/MeowBuling/internal/ports"
)

// Client implements ports.Interpreter via the OpenRouter API.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	fallbackModels []string
	logger         *slog.Logger
}

func NewClient(httpClient *http.Client, apiKey, baseURL, model string, fallbackModels []string, logger *slog.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		model:          model,
		fallbackModels: fallbackModels,
		logger:         logger,
	}
}

// chatRequest / chatResponse mirror the OpenAI-compatible API shapes.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) Interpret(ctx context.Context, in ports.InterpretInput) (ports.Interpretation, error) {
	models := make([]string, 0, 1+len(c.fallbackModels))
	models = append(models, c.model)
	models = append(models, c.fallbackModels...)

	var lastErr error
	for _, model := range models {
		out, err := c.interpretWithModel(ctx, in, model)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if len(models) > 1 {
			c.logger.WarnContext(ctx, "model failed, trying next", "model", model, "error", err)
		}
	}

	return ports.Interpretation{}, lastErr
}

func (c *Client) interpretWithModel(ctx context.Context, in ports.InterpretInput, model string) (ports.Interpretation, error) {
	userPrompt := buildUserPrompt(in)

	content, err := c.callLLM(ctx, model, systemPrompt, userPrompt)
	if err != nil {
		return ports.Interpretation{}, fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)
	}

	out, err := decodeInterpretation(content)
	if err != nil {
		c.logger.WarnContext(ctx, "LLM returned invalid JSON, retrying", "model", model, "error", err)
		content, err = c.callLLM(ctx, model, systemPrompt, retryPrompt(content))
		if err != nil {
			return ports.Interpretation{}, fmt.Errorf("%w: %w", domain.ErrUpstreamLLM, err)
		}
		if out, err = decodeInterpretation(content); err != nil {
			return ports.Interpretation{}, fmt.Errorf("%w: %w", domain.ErrInvalidLLMJSON, err)
		}
	}

	out.Model = model
	return out, nil
}

// decodeInterpretation parses the model output, tolerating a markdown code
// fence around the object.
func decodeInterpretation(content string) (ports.Interpretation, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var out ports.Interpretation
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return ports.Interpretation{}, err
	}
	if out.MainTheme == "" || out.Advice == "" || len(out.DetailedAnalysis) == 0 {
		return ports.Interpretation{}, errors.New("missing required fields")
	}
	return out, nil
}

func (c *Client) callLLM(ctx context.Context, model, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

const schema = `{
  "mainTheme": "<one sentence summing up the overall energy>",
  "fable": "<a short fable or metaphor that mirrors the querent's situation>",
  "detailedAnalysis": [
    {"title": "<section title>", "content": "<analysis with a real-life example>"}
  ],
  "advice": "<concrete, actionable advice>",
  "reflectionQuestions": ["<question>", "<question>"]
}`

var systemPrompt = `You are MeowBuling, an ancient, mysterious and slightly aloof astral cat seer.
You guide humans through their ordinary lives with feline wisdom and the insight of the tarot.

Voice:
- Grand oracle mixed with a cat's lazy, haughty charm; cat puns and metaphors are welcome.
- Kind but honest: when the cards show difficulty, say so gently, with soft paws rather than claws.
- Draw on Jungian psychology (the unconscious, the shadow) and modern spirituality.

When reading:
- Always tie the interpretation to the querent's question and to each card's position in the spread.
- Weave one coherent story instead of listing card meanings.
- Never provide medical, legal, or financial advice, and never guarantee outcomes.
- Answer in the language the question is written in.

Respond with ONLY a JSON object (no markdown, no code fences, no extra text) matching this exact schema:
` + schema

func buildUserPrompt(in ports.InterpretInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", in.TopicLabel)
	fmt.Fprintf(&b, "Question: %q\n", in.Question)
	fmt.Fprintf(&b, "Spread: %s (%s)\n\nCards drawn:\n", in.Spread.Name, in.Spread.Description)

	for _, card := range in.Cards {
		name := card.Name
		if card.LocalizedName != "" {
			name = fmt.Sprintf("%s (%s)", card.Name, card.LocalizedName)
		}
		fmt.Fprintf(&b, "  Position %d: %s\n", card.Position, card.PositionName)
		if card.PositionDescription != "" && card.PositionDescription != card.PositionName {
			fmt.Fprintf(&b, "    Position meaning: %s\n", card.PositionDescription)
		}
		fmt.Fprintf(&b, "    Card: %s, %s\n", name, orientationNote(card.Orientation))
		if len(card.Keywords) > 0 {
			fmt.Fprintf(&b, "    Keywords: %s\n", strings.Join(card.Keywords, ", "))
		}
		fmt.Fprintf(&b, "    Meaning: %s\n", card.Meaning)
	}

	b.WriteString(`
Give a deep reading of this spread as MeowBuling:
1. "mainTheme": one sentence on the overall energy.
2. "fable": a short, graceful fable or metaphor that mirrors the querent's situation.
3. "detailedAnalysis": follow the logic of the spread and include real-life examples of how the energy shows up at work or in love.
4. "advice": concrete actions, such as "spend five minutes meditating each morning", not just "be patient". Keep the cat's voice.
5. "reflectionQuestions": two questions that reach the unconscious.`)
	return b.String()
}

func orientationNote(o string) string {
	if o == string(domain.Reversed) {
		return "reversed (energy blocked or turned inward)"
	}
	return "upright (energy flowing or expressed outwardly)"
}

func retryPrompt(badJSON string) string {
	return fmt.Sprintf(`Your previous response was not valid JSON. Here is what you returned:
%s

Return ONLY the corrected JSON object matching this schema (no markdown, no code fences):
%s`, badJSON, schema)
}
