package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dwizi/bizops-assistant/internal/llm"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to the Anthropic messages API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.anthropic.com/v1"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "claude-3-5-sonnet-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func (c *Client) Next(ctx context.Context, input llm.Request) (llm.Response, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return llm.Response{}, fmt.Errorf("%w: missing anthropic API key", llm.ErrUnavailable)
	}

	payload := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: 4096,
		System:    strings.TrimSpace(input.SystemPrompt),
		Messages:  buildMessages(input.Messages),
	}
	for _, tool := range input.Tools {
		schema := tool.Parameters
		if len(bytes.TrimSpace(schema)) == 0 {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		payload.Tools = append(payload.Tools, toolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return llm.Response{}, fmt.Errorf("marshal anthropic request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return llm.Response{}, err
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("content-type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return llm.Response{}, err
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return llm.Response{}, err
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Error("anthropic request failed", "status", res.StatusCode, "body", string(respBody))
		return llm.Response{}, fmt.Errorf("anthropic failed with status %d", res.StatusCode)
	}

	var response messagesResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return llm.Response{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	result := llm.Response{}
	texts := []string{}
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			if text := strings.TrimSpace(block.Text); text != "" {
				texts = append(texts, text)
			}
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
				ID:        block.ID,
				Name:      strings.TrimSpace(block.Name),
				Arguments: block.Input,
			})
		}
	}
	result.Text = strings.Join(texts, "\n\n")
	return result, nil
}

// buildMessages maps the conversation onto content blocks. Consecutive tool
// results are merged into a single user turn as the API requires.
func buildMessages(messages []llm.Message) []message {
	out := make([]message, 0, len(messages))
	for _, entry := range messages {
		switch entry.Role {
		case llm.RoleTool:
			block := contentBlock{
				Type:      "tool_result",
				ToolUseID: entry.ToolCallID,
				Content:   entry.Content,
			}
			if n := len(out); n > 0 && out[n-1].Role == "user" && out[n-1].hasToolResults() {
				out[n-1].Content = append(out[n-1].Content, block)
				continue
			}
			out = append(out, message{Role: "user", Content: []contentBlock{block}})
		case llm.RoleAssistant:
			blocks := []contentBlock{}
			if text := strings.TrimSpace(entry.Content); text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: text})
			}
			for _, call := range entry.ToolCalls {
				blocks = append(blocks, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: objectOrEmpty(call.Arguments),
				})
			}
			out = append(out, message{Role: "assistant", Content: blocks})
		default:
			out = append(out, message{Role: "user", Content: []contentBlock{{Type: "text", Text: entry.Content}}})
		}
	}
	return out
}

// objectOrEmpty keeps tool_use input a JSON object even when the model sent
// malformed arguments earlier in the conversation.
func objectOrEmpty(raw json.RawMessage) json.RawMessage {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

type messagesRequest struct {
	Model     string     `json:"model"`
	MaxTokens int        `json:"max_tokens"`
	System    string     `json:"system,omitempty"`
	Messages  []message  `json:"messages"`
	Tools     []toolSpec `json:"tools,omitempty"`
}

type toolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

func (m message) hasToolResults() bool {
	for _, block := range m.Content {
		if block.Type == "tool_result" {
			return true
		}
	}
	return false
}

type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}
