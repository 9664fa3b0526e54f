package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/minutesapp/minutes-pipeline/lark"
	"github.com/minutesapp/minutes-pipeline/minutes"
)

// DefaultModel is used when neither the client nor the call specifies one
const DefaultModel = "gpt-4o-mini"

// GenerateRequest carries the inputs for one generation call
type GenerateRequest struct {
	Transcript lark.Transcript
	Meeting    lark.Meeting
	Options    Options
}

// Client calls the summarization API to turn a transcript into minutes
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the API host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithModel sets the default model for generation calls
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a generation client with the API key injected
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com",
		model:   DefaultModel,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

/* Chat-completions wire types. The model is instructed to answer with
 * a single JSON document matching the minutes schema.
 */

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// minutesDoc is the JSON shape the model is asked to produce
type minutesDoc struct {
	Summary string `json:"summary"`
	Topics  []struct {
		Title  string   `json:"title"`
		Points []string `json:"points"`
	} `json:"topics"`
	Decisions   []string `json:"decisions"`
	ActionItems []struct {
		Description string `json:"description"`
		Assignee    string `json:"assignee"`
		DueDate     string `json:"due_date"`
	} `json:"action_items"`
	Attendees []string `json:"attendees"`
}

// GenerateMinutes produces structured minutes from a transcript.
// The call is made exactly once; retry discipline belongs to the
// caller's transcript-readiness stage, not here.
func (c *Client) GenerateMinutes(ctx context.Context, req GenerateRequest) (*minutes.GenerationResult, error) {
	if c.apiKey == "" {
		return nil, &GenError{Code: CodeMissingAPIKey, Msg: "generation API key is not configured"}
	}
	if len(req.Transcript.Sentences) == 0 {
		return nil, &GenError{Code: CodeInvalidInput, Msg: "transcript has no sentences"}
	}

	model := req.Options.Model
	if model == "" {
		model = c.model
	}

	start := time.Now()

	chatReq := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req.Options)},
			{Role: "user", Content: buildPrompt(req)},
		},
	}
	chatReq.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, &GenError{Code: CodeGenerationFailed, Msg: fmt.Sprintf("marshaling request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &GenError{Code: CodeGenerationFailed, Msg: fmt.Sprintf("creating request: %v", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &GenError{Code: CodeGenerationFailed, Msg: fmt.Sprintf("calling generation API: %v", err)}
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &GenError{Code: CodeGenerationFailed, Msg: fmt.Sprintf("decoding response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("generation API returned status %d", resp.StatusCode)
		if chatResp.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, chatResp.Error.Message)
		}
		return nil, &GenError{Code: CodeGenerationFailed, Msg: msg}
	}
	if len(chatResp.Choices) == 0 {
		return nil, &GenError{Code: CodeGenerationFailed, Msg: "generation API returned no choices"}
	}

	var doc minutesDoc
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &doc); err != nil {
		return nil, &GenError{Code: CodeGenerationFailed, Msg: fmt.Sprintf("parsing model output: %v", err)}
	}

	m := minutes.Minutes{
		Summary:   doc.Summary,
		Decisions: doc.Decisions,
		Attendees: doc.Attendees,
		Metadata: minutes.Metadata{
			MeetingID:   req.Meeting.ID,
			Topic:       req.Meeting.Topic,
			GeneratedAt: time.Now().UTC(),
			Model:       model,
		},
	}
	for _, t := range doc.Topics {
		m.Topics = append(m.Topics, minutes.Topic{Title: t.Title, Points: t.Points})
	}
	for _, a := range doc.ActionItems {
		m.ActionItems = append(m.ActionItems, minutes.ActionItem{
			Description: a.Description,
			Assignee:    a.Assignee,
			DueDate:     a.DueDate,
		})
	}

	return &minutes.GenerationResult{
		Minutes:        m,
		ProcessingTime: time.Since(start),
		Usage: minutes.Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}

func systemPrompt(opts Options) string {
	lang := opts.Language
	if lang == "" {
		lang = "the language of the transcript"
	}
	return fmt.Sprintf("You are a meeting minutes writer. Answer with a single JSON object "+
		"with fields summary, topics (title, points), decisions, action_items "+
		"(description, assignee, due_date), attendees. Write in %s.", lang)
}

func buildPrompt(req GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting: %s\n", req.Meeting.Topic)
	if !req.Meeting.StartTime.IsZero() {
		fmt.Fprintf(&b, "Started: %s\n", req.Meeting.StartTime.Format(time.RFC3339))
	}
	b.WriteString("\nTranscript:\n")
	for _, s := range req.Transcript.Sentences {
		fmt.Fprintf(&b, "[%s] %s\n", s.Speaker, s.Text)
	}
	return b.String()
}
