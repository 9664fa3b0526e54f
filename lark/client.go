package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the open platform API host
const DefaultBaseURL = "https://open.feishu.cn"

/* Error codes returned by the VC open API for transcript lookups.
 * Distinguishing "not ready yet" from "will never exist" is what makes
 * the pipeline retry predicate correct.
 */
const (
	codeMeetingNotFound    = 102001
	codeTranscriptNotReady = 102005
	codeNoRecording        = 102006
)

// Client calls the meeting platform's open API
type Client struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
	tokens    *tokenSource
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL overrides the API host, used for tests and private deployments
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a platform client with app credentials injected
func NewClient(appID, appSecret string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		appID:     appID,
		appSecret: appSecret,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tokens = newTokenSource(c.fetchTenantToken)
	return c
}

// apiResponse is the common envelope of open API responses
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) fetchTenantToken(ctx context.Context) (string, time.Duration, error) {
	reqBody, err := json.Marshal(map[string]string{
		"app_id":     c.appID,
		"app_secret": c.appSecret,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/open-apis/auth/v3/tenant_access_token/internal", bytes.NewReader(reqBody))
	if err != nil {
		return "", 0, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("requesting tenant access token: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("decoding token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || body.Code != 0 {
		return "", 0, &APIError{Status: resp.StatusCode, Code: body.Code, Msg: body.Msg}
	}

	return body.TenantAccessToken, time.Duration(body.Expire) * time.Second, nil
}

// do performs an authenticated API call and decodes the data envelope
// into out. Known VC error codes are mapped to sentinel errors;
// everything else surfaces as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK || envelope.Code != 0 {
		return mapAPIError(resp.StatusCode, envelope.Code, envelope.Msg)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("unmarshaling response data from %s: %w", path, err)
		}
	}

	return nil
}

func mapAPIError(status, code int, msg string) error {
	apiErr := &APIError{Status: status, Code: code, Msg: msg}
	switch code {
	case codeMeetingNotFound:
		return fmt.Errorf("%w: %v", ErrMeetingNotFound, apiErr)
	case codeTranscriptNotReady:
		return fmt.Errorf("%w: %v", ErrTranscriptNotReady, apiErr)
	case codeNoRecording:
		return fmt.Errorf("%w: %v", ErrNoRecording, apiErr)
	default:
		return apiErr
	}
}

// GetMeeting looks up a meeting by ID
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (Meeting, error) {
	var data struct {
		Meeting struct {
			ID       string `json:"id"`
			Topic    string `json:"topic"`
			HostUser struct {
				ID string `json:"id"`
			} `json:"host_user"`
			StartTime        string `json:"start_time"`
			EndTime          string `json:"end_time"`
			ParticipantCount string `json:"participant_count"`
		} `json:"meeting"`
	}
	if err := c.do(ctx, http.MethodGet, "/open-apis/vc/v1/meetings/"+meetingID, nil, &data); err != nil {
		return Meeting{}, fmt.Errorf("getting meeting %s: %w", meetingID, err)
	}

	m := Meeting{
		ID:         data.Meeting.ID,
		Topic:      data.Meeting.Topic,
		HostUserID: data.Meeting.HostUser.ID,
	}
	m.StartTime = parseUnixString(data.Meeting.StartTime)
	m.EndTime = parseUnixString(data.Meeting.EndTime)
	m.ParticipantCount = int(parseInt64(data.Meeting.ParticipantCount))
	return m, nil
}

// GetTranscript fetches the transcript of an ended meeting.
// Returns ErrTranscriptNotReady while the upstream transcript pipeline
// is still running, and ErrNoRecording or ErrMeetingNotFound when a
// transcript will never exist.
func (c *Client) GetTranscript(ctx context.Context, meetingID string) (Transcript, error) {
	var data struct {
		Sentences []Sentence `json:"sentences"`
	}
	if err := c.do(ctx, http.MethodGet, "/open-apis/vc/v1/meetings/"+meetingID+"/transcript", nil, &data); err != nil {
		return Transcript{}, fmt.Errorf("getting transcript for meeting %s: %w", meetingID, err)
	}

	return Transcript{
		MeetingID: meetingID,
		Sentences: data.Sentences,
	}, nil
}

// SendMinutesNotification sends the generated minutes summary to the
// meeting host as a direct message
func (c *Client) SendMinutesNotification(ctx context.Context, n Notification) (NotifyReceipt, error) {
	content, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("Minutes are ready for %q.\n\n%s", n.Topic, n.Summary),
	})
	if err != nil {
		return NotifyReceipt{}, fmt.Errorf("marshaling message content: %w", err)
	}

	in := map[string]string{
		"receive_id": n.ReceiverID,
		"msg_type":   "text",
		"content":    string(content),
	}

	var data struct {
		MessageID string `json:"message_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/open-apis/im/v1/messages?receive_id_type=user_id", in, &data); err != nil {
		return NotifyReceipt{}, fmt.Errorf("sending minutes notification: %w", err)
	}

	return NotifyReceipt{MessageID: data.MessageID}, nil
}

// SendFailureNotice tells the host that automatic minutes generation
// failed and the meeting needs a manual review. Best-effort.
func (c *Client) SendFailureNotice(ctx context.Context, hostUserID, meetingID, reason string) error {
	content, err := json.Marshal(map[string]string{
		"text": fmt.Sprintf("Automatic minutes generation failed for meeting %s: %s. Please review manually.", meetingID, reason),
	})
	if err != nil {
		return fmt.Errorf("marshaling failure notice: %w", err)
	}

	in := map[string]string{
		"receive_id": hostUserID,
		"msg_type":   "text",
		"content":    string(content),
	}

	if err := c.do(ctx, http.MethodPost, "/open-apis/im/v1/messages?receive_id_type=user_id", in, nil); err != nil {
		return fmt.Errorf("sending failure notice: %w", err)
	}
	return nil
}
