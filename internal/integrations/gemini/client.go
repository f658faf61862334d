package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"

	// fallbackStatusMessage is shown when a non-2xx response carries no error message.
	fallbackStatusMessage = "Request failed"
)

// part is a single text segment of a content block.
type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// generateRequest is the request shape for the generateContent endpoint.
type generateRequest struct {
	SystemInstruction content   `json:"system_instruction"`
	Contents          []content `json:"contents"`
}

// The response is decoded one level at a time so that a missing or
// wrong-typed field anywhere on the path yields an empty reply.
type generateResponse struct {
	Candidates json.RawMessage `json:"candidates"`
}

type candidate struct {
	Content json.RawMessage `json:"content"`
}

type candidateContent struct {
	Parts json.RawMessage `json:"parts"`
}

type candidatePart struct {
	Text json.RawMessage `json:"text"`
}

// errorResponse is the body returned alongside non-2xx statuses.
type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPStatusError captures non-2xx upstream responses. The endpoint is recorded
// without its query string so the API key never reaches logs.
type HTTPStatusError struct {
	StatusCode int
	Endpoint   string
	Message    string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.Endpoint, e.UserMessage())
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// UserMessage is the text shown in the chat for this failure.
func (e *HTTPStatusError) UserMessage() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fallbackStatusMessage
}

// Client is a focused client for the Gemini generateContent endpoint. The API
// key travels in the `key` query parameter.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	keys       KeySource

	keyMu  sync.Mutex
	apiKey string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = strings.TrimSpace(model)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose API key comes from keys. The key is
// resolved on the first call to Generate and reused for the lifetime of the
// process; a failed lookup is retried on the next call.
func NewClient(keys KeySource, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		model:      DefaultModel,
		httpClient: &http.Client{},
		keys:       keys,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.model == "" {
		return nil, errors.New("gemini: model must not be empty")
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return "", err
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func generateURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + "/models/" + url.PathEscape(model) + ":generateContent"
}

// Generate sends one system instruction and one user message and returns the
// text of the first candidate's first part, or "" when the payload has none.
func (c *Client) Generate(ctx context.Context, systemInstruction, userText string) (string, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: content{Role: "system", Parts: []part{{Text: systemInstruction}}},
		Contents:          []content{{Role: "user", Parts: []part{{Text: userText}}}},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := generateURL(c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(apiKey), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.doJSONRequest(req, endpoint)
	if err != nil {
		return "", err
	}

	if !json.Valid(raw) {
		return "", errors.New("gemini: decode response: body is not valid JSON")
	}
	return firstCandidateText(raw), nil
}

// firstCandidateText walks candidates[0].content.parts[0].text and returns ""
// as soon as a level is missing or has an unexpected type.
func firstCandidateText(raw []byte) string {
	var payload generateResponse
	if !decodeLevel(raw, &payload) {
		return ""
	}
	var candidates []candidate
	if !decodeLevel(payload.Candidates, &candidates) || len(candidates) == 0 {
		return ""
	}
	var c candidateContent
	if !decodeLevel(candidates[0].Content, &c) {
		return ""
	}
	var parts []candidatePart
	if !decodeLevel(c.Parts, &parts) || len(parts) == 0 {
		return ""
	}
	var text string
	if !decodeLevel(parts[0].Text, &text) {
		return ""
	}
	return text
}

func decodeLevel(raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (c *Client) doJSONRequest(req *http.Request, endpoint string) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", redactURLError(err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		statusErr := &HTTPStatusError{
			StatusCode: res.StatusCode,
			Endpoint:   endpoint,
			Body:       string(buf),
		}
		var payload errorResponse
		if json.Unmarshal(buf, &payload) == nil && payload.Error != nil {
			statusErr.Message = payload.Error.Message
		}
		return nil, statusErr
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("gemini: read response body: %w", err)
	}
	return buf, nil
}

// redactURLError strips the query string (and with it the API key) from
// transport errors, which embed the full request URL.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	u, parseErr := url.Parse(urlErr.URL)
	if parseErr != nil {
		return urlErr.Err
	}
	u.RawQuery = ""
	return &url.Error{Op: urlErr.Op, URL: u.String(), Err: urlErr.Err}
}
