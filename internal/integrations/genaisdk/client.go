// Package genaisdk generates replies through the official Google GenAI SDK.
// It is the alternative to the hand-rolled REST client in package gemini and
// produces the same reply text and the same failure messages.
package genaisdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

const fallbackStatusMessage = "Request failed"

var apiVersionSegment = regexp.MustCompile(`^v\d+(alpha|beta)?\d*$`)

// contentGenerator is the subset of *genai.Models used by Client.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// APIError wraps an SDK API failure with the status-aware accessors the
// dispatcher understands.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("genaisdk: unexpected status %d: %s", e.StatusCode, e.UserMessage())
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

func (e *APIError) UserMessage() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fallbackStatusMessage
}

type Client struct {
	models contentGenerator
	model  string
}

type config struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type Option func(*config)

func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithModel(model string) Option {
	return func(c *config) {
		c.model = strings.TrimSpace(model)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// New creates an SDK-backed client for the Gemini API.
func New(ctx context.Context, apiKey, defaultModel string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("genaisdk: API key is required")
	}
	cfg := config{model: defaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.model == "" {
		return nil, errors.New("genaisdk: model must not be empty")
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.httpClient,
	}
	if cfg.baseURL != "" {
		root, version := splitAPIVersion(cfg.baseURL)
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: root, APIVersion: version}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("genaisdk: create client: %w", err)
	}
	return newWithGenerator(client.Models, cfg.model), nil
}

// splitAPIVersion separates a trailing API version segment such as /v1beta
// from baseURL. The SDK appends the version itself, while GEMINI_BASE_URL
// carries it the way the REST endpoint is written.
func splitAPIVersion(baseURL string) (root, version string) {
	base := strings.TrimRight(baseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return base, ""
	}
	i := strings.LastIndex(u.Path, "/")
	if i < 0 || !apiVersionSegment.MatchString(u.Path[i+1:]) {
		return base, ""
	}
	version = u.Path[i+1:]
	u.Path = u.Path[:i]
	u.RawPath = ""
	return u.String(), version
}

func newWithGenerator(models contentGenerator, model string) *Client {
	return &Client{models: models, model: model}
}

// Generate sends one system instruction and one user message and returns the
// first candidate's first text part, or "" when the response has none.
func (c *Client) Generate(ctx context.Context, systemInstruction, userText string) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(userText, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Role:  "system",
				Parts: []*genai.Part{{Text: systemInstruction}},
			},
		},
	)
	if err != nil {
		return "", mapError(err)
	}
	return firstCandidateText(resp), nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil || len(cand.Content.Parts) == 0 {
		return ""
	}
	p := cand.Content.Parts[0]
	if p == nil {
		return ""
	}
	return p.Text
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{StatusCode: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return fmt.Errorf("genaisdk: generate content: %w", err)
}
