// Package backend is the HTTP client for the assistant service: chat,
// translation, recommendations and the languages catalog.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Rorical/farmchat/internal/metrics"
	"github.com/Rorical/farmchat/internal/models"
)

const (
	// DefaultBaseURL is the hosted Sat2Farm assistant.
	DefaultBaseURL = "https://satyuktanalytics-generator-based-backend.hf.space"
	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrNetwork means the backend was unreachable or answered with a
	// non-success status.
	ErrNetwork = errors.New("backend request failed")
	// ErrMalformed means the backend answered with an undecodable body or
	// without an expected field.
	ErrMalformed = errors.New("malformed backend response")
)

// APIError is a non-success response. It matches ErrNetwork.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNetwork
}

// Action is a recommendation navigation action.
type Action string

const (
	ActionGoBack  Action = "go_back"
	ActionGetMore Action = "get_more"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message      string        `json:"message"`
	UserLanguage string        `json:"user_language"`
	ChatHistory  []models.Turn `json:"chat_history"`
}

// ChatResponse is a successful POST /chat answer.
type ChatResponse struct {
	Answer          string
	Recommendations []string
}

type chatResponse struct {
	Answer          *string  `json:"answer"`
	Recommendations []string `json:"recommendations"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target_lang"`
	SourceLang string `json:"source_lang"`
}

type translateResponse struct {
	TranslatedText *string `json:"translated_text"`
}

type actionRequest struct {
	Action       Action `json:"action"`
	UserLanguage string `json:"user_language"`
}

type recommendationsResponse struct {
	Recommendations *[]string `json:"recommendations"`
}

type languagesResponse struct {
	Languages map[string]string `json:"languages"`
}

// Client talks to the assistant backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a backend client. An empty baseURL selects
// DefaultBaseURL and a non-positive timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Languages returns the catalog of display name to language code.
func (c *Client) Languages(ctx context.Context) (map[string]string, error) {
	var resp languagesResponse
	if err := c.do(ctx, http.MethodGet, "/languages", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Languages == nil {
		return nil, fmt.Errorf("%w: missing languages", ErrMalformed)
	}
	return resp.Languages, nil
}

// InitialRecommendations returns the suggestions shown before any turn.
func (c *Client) InitialRecommendations(ctx context.Context) ([]string, error) {
	var resp recommendationsResponse
	if err := c.do(ctx, http.MethodGet, "/recommendations/initial", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Recommendations == nil {
		return nil, fmt.Errorf("%w: missing recommendations", ErrMalformed)
	}
	return *resp.Recommendations, nil
}

// Chat sends a message with its preceding history.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.ChatHistory == nil {
		req.ChatHistory = []models.Turn{}
	}

	var resp chatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return nil, err
	}
	if resp.Answer == nil {
		return nil, fmt.Errorf("%w: missing answer", ErrMalformed)
	}

	recs := resp.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return &ChatResponse{Answer: *resp.Answer, Recommendations: recs}, nil
}

// Translate translates text through the backend. It implements
// translate.Translator.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	var resp translateResponse
	req := translateRequest{Text: text, TargetLang: targetLang, SourceLang: sourceLang}
	if err := c.do(ctx, http.MethodPost, "/translate", req, &resp); err != nil {
		return "", err
	}
	if resp.TranslatedText == nil {
		return "", fmt.Errorf("%w: missing translated_text", ErrMalformed)
	}
	return *resp.TranslatedText, nil
}

// GoBack asks for the previous recommendation list. A missing list is
// returned as empty.
func (c *Client) GoBack(ctx context.Context, userLanguage string) ([]string, error) {
	resp, err := c.action(ctx, ActionGoBack, userLanguage)
	if err != nil {
		return nil, err
	}
	if resp.Recommendations == nil {
		return []string{}, nil
	}
	return *resp.Recommendations, nil
}

// More asks for additional recommendations to append to the current list.
func (c *Client) More(ctx context.Context, userLanguage string) ([]string, error) {
	resp, err := c.action(ctx, ActionGetMore, userLanguage)
	if err != nil {
		return nil, err
	}
	if resp.Recommendations == nil {
		return nil, fmt.Errorf("%w: missing recommendations", ErrMalformed)
	}
	return *resp.Recommendations, nil
}

func (c *Client) action(ctx context.Context, action Action, userLanguage string) (*recommendationsResponse, error) {
	var resp recommendationsResponse
	req := actionRequest{Action: action, UserLanguage: userLanguage}
	if err := c.do(ctx, http.MethodPost, "/recommendations/action", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do performs a JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	url := c.baseURL + path

	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordBackend(path, time.Since(start), false)
		c.logger.WithError(err).WithFields(logrus.Fields{
			"endpoint": path,
		}).Error("Backend request failed")
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	metrics.RecordBackend(path, duration, success)

	c.logger.WithFields(logrus.Fields{
		"endpoint":    path,
		"status_code": resp.StatusCode,
		"duration_ms": duration.Milliseconds(),
	}).Debug("Backend request completed")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	if !success {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e errorResponse
		if json.Unmarshal(data, &e) == nil {
			apiErr.Detail = e.Detail
		}
		c.logger.WithFields(logrus.Fields{
			"endpoint":    path,
			"status_code": resp.StatusCode,
			"detail":      apiErr.Detail,
		}).Warn("Backend returned non-success status")
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrMalformed, path, err)
	}
	return nil
}
