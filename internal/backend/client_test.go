package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Rorical/farmchat/internal/backend/backendtest"
	"github.com/Rorical/farmchat/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T) (*Client, *backendtest.Server) {
	t.Helper()
	srv := backendtest.NewServer()
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, quietLogger()), srv
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", 0, nil)
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", c.BaseURL(), DefaultBaseURL)
	}
	if c.httpClient.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
	}
}

func TestChat_SendsPayload(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Chat = func(body map[string]any) backendtest.Reply {
		return backendtest.OK(map[string]any{
			"answer":          "Plant in June.",
			"recommendations": []string{"What soil?", "How much water?"},
		})
	}

	history := []models.Turn{
		{Role: models.User, Content: "Hello"},
		{Role: models.Assistant, Content: "Hi"},
	}
	resp, err := c.Chat(context.Background(), ChatRequest{
		Message:      "When to plant rice?",
		UserLanguage: "hi",
		ChatHistory:  history,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Answer != "Plant in June." {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Recommendations) != 2 {
		t.Errorf("Recommendations = %v", resp.Recommendations)
	}

	calls := srv.Calls("/chat")
	if len(calls) != 1 {
		t.Fatalf("got %d chat calls, want 1", len(calls))
	}
	body := calls[0].Body
	if body["message"] != "When to plant rice?" || body["user_language"] != "hi" {
		t.Errorf("unexpected body %v", body)
	}
	hist, _ := body["chat_history"].([]any)
	if len(hist) != 2 {
		t.Fatalf("chat_history has %d entries, want 2", len(hist))
	}
	first, _ := hist[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "Hello" {
		t.Errorf("chat_history[0] = %v", first)
	}
}

func TestChat_EmptyHistoryIsArray(t *testing.T) {
	c, srv := newTestClient(t)
	if _, err := c.Chat(context.Background(), ChatRequest{Message: "hi", UserLanguage: "en"}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	hist, ok := srv.Calls("/chat")[0].Body["chat_history"].([]any)
	if !ok || len(hist) != 0 {
		t.Errorf("chat_history = %#v, want empty array", srv.Calls("/chat")[0].Body["chat_history"])
	}
}

func TestChat_MissingRecommendationsIsEmpty(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Chat = func(map[string]any) backendtest.Reply {
		return backendtest.OK(map[string]any{"answer": "Hi"})
	}
	resp, err := c.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Recommendations == nil || len(resp.Recommendations) != 0 {
		t.Errorf("Recommendations = %#v, want empty slice", resp.Recommendations)
	}
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name   string
		reply  backendtest.Reply
		target error
	}{
		{"detail", backendtest.Fail(http.StatusInternalServerError, "model offline"), ErrNetwork},
		{"bad gateway", backendtest.Reply{Status: http.StatusBadGateway, Body: "upstream"}, ErrNetwork},
		{"missing answer", backendtest.OK(map[string]any{"recommendations": []string{}}), ErrMalformed},
		{"not json", backendtest.Reply{Status: http.StatusOK, Body: "<html>"}, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t)
			srv.Chat = func(map[string]any) backendtest.Reply { return tt.reply }

			_, err := c.Chat(context.Background(), ChatRequest{Message: "hi"})
			if !errors.Is(err, tt.target) {
				t.Fatalf("Chat() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestChat_APIErrorDetail(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Chat = func(map[string]any) backendtest.Reply {
		return backendtest.Fail(http.StatusUnprocessableEntity, "message too long")
	}

	_, err := c.Chat(context.Background(), ChatRequest{Message: "hi"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error %v is not an *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Detail != "message too long" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestChat_Unreachable(t *testing.T) {
	srv := backendtest.NewServer()
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, quietLogger())
	_, err := c.Chat(context.Background(), ChatRequest{Message: "hi"})
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Chat() error = %v, want ErrNetwork", err)
	}
}

func TestTranslate(t *testing.T) {
	c, srv := newTestClient(t)

	got, err := c.Translate(context.Background(), "What crops?", "en", "fr")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "[fr] What crops?" {
		t.Errorf("Translate() = %q", got)
	}

	body := srv.Calls("/translate")[0].Body
	if body["text"] != "What crops?" || body["source_lang"] != "en" || body["target_lang"] != "fr" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestTranslate_Failures(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Translate = func(text, source, target string) backendtest.Reply {
		if text == "missing" {
			return backendtest.OK(map[string]string{})
		}
		return backendtest.Fail(http.StatusServiceUnavailable, "busy")
	}

	if _, err := c.Translate(context.Background(), "missing", "en", "fr"); !errors.Is(err, ErrMalformed) {
		t.Errorf("missing field error = %v, want ErrMalformed", err)
	}
	if _, err := c.Translate(context.Background(), "x", "en", "fr"); !errors.Is(err, ErrNetwork) {
		t.Errorf("status error = %v, want ErrNetwork", err)
	}
}

func TestGoBack(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Action = func(action, lang string) backendtest.Reply {
		if action != string(ActionGoBack) {
			return backendtest.Fail(http.StatusBadRequest, "unexpected action")
		}
		return backendtest.OK(map[string]any{})
	}

	recs, err := c.GoBack(context.Background(), "fr")
	if err != nil {
		t.Fatalf("GoBack() error = %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("GoBack() = %#v, want empty slice", recs)
	}
	if got := srv.Calls("/recommendations/action")[0].Body["user_language"]; got != "fr" {
		t.Errorf("user_language = %v, want fr", got)
	}
}

func TestMore(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Action = func(action, lang string) backendtest.Reply {
		if action != string(ActionGetMore) {
			return backendtest.Fail(http.StatusBadRequest, "unexpected action")
		}
		return backendtest.OK(map[string]any{"recommendations": []string{"A", "B"}})
	}

	recs, err := c.More(context.Background(), "en")
	if err != nil {
		t.Fatalf("More() error = %v", err)
	}
	if len(recs) != 2 || recs[0] != "A" || recs[1] != "B" {
		t.Errorf("More() = %v", recs)
	}
}

func TestMore_MissingRecommendations(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Action = func(string, string) backendtest.Reply {
		return backendtest.OK(map[string]any{})
	}
	if _, err := c.More(context.Background(), "en"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("More() error = %v, want ErrMalformed", err)
	}
}

func TestLanguagesAndInitial(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Initial = func() backendtest.Reply {
		return backendtest.OK(map[string]any{"recommendations": []string{"What crops?"}})
	}

	langs, err := c.Languages(context.Background())
	if err != nil {
		t.Fatalf("Languages() error = %v", err)
	}
	if langs["French"] != "fr" {
		t.Errorf("Languages() = %v", langs)
	}

	recs, err := c.InitialRecommendations(context.Background())
	if err != nil {
		t.Fatalf("InitialRecommendations() error = %v", err)
	}
	if len(recs) != 1 || recs[0] != "What crops?" {
		t.Errorf("InitialRecommendations() = %v", recs)
	}
}
