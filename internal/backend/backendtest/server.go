// Package backendtest provides a scripted in-process assistant backend for
// tests.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Call is one recorded request.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
}

// Reply is a scripted response. A nil Body writes nothing.
type Reply struct {
	Status int
	Body   any
}

// OK wraps body in a 200 reply.
func OK(body any) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

// Fail returns a reply with status and a {detail} body.
func Fail(status int, detail string) Reply {
	return Reply{Status: status, Body: map[string]string{"detail": detail}}
}

// Server is a fake backend. Handler funcs may be replaced before the first
// request; they are called without the server lock held.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	calls     []Call
	inFlight  map[string]int
	maxFlight map[string]int

	Languages func() Reply
	Initial   func() Reply
	Chat      func(body map[string]any) Reply
	Translate func(text, source, target string) Reply
	Action    func(action, userLanguage string) Reply
}

// NewServer starts a fake backend with echoing defaults: translations are
// "[target] text", chat answers echo the message, and actions return no
// recommendations.
func NewServer() *Server {
	s := &Server{
		inFlight:  make(map[string]int),
		maxFlight: make(map[string]int),
	}
	s.Languages = func() Reply {
		return OK(map[string]any{"languages": map[string]string{"English": "en", "French": "fr", "Hindi": "hi"}})
	}
	s.Initial = func() Reply {
		return OK(map[string]any{"recommendations": []string{}})
	}
	s.Chat = func(body map[string]any) Reply {
		msg, _ := body["message"].(string)
		return OK(map[string]any{"answer": "echo: " + msg, "recommendations": []string{}})
	}
	s.Translate = func(text, source, target string) Reply {
		return OK(map[string]string{"translated_text": "[" + target + "] " + text})
	}
	s.Action = func(action, userLanguage string) Reply {
		return OK(map[string]any{"recommendations": []string{}})
	}

	r := chi.NewRouter()
	r.Get("/languages", s.handle(func(map[string]any) Reply { return s.Languages() }))
	r.Get("/recommendations/initial", s.handle(func(map[string]any) Reply { return s.Initial() }))
	r.Post("/chat", s.handle(func(body map[string]any) Reply { return s.Chat(body) }))
	r.Post("/translate", s.handle(func(body map[string]any) Reply {
		return s.Translate(str(body, "text"), str(body, "source_lang"), str(body, "target_lang"))
	}))
	r.Post("/recommendations/action", s.handle(func(body map[string]any) Reply {
		return s.Action(str(body, "action"), str(body, "user_language"))
	}))

	s.Server = httptest.NewServer(r)
	return s
}

func str(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}

func (s *Server) handle(fn func(map[string]any) Reply) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &body)
		}

		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: body})
		s.inFlight[r.URL.Path]++
		if s.inFlight[r.URL.Path] > s.maxFlight[r.URL.Path] {
			s.maxFlight[r.URL.Path] = s.inFlight[r.URL.Path]
		}
		s.mu.Unlock()

		defer func() {
			s.mu.Lock()
			s.inFlight[r.URL.Path]--
			s.mu.Unlock()
		}()

		reply := fn(body)
		if reply.Status == 0 {
			reply.Status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.Status)
		switch b := reply.Body.(type) {
		case nil:
		case string:
			_, _ = io.Copy(w, strings.NewReader(b))
		default:
			_ = json.NewEncoder(w).Encode(b)
		}
	}
}

// Calls returns the recorded requests, optionally filtered by path.
func (s *Server) Calls(path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if path == "" || c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// MaxConcurrent returns the highest number of simultaneous requests seen
// on path.
func (s *Server) MaxConcurrent(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxFlight[path]
}
