package translate

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"

	"github.com/Rorical/farmchat/internal/metrics"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func prefixTranslator(calls *[]string, mu *sync.Mutex) Translator {
	return TranslatorFunc(func(_ context.Context, text, _, target string) (string, error) {
		mu.Lock()
		*calls = append(*calls, text)
		mu.Unlock()
		return target + ":" + text, nil
	})
}

func newTestSequencer(tr Translator) *Sequencer {
	return NewSequencer(tr, SequencerConfig{
		Engine:         "test",
		SourceLanguage: "en",
		ItemTimeout:    time.Second,
		Logger:         quietLogger(),
	})
}

func collect(seq func(func(int, string) bool)) (idx []int, texts []string) {
	for i, text := range seq {
		idx = append(idx, i)
		texts = append(texts, text)
	}
	return idx, texts
}

func TestRun_TranslatesInOrder(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	s := newTestSequencer(prefixTranslator(&calls, &mu))

	tok := s.Invalidate()
	idx, texts := collect(s.Run(context.Background(), tok, 0, []string{"What crops?", "How to plant?"}, "fr"))

	if len(idx) != 2 || idx[0] != 0 || idx[1] != 1 {
		t.Fatalf("indices = %v, want [0 1]", idx)
	}
	if texts[0] != "fr:What crops?" || texts[1] != "fr:How to plant?" {
		t.Errorf("texts = %v", texts)
	}
	if len(calls) != 2 || calls[0] != "What crops?" || calls[1] != "How to plant?" {
		t.Errorf("translate calls = %v, want index 0 then index 1", calls)
	}

	if active, index := s.Progress(); active || index != -1 {
		t.Errorf("Progress() = (%v, %d), want (false, -1)", active, index)
	}
}

func TestRun_Offset(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	s := newTestSequencer(prefixTranslator(&calls, &mu))

	tok := s.Invalidate()
	idx, _ := collect(s.Run(context.Background(), tok, 3, []string{"d", "e"}, "hi"))
	if len(idx) != 2 || idx[0] != 3 || idx[1] != 4 {
		t.Errorf("indices = %v, want [3 4]", idx)
	}
}

func TestRun_NeverConcurrent(t *testing.T) {
	var mu sync.Mutex
	inFlight, maxFlight := 0, 0
	tr := TranslatorFunc(func(_ context.Context, text, _, _ string) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxFlight {
			maxFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return text, nil
	})
	s := newTestSequencer(tr)

	tok := s.Invalidate()
	collect(s.Run(context.Background(), tok, 0, []string{"a", "b", "c", "d"}, "fr"))

	if maxFlight != 1 {
		t.Errorf("max concurrent requests = %d, want 1", maxFlight)
	}
}

func TestRun_FailureFallsBack(t *testing.T) {
	tr := TranslatorFunc(func(_ context.Context, text, _, _ string) (string, error) {
		switch text {
		case "b":
			return "", errors.New("status 500")
		case "c":
			return "   ", nil
		}
		return "T(" + text + ")", nil
	})
	s := newTestSequencer(tr)

	tok := s.Invalidate()
	_, texts := collect(s.Run(context.Background(), tok, 0, []string{"a", "b", "c", "d"}, "fr"))

	want := []string{"T(a)", "b", "c", "T(d)"}
	if len(texts) != len(want) {
		t.Fatalf("texts = %v, want %v", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("texts[%d] = %q, want %q", i, texts[i], want[i])
		}
	}
}

func TestRun_ItemTimeoutFallsBack(t *testing.T) {
	tr := TranslatorFunc(func(ctx context.Context, text, _, _ string) (string, error) {
		if text == "slow" {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "T(" + text + ")", nil
	})
	s := NewSequencer(tr, SequencerConfig{SourceLanguage: "en", ItemTimeout: 10 * time.Millisecond, Logger: quietLogger()})

	tok := s.Invalidate()
	_, texts := collect(s.Run(context.Background(), tok, 0, []string{"slow", "fast"}, "fr"))
	if len(texts) != 2 || texts[0] != "slow" || texts[1] != "T(fast)" {
		t.Errorf("texts = %v", texts)
	}
}

func TestRun_StaleTokenStops(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 4)
	var mu sync.Mutex
	var calls []string
	tr := TranslatorFunc(func(_ context.Context, text, _, _ string) (string, error) {
		mu.Lock()
		calls = append(calls, text)
		mu.Unlock()
		started <- text
		if text == "a1" {
			<-release
		}
		return "T(" + text + ")", nil
	})
	s := newTestSequencer(tr)

	tok := s.Invalidate()
	done := make(chan []string)
	go func() {
		_, texts := collect(s.Run(context.Background(), tok, 0, []string{"a0", "a1", "a2"}, "fr"))
		done <- texts
	}()

	<-started // a0
	<-started // a1 is now in flight
	s.Invalidate()
	close(release)

	texts := <-done
	if len(texts) != 1 || texts[0] != "T(a0)" {
		t.Errorf("published %v, want only the result for a0", texts)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, c := range calls {
		if c == "a2" {
			t.Error("stale run issued a request after invalidation")
		}
	}
}

func TestRun_NotRestartable(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	s := newTestSequencer(prefixTranslator(&calls, &mu))

	tok := s.Invalidate()
	seq := s.Run(context.Background(), tok, 0, []string{"a"}, "fr")
	collect(seq)
	idx, _ := collect(seq)
	if len(idx) != 0 {
		t.Errorf("second range yielded %v", idx)
	}
	if len(calls) != 1 {
		t.Errorf("translate called %d times, want 1", len(calls))
	}
}

func TestRun_ProgressWhileTranslating(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	tr := TranslatorFunc(func(_ context.Context, text, _, _ string) (string, error) {
		if text == "b" {
			close(entered)
			<-release
		}
		return text, nil
	})
	s := newTestSequencer(tr)

	tok := s.Invalidate()
	done := make(chan struct{})
	go func() {
		collect(s.Run(context.Background(), tok, 5, []string{"a", "b"}, "fr"))
		close(done)
	}()

	<-entered
	if active, index := s.Progress(); !active || index != 6 {
		t.Errorf("Progress() = (%v, %d), want (true, 6)", active, index)
	}
	close(release)
	<-done
}

func TestInvalidate_RecordsSuperseded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	tr := TranslatorFunc(func(_ context.Context, text, _, _ string) (string, error) {
		close(entered)
		<-release
		return text, nil
	})
	s := newTestSequencer(tr)

	before := testutil.ToFloat64(metrics.TranslationRunsTotal.WithLabelValues("superseded"))

	tok := s.Invalidate()
	done := make(chan struct{})
	go func() {
		collect(s.Run(context.Background(), tok, 0, []string{"a"}, "fr"))
		close(done)
	}()
	<-entered
	s.Invalidate()
	close(release)
	<-done

	after := testutil.ToFloat64(metrics.TranslationRunsTotal.WithLabelValues("superseded"))
	if after-before != 1 {
		t.Errorf("superseded runs increased by %v, want 1", after-before)
	}
}

func TestIsIdentity(t *testing.T) {
	s := newTestSequencer(nil)
	tests := []struct {
		target string
		want   bool
	}{
		{"en", true},
		{"EN", true},
		{"fr", false},
		{"en-US", false},
	}
	for _, tt := range tests {
		if got := s.IsIdentity(tt.target); got != tt.want {
			t.Errorf("IsIdentity(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"fr", true},
		{"pt-BR", true},
		{"", false},
		{"not a tag", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.code); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestParseEngineType(t *testing.T) {
	for in, want := range map[string]EngineType{"": EngineBackend, "Backend": EngineBackend, "openai": EngineOpenAI} {
		got, err := ParseEngineType(in)
		if err != nil || got != want {
			t.Errorf("ParseEngineType(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseEngineType("deepl"); err == nil {
		t.Error("ParseEngineType(deepl) should fail")
	}
}

func TestNewTranslator(t *testing.T) {
	backend := TranslatorFunc(func(context.Context, string, string, string) (string, error) { return "", nil })

	if tr, err := NewTranslator(Config{Engine: EngineBackend, Backend: backend, Logger: quietLogger()}); err != nil || tr == nil {
		t.Errorf("backend engine: %v, %v", tr, err)
	}
	if _, err := NewTranslator(Config{Engine: EngineBackend, Logger: quietLogger()}); err == nil {
		t.Error("backend engine without backend should fail")
	}
	if _, err := NewTranslator(Config{Engine: EngineOpenAI, Logger: quietLogger()}); err == nil {
		t.Error("openai engine without api key should fail")
	}
	if tr, err := NewTranslator(Config{Engine: EngineOpenAI, APIKey: "sk-test", Logger: quietLogger()}); err != nil {
		t.Errorf("openai engine: %v", err)
	} else if _, ok := tr.(*OpenAIClient); !ok {
		t.Errorf("openai engine returned %T", tr)
	}
}
