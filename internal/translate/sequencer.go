package translate

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Rorical/farmchat/internal/metrics"
)

// DefaultItemTimeout bounds a single item translation.
const DefaultItemTimeout = 15 * time.Second

// Token identifies a translation run. Only the most recently minted token
// is current; results of any other run are discarded.
type Token uint64

// Sequencer drives item-by-item translation runs and issues run tokens.
type Sequencer struct {
	translator Translator
	engine     string
	source     string
	timeout    time.Duration
	logger     *logrus.Logger

	mu      sync.Mutex
	current Token
	active  bool
	index   int
	hook    func()
}

// SequencerConfig holds the settings for NewSequencer.
type SequencerConfig struct {
	// Engine labels metrics and logs, e.g. "backend" or "openai".
	Engine string
	// SourceLanguage is the language of the canonical list.
	SourceLanguage string
	// ItemTimeout bounds each translation request. Zero means DefaultItemTimeout.
	ItemTimeout time.Duration
	Logger      *logrus.Logger
}

// NewSequencer creates a sequencer over translator.
func NewSequencer(translator Translator, cfg SequencerConfig) *Sequencer {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = DefaultItemTimeout
	}
	if cfg.SourceLanguage == "" {
		cfg.SourceLanguage = "en"
	}
	return &Sequencer{
		translator: translator,
		engine:     cfg.Engine,
		source:     cfg.SourceLanguage,
		timeout:    cfg.ItemTimeout,
		logger:     cfg.Logger,
		index:      -1,
	}
}

// SourceLanguage returns the language of the canonical list.
func (s *Sequencer) SourceLanguage() string {
	return s.source
}

// IsIdentity reports whether translating into target is a no-op.
func (s *Sequencer) IsIdentity(target string) bool {
	return SameLanguage(s.source, target)
}

// Invalidate mints a new current token, abandoning whatever run was
// in flight.
func (s *Sequencer) Invalidate() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		metrics.RecordRun("superseded")
		s.logger.WithFields(logrus.Fields{
			"run":   s.current,
			"index": s.index,
		}).Debug("Translation run superseded")
	}
	s.current++
	s.active = false
	s.index = -1
	return s.current
}

// SetProgressHook registers fn to be called whenever a current run moves to
// a new index or finishes. fn is called without internal locks held.
func (s *Sequencer) SetProgressHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = fn
}

// IsCurrent reports whether tok is the current token.
func (s *Sequencer) IsCurrent(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok == s.current
}

// Progress returns whether a run is active and which index it is
// translating, or -1.
func (s *Sequencer) Progress() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.index
}

// mark updates progress for tok and reports whether tok is still current.
func (s *Sequencer) mark(tok Token, active bool, index int) bool {
	s.mu.Lock()
	if tok != s.current {
		s.mu.Unlock()
		return false
	}
	s.active = active
	s.index = index
	hook := s.hook
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return true
}

// Run returns the sequence of (offset+i, translation of items[i]) for tok.
// Items are translated strictly in order with one request outstanding; the
// sequence stops as soon as tok is no longer current. A failed item yields
// its source text. The sequence can be ranged over once; later attempts
// yield nothing.
func (s *Sequencer) Run(ctx context.Context, tok Token, offset int, items []string, target string) iter.Seq2[int, string] {
	items = append([]string(nil), items...)
	var used atomic.Bool

	return func(yield func(int, string) bool) {
		if used.Swap(true) {
			return
		}

		logger := s.logger.WithFields(logrus.Fields{
			"run":         tok,
			"target_lang": target,
			"offset":      offset,
			"items":       len(items),
		})
		logger.Debug("Translation run started")

		for i, item := range items {
			idx := offset + i
			if ctx.Err() != nil {
				s.mark(tok, false, -1)
				return
			}
			if !s.mark(tok, true, idx) {
				return
			}

			text := s.translateItem(ctx, item, target, logger.WithField("index", idx))

			// A stale result is dropped without being published.
			if !s.IsCurrent(tok) {
				return
			}
			if !yield(idx, text) {
				return
			}
		}

		if s.mark(tok, false, -1) {
			metrics.RecordRun("completed")
			logger.Debug("Translation run completed")
		}
	}
}

func (s *Sequencer) translateItem(ctx context.Context, text, target string, logger *logrus.Entry) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	translated, err := s.translator.Translate(ctx, text, s.source, target)
	if err == nil && strings.TrimSpace(translated) == "" {
		err = fmt.Errorf("empty translation")
	}
	metrics.RecordTranslation(s.engine, time.Since(start), err == nil)

	if err != nil {
		logger.WithError(fmt.Errorf("%w: %w", ErrTranslation, err)).Warn("Falling back to source text")
		return text
	}
	return translated
}
