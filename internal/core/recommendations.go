package core

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/internal/translate"
)

// RecommendationStore owns the canonical suggestion list, its index-aligned
// display list and the history flag.
//
// Display entries are written only by translation runs, and only while the
// run's token is current. Mutators do not call the change hook; it fires
// for run progress only, so callers push their own state after mutating.
type RecommendationStore struct {
	ctx    context.Context
	cancel context.CancelFunc
	seq    *translate.Sequencer
	logger *logrus.Entry

	mu         sync.Mutex
	canonical  []string
	display    []string
	pending    []bool
	language   string
	hasHistory bool
	onChange   func()

	runs sync.WaitGroup
}

// NewRecommendationStore creates an empty store translating into language.
// Runs stop when ctx is cancelled or the store is closed.
func NewRecommendationStore(ctx context.Context, seq *translate.Sequencer, language string, logger *logrus.Entry) *RecommendationStore {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &RecommendationStore{
		ctx:      ctx,
		cancel:   cancel,
		seq:      seq,
		logger:   logger,
		language: language,
	}
	seq.SetProgressHook(s.notify)
	return s
}

// OnChange registers fn to be called after translation progress.
func (s *RecommendationStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *RecommendationStore) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Replace swaps in a new canonical list and starts translating it from
// scratch.
func (s *RecommendationStore) Replace(list []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(list)
}

// ReplaceWithHistory is Replace followed by marking history available, as
// one step.
func (s *RecommendationStore) ReplaceWithHistory(list []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(list)
	s.hasHistory = true
}

// Seed installs the first list of the session. It does nothing and reports
// false once a conversational reply has set history.
func (s *RecommendationStore) Seed(list []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasHistory {
		return false
	}
	s.replaceLocked(list)
	return true
}

func (s *RecommendationStore) replaceLocked(list []string) {
	s.canonical = append([]string(nil), list...)
	s.display = make([]string, len(list))
	s.pending = make([]bool, len(list))
	for i := range s.pending {
		s.pending[i] = true
	}

	s.logger.WithFields(logrus.Fields{
		"items": len(list),
	}).Debug("Replaced recommendations")

	s.restartLocked(0)
}

// Append adds more items to the canonical list. Entries that already
// resolved keep their text; translation resumes at the lowest pending index.
func (s *RecommendationStore) Append(more []string) {
	if len(more) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.canonical = append(s.canonical, more...)
	s.display = append(s.display, make([]string, len(more))...)
	for range more {
		s.pending = append(s.pending, true)
	}

	from := len(s.canonical) - len(more)
	for i, p := range s.pending {
		if p {
			from = i
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"appended": len(more),
		"total":    len(s.canonical),
		"resume":   from,
	}).Debug("Appended recommendations")

	s.restartLocked(from)
}

// SetLanguage retranslates the current list into code. It reports false
// and does nothing when code is already the active language.
func (s *RecommendationStore) SetLanguage(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if translate.SameLanguage(s.language, code) {
		return false
	}
	s.language = code
	for i := range s.pending {
		s.display[i] = ""
		s.pending[i] = true
	}
	s.restartLocked(0)
	return true
}

// Language returns the active display language code.
func (s *RecommendationStore) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// restartLocked invalidates the current run and translates canonical[from:].
// Entries below from are left as they are. s.mu must be held.
func (s *RecommendationStore) restartLocked(from int) {
	tok := s.seq.Invalidate()

	if s.seq.IsIdentity(s.language) {
		for i := from; i < len(s.canonical); i++ {
			s.display[i] = s.canonical[i]
			s.pending[i] = false
		}
		return
	}
	if from >= len(s.canonical) || s.ctx.Err() != nil {
		return
	}

	items := append([]string(nil), s.canonical[from:]...)
	lang := s.language

	s.runs.Add(1)
	go s.consume(tok, from, items, lang)
}

func (s *RecommendationStore) consume(tok translate.Token, from int, items []string, lang string) {
	defer s.runs.Done()

	for i, text := range s.seq.Run(s.ctx, tok, from, items, lang) {
		if !s.publish(tok, i, text) {
			return
		}
		s.notify()
	}
}

// publish writes one translation if tok is still current.
func (s *RecommendationStore) publish(tok translate.Token, index int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seq.IsCurrent(tok) {
		return false
	}
	if index >= len(s.display) {
		return false
	}
	s.display[index] = text
	s.pending[index] = false
	return true
}

// DisplaySnapshot returns the index-aligned suggestion list.
func (s *RecommendationStore) DisplaySnapshot() []models.Suggestion {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Suggestion, len(s.canonical))
	for i := range s.canonical {
		out[i] = models.Suggestion{
			Index:   i,
			Source:  s.canonical[i],
			Text:    s.display[i],
			Pending: s.pending[i],
		}
	}
	return out
}

// Canonical returns a copy of the source-language list.
func (s *RecommendationStore) Canonical() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.canonical...)
}

// Suggestion returns entry i, reading its display and source text together.
func (s *RecommendationStore) Suggestion(i int) (models.Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.canonical) {
		return models.Suggestion{}, false
	}
	return models.Suggestion{
		Index:   i,
		Source:  s.canonical[i],
		Text:    s.display[i],
		Pending: s.pending[i],
	}, true
}

// Len returns the number of suggestions.
func (s *RecommendationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.canonical)
}

func (s *RecommendationStore) HasHistory() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasHistory
}

func (s *RecommendationStore) SetHistory(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasHistory = v
}

// Progress reports whether a translation run is active and the index it is
// working on, or -1.
func (s *RecommendationStore) Progress() (bool, int) {
	return s.seq.Progress()
}

// Wait blocks until every started translation run has returned.
func (s *RecommendationStore) Wait() {
	s.runs.Wait()
}

// Close stops translation and waits for running work to return. Lists set
// after Close are not translated.
func (s *RecommendationStore) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.runs.Wait()
}
