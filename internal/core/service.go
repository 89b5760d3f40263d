package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Rorical/farmchat/internal/backend"
	"github.com/Rorical/farmchat/internal/eventbus"
	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/internal/translate"
)

// Backend is the assistant service as seen by a session.
type Backend interface {
	Languages(ctx context.Context) (map[string]string, error)
	InitialRecommendations(ctx context.Context) ([]string, error)
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
	GoBack(ctx context.Context, userLanguage string) ([]string, error)
	More(ctx context.Context, userLanguage string) ([]string, error)
}

// ServiceConfig holds the collaborators of a ChatService.
type ServiceConfig struct {
	Backend    Backend
	Translator translate.Translator
	// Engine labels translation metrics.
	Engine         string
	SourceLanguage models.Language
	// TranslateTimeout bounds each suggestion translation.
	TranslateTimeout time.Duration
	// EventBus is optional; without it state is only available via Snapshot.
	EventBus *eventbus.EventBus
	Logger   *logrus.Logger
}

// ChatService coordinates one conversation session: it turns user actions
// into backend calls and keeps the conversation and recommendation stores
// in step.
type ChatService struct {
	backend   Backend
	state     *ChatState
	recs      *RecommendationStore
	eventBus  *eventbus.EventBus
	logger    *logrus.Entry
	sessionID string
	ctx       context.Context
	cancel    context.CancelFunc

	mu            sync.RWMutex
	language      models.Language
	languages     []models.Language
	catalogLoaded bool
	initialized   bool

	// pushMu orders snapshot and send so pushes reach the bus in Seq order.
	pushMu  sync.Mutex
	pushSeq uint64
}

// NewChatService creates a session. Call Bootstrap to load the languages
// catalog and the initial suggestions.
func NewChatService(cfg ServiceConfig) (*ChatService, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.SourceLanguage.Code == "" {
		cfg.SourceLanguage = models.DefaultLanguage
	}

	sessionID := uuid.New().String()
	logger := cfg.Logger.WithField("session_id", sessionID)
	ctx, cancel := context.WithCancel(context.Background())

	seq := translate.NewSequencer(cfg.Translator, translate.SequencerConfig{
		Engine:         cfg.Engine,
		SourceLanguage: cfg.SourceLanguage.Code,
		ItemTimeout:    cfg.TranslateTimeout,
		Logger:         cfg.Logger,
	})

	service := &ChatService{
		backend:   cfg.Backend,
		state:     NewChatState(),
		recs:      NewRecommendationStore(ctx, seq, cfg.SourceLanguage.Code, logger),
		eventBus:  cfg.EventBus,
		logger:    logger,
		sessionID: sessionID,
		ctx:       ctx,
		cancel:    cancel,
		language:  cfg.SourceLanguage,
		languages: []models.Language{cfg.SourceLanguage},
	}
	service.recs.OnChange(service.pushStateToUI)

	return service, nil
}

// SessionID identifies the session in logs.
func (cs *ChatService) SessionID() string {
	return cs.sessionID
}

// Start runs the event loop in a goroutine. It is only needed when the
// service was created with an event bus.
func (cs *ChatService) Start() {
	cs.pushStateToUI()
	if cs.eventBus != nil {
		go cs.eventLoop()
	}
}

// Stop cancels outstanding work and waits for translation runs to return.
func (cs *ChatService) Stop() {
	cs.cancel()
	cs.recs.Close()
}

func (cs *ChatService) eventLoop() {
	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		}
	}
}

func (cs *ChatService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.ChangeLanguageEvent:
		// Applied inline so that rapid switches keep their order.
		cs.logIfFailed("change_language", cs.ChangeLanguage(e.Code, e.Name))
	case eventbus.SendMessageEvent:
		go func() { cs.logIfFailed("send_message", cs.SendMessage(cs.ctx, e.Message)) }()
	case eventbus.ClickSuggestionEvent:
		go func() { cs.logIfFailed("click_suggestion", cs.ClickSuggestion(cs.ctx, e.Index)) }()
	case eventbus.GoBackEvent:
		go func() { cs.logIfFailed("go_back", cs.GoBack(cs.ctx)) }()
	case eventbus.MoreEvent:
		go func() { cs.logIfFailed("more", cs.More(cs.ctx)) }()
	}
}

func (cs *ChatService) logIfFailed(action string, err error) {
	if err != nil {
		cs.logger.WithError(err).WithField("action", action).Debug("Action did not complete")
	}
}

// Bootstrap loads the languages catalog and the initial suggestions
// concurrently. Failures are logged and leave the defaults in place. The
// initial list is dropped if a reply already provided suggestions.
func (cs *ChatService) Bootstrap(ctx context.Context) {
	var (
		catalog map[string]string
		initial []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		langs, err := cs.backend.Languages(gctx)
		if err != nil {
			cs.logger.WithError(err).Warn("Failed to load languages catalog")
			return nil
		}
		catalog = langs
		return nil
	})
	g.Go(func() error {
		recs, err := cs.backend.InitialRecommendations(gctx)
		if err != nil {
			cs.logger.WithError(err).Warn("Failed to load initial recommendations")
			return nil
		}
		initial = recs
		return nil
	})
	_ = g.Wait()

	cs.mu.Lock()
	if len(catalog) > 0 {
		cs.languages = sortedLanguages(catalog)
		cs.catalogLoaded = true
	}
	cs.initialized = true
	cs.mu.Unlock()

	if initial != nil && !cs.recs.Seed(initial) {
		cs.logger.Debug("Initial recommendations superseded by a reply")
	}

	cs.logger.WithFields(logrus.Fields{
		"languages":       len(catalog),
		"recommendations": len(initial),
	}).Info("Session initialized")
	cs.pushStateToUI()
}

func sortedLanguages(catalog map[string]string) []models.Language {
	langs := make([]models.Language, 0, len(catalog))
	for name, code := range catalog {
		langs = append(langs, models.Language{Code: code, Name: name})
	}
	sort.Slice(langs, func(i, j int) bool {
		return langs[i].Name < langs[j].Name
	})
	return langs
}

// SendMessage sends typed user input.
func (cs *ChatService) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	return cs.Submit(ctx, text, text)
}

// ClickSuggestion sends suggestion i. The conversation shows its display
// text while the backend receives its source text.
func (cs *ChatService) ClickSuggestion(ctx context.Context, i int) error {
	sug, ok := cs.recs.Suggestion(i)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuggestion, i)
	}
	return cs.Submit(ctx, sug.Label(), sug.Source)
}

// Submit appends a user turn showing displayText and asks the assistant
// about sourceText.
func (cs *ChatService) Submit(ctx context.Context, displayText, sourceText string) error {
	history, ok := cs.state.BeginReply(displayText)
	if !ok {
		return ErrBusy
	}
	cs.pushStateToUI()

	lang := cs.Language().Code
	resp, err := cs.backend.Chat(ctx, backend.ChatRequest{
		Message:      sourceText,
		UserLanguage: lang,
		ChatHistory:  history,
	})
	if err != nil {
		cs.logger.WithError(err).WithField("user_language", lang).Error("Chat request failed")
		cs.state.FinishWithError(err)
		cs.pushStateToUI()
		return fmt.Errorf("chat: %w", err)
	}

	cs.recs.ReplaceWithHistory(resp.Recommendations)
	cs.state.FinishWithAssistantTurn(resp.Answer)
	cs.pushStateToUI()
	return nil
}

// GoBack restores the previous suggestion list. An empty list clears the
// history flag.
func (cs *ChatService) GoBack(ctx context.Context) error {
	if !cs.state.Begin(models.AwaitingNavigation) {
		return ErrBusy
	}
	cs.pushStateToUI()

	recs, err := cs.backend.GoBack(ctx, cs.Language().Code)
	if err != nil {
		cs.logger.WithError(err).Error("Go back request failed")
		cs.state.FinishWithError(err)
		cs.pushStateToUI()
		return fmt.Errorf("go back: %w", err)
	}

	cs.recs.Replace(recs)
	if len(recs) == 0 {
		cs.recs.SetHistory(false)
	}
	cs.state.Finish()
	cs.pushStateToUI()
	return nil
}

// More appends additional suggestions to the current list.
func (cs *ChatService) More(ctx context.Context) error {
	if !cs.state.Begin(models.AwaitingMore) {
		return ErrBusy
	}
	cs.pushStateToUI()

	recs, err := cs.backend.More(ctx, cs.Language().Code)
	if err != nil {
		cs.logger.WithError(err).Error("More questions request failed")
		cs.state.FinishWithError(err)
		cs.pushStateToUI()
		return fmt.Errorf("more: %w", err)
	}

	cs.recs.Append(recs)
	cs.state.Finish()
	cs.pushStateToUI()
	return nil
}

// ChangeLanguage selects the display language and retranslates the current
// suggestions. Selecting the active language is a no-op. Once the catalog
// has loaded, codes outside it are rejected. An empty name is looked up in
// the catalog.
func (cs *ChatService) ChangeLanguage(code, name string) error {
	code = strings.TrimSpace(code)
	if !translate.Valid(code) {
		return fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
	}

	cs.mu.Lock()
	if translate.SameLanguage(cs.language.Code, code) {
		cs.mu.Unlock()
		return nil
	}
	known, found := models.Language{}, false
	for _, l := range cs.languages {
		if translate.SameLanguage(l.Code, code) {
			known, found = l, true
			break
		}
	}
	if cs.catalogLoaded && !found {
		cs.mu.Unlock()
		return fmt.Errorf("%w: %q is not offered", ErrInvalidLanguage, code)
	}
	if name == "" {
		name = code
		if found {
			name = known.Name
		}
	}
	cs.language = models.Language{Code: code, Name: name}
	cs.recs.SetLanguage(code)
	cs.mu.Unlock()

	cs.logger.WithFields(logrus.Fields{
		"code": code,
		"name": name,
	}).Info("Language changed")
	cs.pushStateToUI()
	return nil
}

// Language returns the selected language.
func (cs *ChatService) Language() models.Language {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.language
}

// Recommendations exposes the suggestion store.
func (cs *ChatService) Recommendations() *RecommendationStore {
	return cs.recs
}

// Conversation exposes the conversation state.
func (cs *ChatService) Conversation() *ChatState {
	return cs.state
}

// Snapshot returns the current session view.
func (cs *ChatService) Snapshot() models.Snapshot {
	cs.mu.RLock()
	language := cs.language
	languages := append([]models.Language(nil), cs.languages...)
	initialized := cs.initialized
	cs.mu.RUnlock()

	translating, index := cs.recs.Progress()
	return models.Snapshot{
		Turns:            cs.state.Turns(),
		Suggestions:      cs.recs.DisplaySnapshot(),
		HasHistory:       cs.recs.HasHistory(),
		Phase:            cs.state.Phase(),
		Translating:      translating,
		TranslatingIndex: index,
		Language:         language,
		Languages:        languages,
		Initialized:      initialized,
	}
}

// WaitTranslations blocks until in-flight translation runs have returned.
func (cs *ChatService) WaitTranslations() {
	cs.recs.Wait()
}

func (cs *ChatService) pushStateToUI() {
	if cs.eventBus == nil {
		return
	}

	cs.pushMu.Lock()
	defer cs.pushMu.Unlock()
	cs.pushSeq++
	if err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Snapshot: cs.Snapshot(),
		Error:    cs.state.LastError(),
		Seq:      cs.pushSeq,
	}); err != nil {
		cs.logger.WithError(err).Debug("Dropped state update")
	}
}
