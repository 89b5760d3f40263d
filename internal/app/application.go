package app

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/Rorical/farmchat/internal/backend"
	"github.com/Rorical/farmchat/internal/config"
	"github.com/Rorical/farmchat/internal/core"
	"github.com/Rorical/farmchat/internal/dispatcher"
	"github.com/Rorical/farmchat/internal/eventbus"
	"github.com/Rorical/farmchat/internal/models"
	"github.com/Rorical/farmchat/internal/translate"
)

// Application manages the complete application lifecycle
type Application struct {
	config     *config.Config
	logger     *logrus.Logger
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.ChatService
	model      *AppModel
	cancel     context.CancelFunc
}

// Options configures NewApplication.
type Options struct {
	Config *config.Config
	Logger *logrus.Logger
}

func NewApplication(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	profile := cfg.Current()
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("profile %q: %w", cfg.ActiveProfile, err)
	}

	client := backend.NewClient(cfg.GetBaseURL(), cfg.GetRequestTimeout(), logger)

	engine := cfg.GetTranslator()
	translator, err := translate.NewTranslator(translate.Config{
		Engine:  engine,
		Backend: client,
		APIKey:  cfg.GetAPIKey(),
		BaseURL: cfg.GetOpenAIBaseURL(),
		Model:   cfg.GetModel(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	eb := eventbus.NewEventBus()
	eb.SetErrorCallback(func(e eventbus.EventBusError) {
		logger.WithError(e.Err).WithField("operation", e.Operation).Debug("Event bus error")
	})
	disp := dispatcher.NewEventDispatcher(eb)

	source := models.Language{Code: cfg.GetSourceLanguage(), Name: cfg.GetSourceLanguage()}
	if translate.SameLanguage(source.Code, models.DefaultLanguage.Code) {
		source = models.DefaultLanguage
	}

	chatService, err := core.NewChatService(core.ServiceConfig{
		Backend:          client,
		Translator:       translator,
		Engine:           string(engine),
		SourceLanguage:   source,
		TranslateTimeout: cfg.GetTranslateTimeout(),
		EventBus:         eb,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat service: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"profile":    cfg.ActiveProfile,
		"base_url":   client.BaseURL(),
		"translator": engine,
		"session_id": chatService.SessionID(),
	}).Info("Application created")

	return &Application{
		config:     cfg,
		logger:     logger,
		eventBus:   eb,
		dispatcher: disp,
		service:    chatService,
		model:      NewAppModel(disp, ""),
	}, nil
}

// Start runs the terminal UI until the user quits.
func (app *Application) Start(programOpts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	app.service.Start()
	go app.service.Bootstrap(ctx)

	p := tea.NewProgram(app.model, programOpts...)
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	if app.cancel != nil {
		app.cancel()
	}
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
}
