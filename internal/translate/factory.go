package translate

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// EngineType names a translation engine.
type EngineType string

const (
	// EngineBackend uses the assistant backend's /translate endpoint.
	EngineBackend EngineType = "backend"
	// EngineOpenAI uses an OpenAI-compatible chat completion model.
	EngineOpenAI EngineType = "openai"
)

// Config holds configuration for creating a Translator instance.
type Config struct {
	Engine EngineType
	// Backend is the translator used for EngineBackend.
	Backend Translator
	// APIKey, BaseURL and Model configure EngineOpenAI.
	APIKey  string
	BaseURL string
	Model   string
	Logger  *logrus.Logger
}

// NewTranslator creates the Translator selected by cfg.Engine.
func NewTranslator(cfg Config) (Translator, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine": cfg.Engine,
	}).Debug("Creating translator instance")

	switch cfg.Engine {
	case EngineBackend, "":
		if cfg.Backend == nil {
			return nil, fmt.Errorf("backend translator is not configured")
		}
		return cfg.Backend, nil
	case EngineOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai translator requires an api key")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Logger), nil
	default:
		return nil, fmt.Errorf("unknown translation engine: %s", cfg.Engine)
	}
}

// ParseEngineType parses a string into an EngineType.
func ParseEngineType(s string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "backend":
		return EngineBackend, nil
	case "openai":
		return EngineOpenAI, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: backend, openai)", s)
	}
}
