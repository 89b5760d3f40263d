package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Rorical/farmchat/internal/backend"
	"github.com/Rorical/farmchat/internal/translate"
)

const (
	// HomeEnv overrides the directory holding .farmchat/.
	HomeEnv = "FARMCHAT_HOME"

	DefaultProfileName = "default"
	DefaultLogLevel    = "info"
)

type Profile struct {
	BaseURL          string `json:"base_url"`
	SourceLanguage   string `json:"source_language"`
	Translator       string `json:"translator"`
	RequestTimeout   string `json:"request_timeout,omitempty"`
	TranslateTimeout string `json:"translate_timeout,omitempty"`
	APIKey           string `json:"api_key,omitempty"`
	Model            string `json:"model,omitempty"`
	OpenAIBaseURL    string `json:"openai_base_url,omitempty"`
}

// DefaultProfile talks to the hosted backend and translates through it.
func DefaultProfile() Profile {
	return Profile{
		BaseURL:          backend.DefaultBaseURL,
		SourceLanguage:   "en",
		Translator:       string(translate.EngineBackend),
		RequestTimeout:   backend.DefaultTimeout.String(),
		TranslateTimeout: translate.DefaultItemTimeout.String(),
		Model:            translate.DefaultOpenAIModel,
	}
}

// Validate checks a profile before it is saved or used.
func (p Profile) Validate() error {
	engine, err := translate.ParseEngineType(p.Translator)
	if err != nil {
		return err
	}
	if engine == translate.EngineOpenAI && p.APIKey == "" {
		return fmt.Errorf("translator %q requires an api_key", engine)
	}
	if p.SourceLanguage != "" && !translate.Valid(p.SourceLanguage) {
		return fmt.Errorf("invalid source_language %q", p.SourceLanguage)
	}
	if _, err := parseDuration(p.RequestTimeout, 0); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	if _, err := parseDuration(p.TranslateTimeout, 0); err != nil {
		return fmt.Errorf("translate_timeout: %w", err)
	}
	return nil
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles"`
	ActiveProfile  string             `json:"active_profile"`
	LogLevel       string             `json:"log_level,omitempty"`
	currentProfile *Profile
}

func LoadConfig() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Load existing config or create default
	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate and set current profile
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}

	return config, nil
}

// IsValid reports whether the active profile can start a session.
func (c *Config) IsValid() bool {
	return c.currentProfile != nil && c.currentProfile.Validate() == nil
}

// Current returns the active profile.
func (c *Config) Current() Profile {
	if c.currentProfile == nil {
		return DefaultProfile()
	}
	return *c.currentProfile
}

func (c *Config) GetBaseURL() string {
	if c.currentProfile == nil || c.currentProfile.BaseURL == "" {
		return backend.DefaultBaseURL
	}
	return c.currentProfile.BaseURL
}

func (c *Config) GetSourceLanguage() string {
	if c.currentProfile == nil || c.currentProfile.SourceLanguage == "" {
		return "en"
	}
	return c.currentProfile.SourceLanguage
}

func (c *Config) GetTranslator() translate.EngineType {
	if c.currentProfile == nil {
		return translate.EngineBackend
	}
	engine, err := translate.ParseEngineType(c.currentProfile.Translator)
	if err != nil {
		return translate.EngineBackend
	}
	return engine
}

func (c *Config) GetRequestTimeout() time.Duration {
	if c.currentProfile == nil {
		return backend.DefaultTimeout
	}
	d, err := parseDuration(c.currentProfile.RequestTimeout, backend.DefaultTimeout)
	if err != nil {
		return backend.DefaultTimeout
	}
	return d
}

func (c *Config) GetTranslateTimeout() time.Duration {
	if c.currentProfile == nil {
		return translate.DefaultItemTimeout
	}
	d, err := parseDuration(c.currentProfile.TranslateTimeout, translate.DefaultItemTimeout)
	if err != nil {
		return translate.DefaultItemTimeout
	}
	return d
}

func (c *Config) GetAPIKey() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.APIKey
}

func (c *Config) GetModel() string {
	if c.currentProfile == nil || c.currentProfile.Model == "" {
		return translate.DefaultOpenAIModel
	}
	return c.currentProfile.Model
}

func (c *Config) GetOpenAIBaseURL() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.OpenAIBaseURL
}

func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}

// ProfileNames returns the profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use makes name the active profile.
func (c *Config) Use(name string) error {
	profile, ok := c.Profiles[name]
	if !ok {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	c.ActiveProfile = name
	c.currentProfile = &profile
	return nil
}

// Dir returns the directory holding the config and log files.
func Dir() (string, error) {
	var baseDir string

	// Use FARMCHAT_HOME if set, otherwise use user's home directory
	if home := os.Getenv(HomeEnv); home != "" {
		baseDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = homeDir
	}

	return filepath.Join(baseDir, ".farmchat"), nil
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	// If config file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			DefaultProfileName: DefaultProfile(),
		},
		ActiveProfile: DefaultProfileName,
		LogLevel:      DefaultLogLevel,
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	// The file may hold an API key.
	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile by name
		name := c.ProfileNames()[0]
		c.ActiveProfile = name
		profile = c.Profiles[name]
	}

	c.currentProfile = &profile
	return nil
}
