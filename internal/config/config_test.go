package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rorical/farmchat/internal/backend"
	"github.com/Rorical/farmchat/internal/translate"
)

func writeConfig(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ".farmchat")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ActiveProfile != DefaultProfileName {
		t.Fatalf("active profile = %q", cfg.ActiveProfile)
	}
	if !cfg.IsValid() {
		t.Fatal("default profile is not valid")
	}
	if cfg.GetBaseURL() != backend.DefaultBaseURL {
		t.Fatalf("base url = %q", cfg.GetBaseURL())
	}
	if cfg.GetTranslator() != translate.EngineBackend {
		t.Fatalf("translator = %q", cfg.GetTranslator())
	}
	if cfg.GetRequestTimeout() != backend.DefaultTimeout {
		t.Fatalf("request timeout = %v", cfg.GetRequestTimeout())
	}
	if cfg.GetTranslateTimeout() != translate.DefaultItemTimeout {
		t.Fatalf("translate timeout = %v", cfg.GetTranslateTimeout())
	}

	info, err := os.Stat(filepath.Join(home, ".farmchat", "config.json"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("config file mode = %v", info.Mode().Perm())
	}
}

func TestLoadConfigReadsProfile(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	writeConfig(t, home, `{
  "active_profile": "llm",
  "log_level": "debug",
  "profiles": {
    "llm": {
      "base_url": "http://localhost:8000",
      "source_language": "en",
      "translator": "openai",
      "request_timeout": "5s",
      "translate_timeout": "2s",
      "api_key": "sk-test",
      "model": "gpt-test",
      "openai_base_url": "http://localhost:9000/v1"
    }
  }
}`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.GetTranslator() != translate.EngineOpenAI || cfg.GetAPIKey() != "sk-test" {
		t.Fatalf("profile = %+v", cfg.Current())
	}
	if cfg.GetModel() != "gpt-test" || cfg.GetOpenAIBaseURL() != "http://localhost:9000/v1" {
		t.Fatalf("profile = %+v", cfg.Current())
	}
	if cfg.GetRequestTimeout() != 5*time.Second || cfg.GetTranslateTimeout() != 2*time.Second {
		t.Fatalf("timeouts = %v, %v", cfg.GetRequestTimeout(), cfg.GetTranslateTimeout())
	}
	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("log level = %q", cfg.GetLogLevel())
	}
}

func TestLoadConfigFallsBackToFirstProfile(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	writeConfig(t, home, `{"active_profile": "gone", "profiles": {"b": {}, "a": {"base_url": "http://a"}}}`)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ActiveProfile != "a" || cfg.GetBaseURL() != "http://a" {
		t.Fatalf("active = %q, base url = %q", cfg.ActiveProfile, cfg.GetBaseURL())
	}
}

func TestLoadConfigRejectsEmptyProfiles(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	writeConfig(t, home, `{"profiles": {}}`)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for empty profiles")
	}
}

func TestUseAndSave(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Profiles["local"] = Profile{BaseURL: "http://localhost:8000", Translator: "backend"}
	if err := cfg.Use("missing"); err == nil {
		t.Fatal("Use of a missing profile succeeded")
	}
	if err := cfg.Use("local"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.ActiveProfile != "local" || reloaded.GetBaseURL() != "http://localhost:8000" {
		t.Fatalf("reloaded = %q %q", reloaded.ActiveProfile, reloaded.GetBaseURL())
	}
	if got := reloaded.ProfileNames(); len(got) != 2 || got[0] != "default" || got[1] != "local" {
		t.Fatalf("profile names = %v", got)
	}
}

func TestProfileValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"default", DefaultProfile(), false},
		{"empty", Profile{}, false},
		{"unknown translator", Profile{Translator: "deepl"}, true},
		{"openai without key", Profile{Translator: "openai"}, true},
		{"openai with key", Profile{Translator: "openai", APIKey: "k"}, false},
		{"bad language", Profile{SourceLanguage: "not a tag!"}, true},
		{"bad timeout", Profile{RequestTimeout: "soon"}, true},
		{"negative timeout", Profile{TranslateTimeout: "-1s"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
