package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/farmchat/internal/config"
	"github.com/Rorical/farmchat/internal/translate"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage backend profiles",
	Long:  `Manage profiles that select the assistant backend, source language and translation engine.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    Base URL: %s\n", valueOr(profile.BaseURL, "(default)"))
			fmt.Printf("    Translator: %s\n", valueOr(profile.Translator, string(translate.EngineBackend)))
			fmt.Println()
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		profileName := cfg.ActiveProfile
		if len(args) > 0 {
			profileName = args[0]
		}
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		fmt.Printf("Profile: %s\n", profileName)
		fmt.Printf("Base URL: %s\n", valueOr(profile.BaseURL, "(default)"))
		fmt.Printf("Source Language: %s\n", valueOr(profile.SourceLanguage, "en"))
		fmt.Printf("Translator: %s\n", valueOr(profile.Translator, string(translate.EngineBackend)))
		fmt.Printf("Request Timeout: %s\n", valueOr(profile.RequestTimeout, "(default)"))
		fmt.Printf("Translate Timeout: %s\n", valueOr(profile.TranslateTimeout, "(default)"))
		if profile.Translator == string(translate.EngineOpenAI) {
			fmt.Printf("Model: %s\n", valueOr(profile.Model, translate.DefaultOpenAIModel))
			fmt.Printf("OpenAI Base URL: %s\n", valueOr(profile.OpenAIBaseURL, "(default)"))
			hasKey := "Not set"
			if profile.APIKey != "" {
				hasKey = "Set (hidden for security)"
			}
			fmt.Printf("API Key: %s\n", hasKey)
		}
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			var err error
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		cfg.Profiles[profileName] = promptProfile(config.DefaultProfile())

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		profileName := profileArg(cfg, args, "Select profile to edit", false)

		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		cfg.Profiles[profileName] = promptProfile(profile)

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		profileName := profileArg(cfg, args, "Select profile to delete", false)

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'", profileName),
			IsConfirm: true,
		}
		if _, err := confirmPrompt.Run(); err != nil {
			fmt.Println("Deletion cancelled")
			return
		}

		removeProfile(cfg, profileName)

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		profileName := profileArg(cfg, args, "Select profile to switch to", true)
		if profileName == "" {
			fmt.Println("No other profiles available to switch to")
			return
		}

		if err := cfg.Use(profileName); err != nil {
			log.Fatalf("%v", err)
		}

		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

func init() {
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}

func mustLoadConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// profileArg returns args[0] or lets the user pick a profile. With
// skipActive the active profile is not offered, and "" means nothing to pick.
func profileArg(cfg *config.Config, args []string, label string, skipActive bool) string {
	if len(args) > 0 {
		return args[0]
	}

	var names []string
	for _, name := range cfg.ProfileNames() {
		if skipActive && name == cfg.ActiveProfile {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		if skipActive {
			return ""
		}
		log.Fatalf("No profiles available")
	}

	prompt := promptui.Select{
		Label: label,
		Items: names,
	}
	_, name, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return name
}

// removeProfile deletes name, moving the active profile elsewhere and
// recreating the default when the last profile goes.
func removeProfile(cfg *config.Config, name string) {
	delete(cfg.Profiles, name)
	if cfg.ActiveProfile != name {
		return
	}
	if names := cfg.ProfileNames(); len(names) > 0 {
		cfg.ActiveProfile = names[0]
		return
	}
	cfg.ActiveProfile = config.DefaultProfileName
	cfg.Profiles[config.DefaultProfileName] = config.DefaultProfile()
}

func promptProfile(current config.Profile) config.Profile {
	profile := current
	var err error

	baseURLPrompt := promptui.Prompt{
		Label:   "Backend URL",
		Default: current.BaseURL,
	}
	if profile.BaseURL, err = baseURLPrompt.Run(); err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}

	languagePrompt := promptui.Prompt{
		Label:   "Source language",
		Default: valueOr(current.SourceLanguage, "en"),
		Validate: func(s string) error {
			if !translate.Valid(s) {
				return fmt.Errorf("not a language tag")
			}
			return nil
		},
	}
	if profile.SourceLanguage, err = languagePrompt.Run(); err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}

	engines := []string{string(translate.EngineBackend), string(translate.EngineOpenAI)}
	enginePrompt := promptui.Select{
		Label:     "Translator",
		Items:     engines,
		CursorPos: indexOf(engines, current.Translator),
	}
	if _, profile.Translator, err = enginePrompt.Run(); err != nil {
		log.Fatalf("Selection failed: %v", err)
	}

	profile.RequestTimeout = promptDuration("Request timeout", current.RequestTimeout)
	profile.TranslateTimeout = promptDuration("Translate timeout", current.TranslateTimeout)

	if profile.Translator == string(translate.EngineOpenAI) {
		apiKeyPrompt := promptui.Prompt{
			Label:   "API Key",
			Default: current.APIKey,
			Mask:    '*',
		}
		if profile.APIKey, err = apiKeyPrompt.Run(); err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		modelPrompt := promptui.Prompt{
			Label:   "Model",
			Default: valueOr(current.Model, translate.DefaultOpenAIModel),
		}
		if profile.Model, err = modelPrompt.Run(); err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		openAIURLPrompt := promptui.Prompt{
			Label:   "OpenAI base URL (optional)",
			Default: current.OpenAIBaseURL,
		}
		if profile.OpenAIBaseURL, err = openAIURLPrompt.Run(); err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}
	}

	if err := profile.Validate(); err != nil {
		log.Fatalf("Invalid profile: %v", err)
	}
	return profile
}

func promptDuration(label, current string) string {
	prompt := promptui.Prompt{
		Label:   label,
		Default: current,
		Validate: func(s string) error {
			if s == "" {
				return nil
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return err
			}
			if d <= 0 {
				return fmt.Errorf("must be positive")
			}
			return nil
		},
	}
	value, err := prompt.Run()
	if err != nil {
		log.Fatalf("Prompt failed: %v", err)
	}
	return value
}

func indexOf(items []string, s string) int {
	for i, item := range items {
		if item == s {
			return i
		}
	}
	return 0
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
