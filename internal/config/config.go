// Package config loads the bot configuration from a TOML file in the state
// directory and validates the parts a run cannot proceed without.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mhameln/wg-inquiry/internal/domain"
)

const (
	configName = "config"
	configType = "toml"

	// DefaultStateDirName is created under the user's home directory.
	DefaultStateDirName = ".wg-inquiry"

	messageFileName = "message.txt"

	defaultTemplate = "Hallo {name},\n\nich habe eure Anzeige gesehen und bin sehr interessiert. " +
		"Ich würde mich freuen, von euch zu hören!\n\nViele Grüße"
)

// Account holds the upstream credentials and login mode.
type Account struct {
	AuthMode         string
	Email            string
	Password         string
	VerificationCode string
}

// Search mirrors the `[search]` section.
type Search struct {
	City                 string
	Categories           string
	MaxPrice             int
	MinSize              int
	Bezirk               []string
	ContactZwischenmiete bool
	MaxPages             int
	Limit                int
	TargetFilteredOffers int
}

// Gemini mirrors the `[gemini]` section.
type Gemini struct {
	Enabled bool
	APIKey  string
	Model   string
}

// Settings mirrors the `[settings]` section.
type Settings struct {
	DryRun                bool
	MaxMessagesPerRun     int
	DelayBetweenMessages  time.Duration
	IntervalMinutes       int
	MarkContactedInDryRun bool
	Prompt2FA             bool
}

type Config struct {
	StateDir    string
	Account     Account
	Search      Search
	Gemini      Gemini
	Settings    Settings
	MessagePath string
}

// Load reads <stateDir>/config.toml, applying defaults for everything
// optional. A missing file is fine; validation decides what is fatal.
func Load(stateDir string) (Config, error) {
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		stateDir = filepath.Join(home, DefaultStateDirName)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(stateDir)

	v.SetDefault("wg_gesucht.auth_mode", string(domain.AuthModeMobile))
	v.SetDefault("search.categories", "0")
	v.SetDefault("search.max_price", 1000)
	v.SetDefault("search.min_size", 10)
	v.SetDefault("search.contact_zwischenmiete", true)
	v.SetDefault("search.max_pages", 1)
	v.SetDefault("search.limit", 20)
	v.SetDefault("search.target_filtered_offers", 0)
	v.SetDefault("gemini.enabled", false)
	v.SetDefault("gemini.model", "")
	v.SetDefault("settings.dry_run", true)
	v.SetDefault("settings.max_messages_per_run", 5)
	v.SetDefault("settings.delay_between_messages", 10)
	v.SetDefault("settings.interval_minutes", 5)
	v.SetDefault("settings.mark_contacted_in_dry_run", false)
	v.SetDefault("settings.prompt_2fa", true)
	v.SetDefault("message.path", filepath.Join(stateDir, messageFileName))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		StateDir: stateDir,
		Account: Account{
			AuthMode:         v.GetString("wg_gesucht.auth_mode"),
			Email:            v.GetString("wg_gesucht.email"),
			Password:         v.GetString("wg_gesucht.password"),
			VerificationCode: v.GetString("wg_gesucht.verification_code"),
		},
		Search: Search{
			City:                 v.GetString("search.city"),
			Categories:           v.GetString("search.categories"),
			MaxPrice:             v.GetInt("search.max_price"),
			MinSize:              v.GetInt("search.min_size"),
			Bezirk:               v.GetStringSlice("search.bezirk"),
			ContactZwischenmiete: v.GetBool("search.contact_zwischenmiete"),
			MaxPages:             v.GetInt("search.max_pages"),
			Limit:                v.GetInt("search.limit"),
			TargetFilteredOffers: v.GetInt("search.target_filtered_offers"),
		},
		Gemini: Gemini{
			Enabled: v.GetBool("gemini.enabled"),
			APIKey:  v.GetString("gemini.api_key"),
			Model:   v.GetString("gemini.model"),
		},
		Settings: Settings{
			DryRun:                v.GetBool("settings.dry_run"),
			MaxMessagesPerRun:     v.GetInt("settings.max_messages_per_run"),
			DelayBetweenMessages:  time.Duration(v.GetInt("settings.delay_between_messages")) * time.Second,
			IntervalMinutes:       v.GetInt("settings.interval_minutes"),
			MarkContactedInDryRun: v.GetBool("settings.mark_contacted_in_dry_run"),
			Prompt2FA:             v.GetBool("settings.prompt_2fa"),
		},
		MessagePath: v.GetString("message.path"),
	}

	return cfg, nil
}

// Validate checks the fields without which a run cannot start.
func (c Config) Validate() error {
	var problems []string

	if _, err := domain.ParseAuthMode(c.Account.AuthMode); err != nil {
		problems = append(problems, fmt.Sprintf("wg_gesucht.auth_mode: %v", err))
	}
	if strings.TrimSpace(c.Account.Email) == "" {
		problems = append(problems, "wg_gesucht.email is required")
	}
	if c.Account.Password == "" {
		problems = append(problems, "wg_gesucht.password is required")
	}
	if strings.TrimSpace(c.Search.City) == "" {
		problems = append(problems, "search.city is required")
	}
	if c.Gemini.Enabled && c.Gemini.APIKey == "" {
		problems = append(problems, "gemini.api_key is required when gemini.enabled is true")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Criteria maps the search section onto the run criteria.
func (c Config) Criteria() domain.Criteria {
	return domain.Criteria{
		City:             c.Search.City,
		Categories:       c.Search.Categories,
		MaxRent:          c.Search.MaxPrice,
		MinSize:          c.Search.MinSize,
		Districts:        c.Search.Bezirk,
		IncludeTimeLimit: c.Search.ContactZwischenmiete,
		PageSize:         c.Search.Limit,
		MaxPages:         c.Search.MaxPages,
		TargetCount:      c.Search.TargetFilteredOffers,
	}
}

// MessageTemplate reads the outreach template file, falling back to the
// built-in German default when the file is absent.
func (c Config) MessageTemplate() (string, error) {
	data, err := os.ReadFile(c.MessagePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultTemplate, nil
		}
		return "", fmt.Errorf("read message template: %w", err)
	}

	template := strings.TrimSpace(string(data))
	if template == "" {
		return defaultTemplate, nil
	}
	return template, nil
}
