// Package config turns viper state into an immutable, validated Config.
// Validation happens once at startup so bad values fail before any network
// call.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/itinfra/seatsweep/pkg/license"
)

// Config is the validated runtime configuration for one sweep.
type Config struct {
	NotifyAfterDays int
	RemoveAfterDays int

	EnableJetBrains      bool
	EnableCopilot        bool
	NotificationsEnabled bool

	JetBrainsAPIKey       string
	JetBrainsCustomerCode string

	CopilotToken string
	CopilotOrg   string

	SlackToken   string
	AdminChannel string
}

// SetDefaults registers every recognized key with its default so a freshly
// written config file documents them all.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("sweep.notifyafterdays", 60)
	v.SetDefault("sweep.removeafterdays", 90)
	v.SetDefault("sweep.notifications", true)
	v.SetDefault("jetbrains.enabled", false)
	v.SetDefault("jetbrains.apikey", "")
	v.SetDefault("jetbrains.customercode", "")
	v.SetDefault("copilot.enabled", false)
	v.SetDefault("copilot.token", "")
	v.SetDefault("copilot.org", "")
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.adminchannel", "")
}

// Load reads and validates the configuration.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		NotifyAfterDays:       v.GetInt("sweep.notifyafterdays"),
		RemoveAfterDays:       v.GetInt("sweep.removeafterdays"),
		NotificationsEnabled:  v.GetBool("sweep.notifications"),
		EnableJetBrains:       v.GetBool("jetbrains.enabled"),
		EnableCopilot:         v.GetBool("copilot.enabled"),
		JetBrainsAPIKey:       v.GetString("jetbrains.apikey"),
		JetBrainsCustomerCode: v.GetString("jetbrains.customercode"),
		CopilotToken:          v.GetString("copilot.token"),
		CopilotOrg:            v.GetString("copilot.org"),
		SlackToken:            v.GetString("slack.token"),
		AdminChannel:          v.GetString("slack.adminchannel"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.NotifyAfterDays <= 0 {
		return &license.ConfigError{Field: "sweep.notifyafterdays", Err: fmt.Errorf("must be positive, got %d", c.NotifyAfterDays)}
	}
	if c.RemoveAfterDays <= 0 {
		return &license.ConfigError{Field: "sweep.removeafterdays", Err: fmt.Errorf("must be positive, got %d", c.RemoveAfterDays)}
	}
	if c.RemoveAfterDays <= c.NotifyAfterDays {
		// Convention, not structure: the remove window should strictly
		// exceed the notify window or the notify tier collapses.
		return &license.ConfigError{Field: "sweep.removeafterdays", Err: fmt.Errorf("must exceed notifyafterdays (%d <= %d)", c.RemoveAfterDays, c.NotifyAfterDays)}
	}
	if c.EnableJetBrains && (c.JetBrainsAPIKey == "" || c.JetBrainsCustomerCode == "") {
		return &license.ConfigError{Field: "jetbrains", Err: fmt.Errorf("enabled but apikey or customercode missing")}
	}
	if c.EnableCopilot && (c.CopilotToken == "" || c.CopilotOrg == "") {
		return &license.ConfigError{Field: "copilot", Err: fmt.Errorf("enabled but token or org missing")}
	}
	if c.NotificationsEnabled {
		if c.SlackToken == "" {
			return &license.ConfigError{Field: "slack.token", Err: fmt.Errorf("required while notifications are enabled")}
		}
		if c.AdminChannel == "" {
			return &license.ConfigError{Field: "slack.adminchannel", Err: fmt.Errorf("required while notifications are enabled")}
		}
	}
	return nil
}
