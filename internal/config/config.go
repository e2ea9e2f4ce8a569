package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "INTEL_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	redisURLEnv     = "REDIS_URL"
	providerURLEnv  = "PROVIDER_BASE_URL"
	providerKeyEnv  = "PROVIDER_API_KEY"
	notifyEmailEnv  = "NOTIFY_EMAIL"
	smtpPasswordEnv = "SMTP_PASSWORD"
	portEnv         = "PORT"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Provider      ProviderConfig     `yaml:"provider"`
	Storage       StorageConfig      `yaml:"storage"`
	Relevance     RelevanceConfig    `yaml:"relevance"`
	Schedules     ScheduleConfig     `yaml:"schedules"`
	Retention     RetentionConfig    `yaml:"retention"`
	Notifications NotificationConfig `yaml:"notifications"`
	Companies     []SeedCompany      `yaml:"companies"`
	Logging       LoggingConfig      `yaml:"logging"`
	Debug         bool               `yaml:"debug"`
}

// ServerConfig describes the HTTP trigger/admin listener.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// ProviderConfig wires the remote data provider, or the scrape fallback.
type ProviderConfig struct {
	BaseURL       string       `yaml:"baseUrl"`
	APIKey        string       `yaml:"apiKey"`
	DataPath      string       `yaml:"dataPath"`
	CompaniesPath string       `yaml:"companiesPath"`
	Mode          string       `yaml:"mode"` // "api" or "scrape"
	Scrape        ScrapeConfig `yaml:"scrape"`
}

// ScrapeConfig describes how to extract articles from a news index page.
type ScrapeConfig struct {
	URL             string `yaml:"url"`
	ItemSelector    string `yaml:"itemSelector"`
	TitleSelector   string `yaml:"titleSelector"`
	LinkSelector    string `yaml:"linkSelector"`
	SummarySelector string `yaml:"summarySelector"`
	MinScore        int    `yaml:"minScore"`
}

// StorageConfig selects and configures the record-store driver.
type StorageConfig struct {
	Driver   string `yaml:"driver"` // "memory", "postgres" or "redis"
	DSN      string `yaml:"dsn"`
	RedisURL string `yaml:"redisUrl"`
}

// RelevanceConfig tunes article filtering for insight generation.
type RelevanceConfig struct {
	Threshold            int      `yaml:"threshold"`
	JurisdictionKeywords []string `yaml:"jurisdictionKeywords"`
	CategoryKeywords     []string `yaml:"categoryKeywords"`
	PriorityKeywords     []string `yaml:"priorityKeywords"`
}

// ScheduleConfig holds one cron spec per pipeline operation.
type ScheduleConfig struct {
	Intelligence string `yaml:"intelligence"`
	Companies    string `yaml:"companies"`
	Insights     string `yaml:"insights"`
	Profiles     string `yaml:"profiles"`
}

// RetentionConfig bounds the event log.
type RetentionConfig struct {
	MaxLogEntries int `yaml:"maxLogEntries"`
	LogMaxAgeDays int `yaml:"logMaxAgeDays"`
}

// NotificationConfig encapsulates outbound mail settings.
type NotificationConfig struct {
	Email string     `yaml:"email"`
	SMTP  SMTPConfig `yaml:"smtp"`
}

// SMTPConfig wires the mail relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SeedCompany pre-populates the tracked-company dataset at startup.
type SeedCompany struct {
	Name     string `yaml:"name"`
	Industry string `yaml:"industry"`
	Status   string `yaml:"status"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(redisURLEnv); v != "" {
		c.Storage.RedisURL = v
	}
	if v := os.Getenv(providerURLEnv); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(providerKeyEnv); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv(notifyEmailEnv); v != "" {
		c.Notifications.Email = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Notifications.SMTP.Password = v
	}
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Port = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Server.Port != "" {
		base.Server.Port = override.Server.Port
	}

	if override.Provider.BaseURL != "" {
		base.Provider.BaseURL = override.Provider.BaseURL
	}
	if override.Provider.APIKey != "" {
		base.Provider.APIKey = override.Provider.APIKey
	}
	if override.Provider.DataPath != "" {
		base.Provider.DataPath = override.Provider.DataPath
	}
	if override.Provider.CompaniesPath != "" {
		base.Provider.CompaniesPath = override.Provider.CompaniesPath
	}
	if override.Provider.Mode != "" {
		base.Provider.Mode = override.Provider.Mode
	}
	if override.Provider.Scrape.URL != "" {
		base.Provider.Scrape = override.Provider.Scrape
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}
	if override.Storage.RedisURL != "" {
		base.Storage.RedisURL = override.Storage.RedisURL
	}

	if override.Relevance.Threshold != 0 {
		base.Relevance.Threshold = override.Relevance.Threshold
	}
	if len(override.Relevance.JurisdictionKeywords) > 0 {
		base.Relevance.JurisdictionKeywords = override.Relevance.JurisdictionKeywords
	}
	if len(override.Relevance.CategoryKeywords) > 0 {
		base.Relevance.CategoryKeywords = override.Relevance.CategoryKeywords
	}
	if len(override.Relevance.PriorityKeywords) > 0 {
		base.Relevance.PriorityKeywords = override.Relevance.PriorityKeywords
	}

	if override.Schedules.Intelligence != "" {
		base.Schedules.Intelligence = override.Schedules.Intelligence
	}
	if override.Schedules.Companies != "" {
		base.Schedules.Companies = override.Schedules.Companies
	}
	if override.Schedules.Insights != "" {
		base.Schedules.Insights = override.Schedules.Insights
	}
	if override.Schedules.Profiles != "" {
		base.Schedules.Profiles = override.Schedules.Profiles
	}

	if override.Retention.MaxLogEntries != 0 {
		base.Retention.MaxLogEntries = override.Retention.MaxLogEntries
	}
	if override.Retention.LogMaxAgeDays != 0 {
		base.Retention.LogMaxAgeDays = override.Retention.LogMaxAgeDays
	}

	if override.Notifications.Email != "" {
		base.Notifications.Email = override.Notifications.Email
	}
	if override.Notifications.SMTP.Host != "" {
		base.Notifications.SMTP = override.Notifications.SMTP
	}

	if len(override.Companies) > 0 {
		base.Companies = override.Companies
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Debug {
		base.Debug = true
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Provider: ProviderConfig{
			BaseURL:       "https://intel.example.org",
			DataPath:      "/data",
			CompaniesPath: "/companies",
			Mode:          "api",
			Scrape: ScrapeConfig{
				ItemSelector:    "article",
				TitleSelector:   "h2 a",
				LinkSelector:    "h2 a",
				SummarySelector: "p",
				MinScore:        2,
			},
		},
		Storage: StorageConfig{Driver: "memory"},
		Relevance: RelevanceConfig{
			Threshold:            80,
			JurisdictionKeywords: []string{"New Jersey", "New York", "Local-Specific"},
			CategoryKeywords:     []string{"Construction"},
			PriorityKeywords:     []string{"union", "labor agreement", "contract award"},
		},
		Schedules: ScheduleConfig{
			Intelligence: "@every 5m",
			Companies:    "@every 24h",
			Insights:     "@every 10m",
			Profiles:     "@every 24h",
		},
		Retention: RetentionConfig{MaxLogEntries: 1000, LogMaxAgeDays: 30},
		Notifications: NotificationConfig{
			SMTP: SMTPConfig{Port: 587},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
