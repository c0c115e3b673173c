package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/job-intake/internal/filtering"
	"github.com/spigell/job-intake/internal/profile"
	"github.com/spigell/job-intake/internal/redisbus"
	"github.com/spigell/job-intake/internal/scraper"
	"github.com/spigell/job-intake/internal/store"
	"github.com/spigell/job-intake/internal/webhook"
)

const (
	app = "job-intake"
)

type Config struct {
	Queries []string          `mapstructure:"queries"`
	Batch   *BatchConfig      `mapstructure:"batch"`
	Dedup   *DedupConfig      `mapstructure:"dedup"`
	Profile *profile.Config   `mapstructure:"profile"`
	Filters *filtering.Config `mapstructure:"filters"`
	AI      *AIConfig         `mapstructure:"ai"`
	Store   store.Config      `mapstructure:"store"`
	Alert   *AlertConfig      `mapstructure:"alert"`
	Sources *SourcesConfig    `mapstructure:"sources"`
	Redis   redisbus.Config   `mapstructure:"redis"`
	Webhook webhook.Config    `mapstructure:"webhook"`
	Command *CommandConfig    `mapstructure:"command"`
}

type BatchConfig struct {
	Target          int           `mapstructure:"target"`
	PageLimit       int           `mapstructure:"page-limit"`
	MaxCycles       int           `mapstructure:"max-cycles"`
	CycleDelay      time.Duration `mapstructure:"cycle-delay"`
	Schedule        string        `mapstructure:"schedule"`
	ScrapeTimeout   time.Duration `mapstructure:"scrape-timeout"`
	ExtractTimeout  time.Duration `mapstructure:"extract-timeout"`
	PersistTimeout  time.Duration `mapstructure:"persist-timeout"`
	DispatchTimeout time.Duration `mapstructure:"dispatch-timeout"`
}

type DedupConfig struct {
	Policy string `mapstructure:"policy"`
}

type AIConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type AlertConfig struct {
	Recipient string          `mapstructure:"recipient"`
	WhatsApp  *WhatsAppConfig `mapstructure:"whatsapp"`
}

type WhatsAppConfig struct {
	PhoneID    string `mapstructure:"phone-id"`
	Token      string `mapstructure:"token"`
	TokenFile  string `mapstructure:"token-file"`
	APIVersion string `mapstructure:"api-version"`
}

type SourcesConfig struct {
	Adzuna    scraper.AdzunaConfig    `mapstructure:"adzuna"`
	Arbeitnow scraper.ArbeitnowConfig `mapstructure:"arbeitnow"`
}

type CommandConfig struct {
	DefaultLocation string   `mapstructure:"default-location"`
	Locations       []string `mapstructure:"locations"`
	MaxCount        int      `mapstructure:"max-count"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-intake scrapes job boards, scores postings against your profile and stores the best ones",
	}

	envBindings = map[string]string{
		"ai.gemini.api-key-file":      "GEMINI_API_KEY_FILE",
		"alert.whatsapp.token-file":   "WHATSAPP_TOKEN_FILE",
		"alert.whatsapp.phone-id":     "WHATSAPP_PHONE_ID",
		"alert.recipient":             "WHATSAPP_RECIPIENT",
		"webhook.verify-token":        "WHATSAPP_VERIFY_TOKEN",
		"sources.adzuna.app-id":       "ADZUNA_APP_ID",
		"sources.adzuna.app-key-file": "ADZUNA_APP_KEY_FILE",
		"redis.url":                   "REDIS_URL",
		"store.dsn":                   "JOB_INTAKE_STORE_DSN",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-intake.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("batch.target", 10)
	viper.SetDefault("batch.page-limit", 3)
	viper.SetDefault("batch.max-cycles", 30)
	viper.SetDefault("batch.cycle-delay", "2s")
	viper.SetDefault("batch.scrape-timeout", "20s")
	viper.SetDefault("batch.extract-timeout", "30s")
	viper.SetDefault("batch.persist-timeout", "10s")
	viper.SetDefault("batch.dispatch-timeout", "15s")
	viper.SetDefault("dedup.policy", "allow")
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("store.driver", store.DriverSQLite)
	viper.SetDefault("store.dsn", "jobs.db")
	viper.SetDefault("sources.arbeitnow.enabled", true)
	viper.SetDefault("webhook.listen", ":5000")
}

func initConfig() {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	// version does not need any configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// An explicit config must parse; the default one may be absent.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		return nil, errors.New("empty configuration")
	}

	if config.Batch == nil {
		config.Batch = &BatchConfig{}
	}
	if config.Dedup == nil {
		config.Dedup = &DedupConfig{}
	}
	if config.Profile == nil {
		config.Profile = &profile.Config{}
	}
	if config.Filters == nil {
		config.Filters = &filtering.Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Alert == nil {
		config.Alert = &AlertConfig{}
	}
	if config.Alert.WhatsApp == nil {
		config.Alert.WhatsApp = &WhatsAppConfig{}
	}
	if config.Sources == nil {
		config.Sources = &SourcesConfig{}
	}
	if config.Command == nil {
		config.Command = &CommandConfig{}
	}

	return config, nil
}
