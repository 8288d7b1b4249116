package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/evaluate"
	"github.com/spigell/interviewer/internal/learning"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/questions"
	"github.com/spigell/interviewer/internal/store"
)

const (
	app       = "interviewer"
	envPrefix = "INTERVIEWER"
)

type Config struct {
	Candidate *CandidateConfig `mapstructure:"candidate"`
	Interview *InterviewConfig `mapstructure:"interview"`
	AI        *AIConfig        `mapstructure:"ai"`
	Bank      *BankConfig      `mapstructure:"bank"`
	Learning  learning.Config  `mapstructure:"learning"`
	Store     *StoreConfig     `mapstructure:"store"`
	Media     *MediaConfig     `mapstructure:"media"`
	Report    *ReportConfig    `mapstructure:"report"`
}

type CandidateConfig struct {
	Name     string `mapstructure:"name"`
	Position string `mapstructure:"position"`
	Field    string `mapstructure:"field"`
	Resume   string `mapstructure:"resume"`
}

type InterviewConfig struct {
	Questions          questions.Config `mapstructure:",squash"`
	Evaluate           evaluate.Config  `mapstructure:",squash"`
	TerminationPhrases []string         `mapstructure:"termination-phrases"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Profiles ai.Profiles   `mapstructure:"profiles"`
}

type GeminiConfig struct {
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type BankConfig struct {
	QuestionsFile string `mapstructure:"questions-file"`
	ResourcesFile string `mapstructure:"resources-file"`
	URL           string `mapstructure:"url"`
	TokenFile     string `mapstructure:"token-file"`
}

type StoreConfig struct {
	Driver string        `mapstructure:"driver"`
	DSN    string        `mapstructure:"dsn"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// MediaConfig points either at recorded feature files analysed after the
// interview or at live sample streams captured while it runs.
type MediaConfig struct {
	Video     string `mapstructure:"video"`
	Audio     string `mapstructure:"audio"`
	LiveVideo string `mapstructure:"live-video"`
	LiveAudio string `mapstructure:"live-audio"`
}

type ReportConfig struct {
	PDF string `mapstructure:"pdf"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interviewer runs an AI assisted mock interview and reports on it",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interviewer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interview.question-count", questions.DefaultCount)
	v.SetDefault("interview.fallback", true)
	v.SetDefault("interview.min-answer-length", evaluate.DefaultConfig().MinAnswerLength)
	v.SetDefault("interview.keyword-coverage", evaluate.DefaultConfig().KeywordCoverage)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.timeout", "60s")
	v.SetDefault("learning.per-area", learning.DefaultPerArea)
	v.SetDefault("learning.max-resources", learning.DefaultMaxResources)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.ttl", store.DefaultTTL.String())
}

func initConfig() {
	// A missing .env is fine, the variables may come from the environment itself.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	for key, env := range map[string]string{
		"ai.gemini.api-key-file": envPrefix + "_GEMINI_API_KEY_FILE",
		"store.dsn":              envPrefix + "_STORE_DSN",
		"bank.token-file":        envPrefix + "_BANK_TOKEN_FILE",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config every setting has a default.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	if config.Candidate == nil {
		config.Candidate = &CandidateConfig{}
	}
	if config.Interview == nil {
		config.Interview = &InterviewConfig{Evaluate: evaluate.DefaultConfig()}
	}
	if len(config.Interview.Evaluate.DetailMarkers) == 0 {
		config.Interview.Evaluate.DetailMarkers = evaluate.DetailMarkers
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Bank == nil {
		config.Bank = &BankConfig{}
	}
	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.Media == nil {
		config.Media = &MediaConfig{}
	}
	if config.Report == nil {
		config.Report = &ReportConfig{}
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func openStore(cfg *StoreConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		return store.NewMemoryStore(cfg.TTL), nil
	}
	return store.NewGormStore(cfg.Driver, cfg.DSN, cfg.TTL)
}
