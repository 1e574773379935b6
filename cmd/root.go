package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fitscreen/fitscreen/internal/ai"
	"github.com/fitscreen/fitscreen/internal/ai/openai"
	"github.com/fitscreen/fitscreen/internal/logger"
	"github.com/fitscreen/fitscreen/internal/secrets"
	"github.com/fitscreen/fitscreen/internal/store"
)

const (
	app = "fitscreen"
)

type Config struct {
	Database *DatabaseConfig `mapstructure:"database"`
	Server   *ServerConfig   `mapstructure:"server"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Address    string `mapstructure:"address"`
	UploadsDir string `mapstructure:"uploads-dir"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	OpenAI   *OpenAIConfig `mapstructure:"openai"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "fitscreen scores uploaded candidate resumes against job descriptions using AI",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.openai.api-key", "OPENAI_API_KEY"); err != nil {
		log.Fatalf("binding OPENAI_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("database.dsn", "FITSCREEN_DB_DSN"); err != nil {
		log.Fatalf("binding FITSCREEN_DB_DSN environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is fitscreen.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// A missing config file is fine: environment variables and defaults may
	// be enough. A present but broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

func openStore(config *Config) (*store.Store, error) {
	if config == nil || config.Database == nil || config.Database.DSN == "" {
		return nil, errors.New("database DSN is not configured (set database.dsn or FITSCREEN_DB_DSN)")
	}

	return store.Open(config.Database.DSN)
}

// newEvaluator builds the configured AI evaluator. A missing API key yields
// a nil evaluator, not an error: uploads still work, analysis runs report a
// configuration problem.
func newEvaluator(config *Config, log *zap.Logger) (ai.Evaluator, error) {
	aiCfg := &AIConfig{}
	if config != nil && config.AI != nil {
		aiCfg = config.AI
	}

	provider := strings.TrimSpace(strings.ToLower(aiCfg.Provider))
	if provider != "" && provider != "openai" {
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	openaiCfg := &OpenAIConfig{}
	if aiCfg.OpenAI != nil {
		openaiCfg = aiCfg.OpenAI
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "openai api key",
		Value: openaiCfg.APIKey,
		File:  openaiCfg.APIKeyFile,
		Env:   "OPENAI_API_KEY",
	})
	if err != nil {
		log.Warn("ai evaluator disabled",
			zap.Error(err),
			zap.String("hint", "set OPENAI_API_KEY or ai.openai.api-key in the configuration file"),
		)
		return nil, nil
	}

	return openai.NewEvaluator(apiKey, openaiCfg.Model, openaiCfg.BaseURL, log)
}
