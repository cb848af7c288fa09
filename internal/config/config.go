package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/mkaneko/kameki/internal/learning"
	"github.com/mkaneko/kameki/internal/review"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Review  ReviewConfig  `mapstructure:"review"`
	Lessons LessonsConfig `mapstructure:"lessons"`
}

type APIConfig struct {
	Token             string `mapstructure:"token" validate:"required"`
	BaseURL           string `mapstructure:"base_url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gt=0"`
	RetryAttempts     int    `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
}

type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path" validate:"required"`
}

type ReviewConfig struct {
	Order                 string `mapstructure:"order" validate:"review_order"`
	BatchSize             int    `mapstructure:"batch_size" validate:"gt=0"`
	GroupMeaningReading   bool   `mapstructure:"group_meaning_reading"`
	MeaningFirst          bool   `mapstructure:"meaning_first"`
	MinimizeReviewPenalty bool   `mapstructure:"minimize_review_penalty"`
}

type LessonsConfig struct {
	TypeOrder              []string `mapstructure:"type_order" validate:"dive,subject_type"`
	PrioritizeCurrentLevel bool     `mapstructure:"prioritize_current_level"`
	BatchSize              int      `mapstructure:"batch_size" validate:"gt=0"`
}

// Options converts the validated review settings into session options.
func (c ReviewConfig) Options() review.Options {
	order, _ := review.ParseOrder(c.Order)
	return review.Options{
		Order:                 order,
		BatchSize:             c.BatchSize,
		GroupMeaningReading:   c.GroupMeaningReading,
		MeaningFirst:          c.MeaningFirst,
		MinimizeReviewPenalty: c.MinimizeReviewPenalty,
	}
}

// SubjectTypeOrder converts the validated type names into their enum order.
func (c LessonsConfig) SubjectTypeOrder() []learning.SubjectType {
	order := make([]learning.SubjectType, 0, len(c.TypeOrder))
	for _, name := range c.TypeOrder {
		order = append(order, subjectTypes[name])
	}
	return order
}

func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/kameki")
	}

	v.SetDefault("api.base_url", "https://api.wanikani.com/v2")
	v.SetDefault("api.requests_per_minute", 60)
	v.SetDefault("api.retry_attempts", 2)
	v.SetDefault("storage.database_path", defaultDatabasePath())
	v.SetDefault("review.order", "random")
	v.SetDefault("review.batch_size", 10)
	v.SetDefault("review.minimize_review_penalty", true)
	v.SetDefault("lessons.type_order", []string{"radical", "kanji", "vocabulary"})
	v.SetDefault("lessons.batch_size", 5)

	// Bind the API token to an environment variable so it can stay out of
	// config files.
	if err := v.BindEnv("api.token", "KAMEKI_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind KAMEKI_API_TOKEN environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded settings and returns the translated messages of
// every violation at once.
func (c *Config) Validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}
	err = validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}
	messages := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		messages = append(messages, fieldError.Translate(trans))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "kameki.db"
	}
	return filepath.Join(home, ".local", "share", "kameki", "kameki.db")
}
