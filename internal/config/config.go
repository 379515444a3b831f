// Package config loads and validates the lumino configuration.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/spigell/lumino/internal/ai"
	"github.com/spigell/lumino/internal/ai/gemini"
	"github.com/spigell/lumino/internal/failure"
	"github.com/spigell/lumino/internal/intake"
	"github.com/spigell/lumino/internal/mailer"
	"github.com/spigell/lumino/internal/notify"
	"github.com/spigell/lumino/internal/pipeline"
	"github.com/spigell/lumino/internal/secrets"
)

type Config struct {
	AI           AIConfig           `mapstructure:"ai"`
	Mail         MailConfig         `mapstructure:"mail"`
	Pipeline     PipelineConfig     `mapstructure:"pipeline"`
	Notification NotificationConfig `mapstructure:"notification"`
	Intake       IntakeConfig       `mapstructure:"intake"`
	Store        StoreConfig        `mapstructure:"store"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider" validate:"oneof=gemini"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string   `mapstructure:"api-key" json:"-" yaml:"-"`
	APIKeyFile   string   `mapstructure:"api-key-file"`
	Model        string   `mapstructure:"model"`
	MaxRetries   int      `mapstructure:"max-retries" validate:"gte=1,lte=10"`
	MaxLogLength int      `mapstructure:"max-log-length" validate:"gte=0"`
	Temperature  *float32 `mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
}

type MailConfig struct {
	Host               string `mapstructure:"host" validate:"required,hostname|ip"`
	Port               int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	SenderEmail        string `mapstructure:"sender-email"`
	SenderPassword     string `mapstructure:"sender-password" json:"-" yaml:"-"`
	SenderPasswordFile string `mapstructure:"sender-password-file"`
}

type PipelineConfig struct {
	Mode     string         `mapstructure:"mode" validate:"oneof=strict degraded"`
	Fallback FallbackConfig `mapstructure:"fallback"`
}

type FallbackConfig struct {
	SimilarityScore int    `mapstructure:"similarity-score" validate:"gte=0,lte=100"`
	Reason          string `mapstructure:"reason" validate:"required"`
}

type NotificationConfig struct {
	InviteThreshold int    `mapstructure:"invite-threshold" validate:"gte=0,lte=100"`
	ReviewThreshold int    `mapstructure:"review-threshold" validate:"gte=0,ltefield=InviteThreshold"`
	Company         string `mapstructure:"company" validate:"required"`
}

type IntakeConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=64"`
}

type StoreConfig struct {
	// Path of the SQLite database. Empty disables persistence.
	Path string `mapstructure:"path"`
}

var envBindings = map[string][]string{
	"ai.gemini.api-key":         {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"ai.gemini.api-key-file":    {"GEMINI_API_KEY_FILE"},
	"mail.sender-email":         {"SENDER_EMAIL"},
	"mail.sender-password":      {"SENDER_PASSWORD"},
	"mail.sender-password-file": {"SENDER_PASSWORD_FILE"},
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) error {
	v.SetDefault("ai.provider", ai.ProviderGemini)
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("ai.gemini.max-retries", 1)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("mail.host", mailer.DefaultHost)
	v.SetDefault("mail.port", mailer.DefaultPort)
	v.SetDefault("pipeline.mode", string(pipeline.ModeStrict))
	v.SetDefault("pipeline.fallback.similarity-score", pipeline.DefaultFallbackScore)
	v.SetDefault("pipeline.fallback.reason", pipeline.DefaultFallbackReason)
	v.SetDefault("notification.invite-threshold", notify.DefaultInviteThreshold)
	v.SetDefault("notification.review-threshold", notify.DefaultReviewThreshold)
	v.SetDefault("notification.company", notify.DefaultCompany)
	v.SetDefault("intake.concurrency", intake.DefaultConcurrency)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("binding %s environment variables: %w", strings.Join(envs, ", "), err)
		}
	}
	return nil
}

// Load decodes v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &failure.ConfigurationError{Problems: []string{fmt.Sprintf("decoding configuration: %v", err)}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and resolves the text-generation key. All
// problems are reported in a single *failure.ConfigurationError. Transport
// credentials are checked separately by MailConfig.Transport.
func (c *Config) Validate() error {
	cerr := &failure.ConfigurationError{}

	key, err := secrets.Load(secrets.Source{
		Name:  "ai.gemini.api-key",
		Value: c.AI.Gemini.APIKey,
		File:  c.AI.Gemini.APIKeyFile,
	})
	if err != nil {
		if errors.Is(err, secrets.ErrNotConfigured) && c.AI.Gemini.APIKeyFile == "" {
			cerr.Add("gemini api key is not configured (set GEMINI_API_KEY, GOOGLE_API_KEY or GEMINI_API_KEY_FILE)")
		} else {
			cerr.Add(err.Error())
		}
	}
	c.AI.Gemini.APIKey = key

	for _, problem := range validationProblems(*c) {
		cerr.Add(problem)
	}
	return cerr.OrNil()
}

// Transport resolves the SMTP settings. A non-nil error describes missing
// credentials; it is reported at startup and on every send, but never stops the process.
func (m MailConfig) Transport() (mailer.Config, error) {
	cfg := mailer.Config{
		Host:           m.Host,
		Port:           m.Port,
		SenderEmail:    strings.TrimSpace(m.SenderEmail),
		SenderPassword: m.SenderPassword,
	}

	if m.SenderPasswordFile != "" {
		password, err := secrets.Load(secrets.Source{Name: "mail.sender-password", File: m.SenderPasswordFile})
		if err != nil {
			return cfg, &failure.ConfigurationError{Problems: []string{err.Error()}}
		}
		cfg.SenderPassword = password
	}

	return cfg, cfg.Check()
}

// Policy returns the notification tier thresholds.
func (n NotificationConfig) Policy() notify.Policy {
	return notify.Policy{InviteThreshold: n.InviteThreshold, ReviewThreshold: n.ReviewThreshold}
}

// Fallbacks returns the degraded-mode substitutes.
func (p PipelineConfig) Fallbacks() pipeline.Fallbacks {
	return pipeline.DefaultFallbacks(p.Fallback.SimilarityScore, p.Fallback.Reason)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func validationProblems(cfg Config) []string {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(fe.Namespace(), "Config.")
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		problems = append(problems, fmt.Sprintf("%s: value %v does not satisfy %s", key, fe.Value(), rule))
	}
	return problems
}
