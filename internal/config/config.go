package config

import (
	"os"
	"time"

	"faceread-quiz-service/internal/app"
	"faceread-quiz-service/internal/domain"
	"faceread-quiz-service/internal/infra/memory"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		Dir              string `yaml:"dir"`
		CacheEnabled     *bool  `yaml:"cache_enabled"`
		FallbackLanguage string `yaml:"fallback_language"`
		MaxRetries       int    `yaml:"max_retries"`
		RetryBackoff     string `yaml:"retry_backoff"`
		TTL              string `yaml:"ttl"`
		FetchTimeout     string `yaml:"fetch_timeout"`
	} `yaml:"questions"`
	Quiz struct {
		// Policy is "classic" (10 questions over three kinds) or "current"
		// (15 face-to-text questions); Total and Quotas override it.
		Policy          string            `yaml:"policy"`
		Total           int               `yaml:"total"`
		Quotas          []app.Quota       `yaml:"quotas"`
		Grades          *app.GradeCutoffs `yaml:"grades"`
		Dwell           string            `yaml:"dwell"`
		KeepPoolOnReset *bool             `yaml:"keep_pool_on_reset"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// LoaderConfig returns the question loader settings with defaults applied.
func (c Config) LoaderConfig() (memory.LoaderConfig, error) {
	out := memory.DefaultLoaderConfig()
	q := c.Questions
	if q.CacheEnabled != nil {
		out.CacheEnabled = *q.CacheEnabled
	}
	if q.FallbackLanguage != "" {
		lang, err := domain.ParseLanguage(q.FallbackLanguage)
		if err != nil {
			return out, err
		}
		out.FallbackLanguage = lang
	}
	if q.MaxRetries > 0 {
		out.MaxRetries = q.MaxRetries
	}
	out.RetryBackoff = TTLDuration(q.RetryBackoff, out.RetryBackoff)
	out.TTL = TTLDuration(q.TTL, 0)
	out.FetchTimeout = TTLDuration(q.FetchTimeout, out.FetchTimeout)
	return out, nil
}

// SelectionPolicy returns the configured question mix.
func (c Config) SelectionPolicy() app.SelectionPolicy {
	policy := app.ClassicPolicy()
	if c.Quiz.Policy == "current" {
		policy = app.CurrentPolicy()
	}
	if len(c.Quiz.Quotas) > 0 {
		policy.Quotas = c.Quiz.Quotas
		policy.Total = 0
		for _, q := range c.Quiz.Quotas {
			policy.Total += q.Count
		}
	}
	if c.Quiz.Total > 0 {
		policy.Total = c.Quiz.Total
	}
	return policy
}

// GradeCutoffs returns the configured grade percentages.
func (c Config) GradeCutoffs() app.GradeCutoffs {
	if c.Quiz.Grades != nil {
		return *c.Quiz.Grades
	}
	return app.DefaultGradeCutoffs()
}

// Dwell returns how long answered questions stay on screen.
func (c Config) Dwell() time.Duration {
	return TTLDuration(c.Quiz.Dwell, app.DefaultDwell)
}

// KeepPoolOnReset reports whether reset keeps the loaded questions.
func (c Config) KeepPoolOnReset() bool {
	if c.Quiz.KeepPoolOnReset != nil {
		return *c.Quiz.KeepPoolOnReset
	}
	return true
}
