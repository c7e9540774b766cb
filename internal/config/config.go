package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/selimozcann/RedirectCounter/internal/counter"
	"github.com/selimozcann/RedirectCounter/internal/output"
	"github.com/selimozcann/RedirectCounter/internal/publish"
)

// Environment variable names.
const (
	EnvMapURL          = "REDIRECT_MAP_URL"
	EnvStrategy        = "COUNTS_STRATEGY"
	EnvCountsURL       = "COUNTS_WEBAPP_URL"
	EnvCounterTemplate = "COUNTER_URL_TEMPLATE"
	EnvMapFile         = "REDIRECT_MAP_FILE"
	EnvOutputFile      = "COUNTS_OUTPUT_FILE"
	EnvFilterZero      = "COUNTS_FILTER_ZERO"
	EnvShape           = "COUNTS_OUTPUT_SHAPE"
	EnvConcurrency     = "COUNTS_CONCURRENCY"
	EnvTimeout         = "HTTP_TIMEOUT"
	EnvRetries         = "HTTP_RETRIES"

	EnvS3Endpoint  = "PUBLISH_S3_ENDPOINT"
	EnvS3Region    = "PUBLISH_S3_REGION"
	EnvS3AccessKey = "PUBLISH_S3_ACCESS_KEY"
	EnvS3SecretKey = "PUBLISH_S3_SECRET_KEY"
	EnvS3Bucket    = "PUBLISH_S3_BUCKET"
	EnvS3Prefix    = "PUBLISH_S3_PREFIX"
	EnvS3UseSSL    = "PUBLISH_S3_USE_SSL"
)

// Defaults.
const (
	DefaultMapURL          = "https://arnottferels.github.io/a/json/redirect.json"
	DefaultCounterTemplate = "https://arn.goatcounter.com/counter/{pathname}.json"
	DefaultMapFile         = "c_rm.json"
	DefaultOutputFile      = "c.json"
	DefaultTimeout         = 30 * time.Second
)

// Strategy selects how counts are resolved.
type Strategy string

const (
	StrategyBulk    Strategy = "bulk"
	StrategyPerPath Strategy = "per-path"
)

// ErrMissingCountsURL is returned when the bulk strategy has no endpoint.
var ErrMissingCountsURL = errors.New(EnvCountsURL + " is missing")

// Config is the explicit input of one run.
type Config struct {
	MapURL          string
	Strategy        Strategy
	CountsURL       string
	CounterTemplate string
	MapFile         string
	OutputFile      string
	FilterZero      bool
	Shape           output.Shape
	Concurrency     int
	Timeout         time.Duration
	Retries         int
	Publish         *publish.S3Config
}

// Load reads .env files (missing ones are ignored) and builds the config
// from the process environment.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromEnv(os.Getenv)
}

// FromEnv builds a config from getenv, applying defaults. The result is
// not validated; flags may still override it.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg := &Config{
		MapURL:          firstNonEmpty(get(EnvMapURL), DefaultMapURL),
		CountsURL:       get(EnvCountsURL),
		CounterTemplate: firstNonEmpty(get(EnvCounterTemplate), DefaultCounterTemplate),
		MapFile:         firstNonEmpty(get(EnvMapFile), DefaultMapFile),
		OutputFile:      firstNonEmpty(get(EnvOutputFile), DefaultOutputFile),
		Shape:           output.Shape(firstNonEmpty(get(EnvShape), string(output.ShapeFlat))),
		FilterZero:      true,
		Concurrency:     1,
		Timeout:         DefaultTimeout,
	}

	switch s := get(EnvStrategy); {
	case s != "":
		cfg.Strategy = Strategy(strings.ToLower(s))
	case cfg.CountsURL != "":
		cfg.Strategy = StrategyBulk
	default:
		cfg.Strategy = StrategyPerPath
	}

	var err error
	if raw := get(EnvFilterZero); raw != "" {
		if cfg.FilterZero, err = strconv.ParseBool(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvFilterZero, err)
		}
	}
	if raw := get(EnvConcurrency); raw != "" {
		if cfg.Concurrency, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvConcurrency, err)
		}
	}
	if raw := get(EnvTimeout); raw != "" {
		if cfg.Timeout, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvTimeout, err)
		}
	}
	if raw := get(EnvRetries); raw != "" {
		if cfg.Retries, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvRetries, err)
		}
	}

	if endpoint := get(EnvS3Endpoint); endpoint != "" {
		cfg.Publish = &publish.S3Config{
			Endpoint:  endpoint,
			Region:    get(EnvS3Region),
			AccessKey: get(EnvS3AccessKey),
			SecretKey: get(EnvS3SecretKey),
			Bucket:    get(EnvS3Bucket),
			Prefix:    get(EnvS3Prefix),
			UseSSL:    parseBoolDefault(get(EnvS3UseSSL), true),
		}
	}
	return cfg, nil
}

// Validate checks the config before a run starts.
func (c *Config) Validate() error {
	if c.MapURL == "" {
		return fmt.Errorf("redirect map URL is required")
	}
	switch c.Strategy {
	case StrategyBulk:
		if c.CountsURL == "" {
			return ErrMissingCountsURL
		}
	case StrategyPerPath:
		if !strings.Contains(c.CounterTemplate, counter.Placeholder) {
			return fmt.Errorf("counter template %q must contain %s", c.CounterTemplate, counter.Placeholder)
		}
	default:
		return fmt.Errorf("unknown strategy %q (want %q or %q)", c.Strategy, StrategyBulk, StrategyPerPath)
	}
	if _, err := output.ParseShape(string(c.Shape)); err != nil {
		return err
	}
	if c.MapFile == "" || c.OutputFile == "" {
		return fmt.Errorf("redirect map file and output file are required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than zero (got %d)", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %s)", c.Timeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must be >= 0 (got %d)", c.Retries)
	}
	return nil
}

// Params renders the config for verbose output. Secrets are omitted.
func (c *Config) Params() map[string]string {
	params := map[string]string{
		"map_url":     c.MapURL,
		"strategy":    string(c.Strategy),
		"map_file":    c.MapFile,
		"output_file": c.OutputFile,
		"filter_zero": strconv.FormatBool(c.FilterZero),
		"shape":       string(c.Shape),
		"concurrency": strconv.Itoa(c.Concurrency),
		"timeout":     c.Timeout.String(),
		"retries":     strconv.Itoa(c.Retries),
	}
	if c.Strategy == StrategyBulk {
		params["counts_url"] = c.CountsURL
	} else {
		params["counter_template"] = c.CounterTemplate
	}
	if c.Publish != nil {
		params["publish"] = c.Publish.Endpoint + "/" + c.Publish.Bucket
	}
	return params
}

func parseBoolDefault(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
