package configuration

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LookupFunc reads an environment variable.
type LookupFunc func(key string) (string, bool)

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the process environment.
func Load(path string) (*Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment source.
func LoadWith(path string, lookup LookupFunc) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func readFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s contains multiple documents or trailing content", path)
	}
	return nil
}

// envBinding maps one environment variable onto a config field.
type envBinding struct {
	key   string
	apply func(string) error
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	bindings := []envBinding{
		{"N8N_WEBHOOK_BASE_URL", setString(&cfg.Backend.BaseURL)},
		{"INTAKE_BACKEND_BASE_URL", setString(&cfg.Backend.BaseURL)},
		{"INTAKE_BACKEND_TICKET_URL", setString(&cfg.Backend.TicketURL)},
		{"INTAKE_BACKEND_TIMEOUT", setDuration(&cfg.Backend.Timeout)},
		{"INTAKE_BACKEND_RPS", setFloat(&cfg.Backend.RequestsPerSecond)},
		{"INTAKE_SERVER_ADDR", setString(&cfg.Server.Addr)},
		{"INTAKE_SERVER_RPM", setInt(&cfg.Server.RequestsPerMinute)},
		{"INTAKE_RESET_DELAY", setDuration(&cfg.Intake.ResetDelay)},
		{"INTAKE_SESSION_STORE", setString(&cfg.Session.Store)},
		{"INTAKE_REDIS_ADDR", setString(&cfg.Session.RedisAddr)},
		{"INTAKE_REDIS_PASSWORD", setString(&cfg.Session.RedisPassword)},
		{"INTAKE_REDIS_DB", setInt(&cfg.Session.RedisDB)},
		{"INTAKE_SESSION_TTL", setDuration(&cfg.Session.TTL)},
		{"INTAKE_SESSION_IDLE_TIMEOUT", setDuration(&cfg.Session.IdleTimeout)},
		{"INTAKE_SUBMISSION_MODE", setString(&cfg.Submission.Mode)},
		{"INTAKE_TEMPORAL_HOST_PORT", setString(&cfg.Temporal.HostPort)},
		{"INTAKE_TEMPORAL_NAMESPACE", setString(&cfg.Temporal.Namespace)},
		{"INTAKE_TEMPORAL_TASK_QUEUE", setString(&cfg.Temporal.TaskQueue)},
		{"INTAKE_TEMPORAL_ACTIVITY_TIMEOUT", setDuration(&cfg.Temporal.ActivityTimeout)},
		{"INTAKE_LOG_LEVEL", setString(&cfg.Observability.LogLevel)},
		{"INTAKE_LOG_FORMAT", setString(&cfg.Observability.LogFormat)},
		{"INTAKE_METRICS_ENABLED", setBool(&cfg.Observability.MetricsEnabled)},
	}
	for _, b := range bindings {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.apply(v); err != nil {
			return fmt.Errorf("environment %s=%q: %w", b.key, v, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = i
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
