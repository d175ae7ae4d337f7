// Package configuration defines runtime settings for the intake server and
// submission worker. Values come from DefaultConfig, then an optional YAML
// file, then INTAKE_* environment variables, and are validated before use.
package configuration

import (
	"net/url"
	"strings"
	"time"
)

// Config holds the complete runtime configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Backend       BackendConfig       `yaml:"backend" json:"backend"`
	Intake        IntakeConfig        `yaml:"intake" json:"intake"`
	Session       SessionConfig       `yaml:"session" json:"session"`
	Submission    SubmissionConfig    `yaml:"submission" json:"submission"`
	Temporal      TemporalConfig      `yaml:"temporal" json:"temporal"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Addr              string        `yaml:"addr" json:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gte=0"`
	// RequestsPerMinute is the inbound per-IP limit. Zero disables it.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute" validate:"gte=0"`
	// MaxUploadBytes bounds multipart bodies.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" json:"max_upload_bytes" validate:"gt=0"`
}

// BackendConfig locates the automation backend.
type BackendConfig struct {
	BaseURL             string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	CustomerSupportPath string `yaml:"customer_support_path" json:"customer_support_path"`
	CVPath              string `yaml:"cv_path" json:"cv_path"`
	// TicketURL receives claim_submitted requests. Empty means the session's
	// resume handle.
	TicketURL string `yaml:"ticket_url" json:"ticket_url" validate:"omitempty,url"`
	// Timeout bounds one backend request. Zero leaves the transport default.
	Timeout time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
	// RequestsPerSecond throttles outbound requests. Zero disables throttling.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst" json:"burst" validate:"gte=0"`
}

// CustomerSupportURL joins the base URL with the customer-support path.
func (b BackendConfig) CustomerSupportURL() string { return joinURL(b.BaseURL, b.CustomerSupportPath) }

// CVURL joins the base URL with the CV evaluation path.
func (b BackendConfig) CVURL() string { return joinURL(b.BaseURL, b.CVPath) }

func joinURL(base, path string) string {
	if base == "" {
		return ""
	}
	if path == "" {
		return base
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// IntakeConfig tunes the step state machine.
type IntakeConfig struct {
	// ResetDelay is the countdown between a submitted claim and the fresh session.
	ResetDelay time.Duration `yaml:"reset_delay" json:"reset_delay" validate:"gte=0"`
}

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// SessionConfig selects where snapshots live.
type SessionConfig struct {
	Store         string        `yaml:"store" json:"store" validate:"oneof=memory redis"`
	RedisAddr     string        `yaml:"redis_addr" json:"redis_addr" validate:"required_if=Store redis"`
	RedisPassword string        `yaml:"redis_password" json:"-"`
	RedisDB       int           `yaml:"redis_db" json:"redis_db" validate:"gte=0"`
	TTL           time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
	// IdleTimeout evicts a session's in-memory wizard after this long without a
	// request. The snapshot stays in the store until TTL.
	IdleTimeout   time.Duration `yaml:"idle_timeout" json:"idle_timeout" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval" validate:"gt=0"`
}

// Submission modes.
const (
	SubmitDirect   = "direct"
	SubmitTemporal = "temporal"
)

// SubmissionConfig chooses how the final claim is dispatched.
type SubmissionConfig struct {
	Mode string `yaml:"mode" json:"mode" validate:"oneof=direct temporal"`
}

// TemporalConfig holds the Temporal connection used by the durable submission path.
type TemporalConfig struct {
	HostPort       string        `yaml:"host_port" json:"host_port" validate:"required"`
	Namespace      string        `yaml:"namespace" json:"namespace" validate:"required"`
	TaskQueue      string        `yaml:"task_queue" json:"task_queue" validate:"required"`
	TicketAttempts int32         `yaml:"ticket_attempts" json:"ticket_attempts" validate:"gte=1"`
	RunTimeout     time.Duration `yaml:"run_timeout" json:"run_timeout" validate:"gt=0"`
	// ActivityTimeout bounds one ticket or notification attempt.
	ActivityTimeout time.Duration `yaml:"activity_timeout" json:"activity_timeout" validate:"gt=0"`
}

// ObservabilityConfig controls logging and metrics.
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `yaml:"log_format" json:"log_format" validate:"oneof=json text"`
	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled"`
}
