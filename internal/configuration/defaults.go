package configuration

import "time"

// Server constants.
const (
	DefaultServerAddr        = ":8080"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultRequestsPerMinute = 120
	DefaultMaxUploadBytes    = 12 << 20
)

// Backend constants.
const (
	DefaultCustomerSupportPath = "/webhook/customer-support"
	DefaultCVPath              = "/webhook/cv-form"
	DefaultBackendRPS          = 5
	DefaultBackendBurst        = 10
)

// Session and intake constants.
const (
	DefaultResetDelay    = 5 * time.Second
	DefaultSessionTTL    = 24 * time.Hour
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Temporal constants.
const (
	DefaultTemporalHostPort  = "localhost:7233"
	DefaultTemporalNamespace = "default"
	DefaultTaskQueue         = "intake-submissions"
	DefaultTicketAttempts    = 1
	DefaultRunTimeout        = 2 * time.Minute
	DefaultActivityTimeout   = 30 * time.Second
)

// DefaultConfig returns a configuration that runs locally with an in-memory
// session store and direct submission. Only the backend base URL must be
// supplied before claims can be started.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              DefaultServerAddr,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
			RequestsPerMinute: DefaultRequestsPerMinute,
			MaxUploadBytes:    DefaultMaxUploadBytes,
		},
		Backend: BackendConfig{
			CustomerSupportPath: DefaultCustomerSupportPath,
			CVPath:              DefaultCVPath,
			RequestsPerSecond:   DefaultBackendRPS,
			Burst:               DefaultBackendBurst,
		},
		Intake: IntakeConfig{
			ResetDelay: DefaultResetDelay,
		},
		Session: SessionConfig{
			Store:         StoreMemory,
			TTL:           DefaultSessionTTL,
			IdleTimeout:   DefaultIdleTimeout,
			SweepInterval: DefaultSweepInterval,
		},
		Submission: SubmissionConfig{
			Mode: SubmitDirect,
		},
		Temporal: TemporalConfig{
			HostPort:        DefaultTemporalHostPort,
			Namespace:       DefaultTemporalNamespace,
			TaskQueue:       DefaultTaskQueue,
			TicketAttempts:  DefaultTicketAttempts,
			RunTimeout:      DefaultRunTimeout,
			ActivityTimeout: DefaultActivityTimeout,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}
