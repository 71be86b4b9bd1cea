// Package config loads the diagram microservice's TOML configuration,
// following the shape of its teacher's Config struct: nested sections with
// toml tags, defaulted at construction and overridable from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the recognized option set from spec.md §6.3.
type Config struct {
	Server struct {
		WSHost string `toml:"ws_host"`
		Port   int    `toml:"port"`
	} `toml:"server"`

	Limits struct {
		MaxConnections          int   `toml:"max_connections"`
		MaxRequestsPerSession   int   `toml:"max_requests_per_session"`
		RequestTimeoutMs        int64 `toml:"request_timeout_ms"`
		IdleTimeoutMs           int64 `toml:"idle_timeout_ms"`
		OutputQueueCapacity     int   `toml:"output_queue_capacity"`
		BackpressureDeadlineMs  int64 `toml:"backpressure_deadline_ms"`
	} `toml:"limits"`

	Cache struct {
		MaxBytes int64 `toml:"cache_bytes"`
		TTLMs    int64 `toml:"cache_ttl_ms"`
	} `toml:"cache"`

	ObjectStore struct {
		URL    string `toml:"object_store_url"`
		Bucket string `toml:"object_store_bucket"`
		Public bool   `toml:"object_store_public"`
	} `toml:"object_store"`

	Mermaid struct {
		CLIPath       string `toml:"mermaid_cli_path"`
		RenderLimitMs int64  `toml:"mermaid_render_timeout_ms"`
	} `toml:"mermaid"`

	Chart struct {
		ExecutorEnabled bool  `toml:"chart_executor_enabled"`
		ExecTimeoutMs   int64 `toml:"chart_exec_timeout_ms"`
	} `toml:"chart"`

	LLM struct {
		Endpoint    string  `toml:"llm_endpoint"`
		APIKey      string  `toml:"llm_api_key"`
		Model       string  `toml:"llm_model"`
		Temperature float64 `toml:"llm_temperature"`
	} `toml:"llm"`

	TemplateDir string `toml:"template_dir"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`

	Retry         RetryConfig         `toml:"retry"`
	CircuitBreaker CircuitBreakerConfig `toml:"circuit_breaker"`
}

// RetryConfig mirrors the teacher's RetryPolicy shape, generalized for the
// object-store upload path (§4.10).
type RetryConfig struct {
	MaxAttempts int     `toml:"max_attempts"`
	BaseDelayMs int64   `toml:"base_delay_ms"`
	Factor      float64 `toml:"factor"`
	JitterPct   float64 `toml:"jitter_pct"`
}

// BaseDelay returns the base backoff delay as a time.Duration.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// CircuitBreakerConfig mirrors the teacher's CircuitBreakerConfig, available
// to wrap the object-store client and the Mermaid CLI invocation.
type CircuitBreakerConfig struct {
	FailureThreshold int   `toml:"failure_threshold"`
	SuccessThreshold int   `toml:"success_threshold"`
	OpenTimeoutMs    int64 `toml:"open_timeout_ms"`
}

// OpenTimeout returns the open-state timeout as a time.Duration.
func (c CircuitBreakerConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMs) * time.Millisecond
}

// Default returns the option defaults listed in spec.md §6.3.
func Default() *Config {
	c := &Config{}
	c.Server.WSHost = "0.0.0.0"
	c.Server.Port = 8080
	c.Limits.MaxConnections = 100
	c.Limits.MaxRequestsPerSession = 10
	c.Limits.RequestTimeoutMs = 60_000
	c.Limits.IdleTimeoutMs = 300_000
	c.Limits.OutputQueueCapacity = 64
	c.Limits.BackpressureDeadlineMs = 5_000
	c.Cache.MaxBytes = 256 << 20
	c.Cache.TTLMs = 3_600_000
	c.ObjectStore.Public = true
	c.Mermaid.RenderLimitMs = 15_000
	c.Chart.ExecutorEnabled = false
	c.Chart.ExecTimeoutMs = 10_000
	c.LLM.Temperature = 0.2
	c.TemplateDir = "templates"
	c.LogLevel = "info"
	c.LogFormat = "console"
	c.Retry = RetryConfig{MaxAttempts: 3, BaseDelayMs: 200, Factor: 2.0, JitterPct: 0.25}
	c.CircuitBreaker = CircuitBreakerConfig{FailureThreshold: 5, SuccessThreshold: 2, OpenTimeoutMs: 30_000}
	return c
}

// RequestTimeout returns the per-request wall clock as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Limits.RequestTimeoutMs) * time.Millisecond
}

// IdleTimeout returns the WebSocket idle timeout as a time.Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Limits.IdleTimeoutMs) * time.Millisecond
}

// BackpressureDeadline returns the output-queue backpressure deadline.
func (c *Config) BackpressureDeadline() time.Duration {
	return time.Duration(c.Limits.BackpressureDeadlineMs) * time.Millisecond
}

// CacheTTL returns the cache entry TTL as a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMs) * time.Millisecond
}

// MermaidRenderLimit returns the Mermaid CLI wall-clock bound.
func (c *Config) MermaidRenderLimit() time.Duration {
	return time.Duration(c.Mermaid.RenderLimitMs) * time.Millisecond
}

// ChartExecTimeout returns the chart executor wall-clock bound.
func (c *Config) ChartExecTimeout() time.Duration {
	return time.Duration(c.Chart.ExecTimeoutMs) * time.Millisecond
}

// Load reads a TOML file over the defaults, then applies DIAGRAMSVC_*
// environment overrides for the handful of options operators tune most.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(c)
	return c, nil
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("DIAGRAMSVC_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("DIAGRAMSVC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DIAGRAMSVC_TEMPLATE_DIR"); v != "" {
		c.TemplateDir = v
	}
	if v := os.Getenv("DIAGRAMSVC_OBJECT_STORE_URL"); v != "" {
		c.ObjectStore.URL = v
	}
	if v := os.Getenv("DIAGRAMSVC_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("DIAGRAMSVC_LLM_ENDPOINT"); v != "" {
		c.LLM.Endpoint = v
	}
	if v := os.Getenv("DIAGRAMSVC_MERMAID_CLI_PATH"); v != "" {
		c.Mermaid.CLIPath = v
	}
}
