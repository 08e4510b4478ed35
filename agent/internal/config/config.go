package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultCollectInterval = 10 * time.Second
	DefaultFlushInterval   = 10 * time.Second

	DefaultMethod        = MethodHTTP
	DefaultPathPrefix    = "haproxy"
	DefaultURL           = "http://localhost/haproxy?stats;csv"
	DefaultUser          = "admin"
	DefaultPass          = "password"
	DefaultSocketPath    = "/var/run/haproxy.sock"
	DefaultScrapeTimeout = 10 * time.Second

	DefaultHost                  = "localhost"
	DefaultPort                  = 2004
	DefaultProtocol              = "tcp"
	DefaultHandlerTimeout        = 15 * time.Second
	DefaultBatchSize             = 1
	DefaultMaxBacklogMultiplier  = 5
	DefaultTrimBacklogMultiplier = 4
	DefaultCodec                 = "pickle"
)

// Collection methods accepted by collector.method.
const (
	MethodHTTP       = "http"
	MethodUnixSocket = "unix-socket"
)

// Config is the top-level configuration of the agent.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Agent     AgentConfig     `yaml:"agent"`
	Collector CollectorConfig `yaml:"collector"`
	Handler   HandlerConfig   `yaml:"handler"`
}

// AgentConfig holds process-level settings for the bundled scheduler.
type AgentConfig struct {
	// CollectInterval controls how often a scrape cycle is started.
	CollectInterval time.Duration `yaml:"collect_interval"`

	// FlushInterval forces every destination to flush on a timer.
	// Zero disables the timed flush; batches then leave only when full.
	FlushInterval time.Duration `yaml:"flush_interval"`

	// MetricsListen is the optional host:port of the self-metrics endpoint.
	MetricsListen string `yaml:"metrics_listen"`
}

// CollectorConfig describes how stats are scraped from the monitored service.
type CollectorConfig struct {
	// Method is the transport discriminator: http | unix-socket.
	Method string `yaml:"method"`

	// PathPrefix is prepended to every published metric name.
	PathPrefix string `yaml:"path_prefix"`

	URL  string `yaml:"url"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`

	// PassEnv names an environment variable holding the password.
	// When it resolves to a non-empty value it wins over Pass.
	PassEnv string `yaml:"pass_env"`

	SocketPath string        `yaml:"socket_path"`
	Timeout    time.Duration `yaml:"timeout"`

	// IgnoreNonAggregateRows keeps only frontend and backend summary rows.
	IgnoreNonAggregateRows bool `yaml:"ignore_non_aggregate_rows"`

	// Sections lists named sub-targets. Each one becomes a name prefix.
	Sections Sections `yaml:"sections"`

	// SectionOverrides holds per-section settings keyed by section name.
	SectionOverrides map[string]SectionConfig `yaml:"section_overrides"`
}

// Password returns the scrape password, preferring the PassEnv variable.
func (c CollectorConfig) Password() string {
	if c.PassEnv != "" {
		if v := os.Getenv(c.PassEnv); v != "" {
			return v
		}
	}
	return c.Pass
}

// SectionConfig overrides global collector keys for one section.
// A nil field means "inherit from the global collector config".
type SectionConfig struct {
	URL                    *string `yaml:"url"`
	User                   *string `yaml:"user"`
	Pass                   *string `yaml:"pass"`
	SocketPath             *string `yaml:"socket_path"`
	IgnoreNonAggregateRows *bool   `yaml:"ignore_non_aggregate_rows"`
}

// Sections accepts either a YAML scalar or a sequence of scalars.
type Sections []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Sections) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var one string
		if err := node.Decode(&one); err != nil {
			return err
		}
		*s = Sections{one}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = many
		return nil
	default:
		return fmt.Errorf("sections: expected string or list, got yaml kind %d", node.Kind)
	}
}

// HandlerConfig describes the set of forwarding destinations.
type HandlerConfig struct {
	// Hosts lists destination hosts. An entry may carry its own ":port".
	Hosts []string `yaml:"hosts"`
	Port  int      `yaml:"port"`

	// TransportProtocol is tcp | udp.
	TransportProtocol string        `yaml:"transport_protocol"`
	Timeout           time.Duration `yaml:"timeout"`

	// BatchSize is the number of metrics accumulated before a flush.
	BatchSize int `yaml:"batch_size"`

	// MaxBacklogMultiplier × BatchSize is the backlog length that triggers a trim.
	MaxBacklogMultiplier int `yaml:"max_backlog_multiplier"`

	// TrimBacklogMultiplier × BatchSize is the length a trim cuts down to.
	TrimBacklogMultiplier int `yaml:"trim_backlog_multiplier"`

	// Codec is the batch serialization: pickle | msgpack | plaintext.
	Codec string `yaml:"codec"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if cfg.Collector.Method == "unix" {
		cfg.Collector.Method = MethodUnixSocket
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			CollectInterval: DefaultCollectInterval,
			FlushInterval:   DefaultFlushInterval,
		},
		Collector: CollectorConfig{
			Method:     DefaultMethod,
			PathPrefix: DefaultPathPrefix,
			URL:        DefaultURL,
			User:       DefaultUser,
			Pass:       DefaultPass,
			SocketPath: DefaultSocketPath,
			Timeout:    DefaultScrapeTimeout,
		},
		Handler: HandlerConfig{
			Hosts:                 []string{DefaultHost},
			Port:                  DefaultPort,
			TransportProtocol:     DefaultProtocol,
			Timeout:               DefaultHandlerTimeout,
			BatchSize:             DefaultBatchSize,
			MaxBacklogMultiplier:  DefaultMaxBacklogMultiplier,
			TrimBacklogMultiplier: DefaultTrimBacklogMultiplier,
			Codec:                 DefaultCodec,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Agent.CollectInterval <= 0 {
		return fmt.Errorf("agent.collect_interval must be positive")
	}
	if cfg.Agent.FlushInterval < 0 {
		return fmt.Errorf("agent.flush_interval must not be negative")
	}

	c := cfg.Collector
	switch c.Method {
	case MethodHTTP:
		if c.URL == "" {
			return fmt.Errorf("collector.url is required for method %q", c.Method)
		}
	case MethodUnixSocket:
		if c.SocketPath == "" {
			return fmt.Errorf("collector.socket_path is required for method %q", c.Method)
		}
	default:
		return fmt.Errorf("collector.method: unknown method %q", c.Method)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("collector.timeout must be positive")
	}
	for i, name := range c.Sections {
		if name == "" {
			return fmt.Errorf("collector.sections[%d]: name must not be empty", i)
		}
	}

	h := cfg.Handler
	if len(h.Hosts) == 0 {
		return fmt.Errorf("handler.hosts must list at least one host")
	}
	for i, host := range h.Hosts {
		if host == "" {
			return fmt.Errorf("handler.hosts[%d]: host must not be empty", i)
		}
	}
	if h.Port <= 0 || h.Port > 65535 {
		return fmt.Errorf("handler.port %d out of range", h.Port)
	}
	switch h.TransportProtocol {
	case "tcp", "udp":
	default:
		return fmt.Errorf("handler.transport_protocol: unknown protocol %q", h.TransportProtocol)
	}
	if h.Timeout <= 0 {
		return fmt.Errorf("handler.timeout must be positive")
	}
	if h.BatchSize <= 0 {
		return fmt.Errorf("handler.batch_size must be positive")
	}
	if h.MaxBacklogMultiplier <= 0 {
		return fmt.Errorf("handler.max_backlog_multiplier must be positive")
	}
	if h.TrimBacklogMultiplier <= 0 {
		return fmt.Errorf("handler.trim_backlog_multiplier must be positive")
	}
	switch h.Codec {
	case "pickle", "msgpack", "plaintext":
	default:
		return fmt.Errorf("handler.codec: unknown codec %q", h.Codec)
	}
	return nil
}
