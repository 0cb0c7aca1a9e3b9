// Package envconfig loads the settings of a generation from TETHER_* environment variables and an
// optional TOML file.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

const (
	DefaultModel       = "gpt-3.5-turbo-instruct"
	DefaultMaxTokens   = 193
	DefaultTemperature = 0.7
	DefaultMaxPending  = 50
	DefaultInitialTrim = 5
	DefaultMaxRounds   = 64
	DefaultTimeout     = 2 * time.Minute
)

type Config struct {
	// Backend selects the generation source, either "openai" or "ollama".
	Backend string
	Model   string
	// BaseURL overrides the endpoint of the backend. Empty means the backend's default.
	BaseURL string
	APIKey  string

	MaxTokens   int
	Temperature float64

	// MaxPending is the length at which an unresolved pending buffer is abandoned.
	MaxPending int
	// InitialTrim is the first number of characters rolled back on a violation.
	InitialTrim int
	// MaxRounds bounds the rounds, and so the requests, of one generation. Zero means no bound.
	MaxRounds    int
	InjectErrors bool

	// Timeout bounds one whole generation. Zero means no bound.
	Timeout time.Duration

	Verbose bool
	Debug   bool
	Trace   bool
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Backend:     BackendOpenAI,
		Model:       DefaultModel,
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
		MaxPending:  DefaultMaxPending,
		InitialTrim: DefaultInitialTrim,
		MaxRounds:   DefaultMaxRounds,
		Timeout:     DefaultTimeout,
	}
}

// Load returns the default settings overlaid with the file named by TETHER_CONFIG, if any, and then
// with the environment variables.
func Load() (*Config, error) {
	c := Default()
	err := c.Overlay("")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Overlay overrides the settings with a configuration file and then with the environment variables.
// An empty path means the file named by TETHER_CONFIG, if any.
func (c *Config) Overlay(path string) error {
	if path == "" {
		path = clean("TETHER_CONFIG")
	}
	if path != "" {
		err := c.LoadFile(path)
		if err != nil {
			return err
		}
	}
	c.LoadEnv()
	return nil
}

// LoadEnv overrides the settings with the environment variables that are set. A malformed value is
// logged and ignored.
func (c *Config) LoadEnv() {
	if v := clean("TETHER_BACKEND"); v != "" {
		c.Backend = strings.ToLower(v)
	}
	if v := clean("TETHER_MODEL"); v != "" {
		c.Model = v
	}
	if v := clean("TETHER_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := clean("TETHER_API_KEY"); v != "" {
		c.APIKey = v
	} else if v := clean("OPENAI_API_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}

	loadInt("TETHER_MAX_TOKENS", &c.MaxTokens, 1)
	loadInt("TETHER_MAX_PENDING", &c.MaxPending, 1)
	loadInt("TETHER_INITIAL_TRIM", &c.InitialTrim, 0)
	loadInt("TETHER_MAX_ROUNDS", &c.MaxRounds, 0)

	if v := clean("TETHER_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			slog.Warn("invalid setting, ignoring", "TETHER_TEMPERATURE", v, "error", err)
		} else {
			c.Temperature = f
		}
	}

	if v := clean("TETHER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			slog.Warn("invalid setting, ignoring", "TETHER_TIMEOUT", v, "error", err)
		} else {
			c.Timeout = d
		}
	}

	loadBool("TETHER_INJECT_ERRORS", &c.InjectErrors)
	loadBool("TETHER_VERBOSE", &c.Verbose)
	loadBool("TETHER_DEBUG", &c.Debug)
	loadBool("TETHER_TRACE", &c.Trace)
}

// Validate reports settings no generation can run with.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOpenAI, BackendOllama:
	default:
		return fmt.Errorf("unknown backend: %v (must be %v or %v)", c.Backend, BackendOpenAI, BackendOllama)
	}
	if c.Model == "" {
		return fmt.Errorf("a model is not specified")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be greater than zero: %v", c.MaxTokens)
	}
	if c.MaxPending <= 0 {
		return fmt.Errorf("max pending must be greater than zero: %v", c.MaxPending)
	}
	if c.InitialTrim < 0 {
		return fmt.Errorf("initial trim must not be negative: %v", c.InitialTrim)
	}
	if c.MaxRounds < 0 {
		return fmt.Errorf("max rounds must not be negative: %v", c.MaxRounds)
	}
	return nil
}

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap describes every variable with the value currently in effect. The API key is masked.
func (c *Config) AsMap() map[string]EnvVar {
	apiKey := ""
	if c.APIKey != "" {
		apiKey = "********"
	}
	return map[string]EnvVar{
		"TETHER_CONFIG":        {"TETHER_CONFIG", clean("TETHER_CONFIG"), "Path to a TOML configuration file"},
		"TETHER_BACKEND":       {"TETHER_BACKEND", c.Backend, "Generation backend: openai or ollama (default \"openai\")"},
		"TETHER_MODEL":         {"TETHER_MODEL", c.Model, fmt.Sprintf("Model name (default %q)", DefaultModel)},
		"TETHER_BASE_URL":      {"TETHER_BASE_URL", c.BaseURL, "Endpoint of the backend"},
		"TETHER_API_KEY":       {"TETHER_API_KEY", apiKey, "API key of the backend (falls back to OPENAI_API_KEY)"},
		"TETHER_MAX_TOKENS":    {"TETHER_MAX_TOKENS", c.MaxTokens, fmt.Sprintf("Token budget of one request (default %v)", DefaultMaxTokens)},
		"TETHER_TEMPERATURE":   {"TETHER_TEMPERATURE", c.Temperature, fmt.Sprintf("Sampling temperature (default %v)", DefaultTemperature)},
		"TETHER_MAX_PENDING":   {"TETHER_MAX_PENDING", c.MaxPending, fmt.Sprintf("Maximum length of unresolved text (default %v)", DefaultMaxPending)},
		"TETHER_INITIAL_TRIM":  {"TETHER_INITIAL_TRIM", c.InitialTrim, fmt.Sprintf("Characters rolled back on the first violation (default %v)", DefaultInitialTrim)},
		"TETHER_MAX_ROUNDS":    {"TETHER_MAX_ROUNDS", c.MaxRounds, fmt.Sprintf("Maximum rounds of one generation, 0 for no limit (default %v)", DefaultMaxRounds)},
		"TETHER_TIMEOUT":       {"TETHER_TIMEOUT", c.Timeout, fmt.Sprintf("Time limit of one generation, 0 for no limit (default %v)", DefaultTimeout)},
		"TETHER_INJECT_ERRORS": {"TETHER_INJECT_ERRORS", c.InjectErrors, "Append a comma after the first closing bracket to exercise repairs"},
		"TETHER_VERBOSE":       {"TETHER_VERBOSE", c.Verbose, "Mirror fragments and repairs to stderr"},
		"TETHER_DEBUG":         {"TETHER_DEBUG", c.Debug, "Show additional debug information"},
		"TETHER_TRACE":         {"TETHER_TRACE", c.Trace, "Log every fragment"},
	}
}

// Names returns the keys of AsMap in order.
func (c *Config) Names() []string {
	m := c.AsMap()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func loadInt(key string, dst *int, min int) {
	v := clean(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		slog.Warn("invalid setting, ignoring", key, v, "error", err)
		return
	}
	*dst = n
}

func loadBool(key string, dst *bool) {
	v := clean(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		// Any other non-empty value turns the flag on, as TETHER_DEBUG=yes reads naturally.
		b = true
	}
	*dst = b
}
