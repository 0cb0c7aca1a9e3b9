package envconfig

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the layout of a TOML configuration file.
type fileConfig struct {
	Generation struct {
		Backend     string   `toml:"backend"`
		Model       string   `toml:"model"`
		BaseURL     string   `toml:"base_url"`
		APIKey      string   `toml:"api_key"`
		MaxTokens   int      `toml:"max_tokens"`
		Temperature *float64 `toml:"temperature"`
		Timeout     string   `toml:"timeout"`
	} `toml:"generation"`

	Repair struct {
		MaxPending   int   `toml:"max_pending"`
		InitialTrim  *int  `toml:"initial_trim"`
		MaxRounds    *int  `toml:"max_rounds"`
		InjectErrors *bool `toml:"inject_errors"`
	} `toml:"repair"`

	Logging struct {
		Verbose *bool `toml:"verbose"`
		Debug   *bool `toml:"debug"`
		Trace   *bool `toml:"trace"`
	} `toml:"logging"`
}

// LoadFile overrides the settings with the values a TOML file sets. Unlike environment variables,
// a malformed file is an error.
func (c *Config) LoadFile(path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return c.apply(&fc)
}

func (c *Config) apply(fc *fileConfig) error {
	gen := fc.Generation
	if gen.Backend != "" {
		c.Backend = gen.Backend
	}
	if gen.Model != "" {
		c.Model = gen.Model
	}
	if gen.BaseURL != "" {
		c.BaseURL = gen.BaseURL
	}
	if gen.APIKey != "" {
		c.APIKey = gen.APIKey
	}
	if gen.MaxTokens > 0 {
		c.MaxTokens = gen.MaxTokens
	}
	if gen.Temperature != nil {
		c.Temperature = *gen.Temperature
	}
	if gen.Timeout != "" {
		d, err := time.ParseDuration(gen.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		c.Timeout = d
	}

	rep := fc.Repair
	if rep.MaxPending > 0 {
		c.MaxPending = rep.MaxPending
	}
	if rep.InitialTrim != nil {
		c.InitialTrim = *rep.InitialTrim
	}
	if rep.MaxRounds != nil {
		c.MaxRounds = *rep.MaxRounds
	}
	if rep.InjectErrors != nil {
		c.InjectErrors = *rep.InjectErrors
	}

	log := fc.Logging
	if log.Verbose != nil {
		c.Verbose = *log.Verbose
	}
	if log.Debug != nil {
		c.Debug = *log.Debug
	}
	if log.Trace != nil {
		c.Trace = *log.Trace
	}
	return nil
}

// ExampleFile returns a commented example of a configuration file.
func ExampleFile() string {
	return `# tether configuration file
# Values set here are overridden by TETHER_* environment variables and command-line flags.

[generation]
# "openai" or "ollama" (default: "openai")
backend = "openai"
model = "gpt-3.5-turbo-instruct"
# Endpoint of the backend (default: the backend's public endpoint)
# base_url = "http://127.0.0.1:11434"
# api_key = ""
max_tokens = 193
temperature = 0.7
# Time limit of one generation (default: "2m")
timeout = "2m"

[repair]
# Length at which unresolved text is abandoned and requested again (default: 50)
max_pending = 50
# Characters rolled back on the first violation (default: 5)
initial_trim = 5
# Maximum rounds of one generation, 0 for no limit (default: 64)
max_rounds = 64
inject_errors = false

[logging]
verbose = false
debug = false
trace = false
`
}
