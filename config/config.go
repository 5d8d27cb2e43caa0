package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/tmanhococ/V2-Odoo-Agent/errors"
)

// MCPServer describes how the agent runtime reaches the protocol server.
// Command spawns a stdio server subprocess; URL points at an HTTP endpoint
// and is used for connection testing.
type MCPServer struct {
	Command string   `yaml:"command" envconfig:"MCP_COMMAND"`
	Args    []string `yaml:"args" envconfig:"MCP_ARGS"`
	URL     string   `yaml:"url" envconfig:"MCP_URL"`
}

// Toolset names a set of tool patterns exposed to the agent runtime.
// Patterns support doublestar wildcards, e.g. "create_*".
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
}

type Config struct {
	LLMClient string `yaml:"llm" envconfig:"LLM"`
	Model     string `yaml:"model" envconfig:"MODEL"`

	MCPServer MCPServer `yaml:"mcp_server"`
	HTTPAddr  string    `yaml:"http_addr" envconfig:"HTTP_ADDR"`

	// OdooDSN selects the Postgres-backed store when set; the in-memory
	// store is used otherwise.
	OdooDSN string `yaml:"odoo_dsn" envconfig:"ODOO_DSN"`

	Toolsets []Toolset `yaml:"toolsets"`

	ToolCallTimeout time.Duration `yaml:"tool_call_timeout" envconfig:"TOOL_CALL_TIMEOUT"`
	TurnTimeout     time.Duration `yaml:"turn_timeout" envconfig:"TURN_TIMEOUT"`
}

// Load reads configuration from the user's home directory and the current
// working directory, with the latter taking precedence, then applies
// ODOO_AGENT_* environment overrides on top.
func Load() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".odoo-agent", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".odoo-agent", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	// ODOO_AGENT_* variables win over anything the files provided.
	if err := envconfig.Process("ODOO_AGENT", cfg); err != nil {
		return nil, errors.Wrapf(err, "error applying environment overrides")
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLMClient == "" {
		c.LLMClient = "anthropic"
	}
	if c.Model == "" {
		c.Model = "claude-3-sonnet-20240229"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = "127.0.0.1:8000"
	}
	if c.MCPServer.URL == "" {
		c.MCPServer.URL = "http://" + c.HTTPAddr
	}
	if c.ToolCallTimeout <= 0 {
		c.ToolCallTimeout = 30 * time.Second
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 120 * time.Second
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, giving a simple merge
	// where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name. An empty name selects "default".
// When no toolsets are configured at all, a catch-all default is returned
// so every registered tool is exposed.
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for i := range c.Toolsets {
		if c.Toolsets[i].Name == name {
			return &c.Toolsets[i], nil
		}
	}
	if name == "default" {
		if len(c.Toolsets) == 0 {
			return &Toolset{Name: "default", Tools: []string{"*"}}, nil
		}
		return nil, errors.New("mandatory 'default' toolset not found in configuration")
	}
	return c.GetToolset("default")
}
