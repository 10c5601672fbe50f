package config

import (
	"os"
	"path/filepath"

	"github.com/rmkendall/croft/errors"
	"gopkg.in/yaml.v3"
)

// DefaultMaxIterations bounds a session between checkpoints when the config
// does not say otherwise.
const DefaultMaxIterations = 50

type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Toolset names the tools a session may call. Tools lists explicit names
// (including "<server>:<tool>" MCP entries); Tags additionally pulls in every
// registered tool carrying one of the given capability tags.
type Toolset struct {
	Name  string   `yaml:"name"`
	Tools []string `yaml:"tools"`
	Tags  []string `yaml:"tags"`
}

// ToolSpec declares the parameter surface of one tool: alias rewrites,
// which parameters carry filesystem paths, which are integers, and the
// capability tags the tool is listed under.
type ToolSpec struct {
	Aliases    map[string]string `yaml:"aliases"`
	PathParams []string          `yaml:"path_params"`
	IntParams  []string          `yaml:"int_params"`
	Tags       []string          `yaml:"tags"`
	Required   []string          `yaml:"required"`
}

type Config struct {
	LLMClient            string              `yaml:"llm"`
	Model                string              `yaml:"model"`
	Sandbox              string              `yaml:"sandbox"`
	MaxIterations        int                 `yaml:"max_iterations"`
	Toolsets             []Toolset           `yaml:"toolsets"`
	AdditionalMCPServers []MCPServer         `yaml:"additional_mcp_servers"`
	AllowedCommands      []string            `yaml:"allowed_commands"`
	FilesystemAccess     FilesystemAccess    `yaml:"filesystem_access"`
	Tools                map[string]ToolSpec `yaml:"tools"`
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// The runtime's own state directory is never visible to tools.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, ".croft", ".croft/**")

	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".croft", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrap(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".croft", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrap(err, "error loading project config")
		}
	}

	cfg.applyDefaults(wd)
	return cfg, nil
}

func (c *Config) applyDefaults(wd string) {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Sandbox == "" {
		c.Sandbox = wd
	}
	if c.Tools == nil {
		c.Tools = map[string]ToolSpec{}
	}
	// Built-in tool declarations; a config entry for the same tool replaces
	// the default entirely rather than merging.
	for name, spec := range builtinToolSpecs {
		if _, ok := c.Tools[name]; !ok {
			c.Tools[name] = spec
		}
	}
}

// builtinToolSpecs declares the parameter surface of the built-in tools.
var builtinToolSpecs = map[string]ToolSpec{
	"read_file": {
		Aliases:    map[string]string{"path": "file_path", "filename": "file_path"},
		PathParams: []string{"file_path"},
		IntParams:  []string{"limit", "offset"},
		Required:   []string{"file_path"},
		Tags:       []string{"fs", "read"},
	},
	"write_file": {
		Aliases:    map[string]string{"path": "file_path", "filename": "file_path", "text": "content"},
		PathParams: []string{"file_path"},
		Required:   []string{"file_path", "content"},
		Tags:       []string{"fs", "write"},
	},
	"list_dir": {
		Aliases:    map[string]string{"path": "dir_path", "dir": "dir_path"},
		PathParams: []string{"dir_path"},
		Required:   []string{"dir_path"},
		Tags:       []string{"fs", "read"},
	},
	"run_shell_command": {
		Aliases:   map[string]string{"cmd": "command"},
		IntParams: []string{"timeout"},
		Required:  []string{"command"},
		Tags:      []string{"shell"},
	},
	"search_files": {
		Aliases:    map[string]string{"path": "dir_path", "dir": "dir_path", "glob": "pattern"},
		PathParams: []string{"dir_path"},
		Required:   []string{"pattern"},
		Tags:       []string{"fs", "read", "search"},
	},
}

// ToolSpecFor returns the declared spec for a tool, or a zero spec for tools
// with no declaration (MCP tools typically have none).
func (c *Config) ToolSpecFor(name string) ToolSpec {
	if c.Tools == nil {
		return ToolSpec{}
	}
	return c.Tools[name]
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives the
	// simple merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// GetToolset finds a toolset by name. Returns the "default" toolset if the
// named one is not found or if an empty name is provided.
func (c *Config) GetToolset(name string) (*Toolset, error) {
	if name == "" {
		name = "default"
	}
	for _, ts := range c.Toolsets {
		if ts.Name == name {
			return &ts, nil
		}
	}
	if name == "default" {
		return nil, errors.New("mandatory 'default' toolset not found in configuration")
	}
	return c.GetToolset("default")
}
