// Package tools holds the tool registry, the built-in tools, and the
// execution engine that dispatches a single call through its hook and
// middleware pipeline.
package tools

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/tools/mcp"
	"github.com/rmkendall/croft/workspace"
	"github.com/rs/zerolog"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Schema is the listing entry for one registered tool: its identity plus the
// declared parameter surface.
type Schema struct {
	Name        string
	Description string
	Spec        config.ToolSpec
}

// Registry holds all available tools and their MCP server connections. It is
// configured once during startup and read-only afterwards; it is not safe to
// register tools while a dispatch is in flight.
type Registry struct {
	cfg        *config.Config
	tools      map[string]Tool
	mcpClients map[string]*mcp.Client
	logger     zerolog.Logger
}

// NewRegistry builds a registry with the built-in tools registered and MCP
// servers from the configuration started.
func NewRegistry(cfg *config.Config, ws *workspace.Context, logger zerolog.Logger) *Registry {
	r := &Registry{
		cfg:        cfg,
		tools:      make(map[string]Tool),
		mcpClients: make(map[string]*mcp.Client),
		logger:     logger.With().Str("component", "registry").Logger(),
	}

	r.Register(&ReadFileTool{fsAccess: &cfg.FilesystemAccess, ws: ws})
	r.Register(&WriteFileTool{fsAccess: &cfg.FilesystemAccess, ws: ws})
	r.Register(&ListDirTool{fsAccess: &cfg.FilesystemAccess, ws: ws})
	r.Register(&RunShellCommandTool{allowedCommands: cfg.AllowedCommands, ws: ws})
	r.Register(&SearchFilesTool{fsAccess: &cfg.FilesystemAccess, ws: ws})

	for _, server := range cfg.AdditionalMCPServers {
		client, err := mcp.NewClient(server.Name, server.Command, server.Args, r.logger)
		if err != nil {
			r.logger.Warn().Err(err).Str("server", server.Name).Msg("skipping MCP server")
			continue
		}
		r.mcpClients[server.Name] = client
	}

	return r
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// GetTool looks up a tool by name.
func (r *Registry) GetTool(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Close stops all MCP server subprocesses.
func (r *Registry) Close() {
	for _, client := range r.mcpClients {
		if err := client.Stop(); err != nil {
			r.logger.Warn().Err(err).Str("server", client.Name).Msg("failed to stop MCP server")
		}
	}
}

// Schemas lists registered tools whose declared tags intersect the given
// set, sorted by name. An empty tag set lists everything; tools with no
// declared tags (MCP tools, typically) are only listed by the empty set.
func (r *Registry) Schemas(tags ...string) []Schema {
	var out []Schema
	for name, t := range r.tools {
		spec := r.cfg.ToolSpecFor(name)
		if len(tags) > 0 && !tagsIntersect(spec.Tags, tags) {
			continue
		}
		out = append(out, Schema{Name: name, Description: t.Description(), Spec: spec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func tagsIntersect(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// GetActiveTools returns the tool instances for a given toolset. Entries of
// the form "<server>:<tool>" select a single MCP tool; "<server>:*" selects
// every tool the server advertises. Toolset tags select every registered
// tool under a matching capability tag.
func (r *Registry) GetActiveTools(ts *config.Toolset) ([]Tool, error) {
	var active []Tool
	seen := map[string]bool{}
	if len(ts.Tags) > 0 {
		for _, s := range r.Schemas(ts.Tags...) {
			if t, ok := r.tools[s.Name]; ok {
				seen[s.Name] = true
				active = append(active, t)
			}
		}
	}
	for _, name := range ts.Tools {
		if server, toolName, ok := strings.Cut(name, ":"); ok {
			client, found := r.mcpClients[server]
			if !found {
				return nil, errors.New("toolset '%s' references unknown MCP server '%s'", ts.Name, server)
			}
			if toolName == "*" {
				for _, t := range client.Tools() {
					active = append(active, t)
				}
				continue
			}
			t, found := client.GetTool(toolName)
			if !found {
				return nil, errors.New("MCP server '%s' does not provide tool '%s'", server, toolName)
			}
			active = append(active, t)
			continue
		}

		if seen[name] {
			continue
		}
		t, ok := r.GetTool(name)
		if !ok {
			return nil, errors.New("tool '%s' from toolset '%s' is not registered", name, ts.Name)
		}
		seen[name] = true
		active = append(active, t)
	}
	return active, nil
}

// isPathRestricted checks if a sandbox-relative path matches any of the glob
// patterns.
func isPathRestricted(relPath string, patterns []string) (bool, error) {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, relPath)
		if err != nil {
			return false, errors.Wrapf(err, "invalid glob pattern '%s'", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// relToRoot maps an already-resolved absolute path back to its
// sandbox-relative form for restriction matching.
func relToRoot(ws *workspace.Context, abs string) string {
	rel, err := filepath.Rel(ws.Root(), abs)
	if err != nil {
		return abs
	}
	return rel
}

// isCommandAllowed checks if a command matches the allowlist. Patterns are
// regular expressions; a pattern that does not compile degrades to an exact
// string comparison.
func isCommandAllowed(command string, allowed []string) (bool, error) {
	if len(strings.Fields(command)) == 0 {
		return false, nil
	}

	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			if command == pattern {
				return true, nil
			}
			continue
		}
		if re.MatchString(command) {
			return true, nil
		}
	}
	return false, nil
}
