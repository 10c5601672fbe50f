// Package mcp bridges external Model Context Protocol servers into the tool
// registry. Each configured server runs as a subprocess; the tools it
// advertises satisfy the registry's Tool interface.
package mcp

import (
	"context"
	"os"
	"os/exec"
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rmkendall/croft/errors"
	"github.com/rs/zerolog"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name   string
	cmd    *exec.Cmd
	conn   *mcpsdk.ClientSession
	tools  map[string]*ServerTool
	logger zerolog.Logger
}

// NewClient starts the MCP server subprocess, connects, and discovers the
// tools it provides.
func NewClient(name, command string, args []string, logger zerolog.Logger) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Stderr = os.Stderr

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "croft", Version: "v1.0.0"}, nil)
	ctx := context.Background()
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}

	client := &Client{
		Name:   name,
		cmd:    cmd,
		conn:   conn,
		tools:  make(map[string]*ServerTool),
		logger: logger.With().Str("mcp_server", name).Logger(),
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			client.tools[t.Name] = &ServerTool{
				serverName:  name,
				toolName:    t.Name,
				description: t.Description,
				client:      client,
			}
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	client.logger.Info().Int("tools", len(client.tools)).Msg("MCP server connected")
	return client, nil
}

// GetTool returns a tool provided by this server by its short name.
func (c *Client) GetTool(toolName string) (*ServerTool, bool) {
	t, ok := c.tools[toolName]
	return t, ok
}

// Tools returns every tool the server advertises, sorted by name.
func (c *Client) Tools() []*ServerTool {
	out := make([]*ServerTool, 0, len(c.tools))
	for _, t := range c.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].toolName < out[j].toolName })
	return out
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.logger.Info().Msg("terminating MCP server")
		return c.cmd.Process.Kill()
	}
	return nil
}

// ServerTool is one tool advertised by an external MCP server.
type ServerTool struct {
	serverName  string
	toolName    string
	description string
	client      *Client
}

// Name returns the tool's short name. Server qualification is dropped here
// because some providers reject tool names containing separators.
func (t *ServerTool) Name() string {
	return t.toolName
}

// Description returns the tool's description, provided by the MCP server.
func (t *ServerTool) Description() string {
	return t.description
}

// Execute forwards the call to the MCP server and concatenates the text
// content of the result.
func (t *ServerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call MCP tool '%s:%s'", t.serverName, t.toolName)
	}

	var out string
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	return out, nil
}
