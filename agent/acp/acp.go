// Package acp implements the Agent Client Protocol server for IDE
// integration. Communication is JSON-RPC 2.0 over stdio with
// newline-delimited messages; stdout carries nothing but protocol frames, so
// all logging goes through the provided logger (pointed at stderr or a file
// by the caller).
package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rmkendall/croft/agent"
	"github.com/rmkendall/croft/session"
	"github.com/rs/zerolog"
)

// Run starts the ACP server over the given reader/writer pair. It implements
// a minimal subset of ACP:
//   - initialize
//   - session/new
//   - session/load
//   - session/prompt (emits session/update notifications with
//     agent_message_chunk, tool_call, tool_result, and escalation)
func Run(ctx context.Context, a *agent.Agent, in *bufio.Reader, out *bufio.Writer, logger zerolog.Logger) error {
	s := &server{
		ctx:      ctx,
		agent:    a,
		sessions: make(map[string]*session.Session),
		in:       in,
		out:      out,
		logger:   logger.With().Str("component", "acp").Logger(),
	}

	for {
		payload, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			// Broken framing cannot be resynchronized safely.
			return fmt.Errorf("acp: read error: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		s.logger.Debug().RawJSON("request", payload).Msg("received")

		var req jsonrpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			_ = s.writeError(nil, -32700, "Parse error", nil)
			continue
		}

		switch req.Method {
		case "initialize":
			s.handleInitialize(&req)
		case "session/new":
			s.handleSessionNew(&req)
		case "session/load":
			s.handleSessionLoad(&req)
		case "session/prompt":
			s.handleSessionPrompt(&req)
		default:
			_ = s.writeError(req.ID, -32601, "Method not found", nil)
		}
	}
}

// jsonrpcRequest represents a JSON-RPC 2.0 request message
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse represents a JSON-RPC 2.0 response message
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

// jsonrpcError represents a JSON-RPC 2.0 error object
type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// server holds the state of one ACP connection. Requests are handled
// sequentially on the read loop; the write lock exists because notifications
// emitted from agent callbacks interleave with responses.
type server struct {
	ctx          context.Context
	agent        *agent.Agent
	sessions     map[string]*session.Session
	sessionsLock sync.Mutex
	sessionIDSeq int64

	in        *bufio.Reader
	out       *bufio.Writer
	writeLock sync.Mutex
	logger    zerolog.Logger
}

// readMessage reads one newline-delimited JSON-RPC payload.
func (s *server) readMessage() ([]byte, error) {
	line, _, err := s.in.ReadLine()
	if err != nil {
		return nil, err
	}
	return line, nil
}

// writeJSON serializes a JSON-RPC message and writes it as one
// newline-terminated frame.
func (s *server) writeJSON(obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to serialize JSON-RPC message: %w", err)
	}
	s.logger.Debug().RawJSON("message", data).Msg("sending")

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if _, err := s.out.WriteString("\n"); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *server) writeOK(id any, result json.RawMessage) error {
	return s.writeJSON(jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *server) writeError(id any, code int, msg string, data any) error {
	s.logger.Warn().Int("code", code).Str("message", msg).Msg("error response")
	return s.writeJSON(jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: msg, Data: data},
	})
}

// writeNotification sends a JSON-RPC notification (request without an ID)
func (s *server) writeNotification(method string, params any) error {
	return s.writeJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

// decodeParams round-trips req.Params through JSON into dst.
func decodeParams(req *jsonrpcRequest, dst any) error {
	b, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// handleInitialize answers the handshake with the protocol version and the
// agent capabilities. Audio, embedded context, and image prompts are not
// supported.
func (s *server) handleInitialize(req *jsonrpcRequest) {
	var p struct {
		ProtocolVersion int             `json:"protocolVersion"`
		ClientCaps      json.RawMessage `json:"clientCapabilities,omitempty"`
	}
	if err := decodeParams(req, &p); err != nil {
		s.logger.Warn().Err(err).Msg("initialize params did not decode")
	}

	resp := map[string]any{
		"protocolVersion": 1,
		"agentCapabilities": map[string]any{
			"loadSession": true,
			"promptCapabilities": map[string]bool{
				"audio":           false,
				"embeddedContext": false,
				"image":           false,
			},
		},
		"authMethods": []any{},
	}
	respBytes, _ := json.Marshal(resp)
	_ = s.writeOK(req.ID, respBytes)
}

// handleSessionNew creates a session with a fresh ID, carrying over the
// agent's configured mode, toolset, and verbosity.
func (s *server) handleSessionNew(req *jsonrpcRequest) {
	var p struct {
		Cwd        string          `json:"cwd"`
		McpServers json.RawMessage `json:"mcpServers"`
	}
	if err := decodeParams(req, &p); err != nil {
		s.logger.Warn().Err(err).Msg("session/new params did not decode")
	}

	sid := s.nextSessionID()
	sess, err := session.New(sid)
	if err != nil {
		_ = s.writeError(req.ID, -32603, "Internal error", fmt.Sprintf("failed to create session: %v", err))
		return
	}
	sess.Mode = s.agent.Session.Mode
	sess.Toolset = s.agent.Session.Toolset
	sess.ToolVerbosity = s.agent.Session.ToolVerbosity
	sess.Acp = true

	s.sessionsLock.Lock()
	s.sessions[sid] = sess
	s.sessionsLock.Unlock()
	s.logger.Info().Str("session", sid).Msg("created session")

	respBytes, _ := json.Marshal(map[string]any{"sessionId": sid})
	_ = s.writeOK(req.ID, respBytes)
}

// handleSessionLoad loads a session from disk and replays its history to the
// client as session/update notifications before answering.
func (s *server) handleSessionLoad(req *jsonrpcRequest) {
	var p struct {
		SessionID  string          `json:"sessionId"`
		Cwd        string          `json:"cwd"`
		McpServers json.RawMessage `json:"mcpServers"`
	}
	if err := decodeParams(req, &p); err != nil {
		_ = s.writeError(req.ID, -32603, "Internal error", fmt.Sprintf("decode error: %v", err))
		return
	}

	sess, err := session.Load(p.SessionID)
	if err != nil {
		_ = s.writeError(req.ID, -32602, "Invalid params", fmt.Sprintf("session not found: %v", err))
		return
	}

	s.sessionsLock.Lock()
	s.sessions[p.SessionID] = sess
	s.sessionsLock.Unlock()

	s.logger.Info().Str("session", p.SessionID).Int("messages", len(sess.Messages)).Msg("replaying session")
	for _, msg := range sess.Messages {
		switch msg.Role {
		case session.RoleUser:
			_ = s.writeNotification("session/update", map[string]any{
				"sessionId": p.SessionID,
				"update": map[string]any{
					"sessionUpdate": "user_message_chunk",
					"content":       map[string]any{"type": "text", "text": msg.Content},
				},
			})
		case session.RoleAssistant:
			if msg.Content != "" {
				_ = s.sendAgentMessageChunk(p.SessionID, msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				_ = s.sendToolCallNotification(p.SessionID, tc)
			}
		case session.RoleTool:
			// Tool results ride on the call id stored with the message.
			if len(msg.ToolCalls) > 0 {
				_ = s.sendToolResultNotification(p.SessionID, msg.ToolCalls[0].ToolCallID, msg.Content)
			}
		}
	}

	_ = s.writeOK(req.ID, json.RawMessage("null"))
}

// contentBlock represents a content block in ACP prompt requests. Only text
// and resource_link blocks are handled.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// resource_link fields
	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Size        *int64 `json:"size,omitempty"`
}

// handleSessionPrompt runs one agent turn for the session, streaming
// tool calls, results, and assistant text to the client as notifications.
func (s *server) handleSessionPrompt(req *jsonrpcRequest) {
	var p struct {
		SessionID string         `json:"sessionId"`
		Prompt    []contentBlock `json:"prompt"`
	}
	if err := decodeParams(req, &p); err != nil {
		_ = s.writeError(req.ID, -32603, "Internal error", fmt.Sprintf("decode error: %v", err))
		return
	}

	s.sessionsLock.Lock()
	sess, ok := s.sessions[p.SessionID]
	s.sessionsLock.Unlock()
	if !ok {
		_ = s.writeError(req.ID, -32602, "Invalid params", "unknown sessionId")
		return
	}

	userText := extractUserText(p.Prompt)

	callbacks := agent.ProcessCallbacks{
		OnAssistantMessage: func(message string) {
			_ = s.sendAgentMessageChunk(p.SessionID, message)
		},
		OnToolCall: func(toolCall session.ToolCall) {
			_ = s.sendToolCallNotification(p.SessionID, toolCall)
		},
		OnToolResult: func(toolCall session.ToolCall, result string) {
			_ = s.sendToolResultNotification(p.SessionID, toolCall.ToolCallID, result)
		},
		ShouldExecuteTool: func(toolCall session.ToolCall) bool {
			// ACP clients do not get a confirmation round trip.
			return true
		},
		OnWarning: func(warning string) {
			s.logger.Warn().Str("session", p.SessionID).Msg(warning)
		},
		OnEscalation: func(toolCall session.ToolCall, result string) {
			_ = s.writeNotification("session/update", map[string]any{
				"sessionId": p.SessionID,
				"update": map[string]any{
					"sessionUpdate": "escalation",
					"escalation": map[string]any{
						"toolCallId": toolCall.ToolCallID,
						"tool":       toolCall.Name,
						"result":     result,
					},
				},
			})
		},
	}

	s.agent.Session = sess
	if err := s.agent.ProcessUserInput(s.ctx, userText, callbacks); err != nil {
		_ = s.writeError(req.ID, -32603, "Internal error", fmt.Sprintf("error processing user input: %v", err))
		return
	}

	respBytes, _ := json.Marshal(map[string]any{"stopReason": "end_turn"})
	_ = s.writeOK(req.ID, respBytes)
}

func (s *server) sendToolCallNotification(sessionID string, toolCall session.ToolCall) error {
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "tool_call",
			"toolCall": map[string]any{
				"id":   toolCall.ToolCallID,
				"name": toolCall.Name,
				"args": toolCall.Args,
			},
		},
	})
}

func (s *server) sendToolResultNotification(sessionID, toolCallID, result string) error {
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "tool_result",
			"toolResult": map[string]any{
				"toolCallId": toolCallID,
				"result":     result,
			},
		},
	})
}

func (s *server) sendAgentMessageChunk(sessionID, text string) error {
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "agent_message_chunk",
			"content":       map[string]any{"type": "text", "text": text},
		},
	})
}

// nextSessionID generates a unique session ID from a timestamp and a
// sequence number.
func (s *server) nextSessionID() string {
	s.sessionIDSeq++
	return fmt.Sprintf("sess_%d_%d", time.Now().UnixNano(), s.sessionIDSeq)
}

// readFileFromURI reads file contents from a file:// URI.
func readFileFromURI(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %v", err)
	}
	if parsed.Scheme != "file" {
		return "", fmt.Errorf("unsupported URI scheme: %s", parsed.Scheme)
	}
	content, err := os.ReadFile(parsed.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	return string(content), nil
}

// extractUserText flattens content blocks into a single prompt string.
// Resource links with file:// URIs get their contents inlined, capped at
// 50KB each.
func extractUserText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if strings.TrimSpace(b.Text) != "" {
				parts = append(parts, b.Text)
			}
		case "resource_link":
			var sb strings.Builder
			fmt.Fprintf(&sb, "=== Resource: %s ===\n", b.Name)
			if b.Title != "" {
				fmt.Fprintf(&sb, "Title: %s\n", b.Title)
			}
			if b.Description != "" {
				fmt.Fprintf(&sb, "Description: %s\n", b.Description)
			}
			fmt.Fprintf(&sb, "URI: %s\n", b.URI)
			if b.MimeType != "" {
				fmt.Fprintf(&sb, "Type: %s\n", b.MimeType)
			}
			if b.Size != nil {
				fmt.Fprintf(&sb, "Size: %d bytes\n", *b.Size)
			}
			if strings.HasPrefix(b.URI, "file://") {
				content, err := readFileFromURI(b.URI)
				if err != nil {
					fmt.Fprintf(&sb, "\n[Error reading file: %v]\n", err)
				} else {
					const maxContentSize = 50000
					if len(content) > maxContentSize {
						content = content[:maxContentSize] + "\n\n[... truncated to 50KB ...]"
					}
					fmt.Fprintf(&sb, "\n--- File Contents ---\n%s\n--- End of File ---\n", content)
				}
			} else {
				sb.WriteString("\n[External resource - content not available]\n")
			}
			sb.WriteString("=== End Resource ===\n")
			parts = append(parts, sb.String())
		}
	}
	return strings.Join(parts, "\n")
}
