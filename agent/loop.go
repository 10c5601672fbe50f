package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/session"
	"github.com/rmkendall/croft/toolcall"
)

// ProcessUserInput runs the iteration state machine for one user turn: call
// the model, route its output into tool calls, dispatch them sequentially,
// feed results back, and repeat until the model answers with plain text.
// Checkpointing fires whenever the iteration count crosses the configured
// threshold, identically for every front end.
func (a *Agent) ProcessUserInput(ctx context.Context, userInput string, cb ProcessCallbacks) error {
	a.confirm = cb.ShouldExecuteTool
	defer func() { a.confirm = nil }()

	a.Session.AddMessage(session.Message{Role: session.RoleUser, Content: userInput})

	for {
		// Cancellation is polled between iterations; an in-flight tool
		// relies on its own timeout.
		if err := ctx.Err(); err != nil {
			return err
		}
		a.state.Iteration++

		resp, err := a.Client.Chat(ctx, a.Session.Messages, a.AvailableTools)
		if err != nil {
			return errors.Wrap(err, "model chat failed")
		}

		parsed := toolcall.Parse(resp)
		a.logger.Debug().
			Str("format", string(parsed.Format)).
			Int("calls", len(parsed.Calls)).
			Int("iteration", a.state.Iteration).
			Msg("routed model turn")

		// Calls recovered from free text get attached to the assistant
		// message so the history shows the same call/result pairing that
		// native calls get.
		if parsed.Format != toolcall.FormatNative {
			for _, c := range parsed.Calls {
				if c.Err != "" {
					continue
				}
				resp.ToolCalls = append(resp.ToolCalls, session.ToolCall{
					ToolCallID: c.ID, Name: c.Name, Args: c.Args,
				})
			}
		}
		a.Session.AddMessage(*resp)

		if resp.Content != "" && cb.OnAssistantMessage != nil {
			cb.OnAssistantMessage(resp.Content)
		}

		for _, call := range parsed.Calls {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.executeCall(ctx, call, cb)
		}

		if a.orchestrator.Trigger(&a.state) {
			a.orchestrator.Checkpoint(&a.state, a.Session)
		}

		if err := a.Session.Save(); err != nil && cb.OnWarning != nil {
			cb.OnWarning(fmt.Sprintf("failed to save session: %v", err))
		}

		// Terminal: the model answered with plain text and asked for
		// nothing. An empty turn with no calls keeps iterating; the
		// checkpoint threshold bounds that.
		if len(parsed.Calls) == 0 && resp.Content != "" {
			return nil
		}
	}
}

// executeCall dispatches one call and appends its result to the history,
// keyed to the call id.
func (a *Agent) executeCall(ctx context.Context, call toolcall.Call, cb ProcessCallbacks) {
	tc := session.ToolCall{ToolCallID: call.ID, Name: call.Name, Args: call.Args}
	if cb.OnToolCall != nil {
		cb.OnToolCall(tc)
	}

	res := a.engine.Dispatch(ctx, call)
	text := res.Text()

	if cb.OnToolResult != nil {
		cb.OnToolResult(tc, text)
	}
	a.Session.AddMessage(session.Message{
		Role:      session.RoleTool,
		Content:   text,
		ToolCalls: []session.ToolCall{tc},
	})

	if !res.IsError() && escalationRequested(res.Payload) {
		a.logger.Info().Str("tool", call.Name).Msg("tool result requested escalation")
		if cb.OnEscalation != nil {
			cb.OnEscalation(tc, text)
		}
	}
}

// escalationRequested reports whether a tool result is a JSON object whose
// "action" or "action_control" field equals "escalate".
func escalationRequested(result string) bool {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(result), &obj); err != nil {
		return false
	}
	if v, ok := obj["action"].(string); ok && v == "escalate" {
		return true
	}
	if v, ok := obj["action_control"].(string); ok && v == "escalate" {
		return true
	}
	return false
}
