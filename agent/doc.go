// Package agent provides the orchestration core of croft.
//
// This package contains the code shared between the two interaction modes
// (terminal CLI and ACP server). It defines the Agent type and the iteration
// loop that routes model output, executes tool calls through the engine, and
// checkpoints the conversation when the iteration budget is reached.
//
// # Architecture
//
// The agent package is organized into three main components:
//
//   - Core agent (this package): the shared Agent type and iteration loop
//   - Terminal subpackage (agent/terminal): the CLI interaction mode
//   - ACP subpackage (agent/acp): the Agent Client Protocol server for IDE
//     integration
//
// # Usage
//
// To create and use an agent:
//
//	ag, err := agent.New(agent.Options{
//	    Config:          cfg,
//	    Session:         sess,
//	    Toolset:         "default",
//	    Mode:            agent.ModePrompt,
//	    Client:          client,
//	    Registry:        registry,
//	    Engine:          engine,
//	    CheckpointStore: store,
//	    Logger:          logger,
//	})
//	if err != nil {
//	    // handle error
//	}
//
//	callbacks := agent.ProcessCallbacks{
//	    OnAssistantMessage: func(message string) { /* show response */ },
//	    OnToolCall:         func(tc session.ToolCall) { /* announce call */ },
//	    OnToolResult:       func(tc session.ToolCall, result string) { /* show result */ },
//	    ShouldExecuteTool:  func(tc session.ToolCall) bool { return true },
//	    OnWarning:          func(warning string) { /* non-fatal problems */ },
//	    OnEscalation:       func(tc session.ToolCall, result string) { /* supervisory ping */ },
//	}
//
//	err = ag.ProcessUserInput(ctx, "user message", callbacks)
//
// # Modes
//
// The agent supports two operation modes:
//
//   - ModeAuto: tools are executed without confirmation
//   - ModePrompt: tool execution is routed through ShouldExecuteTool
//
// # Callbacks
//
// The ProcessCallbacks structure lets each interaction mode decide how agent
// events are surfaced. The same loop drives the terminal CLI (printing to
// stdout) and the ACP server (sending JSON-RPC notifications); only the
// callbacks differ.
package agent
