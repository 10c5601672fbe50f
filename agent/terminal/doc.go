// Package terminal implements the command-line interface (CLI) mode for the
// croft agent.
//
// This package provides an interactive terminal-based user interface where
// users converse with the agent through text prompts and receive responses
// directly in the terminal. It handles user input, displays agent responses,
// manages tool execution confirmations (in prompt mode), and applies the
// configured verbosity level to tool execution output.
//
// The terminal package is one of the two main interaction modes for croft:
//   - Terminal mode: interactive CLI for direct user interaction
//   - ACP mode: JSON-RPC based protocol for IDE integration
//
// # Usage
//
//	term := terminal.New(ag)
//	err := term.Run(ctx, initialPrompt)
//
// # Features
//
//   - Interactive prompt-based conversation with the agent
//   - Support for initial prompts from command-line arguments
//   - Tool execution confirmation in prompt mode
//   - Configurable verbosity levels for tool execution output
//   - Escalation notices printed when a tool result requests intervention
//   - Exit commands (/quit, /exit) for graceful termination
//
// # Verbosity Levels
//
//   - None: no tool execution information is displayed
//   - Info: tool names are displayed when called
//   - All: tool names, arguments, and results are displayed
package terminal
