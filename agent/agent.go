package agent

import (
	"github.com/rmkendall/croft/checkpoint"
	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/llm"
	"github.com/rmkendall/croft/session"
	"github.com/rmkendall/croft/tools"
	"github.com/rs/zerolog"
)

// Mode controls whether tool execution needs confirmation.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModePrompt Mode = "prompt"
)

// ToolVerbosity controls how much tool execution detail front ends surface.
type ToolVerbosity string

const (
	ToolVerbosityNone ToolVerbosity = "none"
	ToolVerbosityInfo ToolVerbosity = "info"
	ToolVerbosityAll  ToolVerbosity = "all"
)

// ProcessCallbacks is the sink interface a front end composes into the
// orchestration core. The same loop drives the terminal and the ACP server;
// only these callbacks differ.
type ProcessCallbacks struct {
	// OnAssistantMessage is invoked for each non-empty assistant text turn.
	OnAssistantMessage func(message string)
	// OnToolCall is invoked before each tool dispatch.
	OnToolCall func(toolCall session.ToolCall)
	// OnToolResult is invoked with the textual result of each dispatch.
	OnToolResult func(toolCall session.ToolCall, result string)
	// ShouldExecuteTool is the front end's confirmation hook. A nil hook
	// approves everything.
	ShouldExecuteTool func(toolCall session.ToolCall) bool
	// OnWarning reports non-fatal problems (failed session saves and the
	// like).
	OnWarning func(warning string)
	// OnEscalation reports a tool result that requested supervisory
	// intervention. The loop keeps running; what escalation means is caller
	// policy.
	OnEscalation func(toolCall session.ToolCall, result string)
}

// Agent is the orchestration core shared by both front ends. It owns the
// engine state for the session's lifetime.
type Agent struct {
	Config         *config.Config
	Session        *session.Session
	Client         llm.Client
	AvailableTools []tools.Tool
	Mode           Mode
	Verbosity      ToolVerbosity

	engine       *tools.Engine
	orchestrator *checkpoint.Orchestrator
	state        checkpoint.State
	store        checkpoint.Store
	confirm      func(session.ToolCall) bool
	logger       zerolog.Logger
}

// Options configures a new Agent.
type Options struct {
	Config          *config.Config
	Session         *session.Session
	Toolset         string
	Mode            Mode
	Verbosity       ToolVerbosity
	Client          llm.Client
	Registry        *tools.Registry
	Engine          *tools.Engine
	CheckpointStore checkpoint.Store
	Logger          zerolog.Logger
}

// New creates an Agent. The registry and engine must already be configured;
// the agent installs the session's active tool set and its own confirmation
// policy on the engine, bridging to the front end's ShouldExecuteTool
// callback.
func New(opts Options) (*Agent, error) {
	ts, err := opts.Config.GetToolset(opts.Toolset)
	if err != nil {
		return nil, err
	}
	active, err := opts.Registry.GetActiveTools(ts)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		Config:         opts.Config,
		Session:        opts.Session,
		Client:         opts.Client,
		AvailableTools: active,
		Mode:           opts.Mode,
		Verbosity:      opts.Verbosity,
		engine:         opts.Engine,
		store:          opts.CheckpointStore,
		logger:         opts.Logger.With().Str("component", "agent").Logger(),
	}
	a.orchestrator = checkpoint.New(opts.Config.MaxIterations, opts.CheckpointStore, opts.Logger)

	// The engine resolves calls against the session's active tools, so a
	// registered tool outside the toolset is rejected and MCP tools resolve
	// by their advertised names.
	a.engine.SetActiveTools(active)

	// Route the engine's confirmation policy through the front end callback.
	// In auto mode everything is approved regardless of the callback.
	a.engine.SetPolicy(tools.PolicyFunc(func(name string, args map[string]interface{}) bool {
		if a.Mode == ModeAuto || a.confirm == nil {
			return true
		}
		return a.confirm(session.ToolCall{Name: name, Args: args})
	}))

	return a, nil
}

// State returns a copy of the engine state for inspection.
func (a *Agent) State() checkpoint.State {
	return a.state
}

// RestoreLatest loads the most recent checkpoint record from the store and
// applies it to the session. It is a no-op when the store is empty.
func (a *Agent) RestoreLatest() error {
	if a.store == nil {
		return nil
	}
	rec, err := a.store.Load()
	if err != nil {
		return errors.Wrap(err, "could not load checkpoint")
	}
	if rec == nil {
		return nil
	}
	a.orchestrator.Restore(&a.state, a.Session, rec)
	return nil
}
