package tools

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/toolcall"
	"github.com/rmkendall/croft/workspace"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// DispatchFunc is the signature a middleware wraps.
type DispatchFunc func(ctx context.Context, call toolcall.Call) Result

// Middleware wraps the full dispatch of a call. Registered middleware are
// applied in registration order, first registered outermost.
type Middleware struct {
	Name string
	Wrap func(next DispatchFunc) DispatchFunc
}

// PreHook runs before anything else in a dispatch. It may mutate the call
// in place, or short-circuit the dispatch by returning a non-nil result.
type PreHook func(ctx context.Context, call *toolcall.Call) *Result

// PostHook observes the final result of a dispatch.
type PostHook func(ctx context.Context, call toolcall.Call, res Result)

// ConfirmationPolicy decides whether a call may execute. The default is
// auto-approve; front ends inject interactive policies.
type ConfirmationPolicy interface {
	Approve(toolName string, args map[string]interface{}) bool
}

// AutoApprovePolicy approves everything.
type AutoApprovePolicy struct{}

func (AutoApprovePolicy) Approve(string, map[string]interface{}) bool { return true }

// PolicyFunc adapts a function to a ConfirmationPolicy.
type PolicyFunc func(toolName string, args map[string]interface{}) bool

func (f PolicyFunc) Approve(toolName string, args map[string]interface{}) bool {
	return f(toolName, args)
}

// Engine dispatches a single tool call end-to-end: pre hooks, argument
// normalization, confirmation, validation, implementation, post hooks. Every
// failure comes back as a categorized Result; nothing escapes the dispatch
// boundary as a Go error or panic.
//
// Hooks, middleware, and the policy must be configured before dispatching
// begins; the engine is then safe for use from a single session loop.
type Engine struct {
	cfg        *config.Config
	registry   *Registry
	ws         *workspace.Context
	policy     ConfirmationPolicy
	active     map[string]Tool
	preHooks   []PreHook
	postHooks  []PostHook
	middleware []Middleware
	schemas    map[string]*gojsonschema.Schema
	logger     zerolog.Logger
}

// NewEngine builds an engine over a configured registry. Required-argument
// schemas are compiled once, here.
func NewEngine(cfg *config.Config, registry *Registry, ws *workspace.Context, logger zerolog.Logger) *Engine {
	e := &Engine{
		cfg:      cfg,
		registry: registry,
		ws:       ws,
		policy:   AutoApprovePolicy{},
		schemas:  make(map[string]*gojsonschema.Schema),
		logger:   logger.With().Str("component", "engine").Logger(),
	}

	for name, spec := range cfg.Tools {
		if len(spec.Required) == 0 {
			continue
		}
		loader := gojsonschema.NewGoLoader(map[string]interface{}{
			"type":     "object",
			"required": spec.Required,
		})
		schema, err := gojsonschema.NewSchema(loader)
		if err != nil {
			e.logger.Warn().Err(err).Str("tool", name).Msg("could not compile argument schema")
			continue
		}
		e.schemas[name] = schema
	}

	return e
}

// SetActiveTools restricts dispatch to the given tools. With a set installed
// it is authoritative for lookup, which both blocks registered tools outside
// the active toolset and makes MCP tools dispatchable by their short name.
func (e *Engine) SetActiveTools(ts []Tool) {
	m := make(map[string]Tool, len(ts))
	for _, t := range ts {
		m[t.Name()] = t
	}
	e.active = m
}

// SetPolicy replaces the confirmation policy.
func (e *Engine) SetPolicy(p ConfirmationPolicy) {
	if p == nil {
		p = AutoApprovePolicy{}
	}
	e.policy = p
}

// AddPreHook appends a pre-execute hook.
func (e *Engine) AddPreHook(h PreHook) {
	e.preHooks = append(e.preHooks, h)
}

// AddPostHook appends a post-execute hook.
func (e *Engine) AddPostHook(h PostHook) {
	e.postHooks = append(e.postHooks, h)
}

// Use registers a named middleware at the end of the chain, replacing any
// middleware already registered under the same name.
func (e *Engine) Use(name string, wrap func(DispatchFunc) DispatchFunc) {
	e.RemoveMiddleware(name)
	e.middleware = append(e.middleware, Middleware{Name: name, Wrap: wrap})
}

// RemoveMiddleware removes a middleware by name and reports whether it was
// present.
func (e *Engine) RemoveMiddleware(name string) bool {
	for i, m := range e.middleware {
		if m.Name == name {
			e.middleware = append(e.middleware[:i], e.middleware[i+1:]...)
			return true
		}
	}
	return false
}

// Middlewares lists the registered middleware names in chain order.
func (e *Engine) Middlewares() []string {
	names := make([]string, 0, len(e.middleware))
	for _, m := range e.middleware {
		names = append(names, m.Name)
	}
	return names
}

// ClearMiddleware drops the entire chain.
func (e *Engine) ClearMiddleware() {
	e.middleware = nil
}

// Dispatch runs one call through the middleware chain and the dispatch
// pipeline.
func (e *Engine) Dispatch(ctx context.Context, call toolcall.Call) Result {
	fn := e.dispatch
	for i := len(e.middleware) - 1; i >= 0; i-- {
		fn = e.middleware[i].Wrap(fn)
	}
	return fn(ctx, call)
}

func (e *Engine) dispatch(ctx context.Context, call toolcall.Call) (res Result) {
	defer func() {
		for _, h := range e.postHooks {
			h(ctx, call, res)
		}
		if res.IsError() {
			e.logger.Debug().Str("tool", call.Name).Str("category", string(res.Category)).Str("error", res.Message).Msg("dispatch failed")
		} else {
			e.logger.Debug().Str("tool", call.Name).Msg("dispatch succeeded")
		}
	}()

	for _, h := range e.preHooks {
		if short := h(ctx, &call); short != nil {
			return *short
		}
	}

	// Parser-flagged calls never reach an implementation; the flag text is
	// the feedback the model needs.
	if call.Err != "" {
		return Failure(CategoryValidation, "%s", call.Err)
	}

	tool, ok := e.resolveTool(call.Name)
	if !ok {
		return Failure(CategoryValidation, "unknown tool %q", call.Name)
	}

	args, err := toolcall.Normalize(call.Args, e.cfg.ToolSpecFor(call.Name), e.ws)
	if err != nil {
		if goerrors.Is(err, workspace.ErrOutsideRoot) {
			return Failure(CategorySecurity, "%v", err)
		}
		return Failure(CategoryValidation, "argument normalization failed: %v", err)
	}

	if schema, ok := e.schemas[call.Name]; ok {
		doc := gojsonschema.NewGoLoader(args)
		validation, err := schema.Validate(doc)
		if err != nil {
			return Failure(CategoryValidation, "argument validation failed: %v", err)
		}
		if !validation.Valid() {
			return Failure(CategoryValidation, "invalid arguments for %q: %s", call.Name, formatSchemaErrors(validation))
		}
	}

	if !e.policy.Approve(call.Name, args) {
		return Failure(CategorySecurity, "execution of %q denied by confirmation policy", call.Name)
	}

	payload, err := e.invoke(ctx, tool, args)
	if err != nil {
		return Failure(CategoryExecution, "%v", err)
	}
	return Success(payload)
}

func (e *Engine) resolveTool(name string) (Tool, bool) {
	if e.active != nil {
		t, ok := e.active[name]
		return t, ok
	}
	return e.registry.GetTool(name)
}

// invoke shields the dispatch boundary from panicking implementations.
func (e *Engine) invoke(ctx context.Context, tool Tool, args map[string]interface{}) (payload string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %q panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Execute(ctx, args)
}

func formatSchemaErrors(result *gojsonschema.Result) string {
	msg := ""
	for i, e := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += e.String()
	}
	return msg
}
