// Package checkpoint bounds long sessions. When the agent loop crosses its
// iteration threshold the orchestrator summarizes the conversation, hands
// the summary to an external store, and truncates the history down to its
// system messages. A prior checkpoint can later be restored as a synthetic
// user message.
package checkpoint

import (
	"strings"

	"github.com/rmkendall/croft/session"
	"github.com/rs/zerolog"
)

// summaryDelimiter joins message contents in a checkpoint summary.
const summaryDelimiter = " | "

// emptySummary is the sentinel summary for a session with no user or
// assistant content.
const emptySummary = "No content"

// State is the engine state the orchestrator and the agent loop share. It is
// owned by one session loop for its lifetime and mutated only here and
// there.
type State struct {
	Iteration       int
	CheckpointCycle int
	RestoredCycle   int
}

// Store persists checkpoint records. Save failures do not stop a reset; the
// loop's priority is bounding the conversation.
type Store interface {
	Save(cycle int, summary string) error
	Load() (*session.CheckpointRecord, error)
}

// Orchestrator drives the ACTIVE/RESET cycle. Both front ends share one
// threshold and one trigger rule.
type Orchestrator struct {
	maxIterations int
	store         Store
	logger        zerolog.Logger
}

// New creates an orchestrator with the given iteration threshold. The store
// may be nil, in which case summaries are produced but not persisted.
func New(maxIterations int, store Store, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		maxIterations: maxIterations,
		store:         store,
		logger:        logger.With().Str("component", "checkpoint").Logger(),
	}
}

// MaxIterations returns the configured threshold.
func (o *Orchestrator) MaxIterations() int {
	return o.maxIterations
}

// Trigger reports whether the session must checkpoint: true exactly when the
// iteration count has reached the threshold.
func (o *Orchestrator) Trigger(st *State) bool {
	return st.Iteration >= o.maxIterations
}

// Summarize concatenates the non-empty user and assistant contents of the
// conversation. A session with no such content yields the "No content"
// sentinel.
func (o *Orchestrator) Summarize(msgs []session.Message) string {
	var parts []string
	for _, m := range msgs {
		if m.Role != session.RoleUser && m.Role != session.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		parts = append(parts, m.Content)
	}
	if len(parts) == 0 {
		return emptySummary
	}
	return strings.Join(parts, summaryDelimiter)
}

// Checkpoint performs the full cycle on a triggered session: summarize, save
// to the store, reset. A failing save is logged and the reset proceeds
// anyway.
func (o *Orchestrator) Checkpoint(st *State, sess *session.Session) string {
	summary := o.Summarize(sess.Messages)
	cycle := st.CheckpointCycle + 1

	if o.store != nil {
		if err := o.store.Save(cycle, summary); err != nil {
			o.logger.Warn().Err(err).Int("cycle", cycle).Msg("failed to persist checkpoint")
		}
	}

	o.Reset(st, sess)
	st.CheckpointCycle = cycle
	o.logger.Info().Int("cycle", cycle).Msg("session checkpointed")
	return summary
}

// Reset drops the iteration count to zero and filters the history down to
// system messages.
func (o *Orchestrator) Reset(st *State, sess *session.Session) {
	st.Iteration = 0
	kept := sess.Messages[:0]
	for _, m := range sess.Messages {
		if m.Role == session.RoleSystem {
			kept = append(kept, m)
		}
	}
	sess.Messages = kept
}

// Restore applies a previously saved checkpoint: the record's cycle becomes
// the restored cycle, the checkpoint cycle advances, and the summary is
// appended as a synthetic user message.
func (o *Orchestrator) Restore(st *State, sess *session.Session, rec *session.CheckpointRecord) {
	st.RestoredCycle = rec.Cycle
	st.CheckpointCycle++
	sess.AddMessage(session.Message{Role: session.RoleUser, Content: rec.Summary})
	o.logger.Info().Int("cycle", rec.Cycle).Msg("checkpoint restored")
}
