package checkpoint

import (
	"testing"

	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	cycles    []int
	summaries []string
	failSave  bool
}

func (s *memStore) Save(cycle int, summary string) error {
	if s.failSave {
		return errors.New("store unavailable")
	}
	s.cycles = append(s.cycles, cycle)
	s.summaries = append(s.summaries, summary)
	return nil
}

func (s *memStore) Load() (*session.CheckpointRecord, error) {
	if len(s.cycles) == 0 {
		return nil, nil
	}
	last := len(s.cycles) - 1
	return &session.CheckpointRecord{Cycle: s.cycles[last], Summary: s.summaries[last]}, nil
}

func newTestSession(t *testing.T, msgs ...session.Message) *session.Session {
	t.Helper()
	t.Chdir(t.TempDir())
	sess, err := session.New("checkpoint-test")
	require.NoError(t, err)
	for _, m := range msgs {
		sess.AddMessage(m)
	}
	return sess
}

func TestTriggerBoundary(t *testing.T) {
	o := New(50, nil, zerolog.Nop())

	assert.False(t, o.Trigger(&State{Iteration: 49}))
	assert.True(t, o.Trigger(&State{Iteration: 50}))
	assert.True(t, o.Trigger(&State{Iteration: 51}))
}

func TestSummarize(t *testing.T) {
	o := New(50, nil, zerolog.Nop())

	msgs := []session.Message{
		{Role: session.RoleSystem, Content: "be terse"},
		{Role: session.RoleUser, Content: "fix the bug"},
		{Role: session.RoleAssistant, Content: ""},
		{Role: session.RoleAssistant, Content: "reading main.go"},
		{Role: session.RoleTool, Content: "file contents here"},
	}
	assert.Equal(t, "fix the bug | reading main.go", o.Summarize(msgs))
}

func TestSummarizeEmpty(t *testing.T) {
	o := New(50, nil, zerolog.Nop())

	assert.Equal(t, "No content", o.Summarize(nil))
	assert.Equal(t, "No content", o.Summarize([]session.Message{
		{Role: session.RoleSystem, Content: "instructions"},
		{Role: session.RoleAssistant, Content: ""},
	}))
}

func TestCheckpointCycle(t *testing.T) {
	store := &memStore{}
	o := New(3, store, zerolog.Nop())
	sess := newTestSession(t,
		session.Message{Role: session.RoleSystem, Content: "system prompt"},
		session.Message{Role: session.RoleUser, Content: "task"},
		session.Message{Role: session.RoleAssistant, Content: "working"},
	)
	st := &State{Iteration: 3}

	summary := o.Checkpoint(st, sess)

	assert.Equal(t, "task | working", summary)
	assert.Equal(t, []int{1}, store.cycles)
	assert.Equal(t, []string{"task | working"}, store.summaries)
	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, 1, st.CheckpointCycle)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, session.RoleSystem, sess.Messages[0].Role)
}

func TestCheckpointProceedsWhenSaveFails(t *testing.T) {
	store := &memStore{failSave: true}
	o := New(3, store, zerolog.Nop())
	sess := newTestSession(t,
		session.Message{Role: session.RoleUser, Content: "task"},
	)
	st := &State{Iteration: 3, CheckpointCycle: 1}

	o.Checkpoint(st, sess)

	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, 2, st.CheckpointCycle)
	assert.Empty(t, sess.Messages)
}

func TestResetKeepsOnlySystemMessages(t *testing.T) {
	o := New(50, nil, zerolog.Nop())
	sess := newTestSession(t,
		session.Message{Role: session.RoleSystem, Content: "one"},
		session.Message{Role: session.RoleUser, Content: "u"},
		session.Message{Role: session.RoleSystem, Content: "two"},
		session.Message{Role: session.RoleTool, Content: "r"},
	)
	st := &State{Iteration: 42}

	o.Reset(st, sess)

	assert.Equal(t, 0, st.Iteration)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "one", sess.Messages[0].Content)
	assert.Equal(t, "two", sess.Messages[1].Content)
}

func TestRestore(t *testing.T) {
	o := New(50, nil, zerolog.Nop())
	sess := newTestSession(t,
		session.Message{Role: session.RoleSystem, Content: "system prompt"},
	)
	st := &State{CheckpointCycle: 2}

	o.Restore(st, sess, &session.CheckpointRecord{Cycle: 2, Summary: "task | working"})

	assert.Equal(t, 2, st.RestoredCycle)
	assert.Equal(t, 3, st.CheckpointCycle)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, session.RoleUser, sess.Messages[1].Role)
	assert.Equal(t, "task | working", sess.Messages[1].Content)
}

// A 50-iteration budget over a longer run checkpoints exactly once per
// crossing.
func TestIterationSequenceCheckpointsOnce(t *testing.T) {
	store := &memStore{}
	o := New(50, store, zerolog.Nop())
	sess := newTestSession(t,
		session.Message{Role: session.RoleUser, Content: "long task"},
	)
	st := &State{}

	for i := 0; i < 50; i++ {
		st.Iteration++
		if o.Trigger(st) {
			o.Checkpoint(st, sess)
		}
	}

	assert.Equal(t, []int{1}, store.cycles)
	assert.Equal(t, 0, st.Iteration)
	assert.Equal(t, 1, st.CheckpointCycle)
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	store, err := NewFileStore("my-session")
	require.NoError(t, err)

	rec, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Save(1, "first"))
	require.NoError(t, store.Save(2, "second"))

	rec, err = store.Load()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Cycle)
	assert.Equal(t, "second", rec.Summary)
}
