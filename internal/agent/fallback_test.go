package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reagent-dev/reagent/internal/tools"
)

func newTestPolicy() *Policy {
	cfg := DefaultConfig()
	return NewPolicy(NewDetector(cfg.IdenticalThreshold), cfg)
}

func appendFailure(l *Ledger, action string, params map[string]interface{}, reason tools.ReasonCode, isFallback bool) *Step {
	return l.Append(action, params, StepOutcome{
		Success:    false,
		ReasonCode: reason,
		Message:    "failed",
	}, isFallback)
}

func TestPolicySubstitutions(t *testing.T) {
	p := newTestPolicy()

	t.Run("EditMissingFileBecomesWrite", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "edit_file", map[string]interface{}{
			"path": "notes.txt", "find_text": "old", "replace_text": "new",
		}, tools.ReasonNotFound, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "write_file", prop.Action)
		assert.Equal(t, "notes.txt", prop.Params["path"])
		assert.Equal(t, "new", prop.Params["content"])
		assert.False(t, prop.Retry)
	})

	t.Run("EditConflictBecomesRead", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "edit_file", map[string]interface{}{
			"path": "notes.txt", "find_text": "absent", "replace_text": "new",
		}, tools.ReasonConflict, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "read_file", prop.Action)
		assert.Equal(t, "notes.txt", prop.Params["path"])
	})

	t.Run("ReadMissingBecomesListParent", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "sub/notes.txt"}, tools.ReasonNotFound, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "list_directory", prop.Action)
		assert.Equal(t, "sub", prop.Params["path"])
	})

	t.Run("ReadDirectoryBecomesList", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "sub"}, tools.ReasonWrongType, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "list_directory", prop.Action)
		assert.Equal(t, "sub", prop.Params["path"])
	})

	t.Run("WriteDeniedBecomesAlternatePath", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "write_file", map[string]interface{}{
			"path": "out/report.md", "content": "body",
		}, tools.ReasonPermissionDenied, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "write_file", prop.Action)
		assert.Equal(t, "out/report_alt.md", prop.Params["path"])
		assert.Equal(t, "body", prop.Params["content"])
	})

	t.Run("CreateMissingParentCreatesParent", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "create_directory", map[string]interface{}{"path": "a/b/c"}, tools.ReasonNotFound, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "create_directory", prop.Action)
		assert.Equal(t, "a/b", prop.Params["path"])
	})

	t.Run("NoEntryDeclines", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "write_file", map[string]interface{}{"path": "a.txt", "content": "x"}, tools.ReasonUnknown, false)
		assert.Nil(t, p.Propose(failed, l))
	})

	t.Run("SuccessfulStepDeclines", func(t *testing.T) {
		l := NewLedger()
		step := l.Append("read_file", map[string]interface{}{"path": "a.txt"}, StepOutcome{Success: true}, false)
		assert.Nil(t, p.Propose(step, l))
	})

	t.Run("FailedFallbackNeverChained", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonNotFound, true)
		assert.Nil(t, p.Propose(failed, l))
	})
}

func TestPolicyDeterminism(t *testing.T) {
	p := newTestPolicy()
	l := NewLedger()
	failed := appendFailure(l, "read_file", map[string]interface{}{"path": "sub/notes.txt"}, tools.ReasonNotFound, false)

	first := p.Propose(failed, l)
	second := p.Propose(failed, l)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.Equal(t, first.Action, second.Action)
	assert.Equal(t, first.Params, second.Params)
}

func TestPolicyTransientRetry(t *testing.T) {
	p := newTestPolicy()

	t.Run("FirstTimeoutRetriesWithBaseDelay", func(t *testing.T) {
		l := NewLedger()
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.True(t, prop.Retry)
		assert.Equal(t, "read_file", prop.Action)
		assert.Equal(t, time.Second, prop.Delay)
	})

	t.Run("SecondTimeoutDoublesDelay", func(t *testing.T) {
		l := NewLedger()
		appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.True(t, prop.Retry)
		assert.Equal(t, 2*time.Second, prop.Delay)
	})

	t.Run("RetriesExhaustedDeclines", func(t *testing.T) {
		l := NewLedger()
		appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)
		appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)

		assert.Nil(t, p.Propose(failed, l))
	})

	t.Run("DelayCapped", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxTransientRetries = 10
		pol := NewPolicy(NewDetector(cfg.IdenticalThreshold), cfg)

		l := NewLedger()
		var failed *Step
		for i := 0; i < 7; i++ {
			failed = appendFailure(l, "read_file", map[string]interface{}{"path": "a.txt"}, tools.ReasonTimeout, false)
		}

		prop := pol.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, cfg.RetryMaxDelay, prop.Delay)
	})
}

func TestPolicyAdmissibility(t *testing.T) {
	p := newTestPolicy()

	t.Run("SubstituteAlreadyTriedInStreak", func(t *testing.T) {
		l := NewLedger()
		// The list_directory probe for sub/ already failed as a fallback
		// within the current failure streak.
		appendFailure(l, "read_file", map[string]interface{}{"path": "sub/notes.txt"}, tools.ReasonNotFound, false)
		appendFailure(l, "list_directory", map[string]interface{}{"path": "sub"}, tools.ReasonNotFound, true)
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "sub/notes.txt"}, tools.ReasonNotFound, false)

		assert.Nil(t, p.Propose(failed, l))
	})

	t.Run("StreakBrokenBySuccessAllowsRetrying", func(t *testing.T) {
		l := NewLedger()
		appendFailure(l, "read_file", map[string]interface{}{"path": "sub/notes.txt"}, tools.ReasonNotFound, false)
		appendFailure(l, "list_directory", map[string]interface{}{"path": "sub"}, tools.ReasonNotFound, true)
		l.Append("write_file", map[string]interface{}{"path": "other.txt", "content": "x"}, StepOutcome{Success: true}, false)
		failed := appendFailure(l, "read_file", map[string]interface{}{"path": "sub/notes.txt"}, tools.ReasonNotFound, false)

		prop := p.Propose(failed, l)
		require.NotNil(t, prop)
		assert.Equal(t, "list_directory", prop.Action)
	})
}

func TestProposeForLoop(t *testing.T) {
	p := newTestPolicy()

	t.Run("ProbesParentDirectory", func(t *testing.T) {
		l := NewLedger()
		prop := p.ProposeForLoop("read_file", map[string]interface{}{"path": "sub/notes.txt"}, l)
		require.NotNil(t, prop)
		assert.Equal(t, "list_directory", prop.Action)
		assert.Equal(t, "sub", prop.Params["path"])
	})

	t.Run("DeclinesForListDirectory", func(t *testing.T) {
		l := NewLedger()
		assert.Nil(t, p.ProposeForLoop("list_directory", map[string]interface{}{"path": "sub"}, l))
	})

	t.Run("DeclinesWithoutPath", func(t *testing.T) {
		l := NewLedger()
		assert.Nil(t, p.ProposeForLoop("read_file", map[string]interface{}{}, l))
	})

	t.Run("DeclinesWhenProbeWouldLoop", func(t *testing.T) {
		l := NewLedger()
		appendStep(l, "list_directory", map[string]interface{}{"path": "sub"})
		appendStep(l, "list_directory", map[string]interface{}{"path": "sub"})

		assert.Nil(t, p.ProposeForLoop("read_file", map[string]interface{}{"path": "sub/notes.txt"}, l))
	})
}
