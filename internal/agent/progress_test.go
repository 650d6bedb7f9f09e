package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reagent-dev/reagent/internal/tools"
)

func TestTrackerClassify(t *testing.T) {
	tr := NewTracker(DefaultConfig(), nil)

	tests := []struct {
		name string
		task string
		want Complexity
	}{
		{
			name: "ShortSingleAction",
			task: "List the current directory",
			want: ComplexitySimple,
		},
		{
			name: "TwoFilesSequenced",
			task: "Create notes.txt and then edit config.yaml",
			want: ComplexityModerate,
		},
		{
			name: "EnumeratedMultiFile",
			task: `Set up the project skeleton with the following steps:
1. Create src/main.go and src/util.go with placeholder content
2. Write a README.md describing the layout and then add a LICENSE file
3. Create the build directory and delete any leftover temp.txt, then list the result to verify everything`,
			want: ComplexityComplex,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Classify(tt.task))
		})
	}
}

func TestTrackerBudgetFor(t *testing.T) {
	t.Run("DefaultBase", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		assert.Equal(t, 10, tr.BudgetFor(ComplexitySimple))
		assert.Equal(t, 15, tr.BudgetFor(ComplexityModerate))
		assert.Equal(t, 20, tr.BudgetFor(ComplexityComplex))
	})

	t.Run("ComplexClampedToMax", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BaseBudget = 15
		tr := NewTracker(cfg, nil)
		assert.Equal(t, cfg.MaxBudget, tr.BudgetFor(ComplexityComplex))
	})
}

func stepFor(success, fallback bool, content string) *Step {
	outcome := StepOutcome{Success: success, Content: content}
	if !success {
		outcome.ReasonCode = tools.ReasonNotFound
		outcome.Message = "failed"
	}
	return &Step{Action: "read_file", Outcome: outcome, IsFallback: fallback}
}

func TestTrackerUpdate(t *testing.T) {
	t.Run("SuccessEntersMakingProgress", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseStarting, Budget: 10}

		tr.Update(stepFor(true, false, "ok"), "task", state)
		assert.Equal(t, PhaseMakingProgress, state.Phase)
		assert.Equal(t, 0, state.StuckStreak)
	})

	t.Run("ThreeBarrenStepsEnterStuck", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseMakingProgress, Budget: 10}

		tr.Update(stepFor(false, false, ""), "task", state)
		tr.Update(stepFor(true, true, "ok"), "task", state) // fallback success still barren
		assert.Equal(t, PhaseMakingProgress, state.Phase)

		tr.Update(stepFor(false, false, ""), "task", state)
		assert.Equal(t, PhaseStuck, state.Phase)
		assert.Equal(t, 3, state.StuckStreak)
	})

	t.Run("SuccessRecoversFromStuck", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseStuck, StuckStreak: 4, Budget: 10}

		tr.Update(stepFor(true, false, "ok"), "task", state)
		assert.Equal(t, PhaseMakingProgress, state.Phase)
		assert.Equal(t, 0, state.StuckStreak)
	})

	t.Run("GoalContentEntersCompleting", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseMakingProgress, Budget: 10}

		tr.Update(stepFor(true, false, "Task completed: everything written"), "task", state)
		assert.Equal(t, PhaseCompleting, state.Phase)
	})

	t.Run("FailedStepContentNeverCompletes", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseMakingProgress, Budget: 10}

		tr.Update(stepFor(false, false, "task completed"), "task", state)
		assert.NotEqual(t, PhaseCompleting, state.Phase)
	})
}

func TestTrackerBudgetExtension(t *testing.T) {
	t.Run("GrantedOnceNearExhaustion", func(t *testing.T) {
		cfg := DefaultConfig()
		tr := NewTracker(cfg, nil)
		state := &TaskState{Phase: PhaseMakingProgress, Budget: 10, Iteration: 8}

		tr.Update(stepFor(true, false, "ok"), "task", state)
		assert.Equal(t, 15, state.Budget)
		assert.True(t, state.ExtensionGranted)

		// Near the extended boundary again: no second extension.
		state.Iteration = 13
		tr.Update(stepFor(true, false, "ok"), "task", state)
		assert.Equal(t, 15, state.Budget)
	})

	t.Run("NotGrantedWhileStuck", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseStuck, StuckStreak: 5, Budget: 10, Iteration: 9}

		tr.Update(stepFor(false, false, ""), "task", state)
		assert.Equal(t, 10, state.Budget)
		assert.False(t, state.ExtensionGranted)
	})

	t.Run("NotGrantedFarFromBudget", func(t *testing.T) {
		tr := NewTracker(DefaultConfig(), nil)
		state := &TaskState{Phase: PhaseMakingProgress, Budget: 10, Iteration: 3}

		tr.Update(stepFor(true, false, "ok"), "task", state)
		assert.Equal(t, 10, state.Budget)
	})

	t.Run("ComplexTaskExtendsToThirty", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BaseBudget = 15
		tr := NewTracker(cfg, nil)

		budget := tr.BudgetFor(ComplexityComplex)
		assert.Equal(t, 25, budget)

		state := &TaskState{Phase: PhaseMakingProgress, Budget: budget, Iteration: 24}
		tr.Update(stepFor(true, false, "ok"), "task", state)
		assert.Equal(t, 30, state.Budget)
		assert.True(t, state.ExtensionGranted)
	})
}

func TestDefaultGoalChecker(t *testing.T) {
	assert.True(t, DefaultGoalChecker("t", "The task completed without errors"))
	assert.True(t, DefaultGoalChecker("t", "All done, nothing left"))
	assert.False(t, DefaultGoalChecker("t", "Successfully wrote 10 characters to a.txt"))
}
