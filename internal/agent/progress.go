package agent

import (
	"regexp"
	"strings"
)

// GoalChecker judges whether the content of the latest successful step
// satisfies the task's goal, enabling early completion.
type GoalChecker func(taskDescription, latestSuccess string) bool

// Tracker owns the iteration budget and progress phase of a run. Complexity
// is classified once from the initial task description and never revised;
// the budget may grow by a single bounded extension while the run is making
// progress.
type Tracker struct {
	cfg  Config
	goal GoalChecker
}

// NewTracker builds a tracker. A nil goal checker falls back to
// DefaultGoalChecker.
func NewTracker(cfg Config, goal GoalChecker) *Tracker {
	if goal == nil {
		goal = DefaultGoalChecker
	}
	return &Tracker{cfg: cfg, goal: goal}
}

var (
	fileTokenRe   = regexp.MustCompile(`\b[\w./-]+\.[a-zA-Z0-9]{1,5}\b`)
	enumerationRe = regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-*])\s`)
)

// Classify scores the initial task description once. Multiple deliverables,
// several file references, many action verbs or an enumerated list all push
// the estimate upward.
func (t *Tracker) Classify(description string) Complexity {
	lower := strings.ToLower(description)
	score := 0

	if len(strings.Fields(description)) > 30 {
		score++
	}
	if len(fileTokenRe.FindAllString(description, -1)) >= 2 {
		score++
	}
	if enumerationRe.MatchString(description) {
		score++
	}

	verbs := 0
	for _, v := range []string{"create", "write", "edit", "delete", "list", "build", "implement", "add", "move", "rename"} {
		verbs += strings.Count(lower, v)
	}
	if verbs >= 3 {
		score++
	}
	if strings.Count(lower, " and ") >= 2 || strings.Contains(lower, " then ") {
		score++
	}

	switch {
	case score >= 3:
		return ComplexityComplex
	case score >= 1:
		return ComplexityModerate
	}
	return ComplexitySimple
}

// BudgetFor maps a complexity class to its starting iteration budget.
func (t *Tracker) BudgetFor(c Complexity) int {
	switch c {
	case ComplexityModerate:
		return t.cfg.BaseBudget * 3 / 2
	case ComplexityComplex:
		budget := t.cfg.BaseBudget * 2
		if budget > t.cfg.MaxBudget {
			budget = t.cfg.MaxBudget
		}
		return budget
	}
	return t.cfg.BaseBudget
}

// Update reports a recorded step and adjusts the phase and budget fields of
// the task state. Only the Tracker writes these fields.
func (t *Tracker) Update(step *Step, taskDescription string, state *TaskState) {
	if step.Outcome.Success && !step.IsFallback {
		state.StuckStreak = 0
	} else {
		state.StuckStreak++
	}

	switch {
	case step.Outcome.Success && t.goal(taskDescription, step.Outcome.Content):
		state.Phase = PhaseCompleting
	case state.StuckStreak >= t.cfg.StuckThreshold:
		state.Phase = PhaseStuck
	case step.Outcome.Success && !step.IsFallback:
		// Covers both the first success and recovery from stuck.
		state.Phase = PhaseMakingProgress
	}

	t.maybeExtendBudget(state)
}

// maybeExtendBudget grants the one-time extension when the run is making
// progress and about to hit its budget. Never granted from stuck.
func (t *Tracker) maybeExtendBudget(state *TaskState) {
	if state.ExtensionGranted || state.Phase != PhaseMakingProgress {
		return
	}
	if state.Budget-state.Iteration > t.cfg.ExtensionMargin {
		return
	}
	state.Budget += t.cfg.BudgetExtension
	state.ExtensionGranted = true
}

// DefaultGoalChecker looks for explicit completion phrasing in the latest
// successful output.
func DefaultGoalChecker(taskDescription, latestSuccess string) bool {
	lower := strings.ToLower(latestSuccess)
	for _, pattern := range []string{
		"task completed",
		"successfully completed",
		"all done",
		"task is finished",
	} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
