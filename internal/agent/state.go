// Package agent implements the control core of the task-execution loop: the
// iteration state machine, repetition detection over the action history, the
// fallback policy for failed actions, the dynamic iteration budget, and the
// escalating guidance given to a model that cannot produce a well-formed
// action.
package agent

import (
	"time"
)

// Complexity classifies a task once, from its initial description, and is
// immutable afterwards.
type Complexity int

const (
	ComplexitySimple Complexity = iota
	ComplexityModerate
	ComplexityComplex
)

func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityModerate:
		return "moderate"
	case ComplexityComplex:
		return "complex"
	}
	return "unknown"
}

// Phase is the current progress phase of a run.
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseMakingProgress
	PhaseStuck
	PhaseCompleting
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseMakingProgress:
		return "making_progress"
	case PhaseStuck:
		return "stuck"
	case PhaseCompleting:
		return "completing"
	}
	return "unknown"
}

// Outcome is the terminal state of a run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAbandonedLoop
	OutcomeAbandonedMalformed
	OutcomeBudgetExhausted
	OutcomeFatalToolError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAbandonedLoop:
		return "abandoned_loop"
	case OutcomeAbandonedMalformed:
		return "abandoned_malformed"
	case OutcomeBudgetExhausted:
		return "budget_exhausted"
	case OutcomeFatalToolError:
		return "fatal_tool_error"
	}
	return "unknown"
}

// TaskState is the mutable per-run state. It is owned by the Controller; the
// Tracker mutates only the fields it governs (Budget, Phase, the streak
// counters) through Update.
type TaskState struct {
	Iteration        int
	Budget           int
	Complexity       Complexity
	Phase            Phase
	StuckStreak      int // consecutive failed or fallback-substituted steps
	ExtensionGranted bool
	StartedAt        time.Time
}

// Guidance is one corrective-guidance turn produced by the Escalator.
type Guidance struct {
	Level int
	Text  string
}

// FinalResult is the terminal report of a run. Every outcome carries a
// human-readable summary.
type FinalResult struct {
	Outcome    Outcome
	Answer     string // final answer text, set on success
	Summary    string
	Iterations int
	Budget     int
	Complexity Complexity
	Phase      Phase
	Steps      []*Step
	Guidance   []Guidance
}

// Config carries every tunable of the control core. A run is reproducible
// from its Config and inputs alone; nothing here is process-global.
type Config struct {
	BaseBudget          int           // iteration budget for a simple task
	MaxBudget           int           // cap applied to the complex-task budget
	BudgetExtension     int           // one-time extension size
	ExtensionMargin     int           // grant the extension when budget-iteration <= margin
	StuckThreshold      int           // consecutive failures/fallbacks before the phase turns stuck
	IdenticalThreshold  int           // consecutive identical steps before the next repeat is flagged
	MaxMalformed        int           // consecutive malformed responses before abandoning
	MaxTransientRetries int           // same-action retries for transient failures
	RetryBaseDelay      time.Duration // first transient-retry delay, doubled per attempt
	RetryMaxDelay       time.Duration // transient-retry delay cap
	Temperature         float64       // oracle sampling temperature
}

// DefaultConfig returns the standard control-core tuning.
func DefaultConfig() Config {
	return Config{
		BaseBudget:          10,
		MaxBudget:           25,
		BudgetExtension:     5,
		ExtensionMargin:     2,
		StuckThreshold:      3,
		IdenticalThreshold:  2,
		MaxMalformed:        3,
		MaxTransientRetries: 2,
		RetryBaseDelay:      time.Second,
		RetryMaxDelay:       16 * time.Second,
		Temperature:         0.2,
	}
}
