package agent

import (
	"time"

	"github.com/reagent-dev/reagent/internal/tools"
)

// StepOutcome is the recorded result of one action execution.
type StepOutcome struct {
	Success    bool
	Content    string
	ReasonCode tools.ReasonCode
	Message    string
}

// Step is one immutable record of an attempted action. IsFallback marks steps
// whose action was substituted by the fallback policy rather than proposed by
// the oracle.
type Step struct {
	Index      int
	Action     string
	Params     map[string]interface{}
	Outcome    StepOutcome
	IsFallback bool
	Timestamp  time.Time
}

// Ledger is the append-only history of a single run. Indices are contiguous
// and strictly increasing. A run owns its ledger exclusively, so no locking
// is needed.
type Ledger struct {
	steps []*Step
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append records a step, assigning the next sequence index and timestamp.
func (l *Ledger) Append(action string, params map[string]interface{}, outcome StepOutcome, isFallback bool) *Step {
	step := &Step{
		Index:      len(l.steps),
		Action:     action,
		Params:     params,
		Outcome:    outcome,
		IsFallback: isFallback,
		Timestamp:  time.Now(),
	}
	l.steps = append(l.steps, step)
	return step
}

func (l *Ledger) Len() int {
	return len(l.steps)
}

// Tail returns the last n steps, oldest first.
func (l *Ledger) Tail(n int) []*Step {
	if n >= len(l.steps) {
		return l.steps
	}
	return l.steps[len(l.steps)-n:]
}

// Steps returns the full history, oldest first.
func (l *Ledger) Steps() []*Step {
	return l.steps
}

// Last returns the most recent step, or nil for an empty ledger.
func (l *Ledger) Last() *Step {
	if len(l.steps) == 0 {
		return nil
	}
	return l.steps[len(l.steps)-1]
}

// SuccessCount returns how many recorded steps succeeded.
func (l *Ledger) SuccessCount() int {
	n := 0
	for _, s := range l.steps {
		if s.Outcome.Success {
			n++
		}
	}
	return n
}
