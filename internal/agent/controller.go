package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/reagent-dev/reagent/internal/llm"
	"github.com/reagent-dev/reagent/internal/llmlog"
	"github.com/reagent-dev/reagent/internal/logger"
	"github.com/reagent-dev/reagent/internal/tools"
)

// EventFunc receives progress events for display. kind is one of "thought",
// "action", "observation", "loop", "fallback", "clarification", "final".
type EventFunc func(kind, message string)

// Controller drives one task to completion or abandonment. Each iteration it
// asks the oracle for the next action, screens it for repetition, executes it
// (or a policy-substituted alternative), and feeds the outcome back into the
// conversation. A Controller may be reused across tasks: conversation memory
// persists, per-task state does not.
type Controller struct {
	oracle     llm.Client
	registry   *tools.Registry
	detector   *Detector
	policy     *Policy
	tracker    *Tracker
	memory     *Memory
	transcript *llmlog.Logger
	cfg        Config
	onEvent    EventFunc
}

// Option configures optional controller collaborators.
type Option func(*Controller)

// WithGoalChecker overrides the early-completion heuristic.
func WithGoalChecker(goal GoalChecker) Option {
	return func(c *Controller) { c.tracker = NewTracker(c.cfg, goal) }
}

// WithTranscript attaches a model-exchange transcript logger.
func WithTranscript(t *llmlog.Logger) Option {
	return func(c *Controller) { c.transcript = t }
}

// WithMemory substitutes a pre-populated conversation memory (chat mode).
func WithMemory(m *Memory) Option {
	return func(c *Controller) { c.memory = m }
}

// WithEventFunc attaches a progress-event callback.
func WithEventFunc(fn EventFunc) Option {
	return func(c *Controller) { c.onEvent = fn }
}

// NewController wires the control core around an oracle and an action
// registry.
func NewController(oracle llm.Client, registry *tools.Registry, cfg Config, opts ...Option) *Controller {
	detector := NewDetector(cfg.IdenticalThreshold)
	c := &Controller{
		oracle:     oracle,
		registry:   registry,
		detector:   detector,
		policy:     NewPolicy(detector, cfg),
		tracker:    NewTracker(cfg, nil),
		memory:     NewMemory(50),
		transcript: llmlog.Disabled(),
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Memory exposes the conversation memory, for chat-mode callers that reset
// or inspect it between tasks.
func (c *Controller) Memory() *Memory {
	return c.memory
}

// Run drives the task until a terminal condition and returns the final
// report. Cancellation is cooperative: it is honored at the top of each
// iteration, and an in-flight tool invocation completes normally first.
func (c *Controller) Run(ctx context.Context, task string) (*FinalResult, error) {
	state := &TaskState{
		Phase:     PhaseStarting,
		StartedAt: time.Now(),
	}
	state.Complexity = c.tracker.Classify(task)
	state.Budget = c.tracker.BudgetFor(state.Complexity)

	ledger := NewLedger()
	escalator := NewEscalator(c.cfg.MaxMalformed)
	var guidance []Guidance

	logger.Info("run: task classified %s, budget %d", state.Complexity, state.Budget)

	if !c.memory.HasSystem() {
		c.memory.Add("system", SystemPrompt(c.registry.Describe()))
	}
	c.memory.Add("user", HumanPrompt(task))

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if state.Iteration >= state.Budget {
			return c.finish(OutcomeBudgetExhausted, "", state, ledger, guidance), nil
		}

		raw, err := c.askOracle(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("oracle request failed: %w", err)
		}
		c.memory.Add("assistant", raw)

		parsed := ParseResponse(raw)
		if parsed.IsFinal {
			c.emit("final", parsed.FinalAnswer)
			result := c.finish(OutcomeSuccess, "", state, ledger, guidance)
			result.Answer = parsed.FinalAnswer
			return result, nil
		}

		if parsed.Malformed() {
			g := escalator.OnMalformed(raw)
			guidance = append(guidance, g)
			c.memory.Add("user", g.Text)
			c.emit("clarification", fmt.Sprintf("level %d guidance issued", g.Level))
			logger.Warn("run: malformed response, escalation level %d", g.Level)
			if escalator.Exhausted() {
				return c.finish(OutcomeAbandonedMalformed, "", state, ledger, guidance), nil
			}
			// Malformed responses do not consume the iteration budget.
			continue
		}
		escalator.OnParsed()

		if parsed.Thought != "" {
			c.emit("thought", parsed.Thought)
		}

		state.Iteration++
		action := parsed.Action

		if !c.registry.Has(action.Name) {
			detail := fmt.Sprintf("no executor registered for action %q", action.Name)
			logger.Error("run: %s", detail)
			return c.finish(OutcomeFatalToolError, detail, state, ledger, guidance), nil
		}

		effective, stop := c.executeIteration(ctx, task, action, state, ledger)
		if stop != nil {
			return stop, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		observation := formatObservation(effective)
		c.memory.Add("user", observation)
		c.emit("observation", observation)

		if state.Phase == PhaseCompleting {
			result := c.finish(OutcomeSuccess, "", state, ledger, guidance)
			result.Answer = effective.Outcome.Content
			return result, nil
		}
	}
}

// executeIteration screens the proposed action for repetition, executes it or
// a substitute, applies the single-fallback rule on failure, and reports
// every recorded step to the tracker. Returns the effective step, or a
// terminal result when the run must stop.
func (c *Controller) executeIteration(ctx context.Context, task string, action *tools.ToolCall, state *TaskState, ledger *Ledger) (*Step, *FinalResult) {
	verdict := c.detector.Check(action.Name, action.Parameters, ledger.Tail(detectorWindow))
	if verdict.IsLoop() {
		c.emit("loop", verdict.Description)
		logger.Warn("run: %s verdict: %s", verdict.Kind, verdict.Description)

		prop := c.policy.ProposeForLoop(action.Name, action.Parameters, ledger)
		if prop == nil {
			return nil, c.finishWithGuidance(OutcomeAbandonedLoop, verdict.Description, state, ledger)
		}
		c.emit("fallback", prop.Description)
		step := c.execute(ctx, ledger, prop.Action, prop.Params, true)
		c.tracker.Update(step, task, state)
		return step, nil
	}

	c.emit("action", fmt.Sprintf("%s %v", action.Name, action.Parameters))
	step := c.execute(ctx, ledger, action.Name, action.Parameters, false)
	c.tracker.Update(step, task, state)
	if step.Outcome.Success {
		return step, nil
	}

	prop := c.policy.Propose(step, ledger)
	if prop == nil {
		return step, nil
	}
	c.emit("fallback", prop.Description)
	logger.Info("run: fallback for %s(%s): %s", step.Action, step.Outcome.ReasonCode, prop.Description)

	if prop.Retry {
		if err := sleepCtx(ctx, prop.Delay); err != nil {
			return step, nil
		}
	}
	fb := c.execute(ctx, ledger, prop.Action, prop.Params, !prop.Retry)
	c.tracker.Update(fb, task, state)
	return fb, nil
}

func (c *Controller) execute(ctx context.Context, ledger *Ledger, name string, params map[string]interface{}, isFallback bool) *Step {
	result := c.registry.Execute(ctx, &tools.ToolCall{Name: name, Parameters: params})
	outcome := StepOutcome{
		Success:    result.Success,
		Content:    result.Content,
		ReasonCode: result.ReasonCode,
		Message:    result.Error,
	}
	return ledger.Append(name, params, outcome, isFallback)
}

func (c *Controller) askOracle(ctx context.Context, state *TaskState) (string, error) {
	req := &llm.CompletionRequest{
		Messages:    c.memory.Messages(),
		Temperature: c.cfg.Temperature,
	}
	convID := c.transcript.LogRequest(c.oracle.GetModelName(), req.Messages, map[string]interface{}{
		"iteration": state.Iteration,
		"budget":    state.Budget,
	})

	resp, err := c.oracle.CompleteWithRequest(ctx, req)
	if err != nil {
		c.transcript.LogError(c.oracle.GetModelName(), convID, err.Error())
		return "", err
	}
	c.transcript.LogResponse(c.oracle.GetModelName(), convID, resp.Content, nil)
	return resp.Content, nil
}

func (c *Controller) finishWithGuidance(outcome Outcome, detail string, state *TaskState, ledger *Ledger) *FinalResult {
	return c.finish(outcome, detail, state, ledger, nil)
}

func (c *Controller) finish(outcome Outcome, detail string, state *TaskState, ledger *Ledger, guidance []Guidance) *FinalResult {
	result := &FinalResult{
		Outcome:    outcome,
		Summary:    buildSummary(outcome, detail, state, ledger),
		Iterations: state.Iteration,
		Budget:     state.Budget,
		Complexity: state.Complexity,
		Phase:      state.Phase,
		Steps:      ledger.Steps(),
		Guidance:   guidance,
	}
	logger.Info("run: finished %s after %d iterations", outcome, state.Iteration)
	return result
}

// buildSummary renders the human-readable terminal report: what was
// attempted, what succeeded, and why execution stopped.
func buildSummary(outcome Outcome, detail string, state *TaskState, ledger *Ledger) string {
	var sb strings.Builder

	switch outcome {
	case OutcomeSuccess:
		sb.WriteString("Task completed.")
	case OutcomeAbandonedLoop:
		sb.WriteString("Abandoned: the run kept repeating itself")
		if detail != "" {
			sb.WriteString(" (" + detail + ")")
		}
		sb.WriteString(" and no substitute action was available.")
	case OutcomeAbandonedMalformed:
		sb.WriteString("Abandoned: the model produced malformed responses despite escalating guidance.")
	case OutcomeBudgetExhausted:
		sb.WriteString(fmt.Sprintf("Stopped: iteration budget of %d exhausted before completion.", state.Budget))
	case OutcomeFatalToolError:
		sb.WriteString("Stopped: unrecoverable tool error")
		if detail != "" {
			sb.WriteString(": " + detail)
		}
		sb.WriteString(".")
	}

	sb.WriteString(fmt.Sprintf(" Used %d of %d iterations (%s task, phase %s): %d of %d actions succeeded.",
		state.Iteration, state.Budget, state.Complexity, state.Phase, ledger.SuccessCount(), ledger.Len()))

	if last := ledger.Last(); last != nil && outcome != OutcomeSuccess {
		if last.Outcome.Success {
			sb.WriteString(fmt.Sprintf(" Last action %s succeeded.", last.Action))
		} else {
			sb.WriteString(fmt.Sprintf(" Last action %s failed (%s): %s.",
				last.Action, last.Outcome.ReasonCode, last.Outcome.Message))
		}
	}
	return sb.String()
}

func formatObservation(step *Step) string {
	prefix := "Observation:"
	if step.IsFallback {
		prefix = fmt.Sprintf("Observation (substituted %s):", step.Action)
	}
	if step.Outcome.Success {
		return fmt.Sprintf("%s %s", prefix, step.Outcome.Content)
	}
	return fmt.Sprintf("%s ERROR [%s]: %s", prefix, step.Outcome.ReasonCode, step.Outcome.Message)
}

func (c *Controller) emit(kind, message string) {
	if c.onEvent != nil {
		c.onEvent(kind, message)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
