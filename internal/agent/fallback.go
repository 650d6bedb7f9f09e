package agent

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/reagent-dev/reagent/internal/tools"
)

// Proposal is a policy-proposed substitute for a failed or looping action.
// Retry proposals resend the original action after Delay; substitution
// proposals carry a different action derived from the original.
type Proposal struct {
	Action      string
	Params      map[string]interface{}
	Retry       bool
	Delay       time.Duration
	Description string
}

// Policy proposes substitute actions from a static decision table keyed by
// (action, reason). It holds no mutable state: the same failed action, reason
// and history always yield the same proposal, which keeps fallback behavior
// reproducible. The decision table is immutable after construction and safe
// for concurrent runs.
type Policy struct {
	detector   *Detector
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewPolicy builds the fallback policy. The detector is consulted so a
// proposed substitute that would itself repeat is declined.
func NewPolicy(detector *Detector, cfg Config) *Policy {
	return &Policy{
		detector:   detector,
		maxRetries: cfg.MaxTransientRetries,
		baseDelay:  cfg.RetryBaseDelay,
		maxDelay:   cfg.RetryMaxDelay,
	}
}

// Propose returns a substitute or retry for a failed action, or nil to
// decline. failed must already be recorded in the ledger. Declines when the
// reason has no table entry, when the failed step was itself a substituted
// fallback (no chaining), when the substitute would loop, or when the same
// substitute was already tried within the current failure streak.
func (p *Policy) Propose(failed *Step, ledger *Ledger) *Proposal {
	if failed.Outcome.Success {
		return nil
	}
	if failed.IsFallback {
		// A failing fallback is recorded but never re-substituted.
		return nil
	}

	if failed.Outcome.ReasonCode == tools.ReasonTimeout {
		return p.proposeTransientRetry(failed, ledger)
	}

	sub := substituteFor(failed.Action, failed.Outcome.ReasonCode, failed.Params)
	if sub == nil {
		return nil
	}
	if !p.admissible(sub, ledger) {
		return nil
	}
	return sub
}

// ProposeForLoop returns a substitute for an action flagged by the detector
// before execution. The substitute is a read-only probe of the path the
// looping action keeps touching, which both breaks the cycle and gives the
// oracle fresh information. Declines when the probe itself would repeat.
func (p *Policy) ProposeForLoop(action string, params map[string]interface{}, ledger *Ledger) *Proposal {
	if action == "list_directory" {
		return nil
	}
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return nil
	}

	sub := &Proposal{
		Action:      "list_directory",
		Params:      map[string]interface{}{"path": parentDir(path)},
		Description: fmt.Sprintf("breaking %s repetition by inspecting %s", action, parentDir(path)),
	}
	if !p.admissible(sub, ledger) {
		return nil
	}
	return sub
}

// proposeTransientRetry retries the same action with capped exponential
// backoff. The n-th retry waits base*2^(n-1), and after maxRetries the
// timeout falls through to decline (timeouts have no substitution entry).
func (p *Policy) proposeTransientRetry(failed *Step, ledger *Ledger) *Proposal {
	sig := stepSignature(failed)
	attempts := 0
	steps := ledger.Steps()
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Outcome.Success || s.Outcome.ReasonCode != tools.ReasonTimeout || stepSignature(s) != sig {
			break
		}
		attempts++
	}
	if attempts > p.maxRetries {
		return nil
	}

	delay := p.baseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
	}
	if delay > p.maxDelay {
		delay = p.maxDelay
	}

	return &Proposal{
		Action:      failed.Action,
		Params:      failed.Params,
		Retry:       true,
		Delay:       delay,
		Description: fmt.Sprintf("transient failure, retrying %s after %s", failed.Action, delay),
	}
}

// admissible rejects substitutes that would themselves loop or that were
// already attempted within the current consecutive-failure streak.
func (p *Policy) admissible(sub *Proposal, ledger *Ledger) bool {
	if p.detector.Check(sub.Action, sub.Params, ledger.Tail(detectorWindow)).IsLoop() {
		return false
	}

	subSig := NewSignature(sub.Action, sub.Params)
	steps := ledger.Steps()
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		if s.Outcome.Success {
			break
		}
		if s.IsFallback && stepSignature(s) == subSig {
			return false
		}
	}
	return true
}

// substituteFor is the static decision table. Parameters of the substitute
// are derived deterministically from the failed action's own parameters.
func substituteFor(action string, reason tools.ReasonCode, params map[string]interface{}) *Proposal {
	path, _ := params["path"].(string)

	switch {
	case action == "edit_file" && reason == tools.ReasonNotFound:
		// The file the oracle meant to edit does not exist: create it with
		// the intended replacement text.
		replace, _ := params["replace_text"].(string)
		return &Proposal{
			Action:      "write_file",
			Params:      map[string]interface{}{"path": path, "content": replace},
			Description: "file does not exist, creating it with the replacement text",
		}
	case action == "edit_file" && reason == tools.ReasonConflict:
		return &Proposal{
			Action:      "read_file",
			Params:      map[string]interface{}{"path": path},
			Description: "search text not present, reading the file to see its actual content",
		}
	case action == "read_file" && reason == tools.ReasonNotFound:
		return &Proposal{
			Action:      "list_directory",
			Params:      map[string]interface{}{"path": parentDir(path)},
			Description: "file not found, listing its directory to see what exists",
		}
	case action == "read_file" && reason == tools.ReasonWrongType:
		return &Proposal{
			Action:      "list_directory",
			Params:      map[string]interface{}{"path": path},
			Description: "path is a directory, listing it instead",
		}
	case action == "write_file" && reason == tools.ReasonPermissionDenied:
		content, _ := params["content"].(string)
		return &Proposal{
			Action:      "write_file",
			Params:      map[string]interface{}{"path": alternatePath(path), "content": content},
			Description: "permission denied, writing to an alternative path",
		}
	case action == "create_directory" && reason == tools.ReasonNotFound:
		parent := parentDir(path)
		if parent == path || parent == "." {
			return nil
		}
		return &Proposal{
			Action:      "create_directory",
			Params:      map[string]interface{}{"path": parent},
			Description: "creating the parent directory first",
		}
	case action == "delete_file" && reason == tools.ReasonNotFound:
		return &Proposal{
			Action:      "list_directory",
			Params:      map[string]interface{}{"path": parentDir(path)},
			Description: "path not found, listing its directory to check what exists",
		}
	}
	return nil
}

func parentDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "" {
		return "."
	}
	return dir
}

func alternatePath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_alt" + ext
}
