package agent

import (
	"fmt"
)

// VerdictKind classifies a repetition pattern in the action history.
type VerdictKind int

const (
	VerdictNone VerdictKind = iota
	VerdictIdentical
	VerdictAlternating
	VerdictCyclic
	VerdictParameterCycle
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictNone:
		return "none"
	case VerdictIdentical:
		return "identical"
	case VerdictAlternating:
		return "alternating"
	case VerdictCyclic:
		return "cyclic"
	case VerdictParameterCycle:
		return "parameter-cycle"
	}
	return "unknown"
}

// Verdict is the result of a pre-execution repetition check.
type Verdict struct {
	Kind        VerdictKind
	Period      int // cycle length for VerdictCyclic, else 0
	Description string
}

// IsLoop reports whether the verdict flags any repetition pattern.
func (v Verdict) IsLoop() bool {
	return v.Kind != VerdictNone
}

// detectorWindow is the history tail length that covers every pattern check
// (the longest is a period-4 cycle over 8 signatures).
const detectorWindow = 12

// Detector classifies a proposed action against the tail of the history
// ledger before execution. It is read-only and keeps no state of its own, so
// one detector may serve concurrent runs.
type Detector struct {
	identicalThreshold int
}

// NewDetector creates a detector. identicalThreshold is the number of
// consecutive identical steps already in history that makes the next
// identical proposal a loop (2 means the proposal would be the 3rd in a row).
func NewDetector(identicalThreshold int) *Detector {
	if identicalThreshold < 1 {
		identicalThreshold = 2
	}
	return &Detector{identicalThreshold: identicalThreshold}
}

// Check classifies the proposed action against the history tail. Patterns are
// evaluated in priority order, first match wins: identical, alternating,
// cyclic (smallest period first), parameter-cycle. Returns a none verdict
// when history is too short for any pattern.
func (d *Detector) Check(action string, params map[string]interface{}, tail []*Step) Verdict {
	seq := make([]Signature, 0, len(tail)+1)
	for _, s := range tail {
		seq = append(seq, stepSignature(s))
	}
	seq = append(seq, NewSignature(action, params))

	if v := d.checkIdentical(seq); v.IsLoop() {
		return v
	}
	if v := d.checkAlternating(seq); v.IsLoop() {
		return v
	}
	if v := d.checkCyclic(seq); v.IsLoop() {
		return v
	}
	if v := d.checkParameterCycle(seq); v.IsLoop() {
		return v
	}
	return Verdict{Kind: VerdictNone}
}

// checkIdentical flags a candidate whose signature already occurred
// identicalThreshold times in a row immediately before it.
func (d *Detector) checkIdentical(seq []Signature) Verdict {
	need := d.identicalThreshold + 1
	if len(seq) < need {
		return Verdict{}
	}
	last := seq[len(seq)-need:]
	for _, sig := range last[1:] {
		if sig != last[0] {
			return Verdict{}
		}
	}
	return Verdict{
		Kind:        VerdictIdentical,
		Description: fmt.Sprintf("repeating the same action: %s", last[0]),
	}
}

// checkAlternating flags an A,B,A,B tail with A != B.
func (d *Detector) checkAlternating(seq []Signature) Verdict {
	if len(seq) < 4 {
		return Verdict{}
	}
	last := seq[len(seq)-4:]
	if last[0] == last[2] && last[1] == last[3] && last[0] != last[1] {
		return Verdict{
			Kind:        VerdictAlternating,
			Description: fmt.Sprintf("alternating between %s and %s", last[0], last[1]),
		}
	}
	return Verdict{}
}

// checkCyclic flags a tail of 2p signatures repeating with period p, for
// p in {2,3,4}, smallest first.
func (d *Detector) checkCyclic(seq []Signature) Verdict {
	for p := 2; p <= 4; p++ {
		if len(seq) < 2*p {
			break
		}
		last := seq[len(seq)-2*p:]
		match := true
		for i := 0; i < p; i++ {
			if last[i] != last[i+p] {
				match = false
				break
			}
		}
		if match {
			return Verdict{
				Kind:        VerdictCyclic,
				Period:      p,
				Description: fmt.Sprintf("repeating %d-action cycle ending in %s", p, last[p-1]),
			}
		}
	}
	return Verdict{}
}

// checkParameterCycle flags the same action repeated 3+ times in a row while
// cycling between two parameter variants: the caller is retrying variations
// without progress rather than strictly repeating.
func (d *Detector) checkParameterCycle(seq []Signature) Verdict {
	if len(seq) < 3 {
		return Verdict{}
	}

	// Trailing run of the same action, at most 4 entries.
	action := seq[len(seq)-1].Action
	run := 0
	for i := len(seq) - 1; i >= 0 && run < 4; i-- {
		if seq[i].Action != action {
			break
		}
		run++
	}
	if run < 3 {
		return Verdict{}
	}

	variants := make(map[Signature]struct{})
	for _, sig := range seq[len(seq)-run:] {
		variants[sig] = struct{}{}
	}
	if len(variants) == 2 {
		return Verdict{
			Kind:        VerdictParameterCycle,
			Description: fmt.Sprintf("cycling through %s with varying parameters", action),
		}
	}
	return Verdict{}
}
