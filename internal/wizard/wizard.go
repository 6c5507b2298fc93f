// Package wizard models the onboarding flow as an explicit finite-state value
// with pure transition functions. The state is tiny (step index plus a dirty
// flag) and every transition returns a new value, so persistence and HTTP
// handling stay trivially testable.
package wizard

import "fmt"

// Step indices for the team onboarding flow.
const (
	StepWelcome = iota
	StepTeamName
	StepInviteMembers
	StepFirstDocument
	StepDone
)

// TotalSteps is the number of onboarding steps, StepDone included.
const TotalSteps = StepDone + 1

// State is the wizard position for one team. The zero value is the start of
// the flow.
type State struct {
	CurrentStep int  `json:"current_step"`
	TotalSteps  int  `json:"total_steps"`
	Dirty       bool `json:"dirty"`
}

// New returns the initial wizard state.
func New() State {
	return State{CurrentStep: StepWelcome, TotalSteps: TotalSteps}
}

// FromStep reconstructs a state from a persisted step index, clamping values
// outside the flow.
func FromStep(step int) State {
	if step < StepWelcome {
		step = StepWelcome
	}
	if step > StepDone {
		step = StepDone
	}
	return State{CurrentStep: step, TotalSteps: TotalSteps}
}

// Done reports whether the flow is complete.
func (s State) Done() bool {
	return s.CurrentStep >= StepDone
}

// Advance moves to the next step. Advancing past the final step stays on the
// final step; the dirty flag clears because the pending step was committed.
func (s State) Advance() State {
	next := s.CurrentStep + 1
	if next > StepDone {
		next = StepDone
	}
	return State{CurrentStep: next, TotalSteps: TotalSteps}
}

// Back moves to the previous step. Backing up from the first step stays on the
// first step. The dirty flag survives, the user's unsaved edits do too.
func (s State) Back() State {
	prev := s.CurrentStep - 1
	if prev < StepWelcome {
		prev = StepWelcome
	}
	return State{CurrentStep: prev, TotalSteps: TotalSteps, Dirty: s.Dirty}
}

// Jump moves directly to a step. Jumping outside the flow is an error rather
// than a clamp so the API surfaces bad client input.
func (s State) Jump(step int) (State, error) {
	if step < StepWelcome || step > StepDone {
		return s, fmt.Errorf("step %d out of range [%d, %d]", step, StepWelcome, StepDone)
	}
	return State{CurrentStep: step, TotalSteps: TotalSteps, Dirty: s.Dirty}, nil
}

// MarkDirty flags unsaved edits on the current step.
func (s State) MarkDirty() State {
	s.Dirty = true
	return s
}

// MarkClean clears the dirty flag after the step's edits are saved.
func (s State) MarkClean() State {
	s.Dirty = false
	return s
}
