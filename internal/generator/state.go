package generator

// correctionPhase tracks where a generation sits in the
// validate-or-correct loop.
type correctionPhase int

const (
	phasePending correctionPhase = iota
	phaseRetrying
	phaseTerminal
)

// correctionState is the loop's explicit state machine. A generation
// starts Pending, moves to Retrying with an attempt counter while
// corrections are requested, and ends Terminal either when the spec
// validates or when the attempt budget is exhausted.
type correctionState struct {
	phase   correctionPhase
	attempt int
	max     int
}

func newCorrectionState(max int) *correctionState {
	return &correctionState{phase: phasePending, max: max}
}

// retry transitions into the next correction attempt. It returns false,
// and moves to Terminal, once the budget is spent or the loop was
// already terminated.
func (s *correctionState) retry() bool {
	if s.phase == phaseTerminal || s.attempt >= s.max {
		s.phase = phaseTerminal
		return false
	}
	s.phase = phaseRetrying
	s.attempt++
	return true
}

// terminate ends the loop regardless of remaining budget, used when a
// correction response cannot be parsed.
func (s *correctionState) terminate() {
	s.phase = phaseTerminal
}

func (s *correctionState) attempts() int {
	return s.attempt
}
