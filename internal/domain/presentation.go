package domain

// Stage - step of the presentation lifecycle.
type Stage string

const (
	StageWaiting Stage = "waiting"
	StageVoting  Stage = "voting"
	StageResults Stage = "results"
	StageEnded   Stage = "ended"
)

// PresentationStateID - key of the only presentation state row.
const PresentationStateID uint8 = 0

// PresentationState - shared state of the session, a singleton row.
type PresentationState struct {
	ID            uint8  `json:"id"`
	CurrentPollID uint64 `json:"current_poll_id"`
	Stage         Stage  `json:"stage"`
}

func NewPresentationState() PresentationState {
	return PresentationState{
		ID:            PresentationStateID,
		CurrentPollID: 0,
		Stage:         StageWaiting,
	}
}

var transitions = map[Stage][]Stage{
	StageWaiting: {StageVoting, StageResults, StageEnded},
	StageVoting:  {StageVoting, StageResults, StageEnded},
	StageResults: {StageVoting, StageResults, StageEnded},
	StageEnded:   {StageEnded},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s Stage) CanTransition(next Stage) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leads from s to another stage.
func (s Stage) Terminal() bool {
	for _, to := range transitions[s] {
		if to != s {
			return false
		}
	}
	return true
}

func ParseStage(s string) (Stage, bool) {
	switch Stage(s) {
	case StageWaiting, StageVoting, StageResults, StageEnded:
		return Stage(s), true
	}
	return "", false
}

func (s Stage) String() string {
	return string(s)
}
