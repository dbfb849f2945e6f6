package game

import "fmt"

// Stage represents the phase of the current hand
type Stage int

const (
	Idle Stage = iota
	Preflop
	Flop
	Turn
	River
	Showdown
)

func (s Stage) String() string {
	return [...]string{"idle", "preflop", "flop", "turn", "river", "showdown"}[s]
}

// Betting reports whether the stage accepts player actions.
func (s Stage) Betting() bool {
	return s >= Preflop && s <= River
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseAction maps a wire action name to an Action.
func ParseAction(name string) (Action, error) {
	switch name {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	case "allin":
		return AllIn, nil
	default:
		return 0, fmt.Errorf("unknown action %q", name)
	}
}
