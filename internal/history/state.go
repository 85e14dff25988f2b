package history

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal history transition")

// State is what the history is doing. Only Idle accepts new actions.
type State int

const (
	Idle State = iota
	// ReceivingAction collects the steps of an incremental edit such as a
	// drag between BeginAction and EndAction.
	ReceivingAction
	// Playing rejects everything but Pause.
	Playing
	// ExecutingScript runs a batch of actions and rejects everything else.
	ExecutingScript
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ReceivingAction:
		return "receiving action"
	case Playing:
		return "playing"
	case ExecutingScript:
		return "executing script"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transition is one request to the state machine.
type transition int

const (
	beginAction transition = iota
	takeStep
	endAction
	perform
	undoRedo
	promote
	play
	pause
	runScript
)

var transitionNames = [...]string{
	beginAction: "begin action",
	takeStep:    "take step",
	endAction:   "end action",
	perform:     "perform action",
	undoRedo:    "undo/redo",
	promote:     "add to timeline",
	play:        "play",
	pause:       "pause",
	runScript:   "execute script",
}

// legal lists, per state, the requests it accepts and the state each one
// leads to. Requests that run and return to the same state map to it.
var legal = map[State]map[transition]State{
	Idle: {
		beginAction: ReceivingAction,
		perform:     Idle,
		undoRedo:    Idle,
		promote:     Idle,
		play:        Playing,
		runScript:   ExecutingScript,
	},
	ReceivingAction: {
		takeStep:  ReceivingAction,
		endAction: Idle,
	},
	Playing: {
		pause: Idle,
	},
	ExecutingScript: {},
}

func next(from State, t transition) (State, error) {
	to, ok := legal[from][t]
	if !ok {
		return from, fmt.Errorf("%w: %s while %s", ErrIllegalTransition, transitionNames[t], from)
	}
	return to, nil
}
