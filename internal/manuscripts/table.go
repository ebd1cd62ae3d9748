package manuscripts

import (
	"slices"

	"github.com/jennajle/jlsa-fall-journal/pkg/workflows"
)

// transition is the subject handed to table handlers. Handlers mutate manu
// and return the next state.
type transition struct {
	manu    *Manuscript
	referee string
	report  string

	// set when a referee-specific action named someone not assigned
	missingReferee bool
}

type handler = workflows.Handler[State, *transition]

func goTo(next State) handler {
	return func(*transition) State { return next }
}

func assignReferee(t *transition) State {
	if !t.manu.HasReferee(t.referee) {
		t.manu.Referees = append(t.manu.Referees, Referee{Name: t.referee})
	}
	return StateInRefereeReview
}

func deleteReferee(t *transition) State {
	if i := t.manu.refereeIndex(t.referee); i >= 0 {
		t.manu.Referees = append(t.manu.Referees[:i], t.manu.Referees[i+1:]...)
	}
	if len(t.manu.Referees) > 0 {
		return StateInRefereeReview
	}
	return StateSubmitted
}

// refereeVerdict records the referee's verdict and moves on. An unassigned
// referee leaves the manuscript in referee review untouched.
func refereeVerdict(verdict Action, next State) handler {
	return func(t *transition) State {
		i := t.manu.refereeIndex(t.referee)
		if i < 0 {
			t.missingReferee = true
			return StateInRefereeReview
		}
		t.manu.Referees[i].Verdict = verdict
		return next
	}
}

func submitReview(t *transition) State {
	i := t.manu.refereeIndex(t.referee)
	if i < 0 {
		t.missingReferee = true
		return StateInRefereeReview
	}
	t.manu.Referees[i].Report = t.report
	return StateInRefereeReview
}

var commonActions = map[Action]handler{
	ActionWithdraw: goTo(StateWithdrawn),
}

var stateTable = workflows.Table[State, Action, *transition]{
	StateSubmitted: {
		ActionAssignReferee: assignReferee,
		ActionReject:        goTo(StateRejected),
	},
	StateInRefereeReview: {
		ActionAssignReferee:       assignReferee,
		ActionDeleteReferee:       deleteReferee,
		ActionReject:              goTo(StateRejected),
		ActionAccept:              refereeVerdict(ActionAccept, StateCopyEdit),
		ActionAcceptWithRevisions: refereeVerdict(ActionAcceptWithRevisions, StateAuthorRevisions),
		ActionSubmitReview:        submitReview,
	},
	StateAuthorRevisions: {
		ActionDone: goTo(StateEditorReview),
	},
	StateEditorReview: {
		ActionAccept: goTo(StateCopyEdit),
	},
	StateCopyEdit: {
		ActionDone: goTo(StateAuthorReview),
	},
	StateAuthorReview: {
		ActionDone: goTo(StateFormatting),
	},
	StateFormatting: {
		ActionDone: goTo(StatePublished),
	},
}

// refereeActions need a referee name in the request.
var refereeActions = map[Action]bool{
	ActionAssignReferee: true,
	ActionDeleteReferee: true,
}

func newMachine(table workflows.Table[State, Action, *transition]) *workflows.StateMachine[State, Action, *transition] {
	sm, err := workflows.NewStateMachine(validStates, table, commonActions)
	if err != nil {
		panic(err)
	}
	return sm
}

var defaultMachine = newMachine(stateTable)

// ValidActions returns the actions available in state s, in registry order
func ValidActions(s State) []Action {
	allowed := defaultMachine.GetAllowedActions(s)
	out := []Action{}
	for _, a := range validActions {
		if slices.Contains(allowed, a) {
			out = append(out, a)
		}
	}
	return out
}
