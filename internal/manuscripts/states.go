package manuscripts

// State is a position in the manuscript workflow
type State string

const (
	StateSubmitted       State = "SUB"
	StateInRefereeReview State = "REV"
	StateAuthorRevisions State = "AUR"
	StateEditorReview    State = "ERV"
	StateCopyEdit        State = "CED"
	StateAuthorReview    State = "ARE"
	StateFormatting      State = "FMT"
	StatePublished       State = "PUB"
	StateRejected        State = "REJ"
	StateWithdrawn       State = "WIT"
)

// Action is an operation a caller performs on a manuscript
type Action string

const (
	ActionAssignReferee       Action = "ARF"
	ActionDeleteReferee       Action = "DRF"
	ActionReject              Action = "REJ"
	ActionWithdraw            Action = "WIT"
	ActionAccept              Action = "ACC"
	ActionAcceptWithRevisions Action = "ACR"
	ActionDone                Action = "DON"
	ActionSubmitReview        Action = "SBR"
)

var validStates = []State{
	StateSubmitted,
	StateInRefereeReview,
	StateAuthorRevisions,
	StateEditorReview,
	StateCopyEdit,
	StateAuthorReview,
	StateFormatting,
	StatePublished,
	StateRejected,
	StateWithdrawn,
}

var stateNames = map[State]string{
	StateSubmitted:       "Submitted",
	StateInRefereeReview: "In Referee Review",
	StateAuthorRevisions: "Author Revisions",
	StateEditorReview:    "Editor Review",
	StateCopyEdit:        "Copy Edit",
	StateAuthorReview:    "Author Review",
	StateFormatting:      "Formatting",
	StatePublished:       "Published",
	StateRejected:        "Rejected",
	StateWithdrawn:       "Withdrawn",
}

var validActions = []Action{
	ActionAssignReferee,
	ActionDeleteReferee,
	ActionReject,
	ActionWithdraw,
	ActionAccept,
	ActionAcceptWithRevisions,
	ActionDone,
	ActionSubmitReview,
}

var actionNames = map[Action]string{
	ActionAssignReferee:       "Assign Referee",
	ActionDeleteReferee:       "Delete Referee",
	ActionReject:              "Reject",
	ActionWithdraw:            "Withdraw",
	ActionAccept:              "Accept",
	ActionAcceptWithRevisions: "Accept With Revisions",
	ActionDone:                "Done",
	ActionSubmitReview:        "Submit Review",
}

// States returns every valid state in workflow order
func States() []State {
	out := make([]State, len(validStates))
	copy(out, validStates)
	return out
}

// IsValidState reports whether s is a registered state
func IsValidState(s State) bool {
	_, ok := stateNames[s]
	return ok
}

// DisplayName returns the human-readable state name
func (s State) DisplayName() string {
	return stateNames[s]
}

// IsTerminal reports whether s ends the workflow
func (s State) IsTerminal() bool {
	return s == StatePublished || s == StateRejected || s == StateWithdrawn
}

// Actions returns every valid action
func Actions() []Action {
	out := make([]Action, len(validActions))
	copy(out, validActions)
	return out
}

// IsValidAction reports whether a is a registered action
func IsValidAction(a Action) bool {
	_, ok := actionNames[a]
	return ok
}

// DisplayName returns the human-readable action name
func (a Action) DisplayName() string {
	return actionNames[a]
}

// StateInfo is the wire form of a state
type StateInfo struct {
	Code     State    `json:"code"`
	Name     string   `json:"name"`
	Terminal bool     `json:"terminal"`
	Actions  []Action `json:"actions"`
}

// ActionInfo is the wire form of an action
type ActionInfo struct {
	Code  Action   `json:"code"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}
