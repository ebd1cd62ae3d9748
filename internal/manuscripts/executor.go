package manuscripts

import (
	"errors"
	"fmt"
	"time"

	"github.com/jennajle/jlsa-fall-journal/pkg/workflows"
)

var (
	ErrInvalidState            = workflows.ErrInvalidState
	ErrInvalidAction           = workflows.ErrInvalidAction
	ErrInvalidTransitionResult = workflows.ErrInvalidTransitionResult
	ErrRefereeNotFound         = errors.New("referee not assigned to manuscript")
	ErrRefereeRequired         = errors.New("referee is required for this action")
)

// ExecutorConfig controls transition behaviour
type ExecutorConfig struct {
	// StrictReferees turns a verdict or review from an unassigned referee
	// into ErrRefereeNotFound instead of a no-op.
	StrictReferees bool
	Now            func() time.Time
}

// Executor validates and runs manuscript transitions. It never touches storage.
type Executor struct {
	machine *workflows.StateMachine[State, Action, *transition]
	cfg     ExecutorConfig
}

// NewExecutor creates an executor over the journal's transition table
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Executor{
		machine: defaultMachine,
		cfg:     cfg,
	}
}

// TransitionRequest asks for action to be applied to Manuscript, which the
// caller believes is in CurrentState. An empty CurrentState means the
// manuscript's own state.
type TransitionRequest struct {
	Manuscript   *Manuscript
	CurrentState State
	Action       Action
	Referee      string
	Report       string
}

// TransitionResult is the outcome of a successful transition
type TransitionResult struct {
	NewState State        `json:"new_state"`
	Entry    HistoryEntry `json:"entry"`
}

// Execute runs one transition. On success the manuscript carries the new
// state and one more history entry; on failure it is left exactly as it was.
func (e *Executor) Execute(req TransitionRequest) (*TransitionResult, error) {
	if req.Manuscript == nil {
		return nil, errors.New("manuscript is required")
	}
	from := req.CurrentState
	if from == "" {
		from = req.Manuscript.State
	}

	if !e.machine.IsValidState(from) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, from)
	}
	if !e.machine.CanExecute(from, req.Action) {
		return nil, fmt.Errorf("%w: %q not available in %q", ErrInvalidAction, req.Action, from)
	}
	if refereeActions[req.Action] && req.Referee == "" {
		return nil, fmt.Errorf("%w: %s", ErrRefereeRequired, req.Action.DisplayName())
	}

	work := &transition{
		manu:    req.Manuscript.clone(),
		referee: req.Referee,
		report:  req.Report,
	}
	next, err := e.machine.Execute(from, req.Action, work)
	if err != nil {
		return nil, err
	}
	if work.missingReferee && e.cfg.StrictReferees {
		return nil, fmt.Errorf("%w: %q", ErrRefereeNotFound, req.Referee)
	}

	work.manu.State = next
	entry := AppendHistory(work.manu, from, req.Action, next, e.cfg.Now())
	*req.Manuscript = *work.manu

	return &TransitionResult{NewState: next, Entry: entry}, nil
}

