package manuscripts

import (
	"slices"

	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

var editorActions = []Action{
	ActionAssignReferee,
	ActionDeleteReferee,
	ActionAccept,
	ActionAcceptWithRevisions,
	ActionReject,
	ActionDone,
	ActionWithdraw,
}

var rolePermissions = map[roles.Code][]Action{
	roles.Editor:           editorActions,
	roles.ManagingEditor:   editorActions,
	roles.ConsultingEditor: editorActions,
	roles.Author:           {ActionWithdraw, ActionDone},
	roles.Referee:          {ActionSubmitReview},
}

// PermittedActions returns the actions a single role may invoke
func PermittedActions(role roles.Code) []Action {
	return append([]Action{}, rolePermissions[role]...)
}

// FilterByRoles keeps the candidates that at least one of the roles may
// invoke, preserving candidate order. Unknown roles grant nothing.
func FilterByRoles(candidates []Action, roleCodes []roles.Code) []Action {
	allowed := make(map[Action]bool)
	for _, r := range roleCodes {
		for _, a := range rolePermissions[r] {
			allowed[a] = true
		}
	}

	out := []Action{}
	for _, a := range candidates {
		if allowed[a] {
			out = append(out, a)
		}
	}
	return out
}

// CanInvoke reports whether any of the roles may invoke action
func CanInvoke(roleCodes []roles.Code, action Action) bool {
	return len(FilterByRoles([]Action{action}, roleCodes)) == 1
}

// AllowedRoles lists the roles that may invoke action
func AllowedRoles(action Action) []roles.Code {
	var out []roles.Code
	for _, code := range roles.Codes() {
		if slices.Contains(PermittedActions(code), action) {
			out = append(out, code)
		}
	}
	return out
}

// ActionsFor returns the actions of state s visible to the roles
func ActionsFor(s State, roleCodes []roles.Code) []Action {
	return FilterByRoles(ValidActions(s), roleCodes)
}
