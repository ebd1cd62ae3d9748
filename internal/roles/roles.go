// Package roles holds the closed set of person roles used by the journal.
package roles

import (
	"slices"
	"strings"
)

// Code identifies a capability class held by a person
type Code string

const (
	Author           Code = "AU"
	ConsultingEditor Code = "CE"
	Editor           Code = "ED"
	ManagingEditor   Code = "ME"
	Referee          Code = "RE"
)

// Role describes one role code
type Role struct {
	Code        Code   `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var registry = []Role{
	{Code: Author, Name: "Author", Description: "Writes articles"},
	{Code: ConsultingEditor, Name: "Consulting Editor", Description: "Provides editorial consulting"},
	{Code: Editor, Name: "Editor", Description: "Oversees the editorial process"},
	{Code: ManagingEditor, Name: "Managing Editor", Description: "Manages editorial operations"},
	{Code: Referee, Name: "Referee", Description: "Reviews submissions"},
}

// Roles returns every role, ordered by code
func Roles() []Role {
	out := make([]Role, len(registry))
	copy(out, registry)
	return out
}

// Codes returns every role code
func Codes() []Code {
	out := make([]Code, len(registry))
	for i, r := range registry {
		out[i] = r.Code
	}
	return out
}

// Get looks up a role by code
func Get(code Code) (Role, bool) {
	for _, r := range registry {
		if r.Code == code {
			return r, true
		}
	}
	return Role{}, false
}

// IsValid reports whether code names a known role
func IsValid(code Code) bool {
	_, ok := Get(code)
	return ok
}

// IsMasthead reports whether the role is listed on the journal masthead.
// Every editorial role is.
func IsMasthead(code Code) bool {
	r, ok := Get(code)
	return ok && strings.Contains(r.Name, "Editor")
}

// MastheadRoles returns the roles listed on the masthead
func MastheadRoles() []Role {
	var out []Role
	for _, r := range registry {
		if IsMasthead(r.Code) {
			out = append(out, r)
		}
	}
	return out
}

// MastheadCodes returns the codes of MastheadRoles
func MastheadCodes() []Code {
	var out []Code
	for _, r := range MastheadRoles() {
		out = append(out, r.Code)
	}
	return out
}

// AnyMasthead reports whether codes include a masthead role
func AnyMasthead(codes []Code) bool {
	masthead := MastheadCodes()
	for _, c := range codes {
		if slices.Contains(masthead, c) {
			return true
		}
	}
	return false
}
