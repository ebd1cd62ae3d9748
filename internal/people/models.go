package people

import (
	"time"

	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

// Person is anyone known to the journal. The email is the identity.
type Person struct {
	Email        string       `json:"email" bson:"_id"`
	Name         string       `json:"name" bson:"name"`
	Affiliation  string       `json:"affiliation,omitempty" bson:"affiliation,omitempty"`
	Roles        []roles.Code `json:"roles" bson:"roles"`
	PasswordHash string       `json:"-" bson:"password_hash,omitempty"`
	CreatedAt    time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" bson:"updated_at"`
}

// HasRole reports whether the person holds code
func (p *Person) HasRole(code roles.Code) bool {
	for _, r := range p.Roles {
		if r == code {
			return true
		}
	}
	return false
}

// CreatePersonRequest is the payload for adding a person
type CreatePersonRequest struct {
	Email       string       `json:"email" binding:"required"`
	Name        string       `json:"name" binding:"required"`
	Affiliation string       `json:"affiliation"`
	Roles       []roles.Code `json:"roles"`
}

// UpdatePersonRequest changes a person's profile. Nil fields are left alone.
type UpdatePersonRequest struct {
	Email       string        `json:"email" binding:"required"`
	Name        *string       `json:"name"`
	Affiliation *string       `json:"affiliation"`
	Roles       *[]roles.Code `json:"roles"`
}

// MastheadEntry is one person listed under a masthead role
type MastheadEntry struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation,omitempty"`
}

// MastheadSection lists the people holding one masthead role
type MastheadSection struct {
	Role   string          `json:"role"`
	People []MastheadEntry `json:"people"`
}
