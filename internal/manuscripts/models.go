package manuscripts

import (
	"time"

	"github.com/google/uuid"
)

// Referee is a referee assigned to a manuscript
type Referee struct {
	Name    string `json:"name" bson:"name"`
	Verdict Action `json:"verdict,omitempty" bson:"verdict,omitempty"`
	Report  string `json:"report,omitempty" bson:"report,omitempty"`
}

// HistoryEntry records one executed transition
type HistoryEntry struct {
	From   State     `json:"from" bson:"from"`
	Action Action    `json:"action" bson:"action"`
	To     State     `json:"to" bson:"to"`
	At     time.Time `json:"at" bson:"at"`
}

// Manuscript is a submission tracked through the review workflow
type Manuscript struct {
	ID          string         `json:"id" bson:"_id"`
	Title       string         `json:"title" bson:"title"`
	Author      string         `json:"author" bson:"author"`
	AuthorEmail string         `json:"author_email" bson:"author_email"`
	Abstract    string         `json:"abstract,omitempty" bson:"abstract,omitempty"`
	Text        string         `json:"text,omitempty" bson:"text,omitempty"`
	Editor      string         `json:"editor,omitempty" bson:"editor,omitempty"`
	State       State          `json:"state" bson:"state"`
	Referees    []Referee      `json:"referees" bson:"referees"`
	History     []HistoryEntry `json:"history" bson:"history"`
	FileKey     string         `json:"file_key,omitempty" bson:"file_key,omitempty"`
	Version     int            `json:"version" bson:"version"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}

// NewManuscript returns a freshly submitted manuscript
func NewManuscript(title, author, authorEmail string) *Manuscript {
	now := time.Now().UTC()
	return &Manuscript{
		ID:          uuid.New().String(),
		Title:       title,
		Author:      author,
		AuthorEmail: authorEmail,
		State:       StateSubmitted,
		Referees:    []Referee{},
		History:     []HistoryEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RefereeNames returns the assigned referee names in assignment order
func (m *Manuscript) RefereeNames() []string {
	names := make([]string, len(m.Referees))
	for i, r := range m.Referees {
		names[i] = r.Name
	}
	return names
}

// HasReferee reports whether name is assigned
func (m *Manuscript) HasReferee(name string) bool {
	return m.refereeIndex(name) >= 0
}

func (m *Manuscript) refereeIndex(name string) int {
	for i, r := range m.Referees {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func (m *Manuscript) clone() *Manuscript {
	c := *m
	c.Referees = append([]Referee{}, m.Referees...)
	c.History = append([]HistoryEntry{}, m.History...)
	return &c
}

// Redacted returns the copy shown to readers outside the masthead. Review
// details and contact data are dropped.
func (m *Manuscript) Redacted() *Manuscript {
	c := m.clone()
	c.AuthorEmail = ""
	c.FileKey = ""
	c.Referees = []Referee{}
	return c
}

// CreateManuscriptRequest is the payload for submitting a manuscript
type CreateManuscriptRequest struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	AuthorEmail string `json:"author_email" binding:"required"`
	Abstract    string `json:"abstract"`
	Text        string `json:"text"`
	Editor      string `json:"editor"`
}

// TransitionInput is the payload for executing an action
type TransitionInput struct {
	CurrentState State  `json:"current_state"`
	Action       Action `json:"action" binding:"required"`
	Referee      string `json:"referee"`
	Report       string `json:"report"`
}

// ListFilter narrows a manuscript listing
type ListFilter struct {
	State       *State
	AuthorEmail *string
	Page        int
	PageSize    int
}

// ListResponse is a page of manuscripts
type ListResponse struct {
	Manuscripts []*Manuscript `json:"manuscripts"`
	TotalCount  int64         `json:"total_count"`
	Page        int           `json:"page"`
	PageSize    int           `json:"page_size"`
	HasMore     bool          `json:"has_more"`
}

// TransitionEvent is published after a transition is persisted
type TransitionEvent struct {
	ManuscriptID string    `json:"manuscript_id"`
	Title        string    `json:"title"`
	From         State     `json:"from"`
	Action       Action    `json:"action"`
	To           State     `json:"to"`
	By           string    `json:"by,omitempty"`
	At           time.Time `json:"at"`
}
