package domain

import (
	"encoding/json"
	"time"
)

// Todo represents a person-owned task tracked through a version chain.
type Todo struct {
	VersionedModel
	PersonID    string
	Title       string
	Description *string
	IsCompleted bool
	DueDate     *time.Time
}

// NewTodo builds an active, not yet completed todo for the given owner.
func NewTodo(personID, title string, description *string, dueDate *time.Time) *Todo {
	return &Todo{
		VersionedModel: NewVersionedModel(),
		PersonID:       personID,
		Title:          title,
		Description:    description,
		DueDate:        dueDate,
	}
}

// Validate must pass before every persist.
func (t *Todo) Validate() error {
	if t.PersonID == "" {
		return Validation("person_id is required")
	}
	if t.Title == "" {
		return Validation("title is required")
	}
	return nil
}

// IsCorrupted reports a stored todo that lost its owner.
func (t *Todo) IsCorrupted() bool {
	return t.PersonID == ""
}

// Map serializes the todo. Description is never null; when isoDates is false
// the time values are emitted as time.Time.
func (t *Todo) Map(isoDates bool) map[string]interface{} {
	out := t.VersionedModel.Fields(isoDates)
	out["person_id"] = t.PersonID
	out["title"] = t.Title
	out["description"] = ""
	if t.Description != nil {
		out["description"] = *t.Description
	}
	out["is_completed"] = t.IsCompleted
	out["due_date"] = nil
	if t.DueDate != nil {
		out["due_date"] = formatTime(*t.DueDate, isoDates)
	}
	return out
}

func (t *Todo) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Map(true))
}
