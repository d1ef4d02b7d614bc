package dto

import "strings"

// NoteRequest is the body of the note add and update endpoints.
type NoteRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (r *NoteRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	return check(r)
}
