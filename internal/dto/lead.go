package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/iliyamo/crm-backend/internal/model"
)

// CreateLeadRequest is the body of POST /api/leads and the shape every
// imported spreadsheet row is converted to.
type CreateLeadRequest struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Email      string   `json:"email" validate:"required,email"`
	Phone      string   `json:"phone" validate:"required,max=50"`
	Source     string   `json:"source" validate:"max=100"`
	Status     string   `json:"status" validate:"omitempty,oneof=new contacted qualified lost won"`
	Tags       []string `json:"tags" validate:"omitempty,dive,required,max=100"`
	AssignedTo *uint64  `json:"assignedTo"`
}

// Validate trims the request, applies the source and status defaults and
// checks it. The email keeps its case; uniqueness is case-insensitive in
// the store.
func (r *CreateLeadRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = model.DefaultSource
	}
	r.Status = strings.TrimSpace(r.Status)
	if r.Status == "" {
		r.Status = string(model.StatusNew)
	}
	r.Tags = CleanTags(r.Tags)
	return check(r)
}

// UpdateLeadRequest is the allow-list of PUT /api/leads/:id. Absent fields
// are left untouched; "assignedTo": null clears the assignment.
type UpdateLeadRequest struct {
	Name       *string    `json:"name" validate:"omitnil,min=1,max=200"`
	Email      *string    `json:"email" validate:"omitnil,email"`
	Phone      *string    `json:"phone" validate:"omitnil,min=1,max=50"`
	Source     *string    `json:"source" validate:"omitnil,max=100"`
	Status     *string    `json:"status" validate:"omitnil,oneof=new contacted qualified lost won"`
	AssignedTo OptionalID `json:"assignedTo"`
}

func (r *UpdateLeadRequest) Validate() error {
	trimPtr(r.Name)
	trimPtr(r.Phone)
	trimPtr(r.Source)
	trimPtr(r.Status)
	trimPtr(r.Email)
	return check(r)
}

// Patch converts the request into a store patch.
func (r *UpdateLeadRequest) Patch() model.LeadPatch {
	p := model.LeadPatch{Name: r.Name, Email: r.Email, Phone: r.Phone, Source: r.Source}
	if r.Status != nil {
		s := model.LeadStatus(*r.Status)
		p.Status = &s
	}
	if r.AssignedTo.Set {
		p.AssignedTo = &model.OptionalID{Value: r.AssignedTo.Value}
	}
	return p
}

// OptionalID records whether a JSON key was present at all, so an explicit
// null can be told apart from an absent field.
type OptionalID struct {
	Set   bool
	Value *uint64
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// CleanTags trims every tag and drops empty ones. Case is preserved.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
