package model

import "time"

// LeadStatus is the position of a lead in the sales funnel.
type LeadStatus string

const (
	StatusNew       LeadStatus = "new"
	StatusContacted LeadStatus = "contacted"
	StatusQualified LeadStatus = "qualified"
	StatusLost      LeadStatus = "lost"
	StatusWon       LeadStatus = "won"
)

// Valid reports whether s is a known status.
func (s LeadStatus) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusQualified, StatusLost, StatusWon:
		return true
	}
	return false
}

const DefaultSource = "website"

// Lead is a prospective customer. Tags and Notes live in child tables and
// are filled in by the repository.
type Lead struct {
	ID         uint64     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Source     string     `json:"source"`
	Status     LeadStatus `json:"status"`
	Tags       []string   `json:"tags"`
	Notes      []Note     `json:"notes,omitempty"`
	AssignedTo *UserRef   `json:"assignedTo"`
	CreatedBy  *UserRef   `json:"createdBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// AssigneeID returns the id of the assigned user, or 0 when unassigned.
func (l *Lead) AssigneeID() uint64 {
	if l == nil || l.AssignedTo == nil {
		return 0
	}
	return l.AssignedTo.ID
}

// Note is a comment attached to a lead.
type Note struct {
	ID        uint64    `json:"id"`
	LeadID    uint64    `json:"-"`
	Content   string    `json:"content"`
	CreatedBy *UserRef  `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthorID returns the id of the note author, or 0 when the author was
// deleted.
func (n *Note) AuthorID() uint64 {
	if n == nil || n.CreatedBy == nil {
		return 0
	}
	return n.CreatedBy.ID
}

// NewLead is the validated input of a lead insert.
type NewLead struct {
	Name       string
	Email      string
	Phone      string
	Source     string
	Status     LeadStatus
	Tags       []string
	AssignedTo *uint64
	CreatedBy  uint64
	CreatedAt  time.Time
}

// LeadPatch is the allow-list of fields an update may touch. A nil field is
// left unchanged. AssignedTo distinguishes "absent" from "set to null".
type LeadPatch struct {
	Name       *string
	Email      *string
	Phone      *string
	Source     *string
	Status     *LeadStatus
	AssignedTo *OptionalID
}

// OptionalID carries an explicit assignment; a nil Value clears it.
type OptionalID struct {
	Value *uint64
}

// TagCount is one row of the tag statistics.
type TagCount struct {
	Tag   string `db:"tag" json:"tag"`
	Count int64  `db:"count" json:"count"`
}

// TagAction selects how updateTags combines tag sets.
type TagAction string

const (
	TagAdd    TagAction = "add"
	TagRemove TagAction = "remove"
)
